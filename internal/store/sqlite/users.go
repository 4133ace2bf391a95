package sqlite

import (
	"context"
	"fmt"

	"github.com/listenupapp/booklist-server/internal/domain"
	"github.com/listenupapp/booklist-server/internal/id"
	"github.com/listenupapp/booklist-server/internal/store"
)

// userColumns must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, username, favorite_genre`

func scanUser(scanner rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&u.ID, &createdAt, &updatedAt, &u.Username, &u.FavoriteGenre); err != nil {
		return nil, err
	}

	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser retrieves a user by ID.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, translate(err, "user "+userID)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by exact username.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("user %q", username))
	}
	return u, nil
}

// CreateUser validates and inserts a user.
// Returns store.ErrAlreadyExists if the username is taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := store.Validate(user); err != nil {
		return err
	}
	user.ID = id.MustGenerate(id.PrefixUser)
	user.InitTimestamps()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Username,
		user.FavoriteGenre,
	)
	return translate(err, fmt.Sprintf("user %q", user.Username))
}
