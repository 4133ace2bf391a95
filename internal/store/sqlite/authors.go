package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/listenupapp/booklist-server/internal/domain"
	"github.com/listenupapp/booklist-server/internal/id"
	"github.com/listenupapp/booklist-server/internal/store"
)

// authorColumns must match the scan order in scanAuthor.
const authorColumns = `id, created_at, updated_at, name, born`

func scanAuthor(scanner rowScanner) (*domain.Author, error) {
	var (
		a         domain.Author
		createdAt string
		updatedAt string
		born      sql.NullInt64
	)
	if err := scanner.Scan(&a.ID, &createdAt, &updatedAt, &a.Name, &born); err != nil {
		return nil, err
	}

	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if born.Valid {
		year := int(born.Int64)
		a.Born = &year
	}
	return &a, nil
}

// CountAuthors returns the number of authors.
func (s *Store) CountAuthors(ctx context.Context) (int, error) {
	return count(ctx, s.db, "authors")
}

// ListAuthors returns every author in insertion order.
func (s *Store) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+authorColumns+` FROM authors ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []*domain.Author
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// GetAuthorByName returns the author with exactly this name.
func (s *Store) GetAuthorByName(ctx context.Context, name string) (*domain.Author, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+authorColumns+` FROM authors WHERE name = ?`, name)
	a, err := scanAuthor(row)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("author %q", name))
	}
	return a, nil
}

// CreateAuthor validates and inserts an author.
// Returns store.ErrAlreadyExists if the name is taken.
func (s *Store) CreateAuthor(ctx context.Context, author *domain.Author) error {
	if err := store.Validate(author); err != nil {
		return err
	}
	author.ID = id.MustGenerate(id.PrefixAuthor)
	author.InitTimestamps()

	var born sql.NullInt64
	if author.Born != nil {
		born = sql.NullInt64{Int64: int64(*author.Born), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO authors (`+authorColumns+`) VALUES (?, ?, ?, ?, ?)`,
		author.ID,
		formatTime(author.CreatedAt),
		formatTime(author.UpdatedAt),
		author.Name,
		born,
	)
	return translate(err, fmt.Sprintf("author %q", author.Name))
}

// SetAuthorBorn updates the birth year of the named author.
func (s *Store) SetAuthorBorn(ctx context.Context, name string, born int) (*domain.Author, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE authors SET born = ?, updated_at = ? WHERE name = ? RETURNING `+authorColumns,
		born, formatTime(time.Now()), name)
	a, err := scanAuthor(row)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("author %q", name))
	}
	return a, nil
}
