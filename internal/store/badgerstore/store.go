// Package badgerstore is an embedded store.Store built on Badger.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/booklist-server/internal/domain"
	"github.com/listenupapp/booklist-server/internal/id"
	"github.com/listenupapp/booklist-server/internal/store"
)

const (
	authorPrefix = "author:"
	bookPrefix   = "book:"
	userPrefix   = "user:"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	authors *Entity[domain.Author]
	books   *Entity[domain.Book]
	users   *Entity[domain.User]
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) a Badger database in dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		authors: NewEntity[domain.Author](db, authorPrefix).
			WithIndex("name", func(a *domain.Author) string { return a.Name }),
		books: NewEntity[domain.Book](db, bookPrefix).
			WithIndex("title", func(b *domain.Book) string { return b.Title }),
		users: NewEntity[domain.User](db, userPrefix).
			WithIndex("username", func(u *domain.User) string { return u.Username }),
	}

	if logger != nil {
		logger.Info("Badger database opened", "path", dir)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger db: %w", err)
	}
	return nil
}

// Ping reports whether the database is open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return nil
}

// CountAuthors returns the number of authors.
func (s *Store) CountAuthors(ctx context.Context) (int, error) {
	return s.authors.Count(ctx)
}

// ListAuthors returns every author.
func (s *Store) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	return s.authors.List(ctx)
}

// GetAuthorByName returns the author with exactly this name.
func (s *Store) GetAuthorByName(ctx context.Context, name string) (*domain.Author, error) {
	return s.authors.GetByIndex(ctx, "name", name)
}

// CreateAuthor validates and inserts an author.
func (s *Store) CreateAuthor(ctx context.Context, author *domain.Author) error {
	if err := store.Validate(author); err != nil {
		return err
	}
	author.ID = id.MustGenerate(id.PrefixAuthor)
	author.InitTimestamps()
	return s.authors.Create(ctx, author.ID, author)
}

// SetAuthorBorn updates the birth year of the named author.
func (s *Store) SetAuthorBorn(ctx context.Context, name string, born int) (*domain.Author, error) {
	return s.authors.UpdateByIndex(ctx, "name", name, func(a *domain.Author) {
		a.Born = &born
		a.Touch()
	})
}

// CountBooks returns the number of books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	return s.books.Count(ctx)
}

// ListBooks returns every book.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.books.List(ctx)
}

// GetBookByTitle returns the book with exactly this title.
func (s *Store) GetBookByTitle(ctx context.Context, title string) (*domain.Book, error) {
	return s.books.GetByIndex(ctx, "title", title)
}

// CreateBook validates and inserts a book.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := store.Validate(book); err != nil {
		return err
	}
	if book.Genres == nil {
		book.Genres = []string{}
	}
	book.ID = id.MustGenerate(id.PrefixBook)
	book.InitTimestamps()
	return s.books.Create(ctx, book.ID, book)
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.Get(ctx, userID)
}

// GetUserByUsername returns the user with exactly this username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByIndex(ctx, "username", username)
}

// CreateUser validates and inserts a user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := store.Validate(user); err != nil {
		return err
	}
	user.ID = id.MustGenerate(id.PrefixUser)
	user.InitTimestamps()
	return s.users.Create(ctx, user.ID, user)
}
