// Package store defines the persistence contract for authors, books and users.
//
// Backends live in subpackages (mongostore, badgerstore, sqlite) and all of
// them pass the storetest conformance suite.
package store

import (
	"context"

	"github.com/listenupapp/booklist-server/internal/domain"
)

// AuthorStore persists authors.
type AuthorStore interface {
	CountAuthors(ctx context.Context) (int, error)
	ListAuthors(ctx context.Context) ([]*domain.Author, error)
	// GetAuthorByName returns ErrNotFound when no author has exactly this name.
	GetAuthorByName(ctx context.Context, name string) (*domain.Author, error)
	// CreateAuthor validates the author, assigns its ID and timestamps, and inserts it.
	CreateAuthor(ctx context.Context, author *domain.Author) error
	// SetAuthorBorn sets the birth year of the named author and returns the
	// updated record, or ErrNotFound.
	SetAuthorBorn(ctx context.Context, name string, born int) (*domain.Author, error)
}

// BookStore persists books.
type BookStore interface {
	CountBooks(ctx context.Context) (int, error)
	ListBooks(ctx context.Context) ([]*domain.Book, error)
	GetBookByTitle(ctx context.Context, title string) (*domain.Book, error)
	CreateBook(ctx context.Context, book *domain.Book) error
}

// UserStore persists users.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
}

// Store is implemented by every backend.
type Store interface {
	AuthorStore
	BookStore
	UserStore

	Ping(ctx context.Context) error
	Close() error
}
