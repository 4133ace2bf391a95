// Package storetest holds the conformance suite every store backend must pass.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/booklist-server/internal/domain"
	"github.com/listenupapp/booklist-server/internal/errors"
	"github.com/listenupapp/booklist-server/internal/store"
)

// Factory opens an empty store. It must register its own cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the full conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, newStore(t).Ping(t.Context()))
	})
	t.Run("Authors", func(t *testing.T) { testAuthors(t, newStore(t)) })
	t.Run("AuthorValidation", func(t *testing.T) { testAuthorValidation(t, newStore(t)) })
	t.Run("SetAuthorBorn", func(t *testing.T) { testSetAuthorBorn(t, newStore(t)) })
	t.Run("Books", func(t *testing.T) { testBooks(t, newStore(t)) })
	t.Run("BookValidation", func(t *testing.T) { testBookValidation(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("ConcurrentDuplicateTitle", func(t *testing.T) { testConcurrentDuplicateTitle(t, newStore(t)) })
}

// MustCreateAuthor inserts an author and fails the test on error.
func MustCreateAuthor(t *testing.T, s store.AuthorStore, name string) *domain.Author {
	t.Helper()
	a := &domain.Author{Name: name}
	require.NoError(t, s.CreateAuthor(t.Context(), a))
	return a
}

// MustCreateBook inserts a book and fails the test on error.
func MustCreateBook(t *testing.T, s store.BookStore, title string, author *domain.Author, genres ...string) *domain.Book {
	t.Helper()
	b := &domain.Book{Title: title, Published: 2000, AuthorID: author.ID, Genres: genres}
	require.NoError(t, s.CreateBook(t.Context(), b))
	return b
}

func testAuthors(t *testing.T, s store.Store) {
	ctx := t.Context()

	n, err := s.CountAuthors(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	herbert := MustCreateAuthor(t, s, "Frank Herbert")
	assert.NotEmpty(t, herbert.ID)
	assert.False(t, herbert.CreatedAt.IsZero())
	MustCreateAuthor(t, s, "Ursula K. Le Guin")

	n, err = s.CountAuthors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GetAuthorByName(ctx, "Frank Herbert")
	require.NoError(t, err)
	assert.Equal(t, herbert.ID, got.ID)
	assert.Nil(t, got.Born)

	_, err = s.GetAuthorByName(ctx, "frank herbert")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.CreateAuthor(ctx, &domain.Author{Name: "Frank Herbert"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	all, err := s.ListAuthors(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, a := range all {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"Frank Herbert", "Ursula K. Le Guin"}, names)
}

func testAuthorValidation(t *testing.T, s store.Store) {
	err := s.CreateAuthor(t.Context(), &domain.Author{Name: "Bob"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBadUserInput)

	n, err := s.CountAuthors(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testSetAuthorBorn(t *testing.T, s store.Store) {
	ctx := t.Context()
	a := MustCreateAuthor(t, s, "Fyodor Dostoevsky")

	updated, err := s.SetAuthorBorn(ctx, "Fyodor Dostoevsky", 1821)
	require.NoError(t, err)
	assert.Equal(t, a.ID, updated.ID)
	require.NotNil(t, updated.Born)
	assert.Equal(t, 1821, *updated.Born)

	got, err := s.GetAuthorByName(ctx, "Fyodor Dostoevsky")
	require.NoError(t, err)
	require.NotNil(t, got.Born)
	assert.Equal(t, 1821, *got.Born)

	_, err = s.SetAuthorBorn(ctx, "Nobody Known", 1900)
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := s.CountAuthors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testBooks(t *testing.T, s store.Store) {
	ctx := t.Context()
	martin := MustCreateAuthor(t, s, "Robert Martin")

	b := MustCreateBook(t, s, "Clean Code", martin, "refactoring", "design")
	assert.NotEmpty(t, b.ID)
	MustCreateBook(t, s, "Agile software development", martin, "agile")

	n, err := s.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GetBookByTitle(ctx, "Clean Code")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, martin.ID, got.AuthorID)
	assert.Equal(t, 2000, got.Published)
	assert.Equal(t, []string{"refactoring", "design"}, got.Genres)

	_, err = s.GetBookByTitle(ctx, "Dirty Code")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.CreateBook(ctx, &domain.Book{Title: "Clean Code", Published: 2010, AuthorID: martin.ID})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	for _, book := range books {
		assert.Equal(t, martin.ID, book.AuthorID)
	}
}

func testBookValidation(t *testing.T, s store.Store) {
	a := MustCreateAuthor(t, s, "Joshua Kerievsky")

	err := s.CreateBook(t.Context(), &domain.Book{Title: "R", Published: 2008, AuthorID: a.ID})
	assert.ErrorIs(t, err, errors.ErrBadUserInput)

	n, err := s.CountBooks(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testUsers(t *testing.T, s store.Store) {
	ctx := t.Context()

	u := &domain.User{Username: "alice", FavoriteGenre: "scifi"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "scifi", got.FavoriteGenre)

	got, err = s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetUser(ctx, "does-not-exist")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.CreateUser(ctx, &domain.User{Username: "alice", FavoriteGenre: "crime"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	err = s.CreateUser(ctx, &domain.User{Username: "al", FavoriteGenre: "crime"})
	assert.ErrorIs(t, err, errors.ErrBadUserInput)
}

func testConcurrentDuplicateTitle(t *testing.T, s store.Store) {
	a := MustCreateAuthor(t, s, "Frank Herbert")

	const writers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.CreateBook(context.Background(), &domain.Book{Title: "Dune", Published: 1965, AuthorID: a.ID})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, store.ErrAlreadyExists):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(writers-1), conflicts.Load())

	n, err := s.CountBooks(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
