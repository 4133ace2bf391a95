package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/listenupapp/booklist-server/internal/domain"
	domainerrors "github.com/listenupapp/booklist-server/internal/errors"
	"github.com/listenupapp/booklist-server/internal/metrics"
	"github.com/listenupapp/booklist-server/internal/normalize"
	"github.com/listenupapp/booklist-server/internal/pubsub"
	"github.com/listenupapp/booklist-server/internal/store"
)

// Publisher is the part of the event bus the catalog writes to.
type Publisher interface {
	Publish(ctx context.Context, event pubsub.Event) error
}

// CatalogService answers catalog queries and applies book and author mutations.
type CatalogService struct {
	store   store.Store
	bus     Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store store.Store, bus Publisher, m *metrics.Metrics, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:   store,
		bus:     bus,
		metrics: m,
		logger:  logger,
	}
}

// AddBookInput contains the addBook arguments.
type AddBookInput struct {
	Title     string
	Author    string
	Published int
	Genres    []string
}

// BookCount returns the number of books.
func (s *CatalogService) BookCount(ctx context.Context) (int, error) {
	return s.store.CountBooks(ctx)
}

// AuthorCount returns the number of authors.
func (s *CatalogService) AuthorCount(ctx context.Context) (int, error) {
	return s.store.CountAuthors(ctx)
}

// AllBooks returns the books matching filter, each joined with its author.
// Blank filter values are ignored.
func (s *CatalogService) AllBooks(ctx context.Context, filter domain.BookFilter) ([]domain.BookDetails, error) {
	filter = domain.BookFilter{
		Author: normalize.Optional(filter.Author),
		Genre:  normalize.Optional(filter.Genre),
	}

	catalog, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Books(filter), nil
}

// AllAuthors returns every author with its current book count.
func (s *CatalogService) AllAuthors(ctx context.Context) ([]domain.AuthorDetails, error) {
	catalog, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Authors(), nil
}

// AddBook creates a book, creating its author on first mention, and
// announces it to bookAdded subscribers.
//
// Nothing is written when the caller is anonymous, the title is taken
// or the book itself is invalid.
func (s *CatalogService) AddBook(ctx context.Context, actor *domain.User, in AddBookInput) (*domain.BookDetails, error) {
	if actor == nil {
		return nil, errLogInFirst()
	}

	title := normalize.Text(in.Title)
	authorName := normalize.Text(in.Author)

	switch _, err := s.store.GetBookByTitle(ctx, title); {
	case err == nil:
		return nil, errBookExists(in.Title)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("look up book: %w", err)
	}

	book := &domain.Book{
		Title:     title,
		Published: in.Published,
		Genres:    normalize.Genres(in.Genres),
		AuthorID:  "pending",
	}
	if err := store.Validate(book); err != nil {
		return nil, inputError("Saving book failed", err, nil)
	}

	author, created, err := s.findOrCreateAuthor(ctx, authorName, in.Author)
	if err != nil {
		return nil, err
	}

	book.AuthorID = author.ID
	if err := s.store.CreateBook(ctx, book); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return nil, errBookExists(in.Title)
		case errors.Is(err, domainerrors.ErrBadUserInput):
			return nil, inputError("Saving book failed", err, nil)
		}
		return nil, fmt.Errorf("create book: %w", err)
	}

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	details, _ := domain.NewCatalog([]*domain.Author{author}, books).Join(book)

	if err := s.bus.Publish(ctx, pubsub.NewBookAddedEvent(&details)); err != nil {
		s.logger.Warn("failed to publish bookAdded", "book_id", book.ID, "error", err)
	}

	s.metrics.BookAdded(created)
	s.logger.Info("book added",
		"book_id", book.ID,
		"title", book.Title,
		"author_id", author.ID,
		"new_author", created,
		"user_id", actor.ID,
	)
	return &details, nil
}

// findOrCreateAuthor returns the author with name, creating it when absent.
// rawName is echoed back in invalidArgs on validation failure.
func (s *CatalogService) findOrCreateAuthor(ctx context.Context, name, rawName string) (*domain.Author, bool, error) {
	author, err := s.store.GetAuthorByName(ctx, name)
	if err == nil {
		return author, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("look up author: %w", err)
	}

	author = &domain.Author{Name: name}
	err = s.store.CreateAuthor(ctx, author)
	switch {
	case err == nil:
		return author, true, nil
	case errors.Is(err, store.ErrAlreadyExists):
		// A concurrent addBook created the same author first.
		existing, err := s.store.GetAuthorByName(ctx, name)
		if err != nil {
			return nil, false, fmt.Errorf("look up author: %w", err)
		}
		return existing, false, nil
	case errors.Is(err, domainerrors.ErrBadUserInput):
		return nil, false, inputError("Saving author failed", err, rawName)
	default:
		return nil, false, fmt.Errorf("create author: %w", err)
	}
}

// EditAuthor sets the birth year of the named author.
// It returns nil without error when no author has that name.
func (s *CatalogService) EditAuthor(ctx context.Context, actor *domain.User, name string, born int) (*domain.AuthorDetails, error) {
	if actor == nil {
		return nil, errLogInFirst()
	}

	author, err := s.store.SetAuthorBorn(ctx, normalize.Text(name), born)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("set author born: %w", err)
	}

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	details := author.Details(domain.NewCatalog([]*domain.Author{author}, books).BookCount(author.ID))

	s.logger.Info("author edited", "author_id", author.ID, "born", born, "user_id", actor.ID)
	return &details, nil
}

// snapshot loads every author and book.
func (s *CatalogService) snapshot(ctx context.Context) (*domain.Catalog, error) {
	authors, err := s.store.ListAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return domain.NewCatalog(authors, books), nil
}
