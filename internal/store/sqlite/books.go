package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/listenupapp/booklist-server/internal/domain"
	"github.com/listenupapp/booklist-server/internal/id"
	"github.com/listenupapp/booklist-server/internal/store"
)

// bookColumns must match the scan order in scanBook.
const bookColumns = `id, created_at, updated_at, title, published, genres, author_id`

func scanBook(scanner rowScanner) (*domain.Book, error) {
	var (
		b         domain.Book
		createdAt string
		updatedAt string
		genres    string
	)
	if err := scanner.Scan(&b.ID, &createdAt, &updatedAt, &b.Title, &b.Published, &genres, &b.AuthorID); err != nil {
		return nil, err
	}

	var err error
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(genres), &b.Genres); err != nil {
		return nil, fmt.Errorf("decode genres of book %s: %w", b.ID, err)
	}
	if b.Genres == nil {
		b.Genres = []string{}
	}
	return &b, nil
}

// CountBooks returns the number of books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	return count(ctx, s.db, "books")
}

// ListBooks returns every book in insertion order.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GetBookByTitle returns the book with exactly this title.
func (s *Store) GetBookByTitle(ctx context.Context, title string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE title = ?`, title)
	b, err := scanBook(row)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("book %q", title))
	}
	return b, nil
}

// CreateBook validates and inserts a book.
// Returns store.ErrAlreadyExists if the title is taken.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := store.Validate(book); err != nil {
		return err
	}
	if book.Genres == nil {
		book.Genres = []string{}
	}
	genres, err := json.Marshal(book.Genres)
	if err != nil {
		return fmt.Errorf("encode genres: %w", err)
	}

	book.ID = id.MustGenerate(id.PrefixBook)
	book.InitTimestamps()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO books (`+bookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
		book.Title,
		book.Published,
		string(genres),
		book.AuthorID,
	)
	return translate(err, fmt.Sprintf("book %q", book.Title))
}
