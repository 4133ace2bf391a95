package domain

import "slices"

// MinBookTitleLength is the shortest accepted book title, in characters.
const MinBookTitleLength = 2

// Book is a catalog entry. Books are created once and never updated.
type Book struct {
	Record
	Title     string   `json:"title" validate:"required,min=2,max=500"`
	Published int      `json:"published"`
	Genres    []string `json:"genres" validate:"dive,required"`
	// AuthorID references Author.ID.
	AuthorID string `json:"author" validate:"required"`
}

// HasGenre reports whether the book is tagged with genre. Matching is exact.
func (b *Book) HasGenre(genre string) bool {
	return slices.Contains(b.Genres, genre)
}

// BookDetails is a book joined with its author.
type BookDetails struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Published int           `json:"published"`
	Genres    []string      `json:"genres"`
	Author    AuthorDetails `json:"author"`
}

// BookFilter narrows allBooks. Nil fields match everything.
type BookFilter struct {
	Author *string
	Genre  *string
}
