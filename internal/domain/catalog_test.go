package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sampleCatalog() *Catalog {
	authors := []*Author{
		{Record: Record{ID: "a1"}, Name: "Robert Martin", Born: ptr(1952)},
		{Record: Record{ID: "a2"}, Name: "Martin Fowler", Born: ptr(1963)},
		{Record: Record{ID: "a3"}, Name: "Sandi Metz"},
	}
	books := []*Book{
		{Record: Record{ID: "b1"}, Title: "Clean Code", Published: 2008, AuthorID: "a1", Genres: []string{"refactoring"}},
		{Record: Record{ID: "b2"}, Title: "Agile software development", Published: 2002, AuthorID: "a1", Genres: []string{"agile", "patterns", "design"}},
		{Record: Record{ID: "b3"}, Title: "Refactoring, edition 2", Published: 2018, AuthorID: "a2", Genres: []string{"refactoring"}},
		{Record: Record{ID: "b4"}, Title: "Orphan", Published: 2000, AuthorID: "gone", Genres: []string{"refactoring"}},
	}
	return NewCatalog(authors, books)
}

func TestCatalog_AuthorsBookCount(t *testing.T) {
	c := sampleCatalog()

	got := c.Authors()
	require.Len(t, got, 3)
	assert.Equal(t, AuthorDetails{ID: "a1", Name: "Robert Martin", Born: ptr(1952), BookCount: 2}, got[0])
	assert.Equal(t, 1, got[1].BookCount)
	assert.Equal(t, 0, got[2].BookCount)
	assert.Nil(t, got[2].Born)
}

func TestCatalog_Books(t *testing.T) {
	c := sampleCatalog()

	tests := []struct {
		name   string
		filter BookFilter
		want   []string
	}{
		{name: "no filter", filter: BookFilter{}, want: []string{"b1", "b2", "b3"}},
		{name: "by genre", filter: BookFilter{Genre: ptr("refactoring")}, want: []string{"b1", "b3"}},
		{name: "by author", filter: BookFilter{Author: ptr("Robert Martin")}, want: []string{"b1", "b2"}},
		{name: "by author and genre", filter: BookFilter{Author: ptr("Robert Martin"), Genre: ptr("agile")}, want: []string{"b2"}},
		{name: "unknown author", filter: BookFilter{Author: ptr("Nobody Here")}, want: []string{}},
		{name: "genre is case sensitive", filter: BookFilter{Genre: ptr("Refactoring")}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Books(tt.filter)
			ids := make([]string, 0, len(got))
			for _, b := range got {
				ids = append(ids, b.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCatalog_JoinComputesCount(t *testing.T) {
	c := sampleCatalog()

	got := c.Books(BookFilter{Author: ptr("Martin Fowler")})
	require.Len(t, got, 1)
	assert.Equal(t, "Refactoring, edition 2", got[0].Title)
	assert.Equal(t, "Martin Fowler", got[0].Author.Name)
	assert.Equal(t, 1, got[0].Author.BookCount)
}

func TestCatalog_JoinMissingAuthor(t *testing.T) {
	c := sampleCatalog()

	_, ok := c.Join(&Book{Title: "Orphan", AuthorID: "gone"})
	assert.False(t, ok)
}

func TestRecord_Timestamps(t *testing.T) {
	var r Record
	r.InitTimestamps()
	assert.False(t, r.CreatedAt.IsZero())
	assert.Equal(t, r.CreatedAt, r.UpdatedAt)

	r.Touch()
	assert.False(t, r.UpdatedAt.Before(r.CreatedAt))
}
