package domain

// Catalog is an in-memory snapshot of every author and book, used to
// build joined read views with freshly computed book counts.
type Catalog struct {
	authors []*Author
	books   []*Book
	byID    map[string]*Author
	counts  map[string]int
}

// NewCatalog indexes a snapshot of authors and books.
func NewCatalog(authors []*Author, books []*Book) *Catalog {
	c := &Catalog{
		authors: authors,
		books:   books,
		byID:    make(map[string]*Author, len(authors)),
		counts:  make(map[string]int, len(authors)),
	}
	for _, a := range authors {
		c.byID[a.ID] = a
	}
	for _, b := range books {
		c.counts[b.AuthorID]++
	}
	return c
}

// BookCount returns the number of books referencing authorID.
func (c *Catalog) BookCount(authorID string) int {
	return c.counts[authorID]
}

// AuthorByName finds an author by exact name.
func (c *Catalog) AuthorByName(name string) (*Author, bool) {
	for _, a := range c.authors {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Authors returns every author with its book count, in snapshot order.
func (c *Catalog) Authors() []AuthorDetails {
	out := make([]AuthorDetails, 0, len(c.authors))
	for _, a := range c.authors {
		out = append(out, a.Details(c.counts[a.ID]))
	}
	return out
}

// Books returns the books matching filter joined with their authors.
// An author filter naming nobody in the catalog matches no books.
// Books whose author reference does not resolve are skipped.
func (c *Catalog) Books(filter BookFilter) []BookDetails {
	authorID := ""
	if filter.Author != nil {
		a, ok := c.AuthorByName(*filter.Author)
		if !ok {
			return []BookDetails{}
		}
		authorID = a.ID
	}

	out := make([]BookDetails, 0, len(c.books))
	for _, b := range c.books {
		if filter.Genre != nil && !b.HasGenre(*filter.Genre) {
			continue
		}
		if authorID != "" && b.AuthorID != authorID {
			continue
		}
		d, ok := c.Join(b)
		if !ok {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Join attaches the author details to a book.
func (c *Catalog) Join(b *Book) (BookDetails, bool) {
	a, ok := c.byID[b.AuthorID]
	if !ok {
		return BookDetails{}, false
	}
	return BookDetails{
		ID:        b.ID,
		Title:     b.Title,
		Published: b.Published,
		Genres:    b.Genres,
		Author:    a.Details(c.counts[a.ID]),
	}, true
}
