package domain

// MinAuthorNameLength is the shortest accepted author name, in characters.
const MinAuthorNameLength = 4

// Author is a writer in the catalog. Names are unique.
type Author struct {
	Record
	Name string `json:"name" validate:"required,min=4,max=200"`
	// Born is the birth year, nil until someone sets it.
	Born *int `json:"born,omitempty"`
}

// AuthorDetails is the read view of an author with its derived book count.
type AuthorDetails struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Born      *int   `json:"born,omitempty"`
	BookCount int    `json:"bookCount"`
}

// Details builds the read view using a book count computed by the caller.
func (a *Author) Details(bookCount int) AuthorDetails {
	return AuthorDetails{
		ID:        a.ID,
		Name:      a.Name,
		Born:      a.Born,
		BookCount: bookCount,
	}
}
