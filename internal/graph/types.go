package graph

import (
	"github.com/graph-gophers/graphql-go"

	"github.com/listenupapp/booklist-server/internal/domain"
)

type bookResolver struct {
	book domain.BookDetails
}

func (r *bookResolver) ID() graphql.ID { return graphql.ID(r.book.ID) }
func (r *bookResolver) Title() string  { return r.book.Title }

//nolint:gosec // publication years fit in int32
func (r *bookResolver) Published() int32 { return int32(r.book.Published) }

func (r *bookResolver) Genres() []string {
	if r.book.Genres == nil {
		return []string{}
	}
	return r.book.Genres
}

func (r *bookResolver) Author() *authorResolver {
	return &authorResolver{author: r.book.Author}
}

type authorResolver struct {
	author domain.AuthorDetails
}

func (r *authorResolver) ID() graphql.ID { return graphql.ID(r.author.ID) }
func (r *authorResolver) Name() string   { return r.author.Name }

func (r *authorResolver) Born() *int32 {
	if r.author.Born == nil {
		return nil
	}
	//nolint:gosec // birth years fit in int32
	born := int32(*r.author.Born)
	return &born
}

//nolint:gosec // book counts fit in int32
func (r *authorResolver) BookCount() int32 { return int32(r.author.BookCount) }

type userResolver struct {
	user *domain.User
}

func (r *userResolver) ID() graphql.ID        { return graphql.ID(r.user.ID) }
func (r *userResolver) Username() string      { return r.user.Username }
func (r *userResolver) FavoriteGenre() string { return r.user.FavoriteGenre }

type tokenResolver struct {
	token domain.Token
}

func (r *tokenResolver) Value() string { return r.token.Value }

func bookResolvers(books []domain.BookDetails) []*bookResolver {
	out := make([]*bookResolver, len(books))
	for i := range books {
		out[i] = &bookResolver{book: books[i]}
	}
	return out
}

func authorResolvers(authors []domain.AuthorDetails) []*authorResolver {
	out := make([]*authorResolver, len(authors))
	for i := range authors {
		out[i] = &authorResolver{author: authors[i]}
	}
	return out
}
