package graph

import (
	"context"

	"github.com/listenupapp/booklist-server/internal/auth"
	"github.com/listenupapp/booklist-server/internal/domain"
	domainerrors "github.com/listenupapp/booklist-server/internal/errors"
	"github.com/listenupapp/booklist-server/internal/service"
)

// fail converts err for the client, logs internal failures and records the outcome.
func (r *Resolver) fail(ctx context.Context, field string, err error) error {
	public := domainerrors.Public(err)
	if public.Code == domainerrors.CodeInternal {
		r.logger.ErrorContext(ctx, "resolver failed", "field", field, "error", err)
	}
	r.metrics.ObserveOperation(field, string(public.Code))
	return public
}

func (r *Resolver) ok(field string) {
	r.metrics.ObserveOperation(field, "")
}

// BookCount resolves Query.bookCount.
func (r *Resolver) BookCount(ctx context.Context) (int32, error) {
	n, err := r.catalog.BookCount(ctx)
	if err != nil {
		return 0, r.fail(ctx, "bookCount", err)
	}
	r.ok("bookCount")
	//nolint:gosec // record counts fit in int32
	return int32(n), nil
}

// AuthorCount resolves Query.authorCount.
func (r *Resolver) AuthorCount(ctx context.Context) (int32, error) {
	n, err := r.catalog.AuthorCount(ctx)
	if err != nil {
		return 0, r.fail(ctx, "authorCount", err)
	}
	r.ok("authorCount")
	//nolint:gosec // record counts fit in int32
	return int32(n), nil
}

// AllBooks resolves Query.allBooks.
func (r *Resolver) AllBooks(ctx context.Context, args struct {
	Author *string
	Genre  *string
}) ([]*bookResolver, error) {
	books, err := r.catalog.AllBooks(ctx, domain.BookFilter{Author: args.Author, Genre: args.Genre})
	if err != nil {
		return nil, r.fail(ctx, "allBooks", err)
	}
	r.ok("allBooks")
	return bookResolvers(books), nil
}

// AllAuthors resolves Query.allAuthors.
func (r *Resolver) AllAuthors(ctx context.Context) ([]*authorResolver, error) {
	authors, err := r.catalog.AllAuthors(ctx)
	if err != nil {
		return nil, r.fail(ctx, "allAuthors", err)
	}
	r.ok("allAuthors")
	return authorResolvers(authors), nil
}

// Me resolves Query.me: the caller, or null when anonymous.
func (r *Resolver) Me(ctx context.Context) *userResolver {
	user := auth.UserFromContext(ctx)
	if user == nil {
		return nil
	}
	return &userResolver{user: user}
}

// AddBook resolves Mutation.addBook.
func (r *Resolver) AddBook(ctx context.Context, args struct {
	Title     string
	Author    string
	Published int32
	Genres    []string
}) (*bookResolver, error) {
	book, err := r.catalog.AddBook(ctx, auth.UserFromContext(ctx), service.AddBookInput{
		Title:     args.Title,
		Author:    args.Author,
		Published: int(args.Published),
		Genres:    args.Genres,
	})
	if err != nil {
		return nil, r.fail(ctx, "addBook", err)
	}
	r.ok("addBook")
	return &bookResolver{book: *book}, nil
}

// EditAuthor resolves Mutation.editAuthor.
func (r *Resolver) EditAuthor(ctx context.Context, args struct {
	Name      string
	SetBornTo int32
}) (*authorResolver, error) {
	author, err := r.catalog.EditAuthor(ctx, auth.UserFromContext(ctx), args.Name, int(args.SetBornTo))
	if err != nil {
		return nil, r.fail(ctx, "editAuthor", err)
	}
	r.ok("editAuthor")
	if author == nil {
		return nil, nil
	}
	return &authorResolver{author: *author}, nil
}

// CreateUser resolves Mutation.createUser.
func (r *Resolver) CreateUser(ctx context.Context, args struct {
	Username      string
	FavoriteGenre string
}) (*userResolver, error) {
	user, err := r.accounts.CreateUser(ctx, service.CreateUserInput{
		Username:      args.Username,
		FavoriteGenre: args.FavoriteGenre,
	})
	if err != nil {
		return nil, r.fail(ctx, "createUser", err)
	}
	r.ok("createUser")
	return &userResolver{user: user}, nil
}

// Login resolves Mutation.login.
func (r *Resolver) Login(ctx context.Context, args struct {
	Username string
	Password string
}) (*tokenResolver, error) {
	token, err := r.accounts.Login(ctx, args.Username, args.Password)
	if err != nil {
		return nil, r.fail(ctx, "login", err)
	}
	r.ok("login")
	return &tokenResolver{token: token}, nil
}
