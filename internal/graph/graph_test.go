package graph

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/booklist-server/internal/auth"
	"github.com/listenupapp/booklist-server/internal/domain"
	"github.com/listenupapp/booklist-server/internal/metrics"
	"github.com/listenupapp/booklist-server/internal/pubsub"
	"github.com/listenupapp/booklist-server/internal/service"
	"github.com/listenupapp/booklist-server/internal/store"
	"github.com/listenupapp/booklist-server/internal/store/badgerstore"
)

type testServer struct {
	schema   *graphql.Schema
	accounts *service.AccountService
	bus      *pubsub.Broadcaster
}

func setupSchema(t *testing.T) *testServer {
	t.Helper()
	s, err := badgerstore.Open(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return setupSchemaWithStore(t, s)
}

func setupSchemaWithStore(t *testing.T, s store.Store) *testServer {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	bus := pubsub.NewBroadcaster(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)
	t.Cleanup(cancel)

	issuer, err := auth.NewJWTIssuer("test-secret", 0)
	require.NoError(t, err)
	secret, err := auth.NewSharedSecret("secret")
	require.NoError(t, err)

	m := metrics.New()
	catalog := service.NewCatalogService(s, bus, m, logger)
	accounts := service.NewAccountService(s, issuer, secret, nil, m, logger)

	schema, err := NewSchema(NewResolver(catalog, accounts, bus, m, logger))
	require.NoError(t, err)

	return &testServer{schema: schema, accounts: accounts, bus: bus}
}

type gqlError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions"`
}

// exec runs a document and decodes data into out (when non-nil).
func (ts *testServer) exec(t *testing.T, ctx context.Context, query string, vars map[string]any, out any) []gqlError {
	t.Helper()
	resp := ts.schema.Exec(ctx, query, "", vars)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded struct {
		Data   json.RawMessage `json:"data"`
		Errors []gqlError      `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	if out != nil && len(decoded.Data) > 0 {
		require.NoError(t, json.Unmarshal(decoded.Data, out))
	}
	return decoded.Errors
}

// loginAs creates a user, logs in through GraphQL and returns a context carrying the user.
func (ts *testServer) loginAs(t *testing.T, username string) context.Context {
	t.Helper()
	ctx := context.Background()

	errs := ts.exec(t, ctx, `mutation($u: String!) { createUser(username: $u, favoriteGenre: "scifi") { id } }`,
		map[string]any{"u": username}, nil)
	require.Empty(t, errs)

	var data struct {
		Login struct{ Value string } `json:"login"`
	}
	errs = ts.exec(t, ctx, `mutation($u: String!) { login(username: $u, password: "secret") { value } }`,
		map[string]any{"u": username}, &data)
	require.Empty(t, errs)
	require.NotEmpty(t, data.Login.Value)

	user, err := ts.accounts.Authenticate(ctx, data.Login.Value)
	require.NoError(t, err)
	return auth.WithUser(ctx, user)
}

const addBookMutation = `
mutation AddBook($title: String!, $author: String!, $published: Int!, $genres: [String!]!) {
  addBook(title: $title, author: $author, published: $published, genres: $genres) {
    id
    title
    published
    genres
    author { id name born bookCount }
  }
}`

type bookJSON struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Published int      `json:"published"`
	Genres    []string `json:"genres"`
	Author    struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Born      *int   `json:"born"`
		BookCount int    `json:"bookCount"`
	} `json:"author"`
}

func bookVars(title, author string, published int, genres ...string) map[string]any {
	g := make([]any, len(genres))
	for i, genre := range genres {
		g[i] = genre
	}
	// Variables are shaped like decoded JSON, so numbers are float64.
	return map[string]any{"title": title, "author": author, "published": float64(published), "genres": g}
}

func TestNewSchema(t *testing.T) {
	ts := setupSchema(t)
	assert.NotNil(t, ts.schema)
	assert.Contains(t, SDL(), "bookAdded: Book!")
}

func TestSchema_AddBookScenario(t *testing.T) {
	ts := setupSchema(t)
	ctx := ts.loginAs(t, "alice")

	var data struct {
		AddBook *bookJSON `json:"addBook"`
	}
	errs := ts.exec(t, ctx, addBookMutation, bookVars("Dune", "Frank Herbert", 1965, "scifi"), &data)
	require.Empty(t, errs)
	require.NotNil(t, data.AddBook)
	assert.Equal(t, "Dune", data.AddBook.Title)
	assert.Equal(t, 1965, data.AddBook.Published)
	assert.Equal(t, []string{"scifi"}, data.AddBook.Genres)
	assert.Equal(t, "Frank Herbert", data.AddBook.Author.Name)
	assert.Equal(t, 1, data.AddBook.Author.BookCount)
	assert.Nil(t, data.AddBook.Author.Born)

	var counts struct {
		BookCount   int `json:"bookCount"`
		AuthorCount int `json:"authorCount"`
	}
	require.Empty(t, ts.exec(t, ctx, `{ bookCount authorCount }`, nil, &counts))
	assert.Equal(t, 1, counts.BookCount)
	assert.Equal(t, 1, counts.AuthorCount)
}

func TestSchema_AddBookUnauthenticated(t *testing.T) {
	ts := setupSchema(t)

	var data struct {
		AddBook *bookJSON `json:"addBook"`
	}
	errs := ts.exec(t, context.Background(), addBookMutation, bookVars("Dune", "Frank Herbert", 1965), &data)
	require.Len(t, errs, 1)
	assert.Equal(t, "Log in first", errs[0].Message)
	assert.Equal(t, "UNAUTHENTICATED", errs[0].Extensions["code"])
	assert.Nil(t, data.AddBook)

	var counts struct {
		BookCount int `json:"bookCount"`
	}
	require.Empty(t, ts.exec(t, context.Background(), `{ bookCount }`, nil, &counts))
	assert.Zero(t, counts.BookCount)
}

func TestSchema_AddBookDuplicateTitle(t *testing.T) {
	ts := setupSchema(t)
	ctx := ts.loginAs(t, "alice")

	require.Empty(t, ts.exec(t, ctx, addBookMutation, bookVars("Dune", "Frank Herbert", 1965), nil))

	errs := ts.exec(t, ctx, addBookMutation, bookVars("Dune", "Frank Herbert", 1965), nil)
	require.Len(t, errs, 1)
	assert.Equal(t, "Book is already added", errs[0].Message)
	assert.Equal(t, "BAD_USER_INPUT", errs[0].Extensions["code"])
	assert.Equal(t, "Dune", errs[0].Extensions["invalidArgs"])
}

func TestSchema_AllBooksAndAuthors(t *testing.T) {
	ts := setupSchema(t)
	ctx := ts.loginAs(t, "alice")

	for _, vars := range []map[string]any{
		bookVars("Clean Code", "Robert Martin", 2008, "refactoring"),
		bookVars("Agile software development", "Robert Martin", 2002, "agile", "patterns"),
		bookVars("Crime and punishment", "Fyodor Dostoevsky", 1866, "classic", "crime"),
	} {
		require.Empty(t, ts.exec(t, ctx, addBookMutation, vars, nil))
	}

	var books struct {
		AllBooks []bookJSON `json:"allBooks"`
	}
	errs := ts.exec(t, ctx, `query($a: String, $g: String) {
		allBooks(author: $a, genre: $g) { title author { name bookCount } }
	}`, map[string]any{"a": "Robert Martin", "g": "agile"}, &books)
	require.Empty(t, errs)
	require.Len(t, books.AllBooks, 1)
	assert.Equal(t, "Agile software development", books.AllBooks[0].Title)
	assert.Equal(t, 2, books.AllBooks[0].Author.BookCount)

	errs = ts.exec(t, ctx, `{ allBooks(author: "Nobody Known") { title } }`, nil, &books)
	require.Empty(t, errs)
	assert.Empty(t, books.AllBooks)

	var authors struct {
		AllAuthors []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			BookCount int    `json:"bookCount"`
		} `json:"allAuthors"`
	}
	require.Empty(t, ts.exec(t, ctx, `{ allAuthors { id name bookCount } }`, nil, &authors))
	require.Len(t, authors.AllAuthors, 2)
	counts := map[string]int{}
	for _, a := range authors.AllAuthors {
		assert.NotEmpty(t, a.ID)
		counts[a.Name] = a.BookCount
	}
	assert.Equal(t, map[string]int{"Robert Martin": 2, "Fyodor Dostoevsky": 1}, counts)
}

func TestSchema_EditAuthor(t *testing.T) {
	ts := setupSchema(t)
	ctx := ts.loginAs(t, "alice")
	require.Empty(t, ts.exec(t, ctx, addBookMutation, bookVars("Clean Code", "Robert Martin", 2008), nil))

	const edit = `mutation($n: String!, $b: Int!) { editAuthor(name: $n, setBornTo: $b) { name born bookCount } }`
	var data struct {
		EditAuthor *struct {
			Name      string `json:"name"`
			Born      *int   `json:"born"`
			BookCount int    `json:"bookCount"`
		} `json:"editAuthor"`
	}

	require.Empty(t, ts.exec(t, ctx, edit, map[string]any{"n": "Robert Martin", "b": float64(1952)}, &data))
	require.NotNil(t, data.EditAuthor)
	require.NotNil(t, data.EditAuthor.Born)
	assert.Equal(t, 1952, *data.EditAuthor.Born)
	assert.Equal(t, 1, data.EditAuthor.BookCount)

	data.EditAuthor = nil
	require.Empty(t, ts.exec(t, ctx, edit, map[string]any{"n": "Nobody Known", "b": float64(1900)}, &data))
	assert.Nil(t, data.EditAuthor)

	errs := ts.exec(t, context.Background(), edit, map[string]any{"n": "Robert Martin", "b": float64(1900)}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, "UNAUTHENTICATED", errs[0].Extensions["code"])
}

func TestSchema_CreateUserAndLoginErrors(t *testing.T) {
	ts := setupSchema(t)
	ctx := context.Background()

	errs := ts.exec(t, ctx, `mutation { createUser(username: "ab", favoriteGenre: "scifi") { id } }`, nil, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, "BAD_USER_INPUT", errs[0].Extensions["code"])
	assert.Equal(t, "ab", errs[0].Extensions["invalidArgs"])

	errs = ts.exec(t, ctx, `mutation { login(username: "nobody", password: "secret") { value } }`, nil, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, "Wrong user credentials", errs[0].Message)
	assert.Equal(t, "BAD_USER_INPUT", errs[0].Extensions["code"])
}

func TestSchema_Me(t *testing.T) {
	ts := setupSchema(t)

	var data struct {
		Me *struct {
			Username      string `json:"username"`
			FavoriteGenre string `json:"favoriteGenre"`
		} `json:"me"`
	}
	require.Empty(t, ts.exec(t, context.Background(), `{ me { username favoriteGenre } }`, nil, &data))
	assert.Nil(t, data.Me)

	ctx := ts.loginAs(t, "alice")
	require.Empty(t, ts.exec(t, ctx, `{ me { username favoriteGenre } }`, nil, &data))
	require.NotNil(t, data.Me)
	assert.Equal(t, "alice", data.Me.Username)
	assert.Equal(t, "scifi", data.Me.FavoriteGenre)
}

type brokenStore struct {
	store.Store
}

func (brokenStore) CountBooks(context.Context) (int, error) {
	return 0, errors.New("connection refused")
}

func TestSchema_InternalErrorsAreHidden(t *testing.T) {
	ts := setupSchemaWithStore(t, brokenStore{})

	errs := ts.exec(t, context.Background(), `{ bookCount }`, nil, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, "internal server error", errs[0].Message)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", errs[0].Extensions["code"])
}

func TestSchema_BookAddedSubscription(t *testing.T) {
	ts := setupSchema(t)
	ctx := ts.loginAs(t, "alice")

	subCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed, err := ts.schema.Subscribe(subCtx, `subscription { bookAdded { title author { name bookCount } } }`, "", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return ts.bus.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	require.Empty(t, ts.exec(t, ctx, addBookMutation, bookVars("Dune", "Frank Herbert", 1965, "scifi"), nil))

	select {
	case payload := <-feed:
		resp, ok := payload.(*graphql.Response)
		require.True(t, ok, "unexpected payload %T", payload)
		require.Empty(t, resp.Errors)

		var data struct {
			BookAdded bookJSON `json:"bookAdded"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, "Dune", data.BookAdded.Title)
		assert.Equal(t, "Frank Herbert", data.BookAdded.Author.Name)
		assert.Equal(t, 1, data.BookAdded.Author.BookCount)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bookAdded")
	}

	cancel()
	require.Eventually(t, func() bool { return ts.bus.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond,
		"subscription is released when the client goes away")
}

func TestResolver_BookAddedSkipsForeignEvents(t *testing.T) {
	ts := setupSchema(t)
	r := &Resolver{bus: ts.bus, logger: slog.New(slog.DiscardHandler)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := r.BookAdded(ctx)
	require.Eventually(t, func() bool { return ts.bus.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, ts.bus.Publish(ctx, pubsub.Event{Type: "book.removed"}))
	require.NoError(t, ts.bus.Publish(ctx, pubsub.NewBookAddedEvent(&domain.BookDetails{Title: "Dune"})))

	select {
	case book := <-feed:
		assert.Equal(t, "Dune", book.Title())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bookAdded")
	}
}

func TestResolver_BookAddedOnClosedBus(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	bus := pubsub.NewBroadcaster(logger)
	require.NoError(t, bus.Shutdown(context.Background()))

	r := &Resolver{bus: bus, logger: logger}
	_, open := <-r.BookAdded(context.Background())
	assert.False(t, open)
}
