package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/booklist-server/internal/auth"
	"github.com/listenupapp/booklist-server/internal/domain"
	domainerrors "github.com/listenupapp/booklist-server/internal/errors"
	"github.com/listenupapp/booklist-server/internal/metrics"
	"github.com/listenupapp/booklist-server/internal/pubsub"
	"github.com/listenupapp/booklist-server/internal/ratelimit"
	"github.com/listenupapp/booklist-server/internal/store"
	"github.com/listenupapp/booklist-server/internal/store/badgerstore"
)

// testEnv wires both services over a throwaway Badger store.
type testEnv struct {
	store    store.Store
	bus      *pubsub.Broadcaster
	metrics  *metrics.Metrics
	issuer   auth.Issuer
	catalog  *CatalogService
	accounts *AccountService
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()
	return setupServicesWithLimiter(t, nil)
}

func setupServicesWithLimiter(t *testing.T, limiter *ratelimit.KeyedRateLimiter) *testEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	s, err := badgerstore.Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	bus := pubsub.NewBroadcaster(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)
	t.Cleanup(cancel)

	issuer, err := auth.NewJWTIssuer("test-secret", 0)
	require.NoError(t, err)
	secret, err := auth.NewSharedSecret("secret")
	require.NoError(t, err)

	m := metrics.New()
	return &testEnv{
		store:    s,
		bus:      bus,
		metrics:  m,
		issuer:   issuer,
		catalog:  NewCatalogService(s, bus, m, logger),
		accounts: NewAccountService(s, issuer, secret, limiter, m, logger),
	}
}

// login creates a user and returns it as an authenticated actor.
func (e *testEnv) login(t *testing.T, username string) *domain.User {
	t.Helper()
	ctx := context.Background()

	_, err := e.accounts.CreateUser(ctx, CreateUserInput{Username: username, FavoriteGenre: "scifi"})
	require.NoError(t, err)
	token, err := e.accounts.Login(ctx, username, "secret")
	require.NoError(t, err)
	user, err := e.accounts.Authenticate(ctx, token.Value)
	require.NoError(t, err)
	return user
}

func (e *testEnv) addBook(t *testing.T, actor *domain.User, title, author string, genres ...string) *domain.BookDetails {
	t.Helper()
	book, err := e.catalog.AddBook(context.Background(), actor, AddBookInput{
		Title:     title,
		Author:    author,
		Published: 1965,
		Genres:    genres,
	})
	require.NoError(t, err)
	return book
}

// counts returns (books, authors).
func (e *testEnv) counts(t *testing.T) (int, int) {
	t.Helper()
	ctx := context.Background()
	books, err := e.catalog.BookCount(ctx)
	require.NoError(t, err)
	authors, err := e.catalog.AuthorCount(ctx)
	require.NoError(t, err)
	return books, authors
}

// requireCode asserts err is a domain error with code and returns it.
func requireCode(t *testing.T, err error, code domainerrors.Code) *domainerrors.Error {
	t.Helper()
	require.Error(t, err)
	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, code, derr.Code, "message: %s", derr.Message)
	return derr
}

func receiveEvent(t *testing.T, sub *pubsub.Subscription) pubsub.Event {
	t.Helper()
	select {
	case event := <-sub.Events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return pubsub.Event{}
	}
}

func assertNoEvent(t *testing.T, sub *pubsub.Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events:
		t.Fatalf("unexpected event: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}
