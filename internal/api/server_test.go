package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/booklist-server/internal/auth"
	"github.com/listenupapp/booklist-server/internal/graph"
	"github.com/listenupapp/booklist-server/internal/metrics"
	"github.com/listenupapp/booklist-server/internal/pubsub"
	"github.com/listenupapp/booklist-server/internal/service"
	"github.com/listenupapp/booklist-server/internal/store"
	"github.com/listenupapp/booklist-server/internal/store/badgerstore"
)

type testServer struct {
	*Server
	store    store.Store
	bus      *pubsub.Broadcaster
	issuer   auth.Issuer
	accounts *service.AccountService
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	st, err := badgerstore.Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	bus := pubsub.NewBroadcaster(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)
	t.Cleanup(cancel)

	issuer, err := auth.NewJWTIssuer("test-secret", 0)
	require.NoError(t, err)
	secret, err := auth.NewSharedSecret("secret")
	require.NoError(t, err)

	m := metrics.New()
	m.RegisterBus(bus, bus)
	catalog := service.NewCatalogService(st, bus, m, logger)
	accounts := service.NewAccountService(st, issuer, secret, nil, m, logger)

	schema, err := graph.NewSchema(graph.NewResolver(catalog, accounts, bus, m, logger))
	require.NoError(t, err)

	s := NewServer(Options{
		Store:       st,
		Bus:         bus,
		Accounts:    accounts,
		Schema:      schema,
		Metrics:     m,
		CORSOrigins: []string{"http://localhost:3000"},
		Logger:      logger,
	})

	return &testServer{Server: s, store: st, bus: bus, issuer: issuer, accounts: accounts}
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

// graphql POSTs a document to path with an optional Authorization header value.
func (ts *testServer) graphql(t *testing.T, path, authorization, query string, vars map[string]any) (*httptest.ResponseRecorder, gqlResponse) {
	t.Helper()

	body, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	var resp gqlResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

// token creates a user and logs it in over GraphQL.
func (ts *testServer) token(t *testing.T, username string) string {
	t.Helper()

	_, resp := ts.graphql(t, "/", "", `mutation($u: String!) { createUser(username: $u, favoriteGenre: "scifi") { id } }`,
		map[string]any{"u": username})
	require.Empty(t, resp.Errors)

	_, resp = ts.graphql(t, "/", "", `mutation($u: String!) { login(username: $u, password: "secret") { value } }`,
		map[string]any{"u": username})
	require.Empty(t, resp.Errors)

	var data struct {
		Login struct {
			Value string `json:"value"`
		} `json:"login"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.Login.Value)
	return data.Login.Value
}

const addDune = `mutation { addBook(title: "Dune", author: "Frank Herbert", published: 1965, genres: ["scifi"]) { title author { name bookCount } } }`
