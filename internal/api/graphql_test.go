package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphQL_BothPaths(t *testing.T) {
	ts := setupTestServer(t)

	for _, path := range []string{"/", "/graphql"} {
		t.Run(path, func(t *testing.T) {
			rec, resp := ts.graphql(t, path, "", `{ bookCount authorCount }`, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Empty(t, resp.Errors)
			assert.JSONEq(t, `{"bookCount":0,"authorCount":0}`, string(resp.Data))
		})
	}
}

func TestGraphQL_AuthorizationHeader(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.token(t, "alice")

	tests := []struct {
		name     string
		header   string
		wantUser bool
	}{
		{"bearer token", "Bearer " + token, true},
		{"lowercase scheme", "bearer " + token, true},
		{"bare token", token, true},
		{"missing header", "", false},
		{"garbage token", "Bearer not-a-token", false},
		{"scheme only", "Bearer", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := ts.graphql(t, "/", tt.header, `{ me { username } }`, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Empty(t, resp.Errors)

			if tt.wantUser {
				assert.JSONEq(t, `{"me":{"username":"alice"}}`, string(resp.Data))
			} else {
				assert.JSONEq(t, `{"me":null}`, string(resp.Data))
			}
		})
	}
}

func TestGraphQL_AddBookRequiresToken(t *testing.T) {
	ts := setupTestServer(t)

	_, resp := ts.graphql(t, "/", "Bearer forged", addDune, nil)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "UNAUTHENTICATED", resp.Errors[0].Extensions["code"])

	token := ts.token(t, "alice")
	_, resp = ts.graphql(t, "/", "Bearer "+token, addDune, nil)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"addBook":{"title":"Dune","author":{"name":"Frank Herbert","bookCount":1}}}`, string(resp.Data))
}

func TestGraphQL_CORS(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// readMessage skips keep-alives and returns the next protocol message.
func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != "ka" {
			return msg
		}
	}
}

func TestGraphQL_BookAddedOverWebsocket(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.token(t, "alice")

	srv := httptest.NewServer(ts)
	defer srv.Close()

	dialer := websocket.Dialer{Subprotocols: []string{"graphql-ws"}}
	conn, _, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/graphql", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "connection_init", "payload": map[string]any{}}))
	assert.Equal(t, "connection_ack", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"id":      "1",
		"type":    "start",
		"payload": map[string]any{"query": `subscription { bookAdded { title author { name } } }`},
	}))
	require.Eventually(t, func() bool { return ts.bus.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, resp := ts.graphql(t, "/", "Bearer "+token, addDune, nil)
	require.Empty(t, resp.Errors)

	msg := readMessage(t, conn)
	assert.Equal(t, "data", msg.Type)
	assert.Equal(t, "1", msg.ID)

	var payload gqlResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Empty(t, payload.Errors)
	assert.JSONEq(t, `{"bookAdded":{"title":"Dune","author":{"name":"Frank Herbert"}}}`, string(payload.Data))
}

func TestGraphQL_Get(t *testing.T) {
	ts := setupTestServer(t)

	q := url.Values{}
	q.Set("query", `query($genre: String) { allBooks(genre: $genre) { title } }`)
	q.Set("variables", `{"genre":"scifi"}`)

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"allBooks":[]}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
