// Package api provides the HTTP server: GraphQL over HTTP and websockets,
// plus the health and metrics endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/graph-gophers/graphql-transport-ws/graphqlws"

	"github.com/listenupapp/booklist-server/internal/metrics"
	"github.com/listenupapp/booklist-server/internal/pubsub"
	"github.com/listenupapp/booklist-server/internal/service"
	"github.com/listenupapp/booklist-server/internal/store"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Options carries the server's dependencies.
type Options struct {
	Store    store.Store
	Bus      pubsub.Bus
	Accounts *service.AccountService
	Schema   *graphql.Schema
	Metrics  *metrics.Metrics
	// CORSOrigins defaults to every origin when empty.
	CORSOrigins []string
	Logger      *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    store.Store
	bus      pubsub.Bus
	accounts *service.AccountService
	schema   *graphql.Schema
	metrics  *metrics.Metrics
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		bus:      opts.Bus,
		accounts: opts.Accounts,
		schema:   opts.Schema,
		metrics:  opts.Metrics,
		router:   chi.NewRouter(),
		logger:   opts.Logger,
	}

	s.setupMiddleware(opts.CORSOrigins)

	humaConfig := huma.DefaultConfig("Booklist API", Version)
	humaConfig.Info.Description = "Operational endpoints. The catalog itself is served over GraphQL."
	s.api = humachi.New(s.router, humaConfig)

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.observe)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.registerHealthRoutes()

	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	graphqlHandler := s.graphqlHandler()
	s.router.Group(func(r chi.Router) {
		r.Use(s.authContext)
		r.Handle("/", graphqlHandler)
		r.Handle("/graphql", graphqlHandler)
	})
}

// graphqlHandler serves queries and mutations as JSON over HTTP and
// upgrades graphql-ws websocket requests for subscriptions.
func (s *Server) graphqlHandler() http.Handler {
	post := &relay.Handler{Schema: s.schema}
	return graphqlws.NewHandlerFunc(s.schema, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			s.serveGraphQLGet(w, r)
			return
		}
		post.ServeHTTP(w, r)
	}))
}

// serveGraphQLGet executes a document passed in the query string.
func (s *Server) serveGraphQLGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		http.Error(w, "missing query parameter", http.StatusBadRequest)
		return
	}

	var variables map[string]any
	if raw := q.Get("variables"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &variables); err != nil {
			http.Error(w, "variables must be a JSON object", http.StatusBadRequest)
			return
		}
	}

	resp := s.schema.Exec(r.Context(), query, q.Get("operationName"), variables)
	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
