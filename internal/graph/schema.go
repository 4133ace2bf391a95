// Package graph exposes the catalog as a GraphQL schema.
//
// Query and mutation resolvers are thin: they read the current user from
// the request context, call the services and convert every error with
// errors.Public so clients only ever see a code and a safe message.
package graph

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/graph-gophers/graphql-go"

	"github.com/listenupapp/booklist-server/internal/metrics"
	"github.com/listenupapp/booklist-server/internal/pubsub"
	"github.com/listenupapp/booklist-server/internal/service"
)

//go:embed schema.graphql
var schemaSDL string

// maxQueryDepth bounds nesting; Book.author is the deepest real path.
const maxQueryDepth = 8

// SDL returns the schema definition served by NewSchema.
func SDL() string { return schemaSDL }

// Resolver is the root resolver for queries, mutations and subscriptions.
type Resolver struct {
	catalog  *service.CatalogService
	accounts *service.AccountService
	bus      pubsub.Bus
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewResolver creates the root resolver.
func NewResolver(
	catalog *service.CatalogService,
	accounts *service.AccountService,
	bus pubsub.Bus,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		catalog:  catalog,
		accounts: accounts,
		bus:      bus,
		metrics:  m,
		logger:   logger,
	}
}

// NewSchema parses the embedded SDL against the resolver.
func NewSchema(r *Resolver) (*graphql.Schema, error) {
	schema, err := graphql.ParseSchema(schemaSDL, r,
		graphql.MaxDepth(maxQueryDepth),
		graphql.Logger(panicLogger{logger: r.logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("parse graphql schema: %w", err)
	}
	return schema, nil
}

// panicLogger reports resolver panics through slog instead of the standard logger.
type panicLogger struct {
	logger *slog.Logger
}

func (l panicLogger) LogPanic(ctx context.Context, value any) {
	l.logger.ErrorContext(ctx, "graphql resolver panic",
		"panic", value,
		"stack", string(debug.Stack()),
	)
}
