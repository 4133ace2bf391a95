// Package di provides dependency injection configuration for the booklist server.
package di

import (
	"github.com/graph-gophers/graphql-go"
	"github.com/samber/do/v2"

	"github.com/listenupapp/booklist-server/internal/auth"
	"github.com/listenupapp/booklist-server/internal/config"
	"github.com/listenupapp/booklist-server/internal/di/providers"
	"github.com/listenupapp/booklist-server/internal/logger"
	"github.com/listenupapp/booklist-server/internal/metrics"
	"github.com/listenupapp/booklist-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Persistence and events
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideEventBus)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenIssuer)
	do.Provide(injector, providers.ProvideSharedSecret)
	do.Provide(injector, providers.ProvideLoginLimiter)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideAccountService)
	do.Provide(injector, providers.ProvideSchema)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services in dependency order and starts the HTTP server.
func Bootstrap(injector *do.RootScope) error {
	steps := []func() error{
		invoke[*config.Config](injector),
		invoke[*logger.Logger](injector),
		invoke[*metrics.Metrics](injector),
		invoke[*providers.StoreHandle](injector),
		invoke[*providers.EventBusHandle](injector),
		invoke[auth.Issuer](injector),
		invoke[*auth.SharedSecret](injector),
		invoke[*providers.LoginLimiterHandle](injector),
		invoke[*service.CatalogService](injector),
		invoke[*service.AccountService](injector),
		invoke[*graphql.Schema](injector),
		invoke[*providers.HTTPServerHandle](injector),
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func invoke[T any](injector *do.RootScope) func() error {
	return func() error {
		_, err := do.Invoke[T](injector)
		return err
	}
}
