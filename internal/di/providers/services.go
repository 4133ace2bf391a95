package providers

import (
	"github.com/graph-gophers/graphql-go"
	"github.com/samber/do/v2"

	"github.com/listenupapp/booklist-server/internal/auth"
	"github.com/listenupapp/booklist-server/internal/graph"
	"github.com/listenupapp/booklist-server/internal/logger"
	"github.com/listenupapp/booklist-server/internal/metrics"
	"github.com/listenupapp/booklist-server/internal/service"
)

// ProvideCatalogService provides the book and author service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	busHandle := do.MustInvoke[*EventBusHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(storeHandle.Store, busHandle.Bus, m, log.WithComponent("catalog").Logger), nil
}

// ProvideAccountService provides the user and login service.
func ProvideAccountService(i do.Injector) (*service.AccountService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	issuer := do.MustInvoke[auth.Issuer](i)
	secret := do.MustInvoke[*auth.SharedSecret](i)
	limiter := do.MustInvoke[*LoginLimiterHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAccountService(
		storeHandle.Store,
		issuer,
		secret,
		limiter.KeyedRateLimiter,
		m,
		log.WithComponent("accounts").Logger,
	), nil
}

// ProvideSchema parses the GraphQL schema against the root resolver.
func ProvideSchema(i do.Injector) (*graphql.Schema, error) {
	catalog := do.MustInvoke[*service.CatalogService](i)
	accounts := do.MustInvoke[*service.AccountService](i)
	busHandle := do.MustInvoke[*EventBusHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	resolver := graph.NewResolver(catalog, accounts, busHandle.Bus, m, log.WithComponent("graphql").Logger)
	return graph.NewSchema(resolver)
}
