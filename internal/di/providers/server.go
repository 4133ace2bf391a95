package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/graph-gophers/graphql-go"
	"github.com/samber/do/v2"

	"github.com/listenupapp/booklist-server/internal/api"
	"github.com/listenupapp/booklist-server/internal/config"
	"github.com/listenupapp/booklist-server/internal/logger"
	"github.com/listenupapp/booklist-server/internal/metrics"
	"github.com/listenupapp/booklist-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer builds the router and starts serving in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	busHandle := do.MustInvoke[*EventBusHandle](i)
	accounts := do.MustInvoke[*service.AccountService](i)
	schema := do.MustInvoke[*graphql.Schema](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	handler := api.NewServer(api.Options{
		Store:       storeHandle.Store,
		Bus:         busHandle.Bus,
		Accounts:    accounts,
		Schema:      schema,
		Metrics:     m,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		Logger:      log.WithComponent("http").Logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server stopped")
		}
	}()

	log.Info("Server ready", "graphql", "http://localhost:"+cfg.Server.Port+"/graphql")

	return &HTTPServerHandle{Server: srv}, nil
}
