package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/listenupapp/booklist-server/internal/config"
	"github.com/listenupapp/booklist-server/internal/logger"
	"github.com/listenupapp/booklist-server/internal/store"
	"github.com/listenupapp/booklist-server/internal/store/badgerstore"
	"github.com/listenupapp/booklist-server/internal/store/mongostore"
	"github.com/listenupapp/booklist-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the backend selected by STORE_DRIVER.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	st, err := OpenStore(cfg.Store, log)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "driver", cfg.Store.Driver)

	return &StoreHandle{Store: st}, nil
}

// OpenStore opens the configured backend. Embedded backends live under DataPath.
func OpenStore(cfg config.StoreConfig, log *logger.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, log.Logger)

	case config.DriverBadger:
		return badgerstore.Open(filepath.Join(cfg.DataPath, "badger"), log.Logger)

	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.DataPath, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		return sqlite.Open(filepath.Join(cfg.DataPath, "booklist.db"), log.Logger)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
