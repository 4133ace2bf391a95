package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/booklist-server/internal/config"
	"github.com/listenupapp/booklist-server/internal/logger"
	"github.com/listenupapp/booklist-server/internal/metrics"
	"github.com/listenupapp/booklist-server/internal/pubsub"
)

// EventBusHandle wraps the bookAdded bus with its background loops.
type EventBusHandle struct {
	pubsub.Bus
	local  *pubsub.Broadcaster
	redis  *pubsub.RedisBus
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *EventBusHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := h.local.Shutdown(ctx)
	h.cancel()
	if h.redis != nil {
		if closeErr := h.redis.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// ProvideEventBus provides the in-process broadcaster, fronted by a Redis
// relay when EVENT_BUS=redis so every instance sees every bookAdded event.
func ProvideEventBus(i do.Injector) (*EventBusHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	local := pubsub.NewBroadcaster(log.WithComponent("events").Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go local.Start(ctx)

	handle := &EventBusHandle{Bus: local, local: local, cancel: cancel}

	if cfg.Events.Bus == config.BusRedis {
		connectCtx, connectCancel := context.WithTimeout(ctx, connectTimeout)
		client, err := pubsub.NewRedisClient(connectCtx, cfg.Events.RedisAddr, cfg.Events.RedisPassword)
		connectCancel()
		if err != nil {
			cancel()
			return nil, err
		}

		relay := pubsub.NewRedisBus(client, cfg.Events.RedisChannel, local, log.WithComponent("events").Logger)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.WithError(err).Error("Redis relay stopped")
			}
		}()

		handle.Bus = relay
		handle.redis = relay
	}

	m.RegisterBus(handle.Bus, local)

	log.Info("Event bus started", "kind", handle.Kind())

	return handle, nil
}
