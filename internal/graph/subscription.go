package graph

import (
	"context"

	"github.com/listenupapp/booklist-server/internal/pubsub"
)

// BookAdded resolves Subscription.bookAdded. The feed ends when ctx is
// done or the bus shuts down; the bus subscription is released either way.
func (r *Resolver) BookAdded(ctx context.Context) <-chan *bookResolver {
	out := make(chan *bookResolver)

	sub, err := r.bus.Subscribe()
	if err != nil {
		r.logger.WarnContext(ctx, "bookAdded subscription refused", "error", err)
		close(out)
		return out
	}

	go func() {
		defer close(out)
		defer r.bus.Unsubscribe(sub.ID)

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub.Events:
				if !ok {
					return
				}
				if event.Type != pubsub.EventBookAdded || event.Book == nil {
					continue
				}
				select {
				case out <- &bookResolver{book: *event.Book}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
