package pubsub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/listenupapp/booklist-server/internal/id"
)

const (
	defaultQueueSize      = 1000
	defaultSubscriberSize = 64
)

// Stats are cumulative delivery counters.
type Stats struct {
	Published uint64
	Delivered uint64
	Dropped   uint64
}

// delivery is a queued event and the subscribers connected when it was published.
type delivery struct {
	event      Event
	recipients []*Subscription
}

// Broadcaster is an in-process Bus. Publish queues events together with the
// subscribers connected at that moment, and a single loop started by Start
// hands each one over with a non-blocking send.
type Broadcaster struct {
	subscribers map[string]*Subscription
	events      chan delivery
	logger      *slog.Logger
	mu          sync.RWMutex

	started  atomic.Bool
	loopDone chan struct{}

	closeMu sync.RWMutex
	closed  bool

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64

	subscriberBuffer int
}

var _ Bus = (*Broadcaster)(nil)

// NewBroadcaster creates a Broadcaster. Call Start before publishing.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers:      make(map[string]*Subscription),
		events:           make(chan delivery, defaultQueueSize),
		logger:           logger,
		loopDone:         make(chan struct{}),
		subscriberBuffer: defaultSubscriberSize,
	}
}

// Kind implements Bus.
func (b *Broadcaster) Kind() string { return "memory" }

// Start runs the broadcast loop until ctx is done or Shutdown is called.
// Only the first call runs the loop.
func (b *Broadcaster) Start(ctx context.Context) {
	if !b.started.CompareAndSwap(false, true) {
		return
	}
	defer close(b.loopDone)

	b.logger.Info("event broadcaster starting")

	for {
		select {
		case d, ok := <-b.events:
			if !ok {
				return
			}
			b.broadcast(d.event, d.recipients)
		case <-ctx.Done():
			b.logger.Info("event broadcaster stopping")
			b.closeAll()
			return
		}
	}
}

// Shutdown stops accepting events, drains the queue and ends every subscription.
func (b *Broadcaster) Shutdown(ctx context.Context) error {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return nil
	}
	b.closed = true
	close(b.events)
	b.closeMu.Unlock()

	// Deliver whatever is still queued, then wait for a running loop to exit.
	for d := range b.events {
		b.broadcast(d.event, d.recipients)
	}
	if b.started.Load() {
		select {
		case <-b.loopDone:
		case <-ctx.Done():
			b.logger.Warn("event loop did not stop before shutdown deadline")
		}
	}

	b.closeAll()
	return nil
}

// Publish queues an event for the current subscribers. It never blocks.
// Subscribers that connect afterwards do not receive it.
func (b *Broadcaster) Publish(_ context.Context, event Event) error {
	// The read lock is held across the send so Shutdown cannot close the
	// channel underneath it.
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	select {
	case b.events <- delivery{event: event, recipients: b.recipients()}:
		b.published.Add(1)
		return nil
	default:
		b.logger.Error("event queue full, dropping event", slog.String("event_type", string(event.Type)))
		return ErrQueueFull
	}
}

// Subscribe registers a new subscriber.
func (b *Broadcaster) Subscribe() (*Subscription, error) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	subID, err := id.Generate("sub")
	if err != nil {
		return nil, err
	}

	events := make(chan Event, b.subscriberBuffer)
	sub := &Subscription{
		ID:          subID,
		Events:      events,
		ConnectedAt: time.Now(),
		events:      events,
	}

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	total := len(b.subscribers)
	b.mu.Unlock()

	b.logger.Debug("subscriber connected",
		slog.String("subscription_id", sub.ID),
		slog.Int("total_subscribers", total))
	return sub, nil
}

// Unsubscribe removes a subscriber and closes its feed. Unknown IDs are ignored.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	sub, ok := b.subscribers[subID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subscribers, subID)
	total := len(b.subscribers)
	b.mu.Unlock()

	close(sub.events)

	b.logger.Debug("subscriber disconnected",
		slog.String("subscription_id", subID),
		slog.Duration("duration", time.Since(sub.ConnectedAt)),
		slog.Int("total_subscribers", total))
}

// SubscriberCount returns the number of connected subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Stats returns the cumulative delivery counters.
func (b *Broadcaster) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// recipients snapshots the connected subscribers.
func (b *Broadcaster) recipients() []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := make([]*Subscription, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

func (b *Broadcaster) broadcast(event Event, recipients []*Subscription) {
	var delivered, dropped int

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range recipients {
		// Skip anyone who left since publish; their feed is already closed.
		if b.subscribers[sub.ID] != sub {
			continue
		}
		// Non-blocking send (drop if the subscriber is slow).
		select {
		case sub.events <- event:
			delivered++
		default:
			dropped++
			b.logger.Warn("dropped event for slow subscriber",
				slog.String("subscription_id", sub.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	b.delivered.Add(uint64(delivered))
	b.dropped.Add(uint64(dropped))

	b.logger.Debug("event broadcast",
		slog.String("event_type", string(event.Type)),
		slog.Group("stats",
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped)))
}

func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, sub := range b.subscribers {
		close(sub.events)
		delete(b.subscribers, subID)
	}
}
