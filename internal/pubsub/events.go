// Package pubsub delivers bookAdded events to GraphQL subscribers.
//
// Broadcaster fans events out inside one process. RedisBus relays events
// through a Redis channel into a local Broadcaster so that several server
// replicas share one topic. Delivery is best-effort: there is no backlog,
// no replay and a subscriber that falls behind loses events.
package pubsub

import (
	"context"
	"errors"
	"time"

	"github.com/listenupapp/booklist-server/internal/domain"
)

// EventType identifies the kind of event.
type EventType string

// EventBookAdded is published after a book is stored.
const EventBookAdded EventType = "book.added"

// Event is the unit carried by a Bus.
type Event struct {
	Type      EventType           `json:"type"`
	Book      *domain.BookDetails `json:"book,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewBookAddedEvent creates a bookAdded event.
func NewBookAddedEvent(book *domain.BookDetails) Event {
	return Event{Type: EventBookAdded, Book: book, Timestamp: time.Now()}
}

// Errors returned by Publish and Subscribe.
var (
	ErrClosed    = errors.New("event bus closed")
	ErrQueueFull = errors.New("event queue full")
)

// Subscription is one subscriber's event feed.
// Events is closed when the subscription ends.
type Subscription struct {
	ConnectedAt time.Time
	Events      <-chan Event
	ID          string

	events chan Event
}

// Bus publishes events to every current subscriber.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe() (*Subscription, error)
	Unsubscribe(id string)
	SubscriberCount() int
	// Kind names the implementation for health reporting.
	Kind() string
}
