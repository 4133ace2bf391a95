package pubsub

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/booklist-server/internal/id"
	"github.com/listenupapp/booklist-server/internal/logger"
)

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent(`{"type":"book.added","book":{"id":"b1","title":"Dune","published":1965,"genres":["scifi"],"author":{"id":"a1","name":"Frank Herbert","bookCount":1}},"timestamp":"2024-01-01T00:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, EventBookAdded, ev.Type)
	require.NotNil(t, ev.Book)
	assert.Equal(t, "Frank Herbert", ev.Book.Author.Name)
	assert.Equal(t, 1, ev.Book.Author.BookCount)

	_, err = decodeEvent(`{"book":null}`)
	assert.Error(t, err)

	_, err = decodeEvent(`not json`)
	assert.Error(t, err)
}

func TestRedisBus_RelayIgnoresMalformed(t *testing.T) {
	local := newTestBroadcaster(t)
	r := NewRedisBus(nil, "unused", local, logger.Discard().Logger)

	sub, err := r.Subscribe()
	require.NoError(t, err)

	r.relay(t.Context(), "garbage")
	r.relay(t.Context(), `{"type":"book.added","book":{"title":"Dune"}}`)

	ev := receive(t, sub)
	assert.Equal(t, "Dune", ev.Book.Title)
	assert.Equal(t, 1, r.SubscriberCount())
	assert.Equal(t, "redis", r.Kind())
}

// TestRedisBus_RoundTrip needs a live server named by BOOKLIST_TEST_REDIS_ADDR.
func TestRedisBus_RoundTrip(t *testing.T) {
	addr := os.Getenv("BOOKLIST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BOOKLIST_TEST_REDIS_ADDR not set")
	}

	client, err := NewRedisClient(t.Context(), addr, os.Getenv("BOOKLIST_TEST_REDIS_PASSWORD"))
	require.NoError(t, err)

	local := newTestBroadcaster(t)
	bus := NewRedisBus(client, "booklist:test:"+id.MustGenerate("ch"), local, logger.Discard().Logger)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	relayDone := make(chan error, 1)
	go func() { relayDone <- bus.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-relayDone
	})

	sub, err := bus.Subscribe()
	require.NoError(t, err)

	// Publish until the relay subscription is live.
	require.Eventually(t, func() bool {
		require.NoError(t, bus.Publish(t.Context(), NewBookAddedEvent(dune())))
		select {
		case ev := <-sub.Events:
			return ev.Book != nil && ev.Book.Title == "Dune"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}
