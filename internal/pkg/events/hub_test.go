package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub()

	ch1, cleanup1 := hub.Subscribe()
	defer cleanup1()
	ch2, cleanup2 := hub.Subscribe()
	defer cleanup2()

	assert.Equal(t, 2, hub.SubscriberCount())

	hub.Publish(Event{Type: TypeSyncCompleted, Data: map[string]int{"synced": 2}})

	e1 := <-ch1
	e2 := <-ch2
	assert.Equal(t, TypeSyncCompleted, e1.Type)
	assert.Equal(t, TypeSyncCompleted, e2.Type)
	assert.False(t, e1.At.IsZero(), "publish stamps the event time")
}

func TestHub_CleanupClosesChannel(t *testing.T) {
	hub := NewHub()

	ch, cleanup := hub.Subscribe()
	cleanup()
	// Double cleanup must not panic.
	cleanup()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestHub_SlowSubscriberIsSkipped(t *testing.T) {
	hub := NewHub()

	ch, cleanup := hub.Subscribe()
	defer cleanup()

	// Saturate the buffer; further publishes must not block.
	for i := 0; i < cap(ch)+5; i++ {
		hub.Publish(Event{Type: TypePendingCountChanged})
	}

	require.Len(t, ch, cap(ch))
}
