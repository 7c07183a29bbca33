package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/dominikcirko/kanban-app/internal/logging"
	"github.com/dominikcirko/kanban-app/internal/server/metrics"
	"github.com/dominikcirko/kanban-app/internal/server/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deleted(id int64) models.Notification {
	return models.Notification{Type: models.NotificationDelete, TaskID: &id, Timestamp: time.Now()}
}

func TestHub_FanOut(t *testing.T) {
	h := NewHub(logging.Nop{}, nil, 4)
	a := h.Subscribe()
	b := h.Subscribe()
	require.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, h.Len())

	h.Publish(deleted(7))

	for _, s := range []*Subscription{a, b} {
		select {
		case n := <-s.C:
			assert.Equal(t, models.NotificationDelete, n.Type)
			assert.Equal(t, int64(7), *n.TaskID)
		default:
			t.Fatalf("subscriber %s got nothing", s.ID)
		}
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := metrics.New()
	h := NewHub(logging.Nop{}, m, 1)
	slow := h.Subscribe()

	done := make(chan struct{})
	go func() {
		h.Publish(deleted(1))
		h.Publish(deleted(2))
		h.Publish(deleted(3))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber queue")
	}

	n := <-slow.C
	assert.Equal(t, int64(1), *n.TaskID)

	expected := `
# HELP kanban_notifications_dropped_total Notifications not delivered because a subscriber was too slow.
# TYPE kanban_notifications_dropped_total counter
kanban_notifications_dropped_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "kanban_notifications_dropped_total"))
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(logging.Nop{}, nil, 4)
	s := h.Subscribe()

	h.Unsubscribe(s)
	h.Unsubscribe(s)

	_, open := <-s.C
	assert.False(t, open)
	assert.Zero(t, h.Len())
	assert.NotPanics(t, func() { h.Publish(deleted(1)) })
}

func TestHub_Close(t *testing.T) {
	h := NewHub(logging.Nop{}, nil, 4)
	s := h.Subscribe()

	h.Close()

	_, open := <-s.C
	assert.False(t, open)

	late := h.Subscribe()
	_, open = <-late.C
	assert.False(t, open, "subscribing to a closed hub yields a closed channel")
	assert.NotPanics(t, func() { h.Unsubscribe(s) })
}
