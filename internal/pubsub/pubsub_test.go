package pubsub

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingoboss/wingoboss-api/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHub_DeliversOnlyToSameUID(t *testing.T) {
	hub := NewHub(2, newNoopLogger())
	a, cancelA := hub.Subscribe("uid-a")
	defer cancelA()
	b, cancelB := hub.Subscribe("uid-b")
	defer cancelB()

	require.NoError(t, hub.Publish(context.Background(), models.ProfileEvent{UID: "uid-a", Reason: models.ReasonSignIn}))

	select {
	case ev := <-a:
		assert.Equal(t, models.ReasonSignIn, ev.Reason)
	default:
		t.Fatal("expected event for uid-a")
	}
	select {
	case <-b:
		t.Fatal("uid-b must not receive uid-a events")
	default:
	}
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub(1, newNoopLogger())
	ch, cancel := hub.Subscribe("uid")
	defer cancel()

	hub.Deliver(models.ProfileEvent{UID: "uid", Reason: "first"})
	hub.Deliver(models.ProfileEvent{UID: "uid", Reason: "second"})

	ev := <-ch
	assert.Equal(t, "first", ev.Reason)
	select {
	case <-ch:
		t.Fatal("second event should have been dropped")
	default:
	}
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	hub := NewHub(1, newNoopLogger())
	ch, cancel := hub.Subscribe("uid")
	assert.Equal(t, 1, hub.Subscribers("uid"))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers("uid"))

	hub.Deliver(models.ProfileEvent{UID: "uid"})
}

func TestRedisBridge_FansOutAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	newBridge := func() *RedisBridge {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisBridge(client, NewHub(4, newNoopLogger()), newNoopLogger())
	}
	first, second := newBridge(), newBridge()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, b := range []*RedisBridge{first, second} {
		ready := make(chan struct{})
		go func(b *RedisBridge) { _ = b.Run(ctx, ready) }(b)
		select {
		case <-ready:
		case <-time.After(2 * time.Second):
			t.Fatal("bridge did not subscribe")
		}
	}

	events, unsubscribe := second.Subscribe("uid-1")
	defer unsubscribe()

	require.NoError(t, first.Publish(ctx, models.ProfileEvent{
		UID:     "uid-1",
		Reason:  models.ReasonSignIn,
		Profile: &models.UserProfile{UID: "uid-1", DeviceID: "dev-2"},
	}))

	select {
	case ev := <-events:
		assert.Equal(t, models.ReasonSignIn, ev.Reason)
		require.NotNil(t, ev.Profile)
		assert.Equal(t, "dev-2", ev.Profile.DeviceID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not bridged")
	}
}
