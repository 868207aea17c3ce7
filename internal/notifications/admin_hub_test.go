package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminHub_RegisterAndUnregister(t *testing.T) {
	hub := NewAdminHub()
	userID := uuid.New()

	c1, err := hub.Register(userID, nil)
	require.NoError(t, err)
	c2, err := hub.Register(userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Count())

	hub.UnregisterClient(c1)
	hub.UnregisterClient(c1)
	assert.Equal(t, 1, hub.Count())

	_, open := <-c1.Send
	assert.False(t, open, "send channel should be closed")

	hub.UnregisterClient(c2)
	assert.Zero(t, hub.Count())
}

func TestAdminHub_PerUserLimit(t *testing.T) {
	hub := NewAdminHub()
	userID := uuid.New()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(userID, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(userID, nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)

	_, err = hub.Register(uuid.New(), nil)
	assert.NoError(t, err)
}

func TestAdminHub_BroadcastAll(t *testing.T) {
	hub := NewAdminHub()
	a, err := hub.Register(uuid.New(), nil)
	require.NoError(t, err)
	b, err := hub.Register(uuid.New(), nil)
	require.NoError(t, err)

	hub.BroadcastAll(`{"type":"ReportDeleted"}`)

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.Send:
			assert.Equal(t, `{"type":"ReportDeleted"}`, string(msg))
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestAdminHub_TrySendDropsWhenFull(t *testing.T) {
	hub := NewAdminHub()
	c, err := hub.Register(uuid.New(), nil)
	require.NoError(t, err)

	for i := 0; i < cap(c.Send)-1; i++ {
		require.True(t, c.TrySend([]byte("x")))
	}
	require.True(t, c.TrySend([]byte("last slot")))
	assert.False(t, c.TrySend([]byte("overflow")))
	assert.Len(t, c.Send, cap(c.Send))

	hub.UnregisterClient(c)
	assert.NotPanics(t, func() { assert.False(t, c.TrySend([]byte("after close"))) })
}

func TestAdminHub_StartWiring(t *testing.T) {
	n, _ := newTestNotifier(t)
	hub := NewAdminHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, hub.StartWiring(ctx, n))
	c, err := hub.Register(uuid.New(), nil)
	require.NoError(t, err)

	require.NoError(t, n.PublishAdmin(ctx, `{"type":"NewReportAdded"}`))

	select {
	case msg := <-c.Send:
		assert.Equal(t, `{"type":"NewReportAdded"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("wired message not delivered")
	}
}

func TestAdminHub_Shutdown(t *testing.T) {
	hub := NewAdminHub()
	c, err := hub.Register(uuid.New(), nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Zero(t, hub.Count())

	_, open := <-c.Send
	assert.False(t, open)

	_, err = hub.Register(uuid.New(), nil)
	assert.ErrorIs(t, err, ErrHubShutDown)

	// Unregistering after shutdown is a no-op.
	assert.NotPanics(t, func() { hub.UnregisterClient(c) })
}
