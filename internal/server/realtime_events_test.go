package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"classifieds/internal/notifications"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *notifications.Client) notifications.Event {
	t.Helper()
	select {
	case raw := <-c.Send:
		var ev notifications.Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return notifications.Event{}
	}
}

func TestPublishAdminEvent_LocalWithoutRedis(t *testing.T) {
	s, err := NewServerWithDeps(testConfig(), setupTestDB(t), nil)
	require.NoError(t, err)

	client, err := s.adminHub.Register(uuid.New(), nil)
	require.NoError(t, err)

	s.publishAdminEvent(context.Background(), notifications.EventReportDeleted, map[string]interface{}{"report_id": "r1"})

	ev := receive(t, client)
	assert.Equal(t, notifications.EventReportDeleted, ev.Type)
	assert.Equal(t, map[string]interface{}{"report_id": "r1"}, ev.Payload)
}

func TestPublishAdminEvent_ThroughRedis(t *testing.T) {
	env := setupServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, env.server.startAdminWiring(ctx))

	client, err := env.server.adminHub.Register(env.admin.ID, nil)
	require.NoError(t, err)

	env.server.publishAdminEvent(ctx, notifications.EventUserStatusUpdated, map[string]interface{}{"is_banned": true})

	ev := receive(t, client)
	assert.Equal(t, notifications.EventUserStatusUpdated, ev.Type)

	// Delivered once, through the channel only.
	select {
	case extra := <-client.Send:
		t.Fatalf("unexpected duplicate event: %s", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishAdminEvent_UnwiredHubStillReceives(t *testing.T) {
	env := setupServer(t, nil)
	events := collectAdminEvents(t, env)

	client, err := env.server.adminHub.Register(env.admin.ID, nil)
	require.NoError(t, err)

	env.server.publishAdminEvent(context.Background(), notifications.EventReportDeleted, map[string]interface{}{"report_id": "r2"})

	ev := receive(t, client)
	assert.Equal(t, notifications.EventReportDeleted, ev.Type)
	// Other instances still get it through the channel.
	assert.Eventually(t, func() bool { return len(events()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestStartAdminWiring_FailureFallsBackToLocal(t *testing.T) {
	env := setupServer(t, nil)
	env.mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.Error(t, env.server.startAdminWiring(ctx))
	assert.False(t, env.server.adminWired.Load())

	client, err := env.server.adminHub.Register(env.admin.ID, nil)
	require.NoError(t, err)

	env.server.publishAdminEvent(context.Background(), notifications.EventUserStatusUpdated, map[string]interface{}{"is_banned": false})

	ev := receive(t, client)
	assert.Equal(t, notifications.EventUserStatusUpdated, ev.Type)
}
