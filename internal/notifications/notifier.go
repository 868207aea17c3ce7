// Package notifications delivers admin moderation events over Redis pub/sub
// and WebSocket connections.
package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

// AdminEventsChannel carries every admin event across API instances.
const AdminEventsChannel = "admin:events"

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events fan out through Redis.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishAdmin sends an encoded event to every instance's admin hub.
func (n *Notifier) PublishAdmin(ctx context.Context, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, AdminEventsChannel, payload).Err()
}

// StartAdminSubscriber subscribes to the admin channel and calls onMessage
// for each incoming payload until ctx is cancelled.
func (n *Notifier) StartAdminSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, AdminEventsChannel)
	// Wait for the subscription to be confirmed so early publishes are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("admin subscriber handler panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
