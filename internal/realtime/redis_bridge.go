package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agrilink/messaging/internal/domain"
)

// Bridge mirrors hub events across instances through Redis pub/sub, so a
// client connected to one instance sees messages committed through another.
type Bridge struct {
	hub        *Hub
	rdb        *redis.Client
	channel    string
	instanceID string
	log        *zap.SugaredLogger
}

type envelope struct {
	Origin     string       `json:"origin"`
	Recipients []string     `json:"recipients"`
	Event      domain.Event `json:"event"`
}

func NewBridge(hub *Hub, rdb *redis.Client, channel string, log *zap.SugaredLogger) *Bridge {
	return &Bridge{
		hub:        hub,
		rdb:        rdb,
		channel:    channel,
		instanceID: uuid.NewString(),
		log:        log,
	}
}

var _ domain.EventPublisher = (*Bridge)(nil)

// Publish delivers locally first, then mirrors the event to other instances.
// Mirroring failures are logged, not surfaced: local subscribers already have
// the event and remote clients recover state on next load.
func (b *Bridge) Publish(ctx context.Context, recipientIDs []string, ev domain.Event) {
	b.hub.Publish(ctx, recipientIDs, ev)

	payload, err := json.Marshal(envelope{
		Origin:     b.instanceID,
		Recipients: recipientIDs,
		Event:      ev,
	})
	if err != nil {
		b.log.Warnw("marshal bridge envelope", "error", err)
		return
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Warnw("redis publish", "channel", b.channel, "error", err)
	}
}

// Run consumes mirrored events from other instances until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warnw("decode bridge envelope", "error", err)
				continue
			}
			if env.Origin == b.instanceID {
				continue
			}
			b.hub.Publish(ctx, env.Recipients, env.Event)
		}
	}
}
