// Package stream relays navigation events between instances through Redis
// pub/sub so a WebSocket connected to any instance sees every session.
package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/evnav/core/logger"
	"github.com/kilianp07/evnav/core/navigation"
)

// DefaultPrefix is the channel prefix used when none is configured.
const DefaultPrefix = "nav"

// DefaultPublishTimeout bounds one publish when none is configured. The
// client must have ContextTimeoutEnabled for it to apply.
const DefaultPublishTimeout = 500 * time.Millisecond

// RedisBroadcaster publishes events to {prefix}:{userId}:events and relays
// the {prefix}:*:events pattern back into a local broadcaster. Events
// reach local subscribers through the relay, once, like those of any other
// instance.
type RedisBroadcaster struct {
	client *redis.Client
	local  navigation.Broadcaster
	prefix string
	log    logger.Logger

	publishTimeout time.Duration

	readyOnce sync.Once
	ready     chan struct{}
}

var _ navigation.Broadcaster = (*RedisBroadcaster)(nil)

// NewRedisBroadcaster creates a relay. Run must be started for events to be
// delivered through Redis; until then Broadcast delivers locally.
func NewRedisBroadcaster(client *redis.Client, local navigation.Broadcaster, prefix string, log logger.Logger) *RedisBroadcaster {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisBroadcaster{
		client: client,
		local:  local,
		prefix: prefix,
		log:    logger.OrNop(log),
		ready:  make(chan struct{}),

		publishTimeout: DefaultPublishTimeout,
	}
}

// SetPublishTimeout changes the publish bound; d <= 0 is ignored.
func (b *RedisBroadcaster) SetPublishTimeout(d time.Duration) {
	if d > 0 {
		b.publishTimeout = d
	}
}

// Channel returns the Redis channel carrying userID's events.
func (b *RedisBroadcaster) Channel(userID string) string {
	return b.prefix + ":" + userID + ":events"
}

func (b *RedisBroadcaster) userFromChannel(ch string) (string, bool) {
	rest, ok := strings.CutPrefix(ch, b.prefix+":")
	if !ok {
		return "", false
	}
	user, ok := strings.CutSuffix(rest, ":events")
	return user, ok && user != ""
}

// Ready is closed once the pattern subscription is confirmed.
func (b *RedisBroadcaster) Ready() <-chan struct{} { return b.ready }

func (b *RedisBroadcaster) isReady() bool {
	select {
	case <-b.ready:
		return true
	default:
		return false
	}
}

// Broadcast implements navigation.Broadcaster. It waits for Redis at most
// the publish timeout; a failed or timed out publish falls back to local
// delivery.
func (b *RedisBroadcaster) Broadcast(userID string, ev navigation.Event) {
	if !b.isReady() {
		b.local.Broadcast(userID, ev)
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.Errorf("encode %s event: %v", ev.Kind, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.Channel(userID), payload).Err(); err != nil {
		b.log.Warnf("redis publish for %s: %v", userID, err)
		b.local.Broadcast(userID, ev)
	}
}

// Run relays subscribed events to the local broadcaster until ctx is done.
func (b *RedisBroadcaster) Run(ctx context.Context) error {
	pattern := b.prefix + ":*:events"
	ps := b.client.PSubscribe(ctx, pattern)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	b.readyOnce.Do(func() { close(b.ready) })
	b.log.Infof("relaying %s", pattern)

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			b.relay(msg)
		}
	}
}

func (b *RedisBroadcaster) relay(msg *redis.Message) {
	userID, ok := b.userFromChannel(msg.Channel)
	if !ok {
		b.log.Warnf("ignoring message on %s", msg.Channel)
		return
	}
	var ev navigation.Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		b.log.Warnf("decode event on %s: %v", msg.Channel, err)
		return
	}
	if ev.UserID == "" {
		ev.UserID = userID
	}
	b.local.Broadcast(userID, ev)
}
