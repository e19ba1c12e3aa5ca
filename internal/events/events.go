// Package events publishes catalog changes to Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultChannel = "catalog.events"

const (
	SongCreated    = "song.created"
	SongActivated  = "song.activated"
	SongDownloaded = "song.downloaded"
)

// Event is the envelope written to the channel.
type Event struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Publisher emits catalog events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

// RedisPublisher publishes JSON events. A nil publisher or nil client is a no-op.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	now     func() time.Time
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel, now: func() time.Time { return time.Now().UTC() }}
}

// Publish never fails the caller; errors are logged.
func (p *RedisPublisher) Publish(ctx context.Context, eventType string, payload any) {
	if p == nil || p.rdb == nil {
		return
	}
	logger := zerolog.Ctx(ctx)

	data, err := json.Marshal(Event{Type: eventType, Payload: payload, At: p.now()})
	if err != nil {
		logger.Warn().Err(err).Str("event", eventType).Msg("marshal event")
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, string(data)).Err(); err != nil {
		logger.Warn().Err(err).Str("event", eventType).Msg("publish event")
	}
}
