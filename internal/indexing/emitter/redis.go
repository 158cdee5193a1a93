package emitter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/indexing/metrics"
)

// Publisher is the subset of the Redis client used for updates.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

// RedisEmitter publishes JSON-encoded updates on a pub/sub channel.
type RedisEmitter struct {
	pub     Publisher
	channel string
}

func NewRedisEmitter(pub Publisher, channel string) *RedisEmitter {
	return &RedisEmitter{pub: pub, channel: channel}
}

func (e *RedisEmitter) Emit(ctx context.Context, update domain.SyncUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}
	if err := e.pub.Publish(ctx, e.channel, payload); err != nil {
		return err
	}
	metrics.UpdatesEmitted.WithLabelValues("redis").Inc()
	return nil
}

func (e *RedisEmitter) Close() error {
	return e.pub.Close()
}
