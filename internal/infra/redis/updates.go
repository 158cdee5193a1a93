package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publish sends payload to channel subscribers and stores it as the
// channel's latest snapshot so late readers can catch up.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, snapshotKey(channel), payload, 0)
	pipe.Publish(ctx, channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// LastPublished returns the latest payload published to channel.
func (c *Client) LastPublished(ctx context.Context, channel string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, snapshotKey(channel)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get failed: %w", err)
	}
	return val, true, nil
}
