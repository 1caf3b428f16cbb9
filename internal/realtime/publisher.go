// AngelaMos | 2026
// publisher.go

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "realtime"

func channelName(prefix, table string) string {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return prefix + ":" + table
}

type Publisher struct {
	rdb    *redis.Client
	prefix string
}

func NewPublisher(rdb *redis.Client, prefix string) *Publisher {
	return &Publisher{rdb: rdb, prefix: prefix}
}

func (p *Publisher) Publish(ctx context.Context, c Change) error {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}

	if err := p.rdb.Publish(ctx, channelName(p.prefix, c.Table), payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}

	return nil
}
