// AngelaMos | 2026
// subscriber.go

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var errChannelClosed = errors.New("channel closed")

type Handler func(Change)

type Subscriber struct {
	rdb        *redis.Client
	prefix     string
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewSubscriber(
	rdb *redis.Client,
	prefix string,
	retryDelay time.Duration,
	logger *slog.Logger,
) *Subscriber {
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		rdb:        rdb,
		prefix:     prefix,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Subscribe delivers changes on table whose op is in ops (all ops when
// empty) until ctx is done. A failed or closed channel is resubscribed
// after a flat delay, forever.
func (s *Subscriber) Subscribe(
	ctx context.Context,
	table string,
	ops []Op,
	handle Handler,
) {
	channel := channelName(s.prefix, table)

	for {
		err := s.listen(ctx, channel, ops, handle)
		if ctx.Err() != nil {
			return
		}

		s.logger.Warn("realtime channel lost, resubscribing",
			"channel", channel,
			"error", err,
			"retry_in", s.retryDelay,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}

func (s *Subscriber) listen(
	ctx context.Context,
	channel string,
	ops []Op,
	handle Handler,
) error {
	pubsub := s.rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				return errChannelClosed
			}

			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				s.logger.Warn("dropping malformed change",
					"channel", channel,
					"error", err,
				)
				continue
			}

			if matches(c.Op, ops) {
				s.dispatch(channel, c, handle)
			}
		}
	}
}

func (s *Subscriber) dispatch(channel string, c Change, handle Handler) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("realtime handler panicked",
				"channel", channel,
				"panic", p,
			)
		}
	}()

	handle(c)
}
