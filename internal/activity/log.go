// AngelaMos | 2026
// log.go

package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	schemaVersion   = 1
	maxAppendTries  = 3
	defaultLogKeyNS = "activity:recent"
)

var ErrContention = errors.New("activity log contention")

type document struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// Store is the per-owner rolling log of explicit admin actions.
type Store interface {
	Read(ctx context.Context, owner string) ([]Entry, error)
	Append(ctx context.Context, owner string, e Entry) error
}

// RedisLog keeps one versioned JSON document per owner. Documents that do
// not decode, or carry another version, read as empty and are replaced on
// the next append.
type RedisLog struct {
	rdb      *redis.Client
	prefix   string
	capacity int
	logger   *slog.Logger
	now      func() time.Time
}

func NewRedisLog(
	rdb *redis.Client,
	prefix string,
	capacity int,
	logger *slog.Logger,
) *RedisLog {
	if prefix == "" {
		prefix = defaultLogKeyNS
	}
	if capacity <= 0 {
		capacity = Capacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLog{
		rdb:      rdb,
		prefix:   prefix,
		capacity: capacity,
		logger:   logger,
		now:      time.Now,
	}
}

func (l *RedisLog) key(owner string) string {
	return l.prefix + ":" + owner
}

func (l *RedisLog) Read(ctx context.Context, owner string) ([]Entry, error) {
	raw, err := l.rdb.Get(ctx, l.key(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read activity log: %w", err)
	}

	return l.decode(owner, raw), nil
}

func (l *RedisLog) decode(owner string, raw []byte) []Entry {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		l.logger.Warn("activity log unreadable, resetting",
			"owner", owner,
			"error", err,
		)
		return []Entry{}
	}

	if doc.Version != schemaVersion {
		l.logger.Warn("activity log version mismatch, resetting",
			"owner", owner,
			"version", doc.Version,
		)
		return []Entry{}
	}

	now := l.now()
	entries := make([]Entry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		entries = append(entries, e)
	}
	if len(entries) > l.capacity {
		entries = entries[:l.capacity]
	}
	return entries
}

// Append prepends e and drops whatever falls beyond capacity. Concurrent
// writers are serialised with WATCH; after maxAppendTries lost races the
// entry is dropped and ErrContention returned.
func (l *RedisLog) Append(ctx context.Context, owner string, e Entry) error {
	key := l.key(owner)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now()
	}

	txf := func(tx *redis.Tx) error {
		current := []Entry{}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			current = l.decode(owner, raw)
		}

		payload, err := json.Marshal(document{
			Version: schemaVersion,
			Entries: prepend(current, e, l.capacity),
		})
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	for range maxAppendTries {
		err := l.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("append activity: %w", err)
	}

	return fmt.Errorf("append activity: %w", ErrContention)
}

func (l *RedisLog) Clear(ctx context.Context, owner string) error {
	if err := l.rdb.Del(ctx, l.key(owner)).Err(); err != nil {
		return fmt.Errorf("clear activity log: %w", err)
	}
	return nil
}
