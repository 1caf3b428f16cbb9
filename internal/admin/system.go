// AngelaMos | 2026
// system.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edig/bibliotheque/internal/core"
)

// SystemConfig wires the probes behind /admin/system. Nil probes are
// reported as not configured.
type SystemConfig struct {
	DBStats     func() sql.DBStats
	RedisStats  func() *redis.PoolStats
	DBPing      func(ctx context.Context) error
	RedisPing   func(ctx context.Context) error
	StoragePing func(ctx context.Context) error
	Version     string
	StartedAt   time.Time
}

type SystemStatsResponse struct {
	Version  string          `json:"version"`
	Uptime   string          `json:"uptime"`
	Database DatabaseStatus  `json:"database"`
	Redis    RedisStatus     `json:"redis"`
	Storage  ComponentStatus `json:"storage"`
	Runtime  RuntimeStats    `json:"runtime"`
}

type ComponentStatus struct {
	Configured bool `json:"configured"`
	Healthy    bool `json:"healthy"`
}

type DatabaseStatus struct {
	ComponentStatus
	Stats *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	ComponentStatus
	Stats *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	NumGC        uint32 `json:"num_gc"`
}

func (h *Handler) System(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var (
		wg                 sync.WaitGroup
		db, cache, storage ComponentStatus
	)
	wg.Add(3)
	go func() { defer wg.Done(); db = probe(ctx, h.system.DBPing) }()
	go func() { defer wg.Done(); cache = probe(ctx, h.system.RedisPing) }()
	go func() { defer wg.Done(); storage = probe(ctx, h.system.StoragePing) }()
	wg.Wait()

	resp := SystemStatsResponse{
		Version:  h.system.Version,
		Database: DatabaseStatus{ComponentStatus: db, Stats: h.dbStats()},
		Redis:    RedisStatus{ComponentStatus: cache, Stats: h.redisStats()},
		Storage:  storage,
		Runtime:  runtimeStats(),
	}
	if !h.system.StartedAt.IsZero() {
		resp.Uptime = time.Since(h.system.StartedAt).Truncate(time.Second).String()
	}

	core.OK(w, resp)
}

func probe(ctx context.Context, ping func(context.Context) error) ComponentStatus {
	if ping == nil {
		return ComponentStatus{}
	}
	return ComponentStatus{Configured: true, Healthy: ping(ctx) == nil}
}

func (h *Handler) dbStats() *DBPoolStats {
	if h.system.DBStats == nil {
		return nil
	}

	stats := h.system.DBStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) redisStats() *RedisPoolStats {
	if h.system.RedisStats == nil {
		return nil
	}

	stats := h.system.RedisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}

func runtimeStats() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     mem.Alloc,
		NumGC:        mem.NumGC,
	}
}
