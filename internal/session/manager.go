// AngelaMos | 2026
// manager.go

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edig/bibliotheque/internal/role"
)

const (
	cacheKeyPrefix = "session:role:"
	defaultTTL     = 5 * time.Minute
)

// Landing pages per role after sign-in.
const (
	LandingAdmin   = "/admin/dashboard"
	LandingLibrary = "/bibliotheque"
)

// PrincipalLoader fetches the principal with both metadata bags.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID string) (*role.Principal, error)
}

type Session struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Role       role.Role `json:"role"`
	RoleLabel  string    `json:"role_label"`
	Landing    string    `json:"landing"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Manager is the single source of the current principal and role. Views
// and guards read it instead of re-deriving the role themselves.
type Manager struct {
	loader   PrincipalLoader
	resolver *role.Resolver
	rdb      *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	subs   map[int]func(Event)
	nextID int
}

func NewManager(
	loader PrincipalLoader,
	resolver *role.Resolver,
	rdb *redis.Client,
	ttl time.Duration,
	logger *slog.Logger,
) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		loader:   loader,
		resolver: resolver,
		rdb:      rdb,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		subs:     make(map[int]func(Event)),
	}
}

func Landing(r role.Role) string {
	if r.IsAdmin() {
		return LandingAdmin
	}
	return LandingLibrary
}

// Current returns the session of userID, from cache when possible. Cache
// failures fall through to a fresh resolution.
func (m *Manager) Current(ctx context.Context, userID string) (*Session, error) {
	if s, ok := m.cached(ctx, userID); ok {
		return s, nil
	}

	p, err := m.loader.LoadPrincipal(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load principal: %w", err)
	}

	r := m.resolver.Resolve(ctx, p)
	s := &Session{
		UserID:     p.ID,
		Email:      p.Email,
		Role:       r,
		RoleLabel:  r.Label(),
		Landing:    Landing(r),
		ResolvedAt: m.now().UTC(),
	}

	m.store(ctx, s)
	return s, nil
}

// ResolveRole satisfies the access guard.
func (m *Manager) ResolveRole(ctx context.Context, userID string) (string, error) {
	s, err := m.Current(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.Role.String(), nil
}

func (m *Manager) Invalidate(ctx context.Context, userID string) {
	if m.rdb == nil {
		return
	}
	if err := m.rdb.Del(ctx, cacheKeyPrefix+userID).Err(); err != nil {
		m.logger.Warn("unable to drop cached session",
			"user_id", userID,
			"error", err,
		)
	}
}

func (m *Manager) cached(ctx context.Context, userID string) (*Session, bool) {
	if m.rdb == nil {
		return nil, false
	}

	raw, err := m.rdb.Get(ctx, cacheKeyPrefix+userID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			m.logger.Warn("session cache read failed", "error", err)
		}
		return nil, false
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || s.UserID != userID {
		return nil, false
	}
	return &s, true
}

func (m *Manager) store(ctx context.Context, s *Session) {
	if m.rdb == nil {
		return
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := m.rdb.Set(ctx, cacheKeyPrefix+s.UserID, raw, m.ttl).Err(); err != nil {
		m.logger.Warn("session cache write failed", "error", err)
	}
}

// Subscribe registers fn for every published event. The returned func
// removes it and is safe to call more than once.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// Publish delivers e to every subscriber in the calling goroutine.
// Sign-out and role changes drop the cached session first.
func (m *Manager) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = m.now().UTC()
	}
	if e.invalidates() {
		m.Invalidate(ctx, e.UserID)
	}

	m.mu.RLock()
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		m.deliver(fn, e)
	}
}

func (m *Manager) deliver(fn func(Event), e Event) {
	defer func() {
		if p := recover(); p != nil {
			m.logger.Error("session subscriber panicked",
				"event", e.Type,
				"panic", p,
			)
		}
	}()
	fn(e)
}
