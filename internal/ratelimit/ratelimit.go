// Package ratelimit counts requests per key in fixed windows
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	// Requests allowed per key within one window
	Limit  int
	Window time.Duration
}

func (c Config) validate() error {
	if c.Limit <= 0 || c.Window <= 0 {
		return fmt.Errorf("rate limit and window must be positive, got %d per %s", c.Limit, c.Window)
	}
	return nil
}

// In-process limiter, good for single instance
type Memory struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window
	stop    chan struct{}
	once    sync.Once
}

type window struct {
	start time.Time
	count int
}

func NewMemory(cfg Config) (*Memory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Memory{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	go m.cleanup()

	return m, nil
}

func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= m.cfg.Window {
		w = &window{start: now}
		m.windows[key] = w
	}

	if w.count >= m.cfg.Limit {
		return false, w.start.Add(m.cfg.Window).Sub(now), nil
	}

	w.count++
	return true, 0, nil
}

// Stop cleanup goroutine, safe to call many times
func (m *Memory) Stop() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Memory) cleanup() {
	ticker := time.NewTicker(m.cfg.Window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.dropExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) dropExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, w := range m.windows {
		if now.Sub(w.start) >= m.cfg.Window {
			delete(m.windows, key)
		}
	}
}

// Limiter shared by all instances through redis
// Window starts with the first request of the key and lives as key TTL
type Redis struct {
	client redis.Cmdable
	cfg    Config
	prefix string
}

func NewRedis(client redis.Cmdable, prefix string, cfg Config) (*Redis, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Redis{client: client, cfg: cfg, prefix: prefix}, nil
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := r.key(key)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, r.cfg.Window)
		ttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("redis error: %w", err)
	}

	if incr.Val() > int64(r.cfg.Limit) {
		return false, max(ttl.Val(), 0), nil
	}
	return true, 0, nil
}

func (r *Redis) key(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}
