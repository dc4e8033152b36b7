// Package ratelimit implements a fixed-window request counter keyed by caller
// identity. State lives in process memory and resets on restart.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config describes one admission policy. Distinct policies are applied per
// logical group of operations, so a process typically owns several Limiters.
type Config struct {
	// Window is the fixed interval during which at most Max requests per key
	// are admitted.
	Window time.Duration
	// Max is the number of requests admitted per key per window.
	Max int
	// Message is returned to rejected callers.
	Message string
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the current window for the key expires.
	ResetAt time.Time
	// RetryAfter is how long a rejected caller should wait. Zero when admitted.
	RetryAfter time.Duration
	Message    string
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter shared across all concurrent requests.
// All methods are safe for concurrent use.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	windows map[string]*window
}

// New constructs a Limiter, filling unset config fields with defaults.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Max <= 0 {
		cfg.Max = 60
	}
	if cfg.Message == "" {
		cfg.Message = "too many requests, please try again later"
	}
	return &Limiter{cfg: cfg, windows: make(map[string]*window)}
}

// Allow records a hit for key and decides admission within the current window.
func (l *Limiter) Allow(key string) Decision {
	return l.allowAt(key, time.Now())
}

func (l *Limiter) allowAt(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.cfg.Window)}
		l.windows[key] = w
	}
	w.count++

	remaining := l.cfg.Max - w.count
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Limit:     l.cfg.Max,
		Remaining: remaining,
		ResetAt:   w.resetAt,
		Message:   l.cfg.Message,
	}
	if w.count > l.cfg.Max {
		d.RetryAfter = w.resetAt.Sub(now)
		return d
	}
	d.Allowed = true
	return d
}

// Cleanup drops windows that have already expired.
func (l *Limiter) Cleanup() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}

// StartJanitor evicts expired windows periodically until ctx is cancelled.
func (l *Limiter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = l.cfg.Window
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Cleanup()
			}
		}
	}()
}
