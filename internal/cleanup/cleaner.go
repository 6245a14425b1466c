package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// SessionStore is the part of the repository the cleaner needs
type SessionStore interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner handles periodic removal of expired login sessions
type Cleaner struct {
	store    SessionStore
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	onPurge  func(n int64)
}

// Option configures a Cleaner
type Option func(*Cleaner)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Cleaner) { c.now = now }
}

// WithPurgeHook registers a callback invoked with the number of purged sessions
func WithPurgeHook(fn func(n int64)) Option {
	return func(c *Cleaner) { c.onPurge = fn }
}

// NewCleaner creates a new cleanup worker
func NewCleaner(store SessionStore, interval time.Duration, opts ...Option) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	c := &Cleaner{
		store:    store,
		interval: interval,
		now:      time.Now,
		logger:   slog.With("component", "cleanup"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	c.logger.Info("cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.Cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup runs one purge cycle and returns the number of sessions removed
func (c *Cleaner) Cleanup(ctx context.Context) int64 {
	c.logger.Debug("running cleanup cycle")

	n, err := c.store.DeleteExpiredSessions(ctx, c.now())
	if err != nil {
		c.logger.Error("failed to delete expired sessions", "error", err)
		return 0
	}

	if n == 0 {
		c.logger.Debug("no expired sessions found")
		return 0
	}

	c.logger.Info("expired sessions deleted", "count", n)
	if c.onPurge != nil {
		c.onPurge(n)
	}
	return n
}
