package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/phonegate/internal/services"
	"github.com/charlesng35/phonegate/pkg/logger"
)

const (
	defaultTokenSpec      = "@hourly"
	defaultTokenRetention = 24 * time.Hour
)

// Cleaner periodically purges stale phone tokens so the table does not grow
// without bound. Burned tokens are kept for the retention window so repeated
// verification attempts keep reporting an already used code.
type Cleaner struct {
	tokens    *services.PhoneTokenService
	cron      *cron.Cron
	log       *zap.Logger
	retention time.Duration
	schedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithRetention adjusts how long stale phone tokens are kept before removal.
func WithRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.retention = d
		}
	}
}

// WithSchedule overrides the cron specification for token cleanup.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(tokens *services.PhoneTokenService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		tokens:    tokens,
		retention: defaultTokenRetention,
		schedule:  defaultTokenSpec,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.tokens == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("phone token cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes the cleanup routine a single time. Used by the scheduler,
// tests, and graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.tokens != nil {
		removed, err := c.tokens.PurgeStale(ctx, c.retention)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if removed > 0 {
			c.log.Info("purged stale phone tokens", zap.Int64("count", removed))
		}
	}

	return errs
}
