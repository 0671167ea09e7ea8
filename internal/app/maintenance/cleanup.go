package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dmfesta/tradeacademy/internal/services"
	"github.com/dmfesta/tradeacademy/pkg/logger"
)

const defaultTokenSpec = "@hourly"

// Cleaner runs background maintenance. Its only job today is marking unused
// access tokens expired once their redemption window passes; user access
// expiry is never swept because it is computed at read time.
type Cleaner struct {
	tokens *services.TokenService
	cron   *cron.Cron
	log    *zap.Logger

	tokenSchedule string
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

// WithTokenSchedule overrides the cron expression for the token sweep.
func WithTokenSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.tokenSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil token service disables the sweep.
func NewCleaner(tokens *services.TokenService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		tokens:        tokens,
		tokenSchedule: defaultTokenSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the sweep with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.tokens == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.tokenSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		swept, err := c.tokens.ExpireStale(ctx)
		if err != nil {
			c.log.Warn("token sweep failed", zap.Error(err))
			return
		}
		if swept > 0 {
			c.log.Info("expired stale tokens", zap.Int64("count", swept))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes the sweep immediately. Used in tests and at shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.tokens != nil {
		if _, err := c.tokens.ExpireStale(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
