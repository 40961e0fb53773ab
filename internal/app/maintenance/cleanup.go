package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/stocktrail/stocktrail/internal/auth"
	"github.com/stocktrail/stocktrail/internal/services"
	"github.com/stocktrail/stocktrail/pkg/logger"
)

// DefaultAuditRetentionDays is the fallback audit retention window.
const DefaultAuditRetentionDays = 90

const defaultSchedule = "0 3 * * *"

// Cleaner periodically purges expired sessions and aged-out audit logs.
type Cleaner struct {
	audit    *services.AuditService
	sessions *auth.SessionService

	schedule      string
	retentionDays int

	cron    *cron.Cron
	entryID cron.EntryID
}

// Option customises a Cleaner.
type Option func(*Cleaner)

// WithSchedule overrides the cron schedule.
func WithSchedule(schedule string) Option {
	return func(c *Cleaner) {
		if schedule != "" {
			c.schedule = schedule
		}
	}
}

// WithAuditRetentionDays overrides the audit retention window.
func WithAuditRetentionDays(days int) Option {
	return func(c *Cleaner) {
		if days > 0 {
			c.retentionDays = days
		}
	}
}

// NewCleaner constructs a Cleaner.
func NewCleaner(audit *services.AuditService, sessions *auth.SessionService, opts ...Option) (*Cleaner, error) {
	if audit == nil {
		return nil, errors.New("maintenance: audit service is required")
	}
	if sessions == nil {
		return nil, errors.New("maintenance: session service is required")
	}

	c := &Cleaner{
		audit:         audit,
		sessions:      sessions,
		schedule:      defaultSchedule,
		retentionDays: DefaultAuditRetentionDays,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start schedules the cleanup job. The first run happens on schedule, not at
// startup, so boot stays fast.
func (c *Cleaner) Start() error {
	if c.cron != nil {
		return errors.New("maintenance: already started")
	}

	c.cron = cron.New()
	entryID, err := c.cron.AddFunc(c.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := c.RunOnce(ctx); err != nil {
			logger.Error("maintenance run failed", zap.Error(err))
		}
	})
	if err != nil {
		c.cron = nil
		return err
	}

	c.entryID = entryID
	c.cron.Start()
	logger.Info("maintenance scheduled",
		zap.String("schedule", c.schedule),
		zap.Int("audit_retention_days", c.retentionDays))
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (c *Cleaner) Stop() {
	if c.cron == nil {
		return
	}
	ctx := c.cron.Stop()
	<-ctx.Done()
	c.cron = nil
}

// RunOnce executes one cleanup pass. Both steps always run; their errors are
// combined so one failing step does not hide the other.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error

	removed, err := c.audit.CleanupOlderThan(ctx, c.retentionDays)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if removed > 0 {
		logger.Info("audit logs purged", zap.Int64("removed", removed))
	}

	expired, err := c.sessions.CleanupExpired(ctx)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if expired > 0 {
		logger.Info("expired sessions purged", zap.Int64("removed", expired))
	}

	return errs
}
