package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TriggerConfig controls when sweeps are submitted
type TriggerConfig struct {
	// ExpiryInterval is the period between expiry sweeps; zero disables them
	ExpiryInterval time.Duration
	ReorderHour    int
	ReorderMinute  int
	CheckInterval  time.Duration
}

// DefaultTriggerConfig returns hourly expiry sweeps and a 02:00 reorder sweep
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		ExpiryInterval: time.Hour,
		ReorderHour:    2,
		ReorderMinute:  0,
		CheckInterval:  time.Minute,
	}
}

// Submitter accepts sweep jobs
type Submitter interface {
	Schedule(jobType JobType) (*Job, error)
}

// CronTrigger submits an expiry sweep every ExpiryInterval and a reorder
// sweep once a day at ReorderHour:ReorderMinute local time
type CronTrigger struct {
	config    TriggerConfig
	submitter Submitter
	logger    *zap.Logger
	now       func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastReorder string
	lastExpiry  time.Time
}

// NewCronTrigger creates a CronTrigger
func NewCronTrigger(config TriggerConfig, submitter Submitter, logger *zap.Logger) *CronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultTriggerConfig().CheckInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:    config,
		submitter: submitter,
		logger:    logger.Named("cron"),
		now:       time.Now,
	}
}

// Start begins checking the schedule every CheckInterval
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true
	c.lastExpiry = c.now()

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Duration("expiry_interval", c.config.ExpiryInterval),
		zap.Int("reorder_hour", c.config.ReorderHour),
		zap.Int("reorder_minute", c.config.ReorderMinute),
	)
	return nil
}

// Stop halts the loop and waits for it to exit
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.cancel()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick submits whatever sweeps are due at the current time
func (c *CronTrigger) tick() {
	now := c.now()

	c.mu.Lock()
	expiryDue := c.config.ExpiryInterval > 0 && now.Sub(c.lastExpiry) >= c.config.ExpiryInterval
	if expiryDue {
		c.lastExpiry = now
	}

	today := now.Format("2006-01-02")
	reorderDue := c.lastReorder != today &&
		now.Hour() == c.config.ReorderHour &&
		now.Minute() == c.config.ReorderMinute
	if reorderDue {
		c.lastReorder = today
	}
	c.mu.Unlock()

	if expiryDue {
		c.submit(JobTypeExpirySweep)
	}
	if reorderDue {
		c.submit(JobTypeReorderSweep)
	}
}

// TriggerNow submits a sweep immediately
func (c *CronTrigger) TriggerNow(jobType JobType) (*Job, error) {
	return c.submitter.Schedule(jobType)
}

func (c *CronTrigger) submit(jobType JobType) {
	job, err := c.submitter.Schedule(jobType)
	if err != nil {
		level := zap.ErrorLevel
		if errors.Is(err, ErrJobQueueFull) {
			level = zap.WarnLevel
		}
		c.logger.Log(level, "Failed to submit sweep", zap.String("job_type", string(jobType)), zap.Error(err))
		return
	}
	c.logger.Info("Sweep submitted",
		zap.String("job_type", string(jobType)),
		zap.String("job_id", job.ID.String()),
	)
}
