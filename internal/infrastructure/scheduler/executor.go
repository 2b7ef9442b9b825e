package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/application/replenishment"
	"github.com/erp/stockledger/internal/domain/forecast"
)

// ExpirySweeper is the subset of the expiry service the sweep needs
type ExpirySweeper interface {
	MarkExpired(ctx context.Context, asOf *time.Time) (int64, error)
	ClassifyExpiry(ctx context.Context, asOf *time.Time) (*appinv.ExpiryReport, error)
}

// ReorderRecalculator is the subset of the replenishment service the sweep needs
type ReorderRecalculator interface {
	RecalculateAll(ctx context.Context, cfg *forecast.Config, autoApply bool) (*replenishment.BulkRecalculationReport, error)
}

// LedgerExecutor runs expiry and reorder sweeps
type LedgerExecutor struct {
	expiry    ExpirySweeper
	reorder   ReorderRecalculator
	autoApply bool
	logger    *zap.Logger
	now       func() time.Time
}

// NewLedgerExecutor creates a LedgerExecutor. autoApply controls whether the
// nightly reorder sweep writes reorder points or only reports them.
func NewLedgerExecutor(expiry ExpirySweeper, reorder ReorderRecalculator, autoApply bool, logger *zap.Logger) *LedgerExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerExecutor{
		expiry:    expiry,
		reorder:   reorder,
		autoApply: autoApply,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute dispatches job to its sweep
func (e *LedgerExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypeExpirySweep:
		return e.sweepExpiry(ctx)
	case JobTypeReorderSweep:
		return e.sweepReorderPoints(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}
}

func (e *LedgerExecutor) sweepExpiry(ctx context.Context) error {
	asOf := e.now()

	marked, err := e.expiry.MarkExpired(ctx, &asOf)
	if err != nil {
		return fmt.Errorf("mark expired batches: %w", err)
	}

	report, err := e.expiry.ClassifyExpiry(ctx, &asOf)
	if err != nil {
		return fmt.Errorf("classify expiry: %w", err)
	}

	fields := []zap.Field{
		zap.Int64("marked_expired", marked),
		zap.Int("alerts", report.Total),
	}
	for _, group := range report.Groups {
		fields = append(fields, zap.Int(group.Tier, group.Count))
	}
	e.logger.Info("Expiry sweep finished", fields...)
	return nil
}

func (e *LedgerExecutor) sweepReorderPoints(ctx context.Context) error {
	report, err := e.reorder.RecalculateAll(ctx, nil, e.autoApply)
	if err != nil {
		return fmt.Errorf("recalculate reorder points: %w", err)
	}

	e.logger.Info("Reorder sweep finished",
		zap.Bool("dry_run", report.DryRun),
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
	)
	if report.Cancelled {
		return errors.New("reorder sweep cancelled before all products were processed")
	}
	return nil
}
