package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

const (
	outcomeApplied   = "applied"
	outcomeUnchanged = "unchanged"
	outcomeFailed    = "failed"
)

// LedgerMetrics counts ledger events and reorder-point recalculations.
// It subscribes to the event bus and is handed to the replenishment
// service as its recorder.
type LedgerMetrics struct {
	events         *Counter
	unitsReceived  *Counter
	unitsDisposed  *Counter
	belowReorder   *Counter
	recalculations *Counter
	sweepFailures  *Counter
	sweepDuration  *Histogram
	logger         *zap.Logger
}

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter, logger *zap.Logger) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewLedgerMetrics: meter cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &LedgerMetrics{logger: logger}
	var err error

	if m.events, err = NewCounter(meter, "ledger_events_total", "Ledger events published", "{event}"); err != nil {
		return nil, err
	}
	if m.unitsReceived, err = NewCounter(meter, "ledger_units_received_total", "Units received into batches", "{unit}"); err != nil {
		return nil, err
	}
	if m.unitsDisposed, err = NewCounter(meter, "ledger_units_disposed_total", "Units removed from the ledger by disposal", "{unit}"); err != nil {
		return nil, err
	}
	if m.belowReorder, err = NewCounter(meter, "ledger_below_reorder_point_total", "Times stock fell to the reorder point", "{event}"); err != nil {
		return nil, err
	}
	if m.recalculations, err = NewCounter(meter, "reorder_recalculations_total", "Reorder point recalculations by outcome", "{recalculation}"); err != nil {
		return nil, err
	}
	if m.sweepFailures, err = NewCounter(meter, "reorder_sweep_failures_total", "Products that failed during a recalculation sweep", "{product}"); err != nil {
		return nil, err
	}
	m.sweepDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "reorder_sweep_duration_seconds",
		Description: "Duration of a full recalculation sweep",
		Unit:        "s",
		Boundaries:  SweepDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRecalculation counts a single product recalculation
func (m *LedgerMetrics) RecordRecalculation(ctx context.Context, success, applied bool) {
	outcome := outcomeUnchanged
	switch {
	case !success:
		outcome = outcomeFailed
	case applied:
		outcome = outcomeApplied
	}
	m.recalculations.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordSweep records a finished recalculation sweep
func (m *LedgerMetrics) RecordSweep(ctx context.Context, duration time.Duration, failed int) {
	m.sweepDuration.RecordDuration(ctx, duration)
	if failed > 0 {
		m.sweepFailures.Add(ctx, int64(failed))
	}
}

// Handle counts a published ledger event
func (m *LedgerMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	m.events.Inc(ctx, AttrEventType.String(event.EventType()))

	switch e := event.(type) {
	case *inventory.BatchReceivedEvent:
		m.unitsReceived.Add(ctx, e.Quantity)
	case *inventory.BatchDisposedEvent:
		m.unitsDisposed.Add(ctx, e.QuantityRemoved, AttrDisposalMethod.String(string(e.DisposalMethod)))
	case *inventory.StockBelowReorderPointEvent:
		m.belowReorder.Inc(ctx)
		m.logger.Debug("Stock at or below reorder point",
			zap.String("product_id", e.ProductID.String()),
			zap.Int64("current_quantity", e.CurrentQuantity),
			zap.Int64("min_stock_level", e.MinStockLevel),
		)
	}
	return nil
}

// EventTypes returns an empty slice so the handler sees every event
func (m *LedgerMetrics) EventTypes() []string {
	return nil
}
