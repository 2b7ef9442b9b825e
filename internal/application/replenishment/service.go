package replenishment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

// DefaultConcurrency bounds the number of products recalculated at once
const DefaultConcurrency = 4

// ForecastCache stores forecast results per product and config fingerprint
type ForecastCache interface {
	Get(ctx context.Context, productID uuid.UUID, configKey string) (*forecast.Result, bool, error)
	Set(ctx context.Context, productID uuid.UUID, configKey string, result *forecast.Result) error
}

// Recorder receives recalculation outcomes, typically for metrics
type Recorder interface {
	RecordRecalculation(ctx context.Context, success, applied bool)
	RecordSweep(ctx context.Context, duration time.Duration, failed int)
}

// Config holds the publisher's tunables
type Config struct {
	Defaults    forecast.Config
	Concurrency int
}

// Service forecasts reorder points and publishes them to stock records
type Service struct {
	sales       inventory.SalesHistoryReader
	stockRepo   inventory.StockRecordRepository
	txScope     appinv.TransactionScope
	engine      *forecast.Engine
	defaults    forecast.Config
	concurrency int
	cache       ForecastCache
	recorder    Recorder
	publisher   shared.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new replenishment Service
func NewService(
	sales inventory.SalesHistoryReader,
	stockRepo inventory.StockRecordRepository,
	txScope appinv.TransactionScope,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Defaults == (forecast.Config{}) {
		cfg.Defaults = forecast.DefaultConfig()
	}
	return &Service{
		sales:       sales,
		stockRepo:   stockRepo,
		txScope:     txScope,
		engine:      forecast.NewEngine(),
		defaults:    cfg.Defaults,
		concurrency: cfg.Concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// SetCache enables forecast caching
func (s *Service) SetCache(cache ForecastCache) {
	s.cache = cache
}

// SetRecorder sets the outcome recorder
func (s *Service) SetRecorder(recorder Recorder) {
	s.recorder = recorder
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Defaults returns the forecast configuration used when a caller supplies none
func (s *Service) Defaults() forecast.Config {
	return s.defaults
}

func (s *Service) resolveConfig(cfg *forecast.Config) (forecast.Config, error) {
	resolved := s.defaults
	if cfg != nil {
		resolved = *cfg
	}
	if err := resolved.Validate(); err != nil {
		return forecast.Config{}, err
	}
	return resolved, nil
}

// Forecast computes the recommended reorder point for a product. Results are
// served from the cache when one is configured.
func (s *Service) Forecast(ctx context.Context, productID uuid.UUID, cfg *forecast.Config) (*ForecastResponse, error) {
	resolved, err := s.resolveConfig(cfg)
	if err != nil {
		return nil, err
	}
	return s.forecast(ctx, productID, resolved, true)
}

func (s *Service) forecast(ctx context.Context, productID uuid.UUID, cfg forecast.Config, useCache bool) (*ForecastResponse, error) {
	asOf := s.now().UTC()
	key := cfg.Key()

	if useCache && s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, productID, key)
		if err != nil {
			s.logger.Warn("forecast cache read failed",
				zap.String("product_id", productID.String()), zap.Error(err))
		} else if ok {
			return &ForecastResponse{
				ProductID:   productID,
				AsOf:        asOf,
				Outcome:     cached.Outcome,
				Calculation: cached.Calculation,
				Cached:      true,
			}, nil
		}
	}

	records, err := s.sales.ReadSales(ctx, productID, forecast.WindowStart(asOf, cfg.LookbackDays), asOf)
	if err != nil {
		return nil, shared.NewUpstreamError("read sales history", err)
	}
	result := s.engine.Calculate(records, cfg, asOf)

	if s.cache != nil {
		if err := s.cache.Set(ctx, productID, key, &result); err != nil {
			s.logger.Warn("forecast cache write failed",
				zap.String("product_id", productID.String()), zap.Error(err))
		}
	}

	return &ForecastResponse{
		ProductID:   productID,
		AsOf:        asOf,
		Outcome:     result.Outcome,
		Calculation: result.Calculation,
	}, nil
}

// RecalculateOne forecasts a product and writes the recommendation as its
// min_stock_level under the product's stock lock.
func (s *Service) RecalculateOne(ctx context.Context, productID uuid.UUID, cfg *forecast.Config) (*RecalculationEntry, error) {
	resolved, err := s.resolveConfig(cfg)
	if err != nil {
		return nil, err
	}
	entry, err := s.recalculate(ctx, productID, resolved, true)
	if s.recorder != nil {
		s.recorder.RecordRecalculation(ctx, err == nil, entry.Applied)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) recalculate(ctx context.Context, productID uuid.UUID, cfg forecast.Config, apply bool) (*RecalculationEntry, error) {
	entry := &RecalculationEntry{ProductID: productID}

	fc, err := s.forecast(ctx, productID, cfg, false)
	if err != nil {
		entry.Error = err.Error()
		return entry, err
	}
	entry.NewReorderPoint = fc.Calculation.Recommended
	entry.Method = fc.Calculation.Method
	entry.Outcome = fc.Outcome
	metrics := fc.Calculation.Metrics
	entry.Metrics = &metrics

	if !apply {
		record, err := s.stockRepo.FindByProduct(ctx, productID)
		if err != nil {
			err = asUpstream("load stock record", err)
			entry.Error = err.Error()
			return entry, err
		}
		entry.OldReorderPoint = record.MinStockLevel
		s.fillChange(entry)
		entry.Success = true
		return entry, nil
	}

	var record *inventory.StockRecord
	err = s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		rec, err := appinv.LockStockRecord(ctx, repos, productID, s.logger)
		if err != nil {
			return err
		}
		old, err := rec.SetReorderPoint(fc.Calculation.Recommended)
		if err != nil {
			return err
		}
		entry.OldReorderPoint = old
		if old != fc.Calculation.Recommended {
			if err := repos.StockRepo().Save(ctx, rec); err != nil {
				return err
			}
		}
		record = rec
		return nil
	})
	if err != nil {
		err = asUpstream("write reorder point", err)
		entry.Error = err.Error()
		return entry, err
	}

	s.fillChange(entry)
	entry.Applied = true
	entry.Success = true
	s.publish(ctx, record)
	return entry, nil
}

func (s *Service) fillChange(entry *RecalculationEntry) {
	entry.Delta = entry.NewReorderPoint - entry.OldReorderPoint
	entry.PercentChange = PercentChange(entry.OldReorderPoint, entry.NewReorderPoint)
}

func (s *Service) publish(ctx context.Context, record *inventory.StockRecord) {
	if record == nil {
		return
	}
	events := record.PullDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish reorder point events", zap.Error(err))
	}
}

// RecalculateAll recalculates every product with a stock record using a
// bounded worker pool. A failing or panicking product is recorded and the
// sweep goes on.
// When ctx is cancelled no new products are started and the rest are
// reported as skipped. With autoApply false nothing is written.
func (s *Service) RecalculateAll(ctx context.Context, cfg *forecast.Config, autoApply bool) (*BulkRecalculationReport, error) {
	resolved, err := s.resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	started := s.now().UTC()
	clock := time.Now()
	ids, err := s.stockRepo.ListProductIDs(ctx)
	if err != nil {
		return nil, asUpstream("list products", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	s.logger.Info("reorder point sweep started",
		zap.Int("products", len(ids)),
		zap.Bool("auto_apply", autoApply),
		zap.Int("concurrency", s.concurrency))

	entries := make([]RecalculationEntry, len(ids))
	done := make([]bool, len(ids))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("reorder point recalculation panicked",
						zap.String("product_id", id.String()),
						zap.Any("panic", r),
						zap.Stack("stack"))
					if s.recorder != nil {
						s.recorder.RecordRecalculation(ctx, false, false)
					}
					entries[i] = RecalculationEntry{ProductID: id, Error: fmt.Sprintf("panic: %v", r)}
					done[i] = true
				}
			}()
			entry, err := s.recalculate(ctx, id, resolved, autoApply)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				s.logger.Warn("reorder point recalculation failed",
					zap.String("product_id", id.String()), zap.Error(err))
			}
			if s.recorder != nil {
				s.recorder.RecordRecalculation(ctx, err == nil, entry.Applied)
			}
			entries[i] = *entry
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	report := &BulkRecalculationReport{
		DryRun:    !autoApply,
		Entries:   entries,
		StartedAt: started,
	}
	for i := range entries {
		if !done[i] {
			entries[i] = RecalculationEntry{ProductID: ids[i], Skipped: true, Error: "sweep cancelled"}
			report.Skipped++
			continue
		}
		report.Attempted++
		if entries[i].Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	report.Cancelled = report.Skipped > 0
	report.Success = report.Failed == 0 && !report.Cancelled
	report.Duration = time.Since(clock)

	if s.recorder != nil {
		s.recorder.RecordSweep(ctx, report.Duration, report.Failed)
	}
	s.logger.Info("reorder point sweep finished",
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func asUpstream(op string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.NewUpstreamError(op, err)
}
