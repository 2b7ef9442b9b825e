package inventory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

// ExpiryService classifies batches by expiry risk and writes off expired stock
type ExpiryService struct {
	batchRepo    inventory.BatchRepository
	disposalRepo inventory.DisposalRepository
	txScope      TransactionScope
	thresholds   inventory.ExpiryThresholds
	logger       *zap.Logger
	events       *eventSink
	now          func() time.Time
}

// NewExpiryService creates a new ExpiryService
func NewExpiryService(
	batchRepo inventory.BatchRepository,
	disposalRepo inventory.DisposalRepository,
	txScope TransactionScope,
	thresholds inventory.ExpiryThresholds,
	logger *zap.Logger,
) *ExpiryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if thresholds.SoonDays <= 0 && thresholds.NearDays <= 0 {
		thresholds = inventory.DefaultExpiryThresholds()
	}
	return &ExpiryService{
		batchRepo:    batchRepo,
		disposalRepo: disposalRepo,
		txScope:      txScope,
		thresholds:   thresholds,
		logger:       logger,
		events:       &eventSink{logger: logger},
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ExpiryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.events.publisher = publisher
}

func (s *ExpiryService) asOf(t *time.Time) time.Time {
	if t != nil && !t.IsZero() {
		return t.UTC()
	}
	return s.now().UTC()
}

var tierOrder = []inventory.ExpiryTier{
	inventory.ExpiryTierExpired,
	inventory.ExpiryTierExpiringSoon,
	inventory.ExpiryTierNearExpiry,
}

// ClassifyExpiry evaluates every active batch with stock and an expiry date.
// Alerts are grouped critical first, each group sorted by days until expiry.
func (s *ExpiryService) ClassifyExpiry(ctx context.Context, asOf *time.Time) (*ExpiryReport, error) {
	at := s.asOf(asOf)
	batches, err := s.batchRepo.FindExpiryCandidates(ctx)
	if err != nil {
		return nil, asUpstream("load expiry candidates", err)
	}

	byTier := make(map[inventory.ExpiryTier][]ExpiryAlertResponse, len(tierOrder))
	for i := range batches {
		alert := inventory.EvaluateBatch(&batches[i], at, s.thresholds)
		if alert == nil {
			continue
		}
		byTier[alert.Tier] = append(byTier[alert.Tier], toExpiryAlertResponse(alert))
	}

	report := &ExpiryReport{AsOf: at, Groups: make([]ExpiryGroup, 0, len(tierOrder))}
	for _, tier := range tierOrder {
		alerts := byTier[tier]
		sort.SliceStable(alerts, func(i, j int) bool {
			if alerts[i].DaysUntilExpiry != alerts[j].DaysUntilExpiry {
				return alerts[i].DaysUntilExpiry < alerts[j].DaysUntilExpiry
			}
			return alerts[i].BatchNumber < alerts[j].BatchNumber
		})
		if alerts == nil {
			alerts = []ExpiryAlertResponse{}
		}
		report.Groups = append(report.Groups, ExpiryGroup{
			Tier:     string(tier),
			Severity: string(tier.Severity()),
			Count:    len(alerts),
			Alerts:   alerts,
		})
		report.Total += len(alerts)
	}
	return report, nil
}

// MarkExpired flips active batches past their expiry date to expired.
// Quantities are left untouched.
func (s *ExpiryService) MarkExpired(ctx context.Context, asOf *time.Time) (int64, error) {
	at := s.asOf(asOf)
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	count, err := s.batchRepo.MarkExpired(ctx, day)
	if err != nil {
		return 0, asUpstream("mark expired batches", err)
	}
	if count > 0 {
		s.logger.Info("batches marked expired", zap.Int64("count", count), zap.Time("as_of", at))
	}
	return count, nil
}

// Dispose writes off stock from a batch, records the loss at the product's
// base price, deletes the batch and deducts its remaining quantity.
func (s *ExpiryService) Dispose(ctx context.Context, batchID, productID uuid.UUID, req DisposeRequest) (*DisposalResponse, error) {
	date := s.now().UTC()
	if req.DisposalDate != nil {
		date = req.DisposalDate.UTC()
	}

	var (
		record   *inventory.StockRecord
		disposal *inventory.Disposal
		warnings []shared.Warning
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rec, err := LockStockRecord(ctx, repos, productID, s.logger)
		if err != nil {
			return err
		}
		batch, err := repos.BatchRepo().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.ProductID != productID {
			return shared.NewDomainError(shared.CodeNotFound, "Batch not found for product")
		}

		price, err := s.basePrice(ctx, repos, productID)
		if err != nil {
			return err
		}
		d, err := inventory.NewDisposal(batch, req.QuantityDisposed, inventory.DisposalMethod(req.DisposalMethod), price, req.Reason, date)
		if err != nil {
			return err
		}
		if err := repos.DisposalRepo().Create(ctx, d); err != nil {
			return err
		}
		if err := repos.BatchRepo().Delete(ctx, batch.ID); err != nil {
			return err
		}

		rec.AddDomainEvent(inventory.NewBatchDisposedEvent(rec, d))
		warnings = rec.Adjust(-batch.QuantityRemaining, -batch.PackagesReceived)
		if err := repos.StockRepo().Save(ctx, rec); err != nil {
			return err
		}
		record, disposal = rec, d
		return nil
	})
	if err != nil {
		return nil, asUpstream("dispose batch", err)
	}

	s.logger.Info("batch disposed",
		zap.String("product_id", productID.String()),
		zap.String("batch_id", batchID.String()),
		zap.Int64("quantity", disposal.QuantityDisposed),
		zap.String("cost_loss", disposal.CostLoss.String()))
	s.events.logWarnings("dispose", productID, warnings)
	s.events.publish(ctx, record)

	resp := ToDisposalResponse(disposal)
	resp.StockAfter = &record.CurrentQuantity
	resp.Warnings = warnings
	return &resp, nil
}

// basePrice looks up the product's price; an unknown product is priced at zero
func (s *ExpiryService) basePrice(ctx context.Context, repos TransactionalRepositories, productID uuid.UUID) (decimal.Decimal, error) {
	lookup := repos.PriceLookup()
	if lookup == nil {
		return decimal.Zero, nil
	}
	price, err := lookup.BasePrice(ctx, productID)
	if errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("no base price for product, disposal priced at zero",
			zap.String("product_id", productID.String()))
		return decimal.Zero, nil
	}
	return price, err
}

// ListDisposals returns a product's disposal history, newest first
func (s *ExpiryService) ListDisposals(ctx context.Context, productID uuid.UUID, filter DisposalListFilter) ([]DisposalResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	disposals, total, err := s.disposalRepo.FindByProduct(ctx, productID, shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "disposal_date",
		OrderDir: "desc",
	})
	if err != nil {
		return nil, 0, asUpstream("list disposals", err)
	}
	responses := make([]DisposalResponse, len(disposals))
	for i := range disposals {
		responses[i] = ToDisposalResponse(&disposals[i])
	}
	return responses, total, nil
}
