package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

// BatchService maintains batches and keeps each product's stock record equal
// to the remaining quantity across its batches.
type BatchService struct {
	batchRepo inventory.BatchRepository
	stockRepo inventory.StockRecordRepository
	txScope   TransactionScope
	logger    *zap.Logger
	events    *eventSink
}

// NewBatchService creates a new BatchService
func NewBatchService(
	batchRepo inventory.BatchRepository,
	stockRepo inventory.StockRecordRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		batchRepo: batchRepo,
		stockRepo: stockRepo,
		txScope:   txScope,
		logger:    logger,
		events:    &eventSink{logger: logger},
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *BatchService) SetEventPublisher(publisher shared.EventPublisher) {
	s.events.publisher = publisher
}

// CreateBatch receives a new batch and adds its quantity to the product's stock
func (s *BatchService) CreateBatch(ctx context.Context, productID uuid.UUID, req CreateBatchRequest) (*BatchResponse, error) {
	batch, err := inventory.NewBatch(productID, req.spec())
	if err != nil {
		return nil, err
	}

	var record *inventory.StockRecord
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rec, err := LockStockRecord(ctx, repos, productID, s.logger)
		if err != nil {
			return err
		}
		if err := repos.BatchRepo().Save(ctx, batch); err != nil {
			return err
		}
		rec.AddDomainEvent(inventory.NewBatchReceivedEvent(rec, batch))
		rec.Adjust(batch.QuantityRemaining, batch.PackagesReceived)
		if err := repos.StockRepo().Save(ctx, rec); err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, asUpstream("create batch", err)
	}

	s.logger.Info("batch received",
		zap.String("product_id", productID.String()),
		zap.String("batch_id", batch.ID.String()),
		zap.Int64("quantity", batch.Quantity))
	s.events.publish(ctx, record)

	resp := ToBatchResponse(batch)
	resp.StockAfter = &record.CurrentQuantity
	return &resp, nil
}

// UpdateBatch corrects a batch. Quantity changes rescale the remaining stock
// and move the product's stock by the change in remaining.
func (s *BatchService) UpdateBatch(ctx context.Context, batchID uuid.UUID, req UpdateBatchRequest) (*BatchResponse, error) {
	existing, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return nil, asUpstream("load batch", err)
	}
	productID := existing.ProductID

	var (
		batch    *inventory.Batch
		record   *inventory.StockRecord
		warnings []shared.Warning
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rec, err := LockStockRecord(ctx, repos, productID, s.logger)
		if err != nil {
			return err
		}
		// re-read under the lock; the pre-read only located the product
		b, err := repos.BatchRepo().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if b.ProductID != productID {
			return shared.NewDomainError(shared.CodeConcurrency, "Batch moved to another product")
		}

		newQuantity := b.Quantity
		if req.Quantity != nil {
			newQuantity = *req.Quantity
		}
		newPackages := b.PackagesReceived
		if req.PackagesReceived != nil {
			newPackages = *req.PackagesReceived
		}
		change, err := b.Correct(newQuantity, newPackages)
		if err != nil {
			return err
		}
		if err := b.ApplyDetails(req.details()); err != nil {
			return err
		}
		if err := repos.BatchRepo().Save(ctx, b); err != nil {
			return err
		}

		if !change.IsZero() {
			rec.AddDomainEvent(inventory.NewBatchAdjustedEvent(rec, b, change))
			// remaining delta, not quantity delta, keeps the aggregate equal to
			// the batch sum
			warnings = rec.Adjust(change.RemainingDelta, change.PackageDelta)
			if err := repos.StockRepo().Save(ctx, rec); err != nil {
				return err
			}
		}
		batch, record = b, rec
		return nil
	})
	if err != nil {
		return nil, asUpstream("update batch", err)
	}

	s.events.logWarnings("update_batch", productID, warnings)
	s.events.publish(ctx, record)

	resp := ToBatchResponse(batch)
	resp.StockAfter = &record.CurrentQuantity
	resp.Warnings = warnings
	return &resp, nil
}

// DeleteBatch removes a batch and deducts its remaining quantity from the
// product's stock. An underflow is clamped to zero and reported as a warning;
// the deletion still commits.
func (s *BatchService) DeleteBatch(ctx context.Context, batchID, productID uuid.UUID) (*DeleteResult, error) {
	var (
		record *inventory.StockRecord
		result DeleteResult
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

		rec.AddDomainEvent(inventory.NewBatchRemovedEvent(rec, batch))
		warnings := rec.Adjust(-batch.QuantityRemaining, -batch.PackagesReceived)
		if err := repos.BatchRepo().Delete(ctx, batch.ID); err != nil {
			return err
		}
		if err := repos.StockRepo().Save(ctx, rec); err != nil {
			return err
		}

		record = rec
		result = DeleteResult{
			BatchID:         batch.ID,
			ProductID:       productID,
			QuantityRemoved: batch.QuantityRemaining,
			StockAfter:      rec.CurrentQuantity,
			Warnings:        warnings,
		}
		return nil
	})
	if err != nil {
		return nil, asUpstream("delete batch", err)
	}

	s.events.logWarnings("delete_batch", productID, result.Warnings)
	s.events.publish(ctx, record)
	return &result, nil
}

// ListBatches lists batches ordered by expiry date (earliest first, undated
// last) and then by creation time.
func (s *BatchService) ListBatches(ctx context.Context, filter BatchListFilter) ([]BatchResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	batches, total, err := s.batchRepo.FindAll(ctx, inventory.BatchFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
		},
		ProductID:  filter.ProductID,
		ActiveOnly: filter.ActiveOnly,
	})
	if err != nil {
		return nil, 0, asUpstream("list batches", err)
	}
	return ToBatchResponses(batches), total, nil
}

// GetStock returns a product's stock record
func (s *BatchService) GetStock(ctx context.Context, productID uuid.UUID) (*StockRecordResponse, error) {
	record, err := s.stockRepo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, asUpstream("load stock record", err)
	}
	resp := ToStockRecordResponse(record)
	return &resp, nil
}

// SetThresholds manually overrides min/max stock levels
func (s *BatchService) SetThresholds(ctx context.Context, productID uuid.UUID, req SetThresholdsRequest) (*StockRecordResponse, error) {
	var record *inventory.StockRecord
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rec, err := LockStockRecord(ctx, repos, productID, s.logger)
		if err != nil {
			return err
		}
		if err := rec.SetThresholds(req.MinStockLevel, req.MaxStockLevel); err != nil {
			return err
		}
		if err := repos.StockRepo().Save(ctx, rec); err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, asUpstream("set thresholds", err)
	}

	s.events.publish(ctx, record)
	resp := ToStockRecordResponse(record)
	return &resp, nil
}

// Reconcile recomputes the remaining quantity from batches and reports any
// drift against the stock record. It never writes.
func (s *BatchService) Reconcile(ctx context.Context, productID uuid.UUID) (*ReconcileResponse, error) {
	var resp ReconcileResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rec, err := repos.StockRepo().FindByProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		remaining, packages, err := repos.BatchRepo().SumRemaining(ctx, productID)
		if err != nil {
			return err
		}
		resp = ReconcileResponse{
			ProductID:       productID,
			CurrentQuantity: rec.CurrentQuantity,
			BatchRemaining:  remaining,
			Drift:           rec.CurrentQuantity - remaining,
			PackageQty:      rec.PackageQty,
			BatchPackages:   packages,
			PackageDrift:    rec.PackageQty - packages,
			ReconciledAt:    time.Now().UTC(),
		}
		resp.Consistent = resp.Drift == 0
		return nil
	})
	if err != nil {
		return nil, asUpstream("reconcile stock", err)
	}
	if !resp.Consistent {
		s.logger.Warn("stock record drifted from batches",
			zap.String("product_id", productID.String()),
			zap.Int64("drift", resp.Drift))
	}
	return &resp, nil
}
