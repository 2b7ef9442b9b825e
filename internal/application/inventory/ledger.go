package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

// LockStockRecord fetches the product's stock record under a row lock,
// creating a zeroed record first when none exists yet.
func LockStockRecord(ctx context.Context, repos TransactionalRepositories, productID uuid.UUID, logger *zap.Logger) (*inventory.StockRecord, error) {
	_, created, err := repos.StockRepo().GetOrCreate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if created && logger != nil {
		logger.Warn("stock record missing, created at zero",
			zap.String("product_id", productID.String()))
	}
	return repos.StockRepo().FindByProductForUpdate(ctx, productID)
}

// asUpstream keeps domain errors as they are and wraps everything else as
// an upstream failure of op.
func asUpstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.NewUpstreamError(op, err)
}

// eventSink publishes aggregate events after the transaction commits
type eventSink struct {
	publisher shared.EventPublisher
	logger    *zap.Logger
}

func (e *eventSink) publish(ctx context.Context, record *inventory.StockRecord) {
	if record == nil {
		return
	}
	events := record.PullDomainEvents()
	if e.publisher == nil || len(events) == 0 {
		return
	}
	if err := e.publisher.Publish(ctx, events...); err != nil {
		e.logger.Warn("failed to publish ledger events",
			zap.String("product_id", record.ProductID.String()),
			zap.Error(err))
	}
}

func (e *eventSink) logWarnings(op string, productID uuid.UUID, warnings []shared.Warning) {
	for _, w := range warnings {
		e.logger.Warn("stock ledger integrity violation",
			zap.String("operation", op),
			zap.String("product_id", productID.String()),
			zap.String("detail", w.Message))
	}
}
