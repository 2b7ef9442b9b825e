package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/stockledger/internal/domain/shared"
)

// AggregateTypeStockRecord names the aggregate all ledger events belong to
const AggregateTypeStockRecord = "StockRecord"

// Event type constants
const (
	EventTypeBatchReceived          = "BatchReceived"
	EventTypeBatchAdjusted          = "BatchAdjusted"
	EventTypeBatchRemoved           = "BatchRemoved"
	EventTypeBatchDisposed          = "BatchDisposed"
	EventTypeReorderPointChanged    = "ReorderPointChanged"
	EventTypeStockBelowReorderPoint = "StockBelowReorderPoint"
)

// BatchReceivedEvent is raised when a new batch enters the ledger
type BatchReceivedEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID `json:"product_id"`
	BatchID     uuid.UUID `json:"batch_id"`
	BatchNumber string    `json:"batch_number,omitempty"`
	Quantity    int64     `json:"quantity"`
}

// NewBatchReceivedEvent creates a new BatchReceivedEvent
func NewBatchReceivedEvent(record *StockRecord, batch *Batch) *BatchReceivedEvent {
	return &BatchReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchReceived, AggregateTypeStockRecord, record.ID),
		ProductID:       record.ProductID,
		BatchID:         batch.ID,
		BatchNumber:     batch.BatchNumber,
		Quantity:        batch.Quantity,
	}
}

// BatchAdjustedEvent is raised when a batch's received quantity is corrected
type BatchAdjustedEvent struct {
	shared.BaseDomainEvent
	ProductID      uuid.UUID `json:"product_id"`
	BatchID        uuid.UUID `json:"batch_id"`
	QuantityDelta  int64     `json:"quantity_delta"`
	RemainingDelta int64     `json:"remaining_delta"`
}

// NewBatchAdjustedEvent creates a new BatchAdjustedEvent
func NewBatchAdjustedEvent(record *StockRecord, batch *Batch, change QuantityChange) *BatchAdjustedEvent {
	return &BatchAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchAdjusted, AggregateTypeStockRecord, record.ID),
		ProductID:       record.ProductID,
		BatchID:         batch.ID,
		QuantityDelta:   change.QuantityDelta,
		RemainingDelta:  change.RemainingDelta,
	}
}

// BatchRemovedEvent is raised when a batch is deleted from the ledger
type BatchRemovedEvent struct {
	shared.BaseDomainEvent
	ProductID         uuid.UUID `json:"product_id"`
	BatchID           uuid.UUID `json:"batch_id"`
	QuantityRemaining int64     `json:"quantity_remaining"`
}

// NewBatchRemovedEvent creates a new BatchRemovedEvent
func NewBatchRemovedEvent(record *StockRecord, batch *Batch) *BatchRemovedEvent {
	return &BatchRemovedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeBatchRemoved, AggregateTypeStockRecord, record.ID),
		ProductID:         record.ProductID,
		BatchID:           batch.ID,
		QuantityRemaining: batch.QuantityRemaining,
	}
}

// BatchDisposedEvent is raised when a batch is written off
type BatchDisposedEvent struct {
	shared.BaseDomainEvent
	ProductID        uuid.UUID       `json:"product_id"`
	BatchID          uuid.UUID       `json:"batch_id"`
	DisposalID       uuid.UUID       `json:"disposal_id"`
	QuantityDisposed int64           `json:"quantity_disposed"`
	QuantityRemoved  int64           `json:"quantity_removed"`
	DisposalMethod   DisposalMethod  `json:"disposal_method"`
	CostLoss         decimal.Decimal `json:"cost_loss"`
}

// NewBatchDisposedEvent creates a new BatchDisposedEvent
func NewBatchDisposedEvent(record *StockRecord, disposal *Disposal) *BatchDisposedEvent {
	return &BatchDisposedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeBatchDisposed, AggregateTypeStockRecord, record.ID),
		ProductID:        record.ProductID,
		BatchID:          disposal.BatchID,
		DisposalID:       disposal.ID,
		QuantityDisposed: disposal.QuantityDisposed,
		QuantityRemoved:  disposal.QuantityRemoved,
		DisposalMethod:   disposal.DisposalMethod,
		CostLoss:         disposal.CostLoss,
	}
}

// ReorderPointChangedEvent is raised when min_stock_level changes
type ReorderPointChangedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	OldLevel  int64     `json:"old_level"`
	NewLevel  int64     `json:"new_level"`
}

// NewReorderPointChangedEvent creates a new ReorderPointChangedEvent
func NewReorderPointChangedEvent(record *StockRecord, oldLevel, newLevel int64) *ReorderPointChangedEvent {
	return &ReorderPointChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReorderPointChanged, AggregateTypeStockRecord, record.ID),
		ProductID:       record.ProductID,
		OldLevel:        oldLevel,
		NewLevel:        newLevel,
	}
}

// StockBelowReorderPointEvent is raised when on-hand stock falls to the reorder point
type StockBelowReorderPointEvent struct {
	shared.BaseDomainEvent
	ProductID       uuid.UUID `json:"product_id"`
	CurrentQuantity int64     `json:"current_quantity"`
	MinStockLevel   int64     `json:"min_stock_level"`
}

// NewStockBelowReorderPointEvent creates a new StockBelowReorderPointEvent
func NewStockBelowReorderPointEvent(record *StockRecord) *StockBelowReorderPointEvent {
	return &StockBelowReorderPointEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowReorderPoint, AggregateTypeStockRecord, record.ID),
		ProductID:       record.ProductID,
		CurrentQuantity: record.CurrentQuantity,
		MinStockLevel:   record.MinStockLevel,
	}
}
