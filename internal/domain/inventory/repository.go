package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/domain/shared"
)

// BatchFilter narrows batch listings
type BatchFilter struct {
	shared.Filter
	ProductID  *uuid.UUID
	ActiveOnly bool
}

// BatchRepository persists batches. Listings are always ordered by expiry
// date ascending (batches without expiry last), then by creation time.
type BatchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	FindAll(ctx context.Context, filter BatchFilter) ([]Batch, int64, error)

	// FindExpiryCandidates returns active or expired batches with stock and an
	// expiry date
	FindExpiryCandidates(ctx context.Context) ([]Batch, error)

	// SumRemaining returns the remaining quantity and received packages across
	// all of a product's batches, whatever their status
	SumRemaining(ctx context.Context, productID uuid.UUID) (int64, int64, error)

	// MarkExpired flips active batches whose expiry date is before the given day
	MarkExpired(ctx context.Context, before time.Time) (int64, error)

	Save(ctx context.Context, batch *Batch) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// StockRecordRepository persists per-product stock aggregates
type StockRecordRepository interface {
	FindByProduct(ctx context.Context, productID uuid.UUID) (*StockRecord, error)

	// FindByProductForUpdate reads the record holding a row lock until the transaction ends
	FindByProductForUpdate(ctx context.Context, productID uuid.UUID) (*StockRecord, error)

	// GetOrCreate returns the record, inserting a zeroed one if missing.
	// The boolean reports whether a record was created.
	GetOrCreate(ctx context.Context, productID uuid.UUID) (*StockRecord, bool, error)

	// ListProductIDs returns every product that has a stock record, ordered by id
	ListProductIDs(ctx context.Context) ([]uuid.UUID, error)

	Save(ctx context.Context, record *StockRecord) error
}

// DisposalRepository persists disposal records
type DisposalRepository interface {
	Create(ctx context.Context, disposal *Disposal) error
	FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]Disposal, int64, error)
}

// SalesHistoryReader reads sold quantities of a product in [from, to]
type SalesHistoryReader interface {
	ReadSales(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]forecast.SaleRecord, error)
}

// PriceLookup returns the current base price of a product
type PriceLookup interface {
	BasePrice(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
}
