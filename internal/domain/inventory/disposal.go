package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/stockledger/internal/domain/shared"
)

// DisposalMethod is how disposed stock left the warehouse
type DisposalMethod string

const (
	DisposalMethodTrash          DisposalMethod = "trash"
	DisposalMethodReturnSupplier DisposalMethod = "return_supplier"
	DisposalMethodDonation       DisposalMethod = "donation"
	DisposalMethodOther          DisposalMethod = "other"
)

// IsValid checks if the method is a known value
func (m DisposalMethod) IsValid() bool {
	switch m {
	case DisposalMethodTrash, DisposalMethodReturnSupplier, DisposalMethodDonation, DisposalMethodOther:
		return true
	}
	return false
}

// Disposal is the immutable record of stock written off from a batch
type Disposal struct {
	shared.BaseEntity
	BatchID          uuid.UUID
	ProductID        uuid.UUID
	BatchNumber      string
	QuantityDisposed int64
	// QuantityRemoved is the batch's whole remaining stock, which leaves the
	// ledger with the batch even when fewer units were reported disposed
	QuantityRemoved int64
	DisposalDate     time.Time
	DisposalMethod   DisposalMethod
	CostLoss         decimal.Decimal
	Reason           string
}

// NewDisposal validates a disposal against the persisted batch and prices it
// at basePrice per unit. A zero quantity disposes everything remaining.
func NewDisposal(batch *Batch, quantity int64, method DisposalMethod, basePrice decimal.Decimal, reason string, date time.Time) (*Disposal, error) {
	if batch == nil {
		return nil, shared.ErrNotFound
	}
	if quantity == 0 {
		quantity = batch.QuantityRemaining
	}
	if quantity < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Disposed quantity cannot be negative")
	}
	if quantity > batch.QuantityRemaining {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Disposed quantity exceeds remaining batch quantity")
	}
	if method == "" {
		method = DisposalMethodTrash
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown disposal method")
	}
	if basePrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Base price cannot be negative")
	}
	if date.IsZero() {
		date = time.Now()
	}

	return &Disposal{
		BaseEntity:       shared.NewBaseEntity(),
		BatchID:          batch.ID,
		ProductID:        batch.ProductID,
		BatchNumber:      batch.BatchNumber,
		QuantityDisposed: quantity,
		QuantityRemoved:  batch.QuantityRemaining,
		DisposalDate:     date,
		DisposalMethod:   method,
		CostLoss:         basePrice.Mul(decimal.NewFromInt(quantity)),
		Reason:           reason,
	}, nil
}
