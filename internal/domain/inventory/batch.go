package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/stockledger/internal/domain/shared"
)

// BatchStatus represents the lifecycle state of a batch
type BatchStatus string

const (
	BatchStatusActive   BatchStatus = "active"
	BatchStatusExpired  BatchStatus = "expired"
	BatchStatusReturned BatchStatus = "returned"
)

// IsValid checks if the status is a known value
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusActive, BatchStatusExpired, BatchStatusReturned:
		return true
	}
	return false
}

// Batch is a quantity of one product received together, sharing
// batch number, dates and cost.
type Batch struct {
	shared.BaseEntity
	ProductID         uuid.UUID
	BatchNumber       string
	ManufactureDate   *time.Time
	ExpiryDate        *time.Time
	ReceivedDate      time.Time
	Quantity          int64 // originally received units
	QuantityRemaining int64 // units still on hand, 0 <= remaining <= quantity
	PackagesReceived  int64
	UnitsPerPackage   int64
	CostPrice         decimal.Decimal
	Status            BatchStatus
}

var _ shared.Entity = (*Batch)(nil)

// BatchSpec carries the attributes of a newly received batch
type BatchSpec struct {
	BatchNumber      string
	ManufactureDate  *time.Time
	ExpiryDate       *time.Time
	ReceivedDate     *time.Time
	Quantity         int64
	PackagesReceived int64
	UnitsPerPackage  int64
	CostPrice        decimal.Decimal
}

// NewBatch creates a batch with its full quantity remaining
func NewBatch(productID uuid.UUID, spec BatchSpec) (*Batch, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	if err := validateQuantities(spec.Quantity, spec.PackagesReceived); err != nil {
		return nil, err
	}
	if spec.UnitsPerPackage < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Units per package cannot be negative")
	}
	if spec.CostPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Cost price cannot be negative")
	}
	if spec.ManufactureDate != nil && spec.ExpiryDate != nil && spec.ExpiryDate.Before(*spec.ManufactureDate) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Expiry date cannot precede manufacture date")
	}

	base := shared.NewBaseEntity()
	received := base.CreatedAt
	if spec.ReceivedDate != nil {
		received = *spec.ReceivedDate
	}

	return &Batch{
		BaseEntity:        base,
		ProductID:         productID,
		BatchNumber:       strings.TrimSpace(spec.BatchNumber),
		ManufactureDate:   spec.ManufactureDate,
		ExpiryDate:        spec.ExpiryDate,
		ReceivedDate:      received,
		Quantity:          spec.Quantity,
		QuantityRemaining: spec.Quantity,
		PackagesReceived:  spec.PackagesReceived,
		UnitsPerPackage:   spec.UnitsPerPackage,
		CostPrice:         spec.CostPrice,
		Status:            BatchStatusActive,
	}, nil
}

func validateQuantities(quantity, packages int64) error {
	if quantity < 0 {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity cannot be negative")
	}
	if packages < 0 {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Packages received cannot be negative")
	}
	return nil
}

// QuantityChange describes how a correction moved a batch's counters
type QuantityChange struct {
	QuantityDelta  int64
	RemainingDelta int64
	PackageDelta   int64
}

// IsZero reports whether nothing changed
func (c QuantityChange) IsZero() bool {
	return c.QuantityDelta == 0 && c.RemainingDelta == 0 && c.PackageDelta == 0
}

// Correct sets a new received quantity and package count. Remaining stock is
// rescaled in proportion to the old quantity so partially consumed batches keep
// their consumption ratio.
func (b *Batch) Correct(newQuantity, newPackages int64) (QuantityChange, error) {
	if err := validateQuantities(newQuantity, newPackages); err != nil {
		return QuantityChange{}, err
	}

	newRemaining := RescaleRemaining(b.QuantityRemaining, b.Quantity, newQuantity)
	change := QuantityChange{
		QuantityDelta:  newQuantity - b.Quantity,
		RemainingDelta: newRemaining - b.QuantityRemaining,
		PackageDelta:   newPackages - b.PackagesReceived,
	}
	if change.IsZero() {
		return change, nil
	}

	b.Quantity = newQuantity
	b.QuantityRemaining = newRemaining
	b.PackagesReceived = newPackages
	b.Touch()
	return change, nil
}

// RescaleRemaining returns round(remaining / oldQuantity * newQuantity).
// A batch with no original quantity takes the new quantity as remaining.
func RescaleRemaining(remaining, oldQuantity, newQuantity int64) int64 {
	if oldQuantity <= 0 {
		return newQuantity
	}
	if oldQuantity == newQuantity {
		return remaining
	}
	scaled := decimal.NewFromInt(remaining).
		Mul(decimal.NewFromInt(newQuantity)).
		Div(decimal.NewFromInt(oldQuantity)).
		Round(0).
		IntPart()
	return min(max(scaled, 0), newQuantity)
}

// BatchDetails holds the non-quantity attributes that can be edited
type BatchDetails struct {
	BatchNumber     *string
	ManufactureDate *time.Time
	ExpiryDate      *time.Time
	ReceivedDate    *time.Time
	UnitsPerPackage *int64
	CostPrice       *decimal.Decimal
	Status          *BatchStatus
}

// ApplyDetails updates the supplied non-quantity attributes
func (b *Batch) ApplyDetails(d BatchDetails) error {
	if d.UnitsPerPackage != nil && *d.UnitsPerPackage < 0 {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Units per package cannot be negative")
	}
	if d.CostPrice != nil && d.CostPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Cost price cannot be negative")
	}
	if d.Status != nil && !d.Status.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unknown batch status")
	}

	if d.BatchNumber != nil {
		b.BatchNumber = strings.TrimSpace(*d.BatchNumber)
	}
	if d.ManufactureDate != nil {
		b.ManufactureDate = d.ManufactureDate
	}
	if d.ExpiryDate != nil {
		b.ExpiryDate = d.ExpiryDate
	}
	if d.ReceivedDate != nil {
		b.ReceivedDate = *d.ReceivedDate
	}
	if d.UnitsPerPackage != nil {
		b.UnitsPerPackage = *d.UnitsPerPackage
	}
	if d.CostPrice != nil {
		b.CostPrice = *d.CostPrice
	}
	if d.Status != nil {
		b.Status = *d.Status
	}
	b.Touch()
	return nil
}

// HasStock returns true if the batch still holds units
func (b *Batch) HasStock() bool {
	return b.QuantityRemaining > 0
}

// IsActive returns true for active batches with stock left
func (b *Batch) IsActive() bool {
	return b.Status == BatchStatusActive && b.HasStock()
}

// AwaitingDisposal reports whether the batch still holds stock that must be
// sold or disposed. Expired batches count until a disposal removes them.
func (b *Batch) AwaitingDisposal() bool {
	return (b.Status == BatchStatusActive || b.Status == BatchStatusExpired) && b.HasStock()
}

// IsExpiredAt returns true if the batch expired before asOf's calendar day
func (b *Batch) IsExpiredAt(asOf time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return DaysUntilExpiry(*b.ExpiryDate, asOf) < 0
}

// MarkExpired flips an active batch to expired; quantities are kept
func (b *Batch) MarkExpired() bool {
	if b.Status != BatchStatusActive {
		return false
	}
	b.Status = BatchStatusExpired
	b.Touch()
	return true
}

// TotalValue returns remaining units priced at cost
func (b *Batch) TotalValue() decimal.Decimal {
	return b.CostPrice.Mul(decimal.NewFromInt(b.QuantityRemaining))
}
