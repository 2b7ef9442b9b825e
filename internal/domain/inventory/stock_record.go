package inventory

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/erp/stockledger/internal/domain/shared"
)

// AlertType classifies the on-hand level of a product against its thresholds
type AlertType string

const (
	AlertTypeNormal     AlertType = "normal"
	AlertTypeLowStock   AlertType = "low_stock"
	AlertTypeOutOfStock AlertType = "out_of_stock"
	AlertTypeOverstock  AlertType = "overstock"
)

// StockRecord is the per-product aggregate of on-hand stock.
// CurrentQuantity always equals the sum of remaining quantity over the
// product's batches; it is only ever moved by deltas.
type StockRecord struct {
	shared.BaseAggregateRoot
	ProductID       uuid.UUID
	CurrentQuantity int64
	PackageQty      int64
	MinStockLevel   int64 // reorder point
	MaxStockLevel   int64
}

var _ shared.AggregateRoot = (*StockRecord)(nil)

// NewStockRecord creates a zeroed stock record for a product
func NewStockRecord(productID uuid.UUID) (*StockRecord, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	return &StockRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
	}, nil
}

// AlertType derives the stock alert classification
func (s *StockRecord) AlertType() AlertType {
	switch {
	case s.CurrentQuantity <= 0:
		return AlertTypeOutOfStock
	case s.MinStockLevel > 0 && s.CurrentQuantity <= s.MinStockLevel:
		return AlertTypeLowStock
	case s.MaxStockLevel > 0 && s.CurrentQuantity > s.MaxStockLevel:
		return AlertTypeOverstock
	default:
		return AlertTypeNormal
	}
}

// IsBelowReorderPoint returns true when a reorder point is set and reached
func (s *StockRecord) IsBelowReorderPoint() bool {
	return s.MinStockLevel > 0 && s.CurrentQuantity <= s.MinStockLevel
}

// Adjust moves the on-hand counters by the given deltas. A result below zero
// is clamped to zero and reported as an integrity warning.
func (s *StockRecord) Adjust(quantityDelta, packageDelta int64) []shared.Warning {
	if quantityDelta == 0 && packageDelta == 0 {
		return nil
	}

	var warnings []shared.Warning
	wasBelow := s.IsBelowReorderPoint()

	s.CurrentQuantity += quantityDelta
	if s.CurrentQuantity < 0 {
		warnings = append(warnings, shared.NewIntegrityWarning(fmt.Sprintf(
			"stock for product %s would drop to %d; clamped to 0", s.ProductID, s.CurrentQuantity)))
		s.CurrentQuantity = 0
	}
	s.PackageQty += packageDelta
	if s.PackageQty < 0 {
		warnings = append(warnings, shared.NewIntegrityWarning(fmt.Sprintf(
			"package count for product %s would drop to %d; clamped to 0", s.ProductID, s.PackageQty)))
		s.PackageQty = 0
	}

	s.MarkChanged()
	if !wasBelow && s.IsBelowReorderPoint() {
		s.AddDomainEvent(NewStockBelowReorderPointEvent(s))
	}
	return warnings
}

// SetReorderPoint writes a new min_stock_level and reports the previous value
func (s *StockRecord) SetReorderPoint(level int64) (int64, error) {
	if level < 0 {
		return s.MinStockLevel, shared.NewDomainError(shared.CodeInvalidQuantity, "Reorder point cannot be negative")
	}
	old := s.MinStockLevel
	if old == level {
		return old, nil
	}
	s.MinStockLevel = level
	s.MarkChanged()
	s.AddDomainEvent(NewReorderPointChangedEvent(s, old, level))
	return old, nil
}

// SetThresholds overrides both min and max stock levels
func (s *StockRecord) SetThresholds(minLevel, maxLevel int64) error {
	if minLevel < 0 || maxLevel < 0 {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Stock levels cannot be negative")
	}
	if maxLevel > 0 && minLevel > maxLevel {
		return shared.NewDomainError(shared.CodeInvalidInput, "Minimum stock level cannot exceed maximum")
	}
	if _, err := s.SetReorderPoint(minLevel); err != nil {
		return err
	}
	s.MaxStockLevel = maxLevel
	s.MarkChanged()
	return nil
}
