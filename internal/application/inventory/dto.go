package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

// CreateBatchRequest represents a request to receive a new batch
type CreateBatchRequest struct {
	BatchNumber      string          `json:"batch_number" binding:"max=100"`
	ManufactureDate  *time.Time      `json:"manufacture_date"`
	ExpiryDate       *time.Time      `json:"expiry_date"`
	ReceivedDate     *time.Time      `json:"received_date"`
	Quantity         int64           `json:"quantity"`
	PackagesReceived int64           `json:"packages_received"`
	UnitsPerPackage  int64           `json:"units_per_package"`
	CostPrice        decimal.Decimal `json:"cost_price"`
}

func (r CreateBatchRequest) spec() inventory.BatchSpec {
	return inventory.BatchSpec{
		BatchNumber:      r.BatchNumber,
		ManufactureDate:  r.ManufactureDate,
		ExpiryDate:       r.ExpiryDate,
		ReceivedDate:     r.ReceivedDate,
		Quantity:         r.Quantity,
		PackagesReceived: r.PackagesReceived,
		UnitsPerPackage:  r.UnitsPerPackage,
		CostPrice:        r.CostPrice,
	}
}

// UpdateBatchRequest carries the fields to change; nil fields are left as is
type UpdateBatchRequest struct {
	Quantity         *int64           `json:"quantity"`
	PackagesReceived *int64           `json:"packages_received"`
	BatchNumber      *string          `json:"batch_number" binding:"omitempty,max=100"`
	ManufactureDate  *time.Time       `json:"manufacture_date"`
	ExpiryDate       *time.Time       `json:"expiry_date"`
	ReceivedDate     *time.Time       `json:"received_date"`
	UnitsPerPackage  *int64           `json:"units_per_package"`
	CostPrice        *decimal.Decimal `json:"cost_price"`
	Status           *string          `json:"status" binding:"omitempty,batch_status"`
}

func (r UpdateBatchRequest) details() inventory.BatchDetails {
	d := inventory.BatchDetails{
		BatchNumber:     r.BatchNumber,
		ManufactureDate: r.ManufactureDate,
		ExpiryDate:      r.ExpiryDate,
		ReceivedDate:    r.ReceivedDate,
		UnitsPerPackage: r.UnitsPerPackage,
		CostPrice:       r.CostPrice,
	}
	if r.Status != nil {
		status := inventory.BatchStatus(*r.Status)
		d.Status = &status
	}
	return d
}

// BatchListFilter represents filter options for batch listings
type BatchListFilter struct {
	ProductID  *uuid.UUID `form:"-"`
	ActiveOnly bool       `form:"active_only"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// BatchResponse represents a batch in API responses
type BatchResponse struct {
	ID                uuid.UUID        `json:"id"`
	ProductID         uuid.UUID        `json:"product_id"`
	BatchNumber       string           `json:"batch_number"`
	ManufactureDate   *time.Time       `json:"manufacture_date,omitempty"`
	ExpiryDate        *time.Time       `json:"expiry_date,omitempty"`
	ReceivedDate      time.Time        `json:"received_date"`
	Quantity          int64            `json:"quantity"`
	QuantityRemaining int64            `json:"quantity_remaining"`
	PackagesReceived  int64            `json:"packages_received"`
	UnitsPerPackage   int64            `json:"units_per_package"`
	CostPrice         decimal.Decimal  `json:"cost_price"`
	Status            string           `json:"status"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	StockAfter        *int64           `json:"stock_after,omitempty"`
	Warnings          []shared.Warning `json:"warnings,omitempty"`
}

// ToBatchResponse converts a domain batch to a response
func ToBatchResponse(b *inventory.Batch) BatchResponse {
	return BatchResponse{
		ID:                b.ID,
		ProductID:         b.ProductID,
		BatchNumber:       b.BatchNumber,
		ManufactureDate:   b.ManufactureDate,
		ExpiryDate:        b.ExpiryDate,
		ReceivedDate:      b.ReceivedDate,
		Quantity:          b.Quantity,
		QuantityRemaining: b.QuantityRemaining,
		PackagesReceived:  b.PackagesReceived,
		UnitsPerPackage:   b.UnitsPerPackage,
		CostPrice:         b.CostPrice,
		Status:            string(b.Status),
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

// ToBatchResponses converts a slice of batches
func ToBatchResponses(batches []inventory.Batch) []BatchResponse {
	responses := make([]BatchResponse, len(batches))
	for i := range batches {
		responses[i] = ToBatchResponse(&batches[i])
	}
	return responses
}

// DeleteResult reports a deleted batch and the stock left behind
type DeleteResult struct {
	BatchID         uuid.UUID        `json:"batch_id"`
	ProductID       uuid.UUID        `json:"product_id"`
	QuantityRemoved int64            `json:"quantity_removed"`
	StockAfter      int64            `json:"stock_after"`
	Warnings        []shared.Warning `json:"warnings,omitempty"`
}

// StockRecordResponse represents a product's aggregate stock
type StockRecordResponse struct {
	ID              uuid.UUID `json:"id"`
	ProductID       uuid.UUID `json:"product_id"`
	CurrentQuantity int64     `json:"current_quantity"`
	PackageQty      int64     `json:"package_qty"`
	MinStockLevel   int64     `json:"min_stock_level"`
	MaxStockLevel   int64     `json:"max_stock_level"`
	AlertType       string    `json:"alert_type"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToStockRecordResponse converts a stock record to a response
func ToStockRecordResponse(r *inventory.StockRecord) StockRecordResponse {
	return StockRecordResponse{
		ID:              r.ID,
		ProductID:       r.ProductID,
		CurrentQuantity: r.CurrentQuantity,
		PackageQty:      r.PackageQty,
		MinStockLevel:   r.MinStockLevel,
		MaxStockLevel:   r.MaxStockLevel,
		AlertType:       string(r.AlertType()),
		Version:         r.GetVersion(),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// SetThresholdsRequest overrides a product's min/max stock levels
type SetThresholdsRequest struct {
	MinStockLevel int64 `json:"min_stock_level" binding:"min=0"`
	MaxStockLevel int64 `json:"max_stock_level" binding:"min=0"`
}

// ReconcileResponse compares the aggregate against its batches
type ReconcileResponse struct {
	ProductID       uuid.UUID `json:"product_id"`
	CurrentQuantity int64     `json:"current_quantity"`
	BatchRemaining  int64     `json:"batch_remaining"`
	Drift           int64     `json:"drift"`
	PackageQty      int64     `json:"package_qty"`
	BatchPackages   int64     `json:"batch_packages"`
	PackageDrift    int64     `json:"package_drift"`
	Consistent      bool      `json:"consistent"`
	ReconciledAt    time.Time `json:"reconciled_at"`
}

// DisposeRequest represents a request to write off a batch
type DisposeRequest struct {
	QuantityDisposed int64      `json:"quantity_disposed" binding:"min=0"`
	DisposalMethod   string     `json:"disposal_method" binding:"omitempty,disposal_method"`
	Reason           string     `json:"reason" binding:"max=500"`
	DisposalDate     *time.Time `json:"disposal_date"`
}

// DisposalResponse represents a disposal record
type DisposalResponse struct {
	ID               uuid.UUID        `json:"id"`
	BatchID          uuid.UUID        `json:"batch_id"`
	ProductID        uuid.UUID        `json:"product_id"`
	BatchNumber      string           `json:"batch_number,omitempty"`
	QuantityDisposed int64            `json:"quantity_disposed"`
	QuantityRemoved  int64            `json:"quantity_removed"`
	DisposalDate     time.Time        `json:"disposal_date"`
	DisposalMethod   string           `json:"disposal_method"`
	CostLoss         decimal.Decimal  `json:"cost_loss"`
	Reason           string           `json:"reason,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	StockAfter       *int64           `json:"stock_after,omitempty"`
	Warnings         []shared.Warning `json:"warnings,omitempty"`
}

// ToDisposalResponse converts a disposal to a response
func ToDisposalResponse(d *inventory.Disposal) DisposalResponse {
	return DisposalResponse{
		ID:               d.ID,
		BatchID:          d.BatchID,
		ProductID:        d.ProductID,
		BatchNumber:      d.BatchNumber,
		QuantityDisposed: d.QuantityDisposed,
		QuantityRemoved:  d.QuantityRemoved,
		DisposalDate:     d.DisposalDate,
		DisposalMethod:   string(d.DisposalMethod),
		CostLoss:         d.CostLoss,
		Reason:           d.Reason,
		CreatedAt:        d.CreatedAt,
	}
}

// DisposalListFilter represents pagination for disposal listings
type DisposalListFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ExpiryAlertResponse represents one batch at risk of expiring
type ExpiryAlertResponse struct {
	BatchID           uuid.UUID `json:"batch_id"`
	ProductID         uuid.UUID `json:"product_id"`
	BatchNumber       string    `json:"batch_number"`
	ExpiryDate        time.Time `json:"expiry_date"`
	QuantityRemaining int64     `json:"quantity_remaining"`
	DaysUntilExpiry   int       `json:"days_until_expiry"`
	Tier              string    `json:"tier"`
	Severity          string    `json:"severity"`
}

// ExpiryGroup holds the alerts of one tier
type ExpiryGroup struct {
	Tier     string                `json:"tier"`
	Severity string                `json:"severity"`
	Count    int                   `json:"count"`
	Alerts   []ExpiryAlertResponse `json:"alerts"`
}

// ExpiryReport groups expiry alerts from most to least urgent
type ExpiryReport struct {
	AsOf   time.Time     `json:"as_of"`
	Total  int           `json:"total"`
	Groups []ExpiryGroup `json:"groups"`
}

// Group returns the group for a tier, or nil
func (r *ExpiryReport) Group(tier inventory.ExpiryTier) *ExpiryGroup {
	for i := range r.Groups {
		if r.Groups[i].Tier == string(tier) {
			return &r.Groups[i]
		}
	}
	return nil
}

func toExpiryAlertResponse(a *inventory.ExpiryAlert) ExpiryAlertResponse {
	return ExpiryAlertResponse{
		BatchID:           a.BatchID,
		ProductID:         a.ProductID,
		BatchNumber:       a.BatchNumber,
		ExpiryDate:        a.ExpiryDate,
		QuantityRemaining: a.QuantityRemaining,
		DaysUntilExpiry:   a.DaysUntilExpiry,
		Tier:              string(a.Tier),
		Severity:          string(a.Severity),
	}
}
