package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/stockledger/internal/domain/inventory"
)

// StockRecordModel is the persistence model for the StockRecord aggregate root.
type StockRecordModel struct {
	AggregateModel
	ProductID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_records_product"`
	CurrentQuantity int64     `gorm:"not null;default:0"`
	PackageQty      int64     `gorm:"not null;default:0"`
	MinStockLevel   int64     `gorm:"not null;default:0"`
	MaxStockLevel   int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (StockRecordModel) TableName() string {
	return "stock_records"
}

// ToDomain converts the persistence model to a domain StockRecord.
func (m *StockRecordModel) ToDomain() *inventory.StockRecord {
	return &inventory.StockRecord{
		BaseAggregateRoot: m.aggregate(),
		ProductID:         m.ProductID,
		CurrentQuantity:   m.CurrentQuantity,
		PackageQty:        m.PackageQty,
		MinStockLevel:     m.MinStockLevel,
		MaxStockLevel:     m.MaxStockLevel,
	}
}

// FromDomain populates the persistence model from a domain StockRecord.
func (m *StockRecordModel) FromDomain(s *inventory.StockRecord) {
	m.AggregateModel = aggregateModelOf(s.BaseAggregateRoot)
	m.ProductID = s.ProductID
	m.CurrentQuantity = s.CurrentQuantity
	m.PackageQty = s.PackageQty
	m.MinStockLevel = s.MinStockLevel
	m.MaxStockLevel = s.MaxStockLevel
}

// StockRecordModelFromDomain creates a new persistence model from a domain StockRecord.
func StockRecordModelFromDomain(s *inventory.StockRecord) *StockRecordModel {
	m := &StockRecordModel{}
	m.FromDomain(s)
	return m
}

// StockBatchModel is the persistence model for the Batch entity.
type StockBatchModel struct {
	BaseModel
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchNumber       string          `gorm:"type:varchar(100);not null;default:''"`
	ManufactureDate   *time.Time      `gorm:"type:date"`
	ExpiryDate        *time.Time      `gorm:"type:date;index"`
	ReceivedDate      time.Time       `gorm:"not null"`
	Quantity          int64           `gorm:"not null;default:0"`
	QuantityRemaining int64           `gorm:"not null;default:0"`
	PackagesReceived  int64           `gorm:"not null;default:0"`
	UnitsPerPackage   int64           `gorm:"not null;default:0"`
	CostPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status            string          `gorm:"type:varchar(20);not null;default:'active';index"`
}

// TableName returns the table name for GORM
func (StockBatchModel) TableName() string {
	return "stock_batches"
}

// ToDomain converts the persistence model to a domain Batch.
func (m *StockBatchModel) ToDomain() *inventory.Batch {
	return &inventory.Batch{
		BaseEntity:        m.entity(),
		ProductID:         m.ProductID,
		BatchNumber:       m.BatchNumber,
		ManufactureDate:   utcPtr(m.ManufactureDate),
		ExpiryDate:        utcPtr(m.ExpiryDate),
		ReceivedDate:      m.ReceivedDate.UTC(),
		Quantity:          m.Quantity,
		QuantityRemaining: m.QuantityRemaining,
		PackagesReceived:  m.PackagesReceived,
		UnitsPerPackage:   m.UnitsPerPackage,
		CostPrice:         m.CostPrice,
		Status:            inventory.BatchStatus(m.Status),
	}
}

// FromDomain populates the persistence model from a domain Batch.
func (m *StockBatchModel) FromDomain(b *inventory.Batch) {
	m.BaseModel = baseModelOf(b.BaseEntity)
	m.ProductID = b.ProductID
	m.BatchNumber = b.BatchNumber
	m.ManufactureDate = b.ManufactureDate
	m.ExpiryDate = b.ExpiryDate
	m.ReceivedDate = b.ReceivedDate
	m.Quantity = b.Quantity
	m.QuantityRemaining = b.QuantityRemaining
	m.PackagesReceived = b.PackagesReceived
	m.UnitsPerPackage = b.UnitsPerPackage
	m.CostPrice = b.CostPrice
	m.Status = string(b.Status)
}

// StockBatchModelFromDomain creates a new persistence model from a domain Batch.
func StockBatchModelFromDomain(b *inventory.Batch) *StockBatchModel {
	m := &StockBatchModel{}
	m.FromDomain(b)
	return m
}

// ProductDisposalModel is the persistence model for the Disposal entity.
type ProductDisposalModel struct {
	BaseModel
	BatchID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchNumber      string          `gorm:"type:varchar(100);not null;default:''"`
	QuantityDisposed int64           `gorm:"not null"`
	QuantityRemoved  int64           `gorm:"not null;default:0"`
	DisposalDate     time.Time       `gorm:"not null"`
	DisposalMethod   string          `gorm:"type:varchar(30);not null"`
	CostLoss         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Reason           string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ProductDisposalModel) TableName() string {
	return "product_disposals"
}

// ToDomain converts the persistence model to a domain Disposal.
func (m *ProductDisposalModel) ToDomain() *inventory.Disposal {
	return &inventory.Disposal{
		BaseEntity:       m.entity(),
		BatchID:          m.BatchID,
		ProductID:        m.ProductID,
		BatchNumber:      m.BatchNumber,
		QuantityDisposed: m.QuantityDisposed,
		QuantityRemoved:  m.QuantityRemoved,
		DisposalDate:     m.DisposalDate.UTC(),
		DisposalMethod:   inventory.DisposalMethod(m.DisposalMethod),
		CostLoss:         m.CostLoss,
		Reason:           m.Reason,
	}
}

// FromDomain populates the persistence model from a domain Disposal.
func (m *ProductDisposalModel) FromDomain(d *inventory.Disposal) {
	m.BaseModel = baseModelOf(d.BaseEntity)
	m.BatchID = d.BatchID
	m.ProductID = d.ProductID
	m.BatchNumber = d.BatchNumber
	m.QuantityDisposed = d.QuantityDisposed
	m.QuantityRemoved = d.QuantityRemoved
	m.DisposalDate = d.DisposalDate
	m.DisposalMethod = string(d.DisposalMethod)
	m.CostLoss = d.CostLoss
	m.Reason = d.Reason
}

// ProductDisposalModelFromDomain creates a new persistence model from a domain Disposal.
func ProductDisposalModelFromDomain(d *inventory.Disposal) *ProductDisposalModel {
	m := &ProductDisposalModel{}
	m.FromDomain(d)
	return m
}
