package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The models below belong to the catalog and sales services. The ledger only
// reads them; they are declared here so queries and test fixtures share one
// table mapping.

// ProductModel carries the product columns the ledger reads
type ProductModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	Name      string          `gorm:"type:varchar(200);not null;default:''"`
	BasePrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// SaleModel is a sales header
type SaleModel struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key"`
	SoldAt time.Time `gorm:"not null;index"`
	Status string    `gorm:"type:varchar(20);not null;default:'completed'"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// SaleLineModel is one product line of a sale
type SaleLineModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	SaleID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity  int64     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SaleLineModel) TableName() string {
	return "sale_lines"
}

// SaleStatusVoided marks sales excluded from demand history
const SaleStatusVoided = "voided"
