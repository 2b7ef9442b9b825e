// Package models holds the gorm rows behind the ledger. Domain types carry
// no gorm tags; each model converts to and from its domain type.
//
// stock_records, stock_batches and product_disposals are written by the
// ledger. products, sales and sale_lines belong to the catalog and POS and
// are only read here.
package models
