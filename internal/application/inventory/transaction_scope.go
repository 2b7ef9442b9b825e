package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
)

// TransactionScope provides transactional access to ledger repositories.
// All repository operations inside fn share one database transaction that
// commits when fn returns nil and rolls back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories bound to the current transaction.
//
// Every mutation of a product's batches starts by locking that product's
// StockRecord through StockRepo().FindByProductForUpdate, which serializes
// concurrent writers of the same product.
type TransactionalRepositories interface {
	StockRepo() inventory.StockRecordRepository
	BatchRepo() inventory.BatchRepository
	DisposalRepo() inventory.DisposalRepository
	PriceLookup() inventory.PriceLookup
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Used by tests and single-connection setups.
type NoOpTransactionScope struct {
	stockRepo    inventory.StockRecordRepository
	batchRepo    inventory.BatchRepository
	disposalRepo inventory.DisposalRepository
	priceLookup  inventory.PriceLookup
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	stockRepo inventory.StockRecordRepository,
	batchRepo inventory.BatchRepository,
	disposalRepo inventory.DisposalRepository,
	priceLookup inventory.PriceLookup,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		stockRepo:    stockRepo,
		batchRepo:    batchRepo,
		disposalRepo: disposalRepo,
		priceLookup:  priceLookup,
	}
}

func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) StockRepo() inventory.StockRecordRepository {
	return s.stockRepo
}

func (s *NoOpTransactionScope) BatchRepo() inventory.BatchRepository {
	return s.batchRepo
}

func (s *NoOpTransactionScope) DisposalRepo() inventory.DisposalRepository {
	return s.disposalRepo
}

func (s *NoOpTransactionScope) PriceLookup() inventory.PriceLookup {
	return s.priceLookup
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
