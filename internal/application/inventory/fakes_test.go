package inventory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory ledger backing the repository fakes
type memStore struct {
	mu        sync.Mutex
	batches   map[uuid.UUID]inventory.Batch
	records   map[uuid.UUID]inventory.StockRecord
	disposals []inventory.Disposal
	prices    map[uuid.UUID]decimal.Decimal
	down      bool
}

func newMemStore() *memStore {
	return &memStore{
		batches: make(map[uuid.UUID]inventory.Batch),
		records: make(map[uuid.UUID]inventory.StockRecord),
		prices:  make(map[uuid.UUID]decimal.Decimal),
	}
}

func (m *memStore) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(&memStockRepo{m}, &memBatchRepo{m}, &memDisposalRepo{m}, &memPriceLookup{m})
}

func (m *memStore) putBatch(b inventory.Batch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[b.ID] = b
}

func (m *memStore) putRecord(r inventory.StockRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.PullDomainEvents()
	m.records[r.ProductID] = r
}

func (m *memStore) record(productID uuid.UUID) (inventory.StockRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[productID]
	return r, ok
}

func (m *memStore) remainingSum(productID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, b := range m.batches {
		if b.ProductID == productID {
			sum += b.QuantityRemaining
		}
	}
	return sum
}

type memBatchRepo struct{ m *memStore }

func (r *memBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Batch, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.down {
		return nil, errStoreDown
	}
	b, ok := r.m.batches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &b, nil
}

func (r *memBatchRepo) FindAll(_ context.Context, filter inventory.BatchFilter) ([]inventory.Batch, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []inventory.Batch
	for _, b := range r.m.batches {
		if filter.ProductID != nil && b.ProductID != *filter.ProductID {
			continue
		}
		if filter.ActiveOnly && !b.IsActive() {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	total := int64(len(out))
	start := min(filter.Offset(), len(out))
	end := len(out)
	if filter.PageSize > 0 {
		end = min(start+filter.PageSize, len(out))
	}
	return out[start:end], total, nil
}

func (r *memBatchRepo) FindExpiryCandidates(_ context.Context) ([]inventory.Batch, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []inventory.Batch
	for _, b := range r.m.batches {
		if b.AwaitingDisposal() && b.ExpiryDate != nil {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBatchRepo) SumRemaining(_ context.Context, productID uuid.UUID) (int64, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var remaining, packages int64
	for _, b := range r.m.batches {
		if b.ProductID == productID {
			remaining += b.QuantityRemaining
			packages += b.PackagesReceived
		}
	}
	return remaining, packages, nil
}

func (r *memBatchRepo) MarkExpired(_ context.Context, before time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, b := range r.m.batches {
		if b.Status == inventory.BatchStatusActive && b.ExpiryDate != nil && b.ExpiryDate.Before(before) {
			b.Status = inventory.BatchStatusExpired
			r.m.batches[id] = b
			n++
		}
	}
	return n, nil
}

func (r *memBatchRepo) Save(_ context.Context, batch *inventory.Batch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.down {
		return errStoreDown
	}
	r.m.batches[batch.ID] = *batch
	return nil
}

func (r *memBatchRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.batches[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.m.batches, id)
	return nil
}

type memStockRepo struct{ m *memStore }

func (r *memStockRepo) FindByProduct(_ context.Context, productID uuid.UUID) (*inventory.StockRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.down {
		return nil, errStoreDown
	}
	rec, ok := r.m.records[productID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	rec.PullDomainEvents()
	return &rec, nil
}

func (r *memStockRepo) FindByProductForUpdate(ctx context.Context, productID uuid.UUID) (*inventory.StockRecord, error) {
	return r.FindByProduct(ctx, productID)
}

func (r *memStockRepo) GetOrCreate(_ context.Context, productID uuid.UUID) (*inventory.StockRecord, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.down {
		return nil, false, errStoreDown
	}
	if rec, ok := r.m.records[productID]; ok {
		return &rec, false, nil
	}
	rec, err := inventory.NewStockRecord(productID)
	if err != nil {
		return nil, false, err
	}
	r.m.records[productID] = *rec
	return rec, true, nil
}

func (r *memStockRepo) ListProductIDs(_ context.Context) ([]uuid.UUID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.m.records))
	for id := range r.m.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (r *memStockRepo) Save(_ context.Context, record *inventory.StockRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored := *record
	stored.PullDomainEvents()
	r.m.records[record.ProductID] = stored
	return nil
}

type memDisposalRepo struct{ m *memStore }

func (r *memDisposalRepo) Create(_ context.Context, d *inventory.Disposal) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.disposals = append(r.m.disposals, *d)
	return nil
}

func (r *memDisposalRepo) FindByProduct(_ context.Context, productID uuid.UUID, _ shared.Filter) ([]inventory.Disposal, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []inventory.Disposal
	for _, d := range r.m.disposals {
		if d.ProductID == productID {
			out = append(out, d)
		}
	}
	return out, int64(len(out)), nil
}

type memPriceLookup struct{ m *memStore }

func (p *memPriceLookup) BasePrice(_ context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	price, ok := p.m.prices[productID]
	if !ok {
		return decimal.Zero, shared.ErrNotFound
	}
	return price, nil
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.events))
	for i, e := range m.events {
		types[i] = e.EventType()
	}
	return types
}
