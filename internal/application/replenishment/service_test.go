package replenishment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

var testNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

type fakeSales struct {
	mu      sync.Mutex
	records map[uuid.UUID][]forecast.SaleRecord
	failing map[uuid.UUID]bool
	broken  map[uuid.UUID]bool
	reads   int
	onRead  func()
}

func newFakeSales() *fakeSales {
	return &fakeSales{
		records: make(map[uuid.UUID][]forecast.SaleRecord),
		failing: make(map[uuid.UUID]bool),
		broken:  make(map[uuid.UUID]bool),
	}
}

func (f *fakeSales) ReadSales(_ context.Context, productID uuid.UUID, _, _ time.Time) ([]forecast.SaleRecord, error) {
	f.mu.Lock()
	f.reads++
	hook := f.onRead
	fail := f.failing[productID]
	broken := f.broken[productID]
	records := f.records[productID]
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if broken {
		panic("sales reader: nil row")
	}
	if fail {
		return nil, errors.New("sales store timeout")
	}
	return records, nil
}

func (f *fakeSales) steady(productID uuid.UUID, perDay int64, days int) {
	for i := 1; i <= days; i++ {
		f.records[productID] = append(f.records[productID], forecast.SaleRecord{SoldAt: testNow.AddDate(0, 0, -i), Quantity: perDay})
	}
}

type fakeStockRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]inventory.StockRecord
}

func newFakeStockRepo(ids ...uuid.UUID) *fakeStockRepo {
	r := &fakeStockRepo{records: make(map[uuid.UUID]inventory.StockRecord)}
	for _, id := range ids {
		rec, _ := inventory.NewStockRecord(id)
		r.records[id] = *rec
	}
	return r
}

func (r *fakeStockRepo) FindByProduct(_ context.Context, productID uuid.UUID) (*inventory.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[productID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	rec.PullDomainEvents()
	return &rec, nil
}

func (r *fakeStockRepo) FindByProductForUpdate(ctx context.Context, productID uuid.UUID) (*inventory.StockRecord, error) {
	return r.FindByProduct(ctx, productID)
}

func (r *fakeStockRepo) GetOrCreate(_ context.Context, productID uuid.UUID) (*inventory.StockRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[productID]; ok {
		return &rec, false, nil
	}
	rec, _ := inventory.NewStockRecord(productID)
	r.records[productID] = *rec
	return rec, true, nil
}

func (r *fakeStockRepo) ListProductIDs(_ context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (r *fakeStockRepo) Save(_ context.Context, record *inventory.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *record
	stored.PullDomainEvents()
	r.records[record.ProductID] = stored
	return nil
}

func (r *fakeStockRepo) minLevel(productID uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[productID].MinStockLevel
}

type countingCache struct {
	mu      sync.Mutex
	entries map[string]forecast.Result
	gets    int
}

func (c *countingCache) Get(_ context.Context, productID uuid.UUID, key string) (*forecast.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	r, ok := c.entries[productID.String()+key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *countingCache) Set(_ context.Context, productID uuid.UUID, key string, result *forecast.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]forecast.Result)
	}
	c.entries[productID.String()+key] = *result
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func newServiceForTest(sales *fakeSales, repo *fakeStockRepo, concurrency int) *Service {
	scope := appinv.NewNoOpTransactionScope(repo, nil, nil, nil)
	svc := NewService(sales, repo, scope, Config{Concurrency: concurrency}, nil)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestService_Forecast(t *testing.T) {
	ctx := context.Background()

	t.Run("no history falls back to floor", func(t *testing.T) {
		productID := uuid.New()
		svc := newServiceForTest(newFakeSales(), newFakeStockRepo(productID), 1)

		resp, err := svc.Forecast(ctx, productID, nil)

		require.NoError(t, err)
		assert.Equal(t, forecast.OutcomeNoHistory, resp.Outcome)
		assert.Equal(t, int64(10), resp.Calculation.Recommended)
		assert.Equal(t, forecast.MethodDefault, resp.Calculation.Method)
	})

	t.Run("computes hybrid recommendation", func(t *testing.T) {
		productID := uuid.New()
		sales := newFakeSales()
		sales.steady(productID, 2, 10)
		svc := newServiceForTest(sales, newFakeStockRepo(productID), 1)

		resp, err := svc.Forecast(ctx, productID, nil)

		require.NoError(t, err)
		assert.Equal(t, forecast.OutcomeOK, resp.Outcome)
		assert.Equal(t, int64(19), resp.Calculation.Recommended)
	})

	t.Run("serves repeated requests from cache", func(t *testing.T) {
		productID := uuid.New()
		sales := newFakeSales()
		sales.steady(productID, 2, 10)
		svc := newServiceForTest(sales, newFakeStockRepo(productID), 1)
		svc.SetCache(&countingCache{})

		first, err := svc.Forecast(ctx, productID, nil)
		require.NoError(t, err)
		second, err := svc.Forecast(ctx, productID, nil)
		require.NoError(t, err)

		assert.False(t, first.Cached)
		assert.True(t, second.Cached)
		assert.Equal(t, first.Calculation.Recommended, second.Calculation.Recommended)
		assert.Equal(t, 1, sales.reads)
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		svc := newServiceForTest(newFakeSales(), newFakeStockRepo(), 1)
		cfg := forecast.DefaultConfig()
		cfg.LeadTimeDays = 0

		_, err := svc.Forecast(ctx, uuid.New(), &cfg)

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("sales read failure is upstream", func(t *testing.T) {
		productID := uuid.New()
		sales := newFakeSales()
		sales.failing[productID] = true
		svc := newServiceForTest(sales, newFakeStockRepo(productID), 1)

		_, err := svc.Forecast(ctx, productID, nil)

		assert.ErrorIs(t, err, shared.ErrUpstreamFailure)
	})
}

func TestService_RecalculateOne(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()
	sales := newFakeSales()
	sales.steady(productID, 2, 10)
	repo := newFakeStockRepo(productID)
	svc := newServiceForTest(sales, repo, 1)
	publisher := &recordingPublisher{}
	svc.SetEventPublisher(publisher)

	entry, err := svc.RecalculateOne(ctx, productID, nil)

	require.NoError(t, err)
	assert.True(t, entry.Success)
	assert.True(t, entry.Applied)
	assert.Equal(t, int64(0), entry.OldReorderPoint)
	assert.Equal(t, int64(19), entry.NewReorderPoint)
	assert.Equal(t, int64(19), entry.Delta)
	assert.Equal(t, 100.0, entry.PercentChange)
	assert.Equal(t, forecast.MethodHybrid, entry.Method)
	assert.Equal(t, int64(19), repo.minLevel(productID))
	require.Len(t, publisher.events, 1)
	assert.Equal(t, inventory.EventTypeReorderPointChanged, publisher.events[0].EventType())

	again, err := svc.RecalculateOne(ctx, productID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Delta)
	assert.Equal(t, 0.0, again.PercentChange)
	assert.Len(t, publisher.events, 1)
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 0.0, PercentChange(0, 0))
	assert.Equal(t, 100.0, PercentChange(0, 25))
	assert.Equal(t, 50.0, PercentChange(20, 30))
	assert.Equal(t, -25.0, PercentChange(40, 30))
	assert.Equal(t, 33.33, PercentChange(30, 40))
}

func TestService_RecalculateAll_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	sales := newFakeSales()
	sales.steady(a, 2, 10)
	sales.steady(c, 2, 10)
	sales.failing[b] = true
	repo := newFakeStockRepo(a, b, c)
	svc := newServiceForTest(sales, repo, 2)

	report, err := svc.RecalculateAll(ctx, nil, true)

	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.False(t, report.Cancelled)
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Entries, 3)

	for _, entry := range report.Entries {
		if entry.ProductID == b {
			assert.False(t, entry.Success)
			assert.NotEmpty(t, entry.Error)
			continue
		}
		assert.True(t, entry.Success)
		assert.Equal(t, int64(19), entry.NewReorderPoint)
	}
	assert.Equal(t, int64(19), repo.minLevel(a))
	assert.Equal(t, int64(0), repo.minLevel(b))
	assert.Equal(t, int64(19), repo.minLevel(c))

	ids := []string{report.Entries[0].ProductID.String(), report.Entries[1].ProductID.String(), report.Entries[2].ProductID.String()}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestService_RecalculateAll_RecoversPanics(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	sales := newFakeSales()
	sales.steady(a, 2, 10)
	sales.steady(c, 2, 10)
	sales.broken[b] = true
	repo := newFakeStockRepo(a, b, c)
	svc := newServiceForTest(sales, repo, 2)
	recorder := &stubRecorder{}
	svc.SetRecorder(recorder)

	report, err := svc.RecalculateAll(context.Background(), nil, true)

	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Skipped)
	for _, entry := range report.Entries {
		if entry.ProductID == b {
			assert.False(t, entry.Success)
			assert.False(t, entry.Skipped)
			assert.Equal(t, "panic: sales reader: nil row", entry.Error)
			continue
		}
		assert.True(t, entry.Success)
	}
	assert.Equal(t, int64(19), repo.minLevel(a))
	assert.Equal(t, int64(0), repo.minLevel(b))
	assert.Equal(t, int64(19), repo.minLevel(c))
	assert.Equal(t, 1, recorder.failures)
	assert.Equal(t, 1, recorder.sweepFailed)
}

func TestService_RecalculateAll_DryRun(t *testing.T) {
	ctx := context.Background()
	a := uuid.New()
	sales := newFakeSales()
	sales.steady(a, 2, 10)
	repo := newFakeStockRepo(a)
	svc := newServiceForTest(sales, repo, 4)

	report, err := svc.RecalculateAll(ctx, nil, false)

	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.True(t, report.DryRun)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, int64(19), report.Entries[0].NewReorderPoint)
	assert.False(t, report.Entries[0].Applied)
	assert.Equal(t, int64(0), repo.minLevel(a))
}

func TestService_RecalculateAll_Cancellation(t *testing.T) {
	t.Run("already cancelled skips everything", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		repo := newFakeStockRepo(uuid.New(), uuid.New())
		svc := newServiceForTest(newFakeSales(), repo, 2)

		report, err := svc.RecalculateAll(ctx, nil, true)

		require.NoError(t, err)
		assert.True(t, report.Cancelled)
		assert.False(t, report.Success)
		assert.Equal(t, 0, report.Attempted)
		assert.Equal(t, 2, report.Skipped)
	})

	t.Run("cancellation mid-sweep stops scheduling", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sales := newFakeSales()
		sales.onRead = cancel
		repo := newFakeStockRepo(uuid.New(), uuid.New(), uuid.New())
		svc := newServiceForTest(sales, repo, 1)

		report, err := svc.RecalculateAll(ctx, nil, true)

		require.NoError(t, err)
		assert.True(t, report.Cancelled)
		assert.Equal(t, 1, report.Attempted)
		assert.Equal(t, 2, report.Skipped)
		for _, entry := range report.Entries[1:] {
			assert.True(t, entry.Skipped)
		}
	})
}

type stubRecorder struct {
	mu          sync.Mutex
	successes   int
	failures    int
	sweeps      int
	sweepFailed int
}

func (r *stubRecorder) RecordRecalculation(_ context.Context, success, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if success {
		r.successes++
	} else {
		r.failures++
	}
}

func (r *stubRecorder) RecordSweep(_ context.Context, _ time.Duration, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps++
	r.sweepFailed = failed
}

func TestService_RecalculateAll_Records(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	sales := newFakeSales()
	sales.failing[b] = true
	svc := newServiceForTest(sales, newFakeStockRepo(a, b), 2)
	recorder := &stubRecorder{}
	svc.SetRecorder(recorder)

	_, err := svc.RecalculateAll(context.Background(), nil, true)

	require.NoError(t, err)
	assert.Equal(t, 1, recorder.successes)
	assert.Equal(t, 1, recorder.failures)
	assert.Equal(t, 1, recorder.sweeps)
	assert.Equal(t, 1, recorder.sweepFailed)
}
