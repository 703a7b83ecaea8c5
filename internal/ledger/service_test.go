package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allocation-tracker/internal/core"
	"allocation-tracker/internal/log"
	"allocation-tracker/internal/storage"
	"allocation-tracker/internal/storage/memory"
)

type flakyStore struct {
	*memory.Store
	failPut atomic.Bool
}

func (f *flakyStore) Put(ctx context.Context, key string, value []byte) error {
	if f.failPut.Load() {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, key, value)
}

func fixedClock() func() time.Time {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func newService(t *testing.T, store storage.Store, seed bool) *Service {
	t.Helper()
	svc := NewService(store, Options{
		SeedHistory: seed,
		Clock:       fixedClock(),
		Location:    time.UTC,
		Logger:      log.Discard(),
	})
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func TestAddPaymentScenario(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.New(), false)

	_, err := svc.AddPayment(ctx, core.HirePurchase, core.MoneyFromInt(3000), "first")
	require.NoError(t, err)
	assert.True(t, svc.TotalUsed(core.HirePurchase).Equal(core.MoneyFromInt(3000)))
	remaining, err := svc.Remaining(core.HirePurchase)
	require.NoError(t, err)
	assert.True(t, remaining.Equal(core.MoneyFromInt(30000)))

	_, err = svc.AddPayment(ctx, core.HirePurchase, core.MoneyFromInt(31000), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExceedsRemaining)
	assert.True(t, core.IsValidation(err))
	assert.Equal(t, "Payment exceeds remaining allocation! Only RM 30,000.00 left.", err.Error())
	assert.True(t, svc.TotalUsed(core.HirePurchase).Equal(core.MoneyFromInt(3000)))
	assert.Len(t, svc.Snapshot()[core.HirePurchase], 1)
}

func TestAddPaymentStampsRecord(t *testing.T) {
	svc := newService(t, memory.New(), false)

	rec, err := svc.AddPayment(context.Background(), core.Mortgage, core.MoneyFromInt(1700), "  transfer ")
	require.NoError(t, err)
	assert.Equal(t, fixedClock()(), rec.Date)
	assert.Equal(t, "14 Mar 2025", rec.DisplayDate)
	assert.Equal(t, "transfer", rec.Notes)
}

func TestAddPaymentValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, memory.New(), false)

	_, err := svc.AddPayment(ctx, "car", core.MoneyFromInt(1), "")
	assert.ErrorIs(t, err, core.ErrUnknownAllocation)

	_, err = svc.AddPayment(ctx, core.HirePurchase, core.MoneyFromInt(-5), "")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Equal(t, "Please enter a valid amount (0 or greater)", err.Error())

	_, err = svc.AddPayment(ctx, core.HirePurchase, core.Zero, "placeholder")
	assert.NoError(t, err, "zero amounts are allowed by default")

	assert.Equal(t, 1, svc.Snapshot().Count())
}

func TestRejectZeroPolicy(t *testing.T) {
	svc := NewService(memory.New(), Options{Policy: core.RejectZero, Logger: log.Discard()})
	require.NoError(t, svc.Load(context.Background()))

	_, err := svc.AddPayment(context.Background(), core.HirePurchase, core.Zero, "")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Equal(t, "Please enter a valid amount greater than 0", err.Error())
}

func TestMutationsRequireLoad(t *testing.T) {
	svc := NewService(memory.New(), Options{Logger: log.Discard()})

	_, err := svc.AddPayment(context.Background(), core.HirePurchase, core.MoneyFromInt(1), "")
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, svc.Reset(context.Background()), ErrNotLoaded)
}

func TestLoadSeedsFirstRun(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(t, store, true)

	assert.True(t, svc.TotalUsed(core.HirePurchase).Equal(core.MoneyFromInt(5800)))
	assert.True(t, svc.TotalUsed(core.Mortgage).Equal(core.MoneyFromInt(4224)))

	raw, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":3000`)
	assert.Contains(t, string(raw), `"displayDate":"18 Dec 2024"`)

	history := svc.History()
	require.Len(t, history, 6)
	assert.Equal(t, "Second payment Jan (206677)", history[0].Notes)
	assert.Equal(t, core.Mortgage, history[1].Type)
}

func TestLoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(t, store, true)
	_, err := svc.AddPayment(ctx, core.HirePurchase, core.MoneyFromInt(100), "extra")
	require.NoError(t, err)

	first := NewService(store, Options{Logger: log.Discard()})
	require.NoError(t, first.Load(ctx))
	a := first.Snapshot()
	require.NoError(t, first.Load(ctx))
	b := first.Snapshot()

	assert.Equal(t, a, b)
	assert.Equal(t, 7, b.Count())
}

func TestLoadFillsMissingTypes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Put(ctx, DefaultKey, []byte(`{"hp":[{"amount":10,"date":"2024-12-30T00:00:00.000Z","displayDate":"30 Dec 2024","notes":""}]}`)))

	svc := NewService(store, Options{Logger: log.Discard()})
	require.NoError(t, svc.Load(ctx))

	snap := svc.Snapshot()
	assert.NotNil(t, snap[core.Mortgage])
	assert.Empty(t, snap[core.Mortgage])
	assert.True(t, svc.TotalUsed(core.HirePurchase).Equal(core.MoneyFromInt(10)))
}

func TestLoadCorruptState(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Put(ctx, DefaultKey, []byte(`{not json`)))

	svc := NewService(store, Options{Logger: log.Discard()})
	err := svc.Load(ctx)
	require.Error(t, err)
	assert.True(t, IsStorage(err))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(t, store, true)

	var events []Event
	svc.Subscribe(ObserverFunc(func(_ context.Context, ev Event) { events = append(events, ev) }))

	require.NoError(t, svc.Reset(ctx))
	for _, typ := range svc.Allocations().Types() {
		assert.True(t, svc.TotalUsed(typ).IsZero(), "type %s", typ)
	}
	assert.Empty(t, svc.History())

	raw, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hp":[],"mortgage":[]}`, string(raw))

	require.Len(t, events, 1)
	assert.Equal(t, EventLedgerReset, events[0].Kind)
}

func TestFailedPersistRollsBack(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.New()}
	svc := newService(t, store, true)
	before := svc.Snapshot()

	var notified bool
	svc.Subscribe(ObserverFunc(func(context.Context, Event) { notified = true }))

	store.failPut.Store(true)
	_, err := svc.AddPayment(ctx, core.HirePurchase, core.MoneyFromInt(100), "")
	require.Error(t, err)
	assert.True(t, IsStorage(err))
	assert.Equal(t, before, svc.Snapshot())

	require.Error(t, svc.Reset(ctx))
	assert.Equal(t, before, svc.Snapshot())
	assert.False(t, notified)
}

func TestObserverReceivesPayment(t *testing.T) {
	svc := newService(t, memory.New(), false)

	var got Event
	svc.Subscribe(ObserverFunc(func(_ context.Context, ev Event) { got = ev }))

	_, err := svc.AddPayment(context.Background(), core.Mortgage, core.MoneyFromInt(2524), "takaful")
	require.NoError(t, err)

	assert.Equal(t, EventPaymentAdded, got.Kind)
	assert.Equal(t, core.Mortgage, got.Type)
	assert.Equal(t, "Mortgage", got.Name)
	assert.True(t, got.Remaining.Equal(core.MoneyFromInt(7476)))
	assert.Equal(t, "takaful", got.Record.Notes)
}

func TestConcurrentAddsNeverOverspend(t *testing.T) {
	svc := newService(t, memory.New(), false)

	var wg sync.WaitGroup
	var accepted atomic.Int64
	for i := 0; i < 400; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddPayment(context.Background(), core.HirePurchase, core.MoneyFromInt(100), ""); err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 330, accepted.Load())
	assert.True(t, svc.TotalUsed(core.HirePurchase).Equal(core.MoneyFromInt(33000)))
}

func TestExport(t *testing.T) {
	svc := newService(t, memory.New(), false)
	_, err := svc.AddPayment(context.Background(), core.HirePurchase, core.MoneyFromInt(3000), "")
	require.NoError(t, err)

	raw, err := svc.Export()
	require.NoError(t, err)
	assert.JSONEq(t, `{"hp":[{"amount":3000,"date":"2025-03-14T09:30:00Z","displayDate":"14 Mar 2025","notes":""}],"mortgage":[]}`, string(raw))
}

func TestLowThreshold(t *testing.T) {
	ctx := context.Background()
	lowFor := func(t *testing.T, threshold *decimal.Decimal) bool {
		t.Helper()
		svc := NewService(memory.New(), Options{
			LowPercent: threshold,
			Clock:      fixedClock(),
			Logger:     log.Discard(),
		})
		require.NoError(t, svc.Load(ctx))
		_, err := svc.AddPayment(ctx, core.HirePurchase, core.MoneyFromInt(30000), "")
		require.NoError(t, err)
		return svc.Summary()[0].Low
	}

	// 3000 of 33000 left is under the default 20%
	assert.True(t, lowFor(t, nil))

	zero := decimal.Zero
	assert.False(t, lowFor(t, &zero), "an explicit 0% threshold disables the warning")

	five := decimal.NewFromInt(5)
	assert.False(t, lowFor(t, &five))
}
