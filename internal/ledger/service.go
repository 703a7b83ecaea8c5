// Package ledger owns the in-memory payment ledger and keeps it in step with
// the persisted copy.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"allocation-tracker/internal/core"
	"allocation-tracker/internal/log"
	"allocation-tracker/internal/storage"
)

// DefaultKey is the storage key holding the serialized ledger.
const DefaultKey = "allocationData"

// Options configures a Service. Zero values fall back to the defaults.
type Options struct {
	Allocations core.Allocations
	Policy      core.ZeroPolicy
	// LowPercent is the warning threshold; nil means core.DefaultLowPercent.
	// An explicit zero disables the warning.
	LowPercent *decimal.Decimal
	// SeedHistory loads the historical payments on first run.
	SeedHistory bool
	// Seed overrides the embedded historical dataset.
	Seed     core.Ledger
	Key      string
	Clock    func() time.Time
	Location *time.Location
	Logger   *log.Logger
}

// Service serializes every ledger operation. Mutations build the next state,
// persist it and only then swap it in, so a failed write leaves nothing behind.
type Service struct {
	mu     sync.Mutex
	store  storage.Store
	opts   Options
	logger *log.Logger

	lowPercent decimal.Decimal

	ledger core.Ledger
	loaded bool

	obsMu     sync.RWMutex
	observers []Observer
}

func NewService(store storage.Store, opts Options) *Service {
	if opts.Allocations.Len() == 0 {
		opts.Allocations = core.DefaultAllocations()
	}
	if !opts.Policy.IsValid() {
		opts.Policy = core.AllowZero
	}
	lowPercent := core.DefaultLowPercent
	if opts.LowPercent != nil {
		lowPercent = *opts.LowPercent
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		store:      store,
		opts:       opts,
		logger:     logger.WithComponent(log.ComponentLedger),
		lowPercent: lowPercent,
	}
}

// Subscribe registers o for every committed mutation.
func (s *Service) Subscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// Allocations returns the configured pools in display order.
func (s *Service) Allocations() core.Allocations { return s.opts.Allocations }

// Policy returns the zero-amount policy in force.
func (s *Service) Policy() core.ZeroPolicy { return s.opts.Policy }

// Load reads the persisted ledger. When nothing is stored yet the initial
// state (historical seed or empty) is written first.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.store.Get(ctx, s.opts.Key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		initial, err := s.initial()
		if err != nil {
			return err
		}
		if err := s.persist(ctx, initial); err != nil {
			return err
		}
		s.ledger, s.loaded = initial, true
		s.logger.InfoContext(ctx, "Initialized ledger",
			log.FieldOperation, log.OpLoad,
			log.FieldRecords, initial.Count(),
			"seeded", s.opts.SeedHistory)
		return nil
	case err != nil:
		return &StorageError{Op: "read", Key: s.opts.Key, Err: err}
	}

	l, err := decode(raw)
	if err != nil {
		return &StorageError{Op: "decode", Key: s.opts.Key, Err: err}
	}
	l.Ensure(s.opts.Allocations.Types())
	s.ledger, s.loaded = l, true

	s.logger.DebugContext(ctx, "Loaded ledger",
		log.FieldOperation, log.OpLoad,
		log.FieldRecords, l.Count())
	return nil
}

func (s *Service) initial() (core.Ledger, error) {
	if !s.opts.SeedHistory {
		return core.NewLedger(s.opts.Allocations.Types()), nil
	}
	seed := s.opts.Seed
	if seed == nil {
		var err error
		if seed, err = HistoricalSeed(); err != nil {
			return nil, err
		}
	}
	return initialLedger(s.opts.Allocations, seed), nil
}

// AddPayment validates and records a payment against t.
func (s *Service) AddPayment(ctx context.Context, t core.AllocationType, amount core.Money, notes string) (core.PaymentRecord, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return core.PaymentRecord{}, ErrNotLoaded
	}

	alloc, ok := s.opts.Allocations.Get(t)
	if !ok {
		s.mu.Unlock()
		return core.PaymentRecord{}, core.UnknownAllocation(t)
	}
	if err := core.ValidatePayment(alloc, s.ledger, amount, notes, s.opts.Policy); err != nil {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Payment rejected",
			log.FieldAllocation, string(t),
			log.FieldAmount, amount.String(),
			log.FieldError, err)
		return core.PaymentRecord{}, err
	}

	now := s.opts.Clock()
	rec := core.NewPaymentRecord(amount, notes, now, s.opts.Location)
	next := s.ledger.Clone()
	next[t] = append(next[t], rec)

	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return core.PaymentRecord{}, err
	}
	s.ledger = next
	remaining := core.Remaining(alloc, next)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Payment recorded",
		log.NewFields().
			WithOperation(log.OpAdd).
			WithPayment(string(t), amount.String(), remaining.String()).
			ToSlice()...)

	s.notify(ctx, Event{
		Kind:      EventPaymentAdded,
		Type:      t,
		Name:      alloc.Name,
		Record:    rec,
		Remaining: remaining,
		At:        now,
	})
	return rec, nil
}

// Reset clears every allocation. Callers are responsible for confirming intent.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	cleared := core.NewLedger(s.opts.Allocations.Types())
	if err := s.persist(ctx, cleared); err != nil {
		s.mu.Unlock()
		return err
	}
	removed := s.ledger.Count()
	s.ledger = cleared
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Ledger reset",
		log.FieldOperation, log.OpReset,
		log.FieldRecords, removed)
	s.notify(ctx, Event{Kind: EventLedgerReset, At: s.opts.Clock()})
	return nil
}

// TotalUsed sums every payment recorded against t.
func (s *Service) TotalUsed(t core.AllocationType) core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.TotalUsed(t)
}

// Remaining returns the unspent budget of t.
func (s *Service) Remaining(t core.AllocationType) (core.Money, error) {
	alloc, ok := s.opts.Allocations.Get(t)
	if !ok {
		return core.Money{}, core.UnknownAllocation(t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Remaining(alloc, s.ledger), nil
}

// History returns every payment, most recent first.
func (s *Service) History() []core.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.History(s.opts.Allocations, s.ledger)
}

// Summary returns one card per configured allocation.
func (s *Service) Summary() []core.AllocationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Summarize(s.opts.Allocations, s.ledger, s.lowPercent)
}

// Snapshot returns a deep copy of the current ledger.
func (s *Service) Snapshot() core.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Clone()
}

// Export returns the ledger in its persisted JSON form.
func (s *Service) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return encode(s.ledger)
}

// Ping checks that the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) persist(ctx context.Context, l core.Ledger) error {
	raw, err := encode(l)
	if err != nil {
		return &StorageError{Op: "encode", Key: s.opts.Key, Err: err}
	}
	if err := s.store.Put(ctx, s.opts.Key, raw); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger",
			log.FieldOperation, log.OpPersist,
			log.FieldError, err)
		return &StorageError{Op: "write", Key: s.opts.Key, Err: err}
	}
	return nil
}

func (s *Service) notify(ctx context.Context, ev Event) {
	s.obsMu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.obsMu.RUnlock()

	for _, o := range observers {
		o.LedgerChanged(ctx, ev)
	}
}

func encode(l core.Ledger) ([]byte, error) {
	if l == nil {
		l = core.Ledger{}
	}
	return json.Marshal(l)
}

func decode(raw []byte) (core.Ledger, error) {
	var l core.Ledger
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("unmarshal ledger: %w", err)
	}
	if l == nil {
		l = core.Ledger{}
	}
	for t, recs := range l {
		if recs == nil {
			l[t] = []core.PaymentRecord{}
		}
	}
	return l, nil
}
