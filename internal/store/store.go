package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rickgao/orderflow/internal/model"
)

// Errors
var (
	// ErrInstrumentNotFound is returned by reads for an instrument that has
	// never been written.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrRangeNotFound is returned for a malformed time window (end before
	// start). A well-formed window that simply contains no orders is an
	// empty successful result, not an error.
	ErrRangeNotFound = errors.New("timestamp range not found")

	// ErrUpdateFailed is returned when an order cannot be accepted, e.g. it
	// fails validation. Wrapped with the underlying cause.
	ErrUpdateFailed = errors.New("order update failed")
)

// instrument is the per-instrument bucket: one mutex, one always-sorted
// sequence. No two goroutines mutate the same bucket concurrently; different
// buckets never contend.
type instrument struct {
	mu     sync.Mutex
	orders []model.Order
}

// Store is a per-instrument, time-ordered order store. The zero value is not
// usable; create one with NewStore.
type Store struct {
	mu          sync.RWMutex
	instruments map[string]*instrument

	subs   *Registry
	logger *slog.Logger

	updates atomic.Uint64
}

// StoreStats is a point-in-time view of store counters.
type StoreStats struct {
	Instruments    int
	Orders         int
	Updates        uint64
	Subscribers    int
	CallbackPanics uint64
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		instruments: make(map[string]*instrument),
		subs:        NewRegistry(logger),
		logger:      logger,
	}
}

// Update validates and inserts one order, keeping the instrument's sequence
// sorted by timestamp (stable: equal timestamps keep arrival order). On
// success every registered subscriber is notified exactly once, after the
// instrument lock is released.
func (s *Store) Update(o model.Order) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}

	ins := s.getOrCreate(o.InstrumentID)

	ins.mu.Lock()
	ins.orders = append(ins.orders, o)
	sort.SliceStable(ins.orders, func(i, j int) bool {
		return ins.orders[i].Timestamp < ins.orders[j].Timestamp
	})
	ins.mu.Unlock()

	s.updates.Add(1)

	// Outside the instrument lock: a slow or reentrant subscriber must not
	// serialize writers on this instrument.
	s.subs.Notify(o)

	return nil
}

// GetOrders returns a copy of the instrument's full sequence in ascending
// timestamp order.
func (s *Store) GetOrders(instrumentID string) ([]model.Order, error) {
	ins := s.lookup(instrumentID)
	if ins == nil {
		return nil, ErrInstrumentNotFound
	}

	ins.mu.Lock()
	defer ins.mu.Unlock()

	out := make([]model.Order, len(ins.orders))
	copy(out, ins.orders)
	return out, nil
}

// GetOrdersInRange returns a copy of the orders with start <= Timestamp < end.
// A window that contains no orders (including one entirely past the last
// timestamp) is an empty successful result. end < start is reported as
// ErrRangeNotFound.
func (s *Store) GetOrdersInRange(instrumentID string, start, end int64) ([]model.Order, error) {
	if end < start {
		return nil, ErrRangeNotFound
	}

	ins := s.lookup(instrumentID)
	if ins == nil {
		return nil, ErrInstrumentNotFound
	}

	ins.mu.Lock()
	defer ins.mu.Unlock()

	// Lower bound on both ends of the half-open window.
	lo := sort.Search(len(ins.orders), func(i int) bool {
		return ins.orders[i].Timestamp >= start
	})
	hi := sort.Search(len(ins.orders), func(i int) bool {
		return ins.orders[i].Timestamp >= end
	})

	out := make([]model.Order, hi-lo)
	copy(out, ins.orders[lo:hi])
	return out, nil
}

// Subscribe registers fn to be called once per successful Update, in
// registration order. There is no deregistration.
func (s *Store) Subscribe(fn OrderCallback) {
	s.subs.Register(fn)
}

// InstrumentIDs returns the distinct instruments that have received at least
// one order, sorted for deterministic iteration. Persistence collaborators
// combine this with GetOrders to walk the whole store.
func (s *Store) InstrumentIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.instruments))
	for id := range s.instruments {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Stats returns current store counters.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	buckets := make([]*instrument, 0, len(s.instruments))
	for _, ins := range s.instruments {
		buckets = append(buckets, ins)
	}
	s.mu.RUnlock()

	orders := 0
	for _, ins := range buckets {
		ins.mu.Lock()
		orders += len(ins.orders)
		ins.mu.Unlock()
	}

	return StoreStats{
		Instruments:    len(buckets),
		Orders:         orders,
		Updates:        s.updates.Load(),
		Subscribers:    s.subs.Len(),
		CallbackPanics: s.subs.Panics(),
	}
}

// lookup returns the instrument bucket, or nil if it has never been written.
func (s *Store) lookup(id string) *instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instruments[id]
}

// getOrCreate returns the instrument bucket, creating it on first write.
// Double-checked under the map write lock so concurrent first writes to the
// same new instrument settle on one bucket.
func (s *Store) getOrCreate(id string) *instrument {
	s.mu.RLock()
	ins := s.instruments[id]
	s.mu.RUnlock()
	if ins != nil {
		return ins
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ins = s.instruments[id]
	if ins == nil {
		ins = &instrument{}
		s.instruments[id] = ins
	}
	return ins
}
