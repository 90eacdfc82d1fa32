package store

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rickgao/orderflow/internal/model"
)

// OrderCallback receives each order after it has been committed to the
// store. Callbacks run synchronously on the updating goroutine; a subscriber
// that needs to do slow work hands the order off to its own buffer instead
// of doing the work inline.
type OrderCallback func(model.Order)

// Registry is an append-only, registration-ordered list of subscriber
// callbacks. Registration is safe from any goroutine; there is no
// deregistration.
type Registry struct {
	mu  sync.RWMutex
	fns []OrderCallback

	logger *slog.Logger
	panics atomic.Uint64
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register appends fn to the notification list. Nil callbacks are ignored.
func (r *Registry) Register(fn OrderCallback) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.fns = append(r.fns, fn)
	r.mu.Unlock()
}

// Notify invokes every registered callback with o, in registration order,
// each at most once. A panicking callback is logged and counted; it does not
// stop the remaining callbacks.
func (r *Registry) Notify(o model.Order) {
	r.mu.RLock()
	fns := r.fns
	r.mu.RUnlock()

	for i, fn := range fns {
		r.invoke(i, fn, o)
	}
}

// Len returns the number of registered callbacks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fns)
}

// Panics returns how many callback invocations have panicked.
func (r *Registry) Panics() uint64 {
	return r.panics.Load()
}

func (r *Registry) invoke(i int, fn OrderCallback, o model.Order) {
	defer func() {
		if rec := recover(); rec != nil {
			r.panics.Add(1)
			r.logger.Error("subscriber callback panicked",
				"callback", i,
				"order_id", o.OrderID,
				"instrument", o.InstrumentID,
				"panic", rec,
			)
		}
	}()
	fn(o)
}
