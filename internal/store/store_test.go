package store

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rickgao/orderflow/internal/model"
)

func testOrder(id uint64, instrument string, ts int64) model.Order {
	return model.Order{
		OrderID:      id,
		InstrumentID: instrument,
		Side:         model.Buy,
		State:        model.StateNew,
		Quantity:     10,
		Price:        1000000,
		Timestamp:    ts,
	}
}

func timestamps(orders []model.Order) []int64 {
	out := make([]int64, len(orders))
	for i, o := range orders {
		out[i] = o.Timestamp
	}
	return out
}

func TestStore_GetOrdersUnknownInstrument(t *testing.T) {
	s := NewStore(nil)

	if _, err := s.GetOrders("GHOST"); !errors.Is(err, ErrInstrumentNotFound) {
		t.Errorf("GetOrders(unknown) = %v, want ErrInstrumentNotFound", err)
	}
	if _, err := s.GetOrdersInRange("GHOST", 0, 100); !errors.Is(err, ErrInstrumentNotFound) {
		t.Errorf("GetOrdersInRange(unknown) = %v, want ErrInstrumentNotFound", err)
	}
}

func TestStore_UpdateKeepsSorted(t *testing.T) {
	s := NewStore(nil)

	for i, ts := range []int64{30, 10, 20} {
		if err := s.Update(testOrder(uint64(i+1), "AAPL", ts)); err != nil {
			t.Fatalf("Update(ts=%d) error: %v", ts, err)
		}
	}

	got, err := s.GetOrders("AAPL")
	if err != nil {
		t.Fatalf("GetOrders error: %v", err)
	}

	want := []int64{10, 20, 30}
	ts := timestamps(got)
	for i := range want {
		if ts[i] != want[i] {
			t.Fatalf("timestamps = %v, want %v", ts, want)
		}
	}
}

func TestStore_GetOrdersReturnsCopy(t *testing.T) {
	s := NewStore(nil)
	if err := s.Update(testOrder(1, "AAPL", 10)); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	got, _ := s.GetOrders("AAPL")
	got[0].Timestamp = 999

	again, _ := s.GetOrders("AAPL")
	if again[0].Timestamp != 10 {
		t.Errorf("stored timestamp = %d after mutating returned slice, want 10", again[0].Timestamp)
	}
}

func TestStore_StableTieOrder(t *testing.T) {
	s := NewStore(nil)

	// Same timestamp: insertion order must survive the re-sort.
	for id := uint64(1); id <= 4; id++ {
		if err := s.Update(testOrder(id, "TSLA", 50)); err != nil {
			t.Fatalf("Update(id=%d) error: %v", id, err)
		}
	}

	got, _ := s.GetOrders("TSLA")
	for i, o := range got {
		if o.OrderID != uint64(i+1) {
			t.Fatalf("order %d has ID %d, want %d", i, o.OrderID, i+1)
		}
	}
}

func TestStore_RangeQueries(t *testing.T) {
	s := NewStore(nil)
	for i, ts := range []int64{10, 20, 30} {
		if err := s.Update(testOrder(uint64(i+1), "X", ts)); err != nil {
			t.Fatalf("Update error: %v", err)
		}
	}

	t.Run("interior window", func(t *testing.T) {
		got, err := s.GetOrdersInRange("X", 15, 30)
		if err != nil {
			t.Fatalf("GetOrdersInRange(15, 30) error: %v", err)
		}
		if len(got) != 1 || got[0].Timestamp != 20 {
			t.Errorf("GetOrdersInRange(15, 30) = %v, want [20]", timestamps(got))
		}
	})

	t.Run("covering window", func(t *testing.T) {
		got, err := s.GetOrdersInRange("X", 0, 100)
		if err != nil {
			t.Fatalf("GetOrdersInRange(0, 100) error: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("GetOrdersInRange(0, 100) returned %d orders, want 3", len(got))
		}
	})

	t.Run("end is exclusive", func(t *testing.T) {
		got, err := s.GetOrdersInRange("X", 10, 30)
		if err != nil {
			t.Fatalf("GetOrdersInRange(10, 30) error: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("GetOrdersInRange(10, 30) = %v, want [10 20]", timestamps(got))
		}
	})

	t.Run("window past the data is empty success", func(t *testing.T) {
		got, err := s.GetOrdersInRange("X", 31, 100)
		if err != nil {
			t.Fatalf("GetOrdersInRange(31, 100) = %v, want empty success", err)
		}
		if len(got) != 0 {
			t.Errorf("GetOrdersInRange(31, 100) = %v, want empty", timestamps(got))
		}
	})

	t.Run("empty window is empty success", func(t *testing.T) {
		got, err := s.GetOrdersInRange("X", 20, 20)
		if err != nil {
			t.Fatalf("GetOrdersInRange(20, 20) = %v, want empty success", err)
		}
		if len(got) != 0 {
			t.Errorf("GetOrdersInRange(20, 20) = %v, want empty", timestamps(got))
		}
	})

	t.Run("inverted window", func(t *testing.T) {
		if _, err := s.GetOrdersInRange("X", 30, 10); !errors.Is(err, ErrRangeNotFound) {
			t.Errorf("GetOrdersInRange(30, 10) = %v, want ErrRangeNotFound", err)
		}
	})

	t.Run("unknown instrument", func(t *testing.T) {
		if _, err := s.GetOrdersInRange("Y", 0, 100); !errors.Is(err, ErrInstrumentNotFound) {
			t.Errorf("GetOrdersInRange(Y) = %v, want ErrInstrumentNotFound", err)
		}
	})
}

func TestStore_UpdateRejectsInvalid(t *testing.T) {
	s := NewStore(nil)

	bad := testOrder(1, "", 10)
	err := s.Update(bad)
	if !errors.Is(err, ErrUpdateFailed) {
		t.Fatalf("Update(invalid) = %v, want ErrUpdateFailed", err)
	}

	if _, err := s.GetOrders(""); !errors.Is(err, ErrInstrumentNotFound) {
		t.Error("rejected order must not create an instrument entry")
	}
}

func TestStore_ConcurrentInstruments(t *testing.T) {
	s := NewStore(nil)

	instruments := []string{"AAPL", "TSLA", "MSFT", "NVDA"}
	const perWorker = 250
	const workersPerInstrument = 4

	var wg sync.WaitGroup
	var nextID atomic.Uint64

	for _, instrument := range instruments {
		for w := 0; w < workersPerInstrument; w++ {
			wg.Add(1)
			go func(instrument string, seed int64) {
				defer wg.Done()
				rng := rand.New(rand.NewSource(seed))
				for i := 0; i < perWorker; i++ {
					o := testOrder(nextID.Add(1), instrument, rng.Int63n(10_000))
					if err := s.Update(o); err != nil {
						t.Errorf("Update error: %v", err)
						return
					}
				}
			}(instrument, int64(w))
		}
	}
	wg.Wait()

	for _, instrument := range instruments {
		got, err := s.GetOrders(instrument)
		if err != nil {
			t.Fatalf("GetOrders(%s) error: %v", instrument, err)
		}
		if len(got) != perWorker*workersPerInstrument {
			t.Errorf("%s holds %d orders, want %d", instrument, len(got), perWorker*workersPerInstrument)
		}
		for i := 1; i < len(got); i++ {
			if got[i].Timestamp < got[i-1].Timestamp {
				t.Fatalf("%s not sorted at %d: %d after %d", instrument, i, got[i].Timestamp, got[i-1].Timestamp)
			}
		}
	}

	stats := s.Stats()
	if stats.Instruments != len(instruments) {
		t.Errorf("Stats().Instruments = %d, want %d", stats.Instruments, len(instruments))
	}
	wantOrders := len(instruments) * perWorker * workersPerInstrument
	if stats.Orders != wantOrders {
		t.Errorf("Stats().Orders = %d, want %d", stats.Orders, wantOrders)
	}
	if stats.Updates != uint64(wantOrders) {
		t.Errorf("Stats().Updates = %d, want %d", stats.Updates, wantOrders)
	}
}

// TestStore_ConcurrentFirstWrite races many goroutines on the first write to
// a brand-new instrument, exercising the lazy bucket creation path.
func TestStore_ConcurrentFirstWrite(t *testing.T) {
	s := NewStore(nil)

	const writers = 16
	var wg sync.WaitGroup
	start := make(chan struct{})

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			<-start
			if err := s.Update(testOrder(uint64(w+1), "FRESH", int64(w))); err != nil {
				t.Errorf("Update error: %v", err)
			}
		}(w)
	}
	close(start)
	wg.Wait()

	got, err := s.GetOrders("FRESH")
	if err != nil {
		t.Fatalf("GetOrders error: %v", err)
	}
	if len(got) != writers {
		t.Errorf("FRESH holds %d orders, want %d", len(got), writers)
	}
}

func TestStore_InstrumentIDsSorted(t *testing.T) {
	s := NewStore(nil)
	for i, instrument := range []string{"TSLA", "AAPL", "MSFT"} {
		if err := s.Update(testOrder(uint64(i+1), instrument, 1)); err != nil {
			t.Fatalf("Update error: %v", err)
		}
	}

	ids := s.InstrumentIDs()
	want := []string{"AAPL", "MSFT", "TSLA"}
	if len(ids) != len(want) {
		t.Fatalf("InstrumentIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("InstrumentIDs()[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}
