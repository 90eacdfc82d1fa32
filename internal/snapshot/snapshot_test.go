package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rickgao/orderflow/internal/model"
	"github.com/rickgao/orderflow/internal/store"
)

func populatedStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.NewStore(nil)
	orders := []model.Order{
		{OrderID: 1, InstrumentID: "AAPL", Side: model.Buy, State: model.StateNew, Quantity: 10, Price: 1872500, Timestamp: 30},
		{OrderID: 2, InstrumentID: "AAPL", Side: model.Sell, State: model.StateNew, Quantity: 5, Price: 1873000, Timestamp: 10},
		{OrderID: 3, InstrumentID: "MSFT", Side: model.Buy, State: model.StateFilled, Quantity: 7, Price: 4051200, Timestamp: 20},
	}
	for _, o := range orders {
		if err := st.Update(o); err != nil {
			t.Fatalf("Update error: %v", err)
		}
	}
	return st
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	st := populatedStore(t)
	path := filepath.Join(t.TempDir(), "orders.json")

	if err := SaveToFile(path, st); err != nil {
		t.Fatalf("SaveToFile error: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if f.SnapshotID == "" {
		t.Error("SnapshotID is empty")
	}
	if f.Instruments != 2 {
		t.Errorf("Instruments = %d, want 2", f.Instruments)
	}
	if f.Orders != 3 {
		t.Errorf("Orders = %d, want 3", f.Orders)
	}
	if len(f.Data) != 2 {
		t.Fatalf("len(Data) = %d, want 2", len(f.Data))
	}

	// InstrumentIDs is sorted, so AAPL comes first.
	aapl := f.Data[0]
	if aapl.InstrumentID != "AAPL" {
		t.Fatalf("Data[0].InstrumentID = %q, want AAPL", aapl.InstrumentID)
	}
	if len(aapl.Orders) != 2 {
		t.Fatalf("len(AAPL orders) = %d, want 2", len(aapl.Orders))
	}
	// Sequences are dumped in store order, ascending by timestamp.
	if aapl.Orders[0].OrderID != 2 || aapl.Orders[1].OrderID != 1 {
		t.Errorf("AAPL order ids = [%d %d], want [2 1]",
			aapl.Orders[0].OrderID, aapl.Orders[1].OrderID)
	}
	if aapl.Orders[0].Side != "SELL" {
		t.Errorf("Orders[0].Side = %q, want SELL", aapl.Orders[0].Side)
	}
}

func TestSaveToFile_EmptyStore(t *testing.T) {
	st := store.NewStore(nil)
	path := filepath.Join(t.TempDir(), "empty.json")

	if err := SaveToFile(path, st); err != nil {
		t.Fatalf("SaveToFile error: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if f.Instruments != 0 || f.Orders != 0 {
		t.Errorf("Instruments, Orders = %d, %d, want 0, 0", f.Instruments, f.Orders)
	}
}

func TestSaveToFile_UnwritablePath(t *testing.T) {
	st := populatedStore(t)
	path := filepath.Join(t.TempDir(), "missing-dir", "orders.json")

	err := SaveToFile(path, st)
	if err == nil {
		t.Fatal("SaveToFile succeeded, want error")
	}
	if !errors.Is(err, ErrFileAccess) {
		t.Errorf("error = %v, want ErrFileAccess", err)
	}
}

func TestSnapshotter_ZeroIntervalDefaults(t *testing.T) {
	st := populatedStore(t)
	path := filepath.Join(t.TempDir(), "defaulted.json")

	// An unset interval must fall back to the default instead of panicking
	// when the ticker is created.
	s := NewSnapshotter(SnapshotterConfig{Path: path}, st, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	// The final snapshot on Stop still runs.
	if got := s.Stats().Snapshots; got != 1 {
		t.Errorf("Snapshots = %d, want 1", got)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load error: %v", err)
	}
}

func TestSnapshotter_PeriodicAndFinal(t *testing.T) {
	st := populatedStore(t)
	path := filepath.Join(t.TempDir(), "periodic.json")

	s := NewSnapshotter(SnapshotterConfig{
		Path:     path,
		Interval: 20 * time.Millisecond,
	}, st, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.Stats().Snapshots < 1 {
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	stats := s.Stats()
	if stats.Snapshots < 2 {
		t.Errorf("Snapshots = %d, want >= 2 (at least one tick plus the final)", stats.Snapshots)
	}
	if stats.Errors != 0 {
		t.Errorf("Errors = %d, want 0", stats.Errors)
	}

	if _, err := Load(path); err != nil {
		t.Errorf("Load error: %v", err)
	}
}
