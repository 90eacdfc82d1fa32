// loadgen soaks the ingestion pipeline with synthetic order flow: P producer
// goroutines push M orders each through a real ring, bridge and store, then
// the run is verified for loss and per-instrument time ordering.
// Console output only.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/orderflow/internal/ingest"
	"github.com/rickgao/orderflow/internal/model"
	"github.com/rickgao/orderflow/internal/queue"
	"github.com/rickgao/orderflow/internal/store"
)

func main() {
	producers := flag.Int("producers", 8, "number of producer goroutines")
	perProducer := flag.Int("orders", 100000, "orders pushed per producer")
	instruments := flag.Int("instruments", 16, "number of distinct instruments")
	capacity := flag.Int("capacity", 65536, "ring capacity")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	runID := uuid.NewString()
	logger.Info("loadgen starting",
		"run_id", runID,
		"producers", *producers,
		"orders_per_producer", *perProducer,
		"instruments", *instruments,
		"capacity", *capacity,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupted")
		cancel()
	}()

	ring, err := queue.New[model.Order](*capacity)
	if err != nil {
		logger.Error("failed to create ring", "error", err)
		os.Exit(1)
	}
	st := store.NewStore(logger)
	bridge := ingest.NewBridge(ingest.DefaultBridgeConfig(), ring, st, logger)

	if err := bridge.Start(ctx); err != nil {
		logger.Error("failed to start bridge", "error", err)
		os.Exit(1)
	}

	names := make([]string, *instruments)
	for i := range names {
		names[i] = fmt.Sprintf("SYN-%s-%03d", runID[:8], i)
	}

	var produced, dropped atomic.Uint64
	start := time.Now()

	// Stats ticker
	statsDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-statsDone:
				return
			case <-ticker.C:
				rs := ring.Stats()
				bs := bridge.Stats()
				ss := st.Stats()
				logger.Info("progress",
					"produced", produced.Load(),
					"dropped", dropped.Load(),
					"ring_len", rs.Length,
					"drained", bs.Drained,
					"stored", ss.Orders,
				)
			}
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < *producers; p++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(producer) + time.Now().UnixNano()))

			for i := 0; i < *perProducer; i++ {
				if ctx.Err() != nil {
					return
				}

				// Dollars-and-cents price synthesized the way a feed would
				// deliver it, then shifted to internal ten-thousandths.
				price := decimal.NewFromInt(int64(rng.Intn(500) + 1)).
					Add(decimal.NewFromInt(int64(rng.Intn(100))).Shift(-2))

				o := model.Order{
					OrderID:      uint64(producer)<<32 | uint64(i),
					InstrumentID: names[rng.Intn(len(names))],
					Side:         model.Side(rng.Intn(2)),
					State:        model.OrderState(rng.Intn(4)),
					Quantity:     int64(rng.Intn(1000) + 1),
					Price:        price.Shift(4).IntPart(),
					Timestamp:    time.Now().UnixMicro(),
				}

				// Reject-on-full: spin briefly, then count the drop.
				pushed := false
				for attempt := 0; attempt < 100; attempt++ {
					if err := ring.Push(o); err == nil {
						pushed = true
						break
					}
					time.Sleep(time.Microsecond)
				}
				if pushed {
					produced.Add(1)
				} else {
					dropped.Add(1)
				}
			}
		}(p)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Let the bridge drain the tail, then stop everything.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	bridge.Stop(stopCtx)
	close(statsDone)

	logger.Info("production finished",
		"produced", produced.Load(),
		"dropped", dropped.Load(),
		"elapsed", elapsed,
		"rate_per_sec", float64(produced.Load())/elapsed.Seconds(),
	)

	failures := verify(logger, st, names, produced.Load())
	if failures > 0 {
		logger.Error("verification FAILED", "failures", failures)
		os.Exit(1)
	}
	logger.Info("verification passed", "run_id", runID)
}

// verify checks no-loss (store count == pushes accepted) and that every
// instrument's sequence is non-decreasing in timestamp.
func verify(logger *slog.Logger, st *store.Store, names []string, produced uint64) int {
	failures := 0

	stats := st.Stats()
	if uint64(stats.Orders) != produced {
		logger.Error("order count mismatch",
			"stored", stats.Orders,
			"accepted_pushes", produced,
		)
		failures++
	}

	for _, name := range names {
		orders, err := st.GetOrders(name)
		if err != nil {
			// An instrument may legitimately receive no orders on tiny runs.
			continue
		}
		for i := 1; i < len(orders); i++ {
			if orders[i].Timestamp < orders[i-1].Timestamp {
				logger.Error("sort violation",
					"instrument", name,
					"index", i,
					"prev_ts", orders[i-1].Timestamp,
					"ts", orders[i].Timestamp,
				)
				failures++
				break
			}
		}
	}

	return failures
}
