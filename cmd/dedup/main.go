// dedup is an archive maintenance tool: it reports duplicate
// (order_id, ts) groups in the orders table and, with --apply, deletes all
// but the first physical row of each group.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/orderflow/internal/config"
	"github.com/rickgao/orderflow/internal/database"
)

func main() {
	configPath := flag.String("config", "configs/orderflowd.yaml", "path to config file")
	apply := flag.Bool("apply", false, "delete duplicates (default is dry run)")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall operation timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	groups, rows, err := countDuplicates(ctx, pool)
	if err != nil {
		logger.Error("failed to count duplicates", "error", err)
		os.Exit(1)
	}

	logger.Info("duplicate scan complete",
		"duplicate_groups", groups,
		"excess_rows", rows,
	)

	if rows == 0 {
		return
	}

	if !*apply {
		logger.Info("dry run, nothing deleted (use --apply to delete)")
		return
	}

	deleted, err := deleteDuplicates(ctx, pool)
	if err != nil {
		logger.Error("failed to delete duplicates", "error", err)
		os.Exit(1)
	}
	logger.Info("duplicates removed", "deleted", deleted)
}

// countDuplicates reports how many (order_id, ts) groups hold more than one
// row, and how many excess rows those groups contain.
func countDuplicates(ctx context.Context, pool *pgxpool.Pool) (groups, rows int64, err error) {
	err = pool.QueryRow(ctx, `
		SELECT COALESCE(COUNT(*), 0), COALESCE(SUM(n - 1), 0)
		FROM (
			SELECT COUNT(*) AS n
			FROM orders
			GROUP BY order_id, ts
			HAVING COUNT(*) > 1
		) d
	`).Scan(&groups, &rows)
	return groups, rows, err
}

// deleteDuplicates keeps the first physical row of each (order_id, ts) group
// and deletes the rest.
func deleteDuplicates(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	ct, err := pool.Exec(ctx, `
		DELETE FROM orders o
		USING (
			SELECT ctid,
			       ROW_NUMBER() OVER (PARTITION BY order_id, ts ORDER BY ctid) AS rn
			FROM orders
		) ranked
		WHERE o.ctid = ranked.ctid
		  AND ranked.rn > 1
	`)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
