// Package database provides the PostgreSQL connection pool for the order
// archive. The orders table is append-only (order events are never updated
// in place); duplicate delivery is absorbed with ON CONFLICT DO NOTHING on
// (order_id, ts).
package database
