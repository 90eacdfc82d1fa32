// Package ingest connects the ring buffer to the order store. The Bridge is
// the single consumer the queue contract requires: it drains ready batches
// with Flush, feeds each order to the store, and keeps failure accounting.
// Producer latency stays decoupled from store-write latency, which may
// contend on a per-instrument lock.
package ingest
