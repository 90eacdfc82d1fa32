// Package archive persists the order stream to PostgreSQL. The Writer is a
// store subscriber: Enqueue hands each committed order to a relay buffer so
// the ingestion path never waits on the database, and a consumer goroutine
// accumulates batches that are flushed on size or on a ticker with
// ON CONFLICT DO NOTHING semantics (redelivered events become conflicts, not
// duplicates).
package archive
