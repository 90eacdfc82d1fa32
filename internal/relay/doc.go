// Package relay provides the buffered handoff between store subscriber
// callbacks and slow sinks (database writer, broker publisher). Subscriber
// callbacks run on the ingestion goroutine and must never stall it, so each
// sink enqueues into a relay.Buffer without blocking and consumes it on its
// own goroutines. The buffer grows up to a configurable ceiling; beyond that
// it drops and counts rather than block the caller.
package relay
