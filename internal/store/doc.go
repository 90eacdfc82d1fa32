// Package store holds order events per instrument, always sorted by
// timestamp, with point and half-open time-range retrieval.
//
// Writers to different instruments never contend: each instrument gets its
// own mutex, created atomically on first write. Readers take the same
// per-instrument lock as writers, so a returned slice is always a consistent
// copy. After a successful insert the store notifies registered subscriber
// callbacks synchronously, outside the instrument lock, in registration
// order.
package store
