// Package queue provides a bounded, lock-free, multi-producer single-consumer
// ring buffer used as the ingestion path between feed producers and the store
// consumer.
//
// Contract:
//   - Any number of goroutines may call Push concurrently. Push never blocks:
//     a full ring returns ErrFull and the caller decides policy (drop, retry,
//     escalate). Unconsumed data is never overwritten.
//   - Exactly one goroutine may call Pop/Flush. This is a hard contract, not a
//     performance hint: the per-cell sequence protocol is only valid with a
//     single consumer.
//   - Capacity is fixed at construction (rounded up to a power of two); no
//     allocation happens on the push/pop path.
//
// Synchronization rests entirely on one atomic sequence number per cell:
// sequence == index marks the cell free for the producer lap, sequence ==
// index+1 marks it written and ready. The producer stores the new sequence
// only after the data write, so a consumer that observes the sequence also
// observes the data.
package queue
