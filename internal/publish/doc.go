// Package publish streams the order flow to Kafka for downstream consumers.
// The Publisher is a store subscriber shaped like the archive writer: Enqueue
// feeds a relay buffer, a consumer goroutine batches messages, and batches
// are written with the instrument ID as the message key so each instrument's
// events stay ordered within a partition.
package publish
