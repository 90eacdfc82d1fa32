// Package feed maintains WebSocket connections to upstream order sources and
// turns their frames into model.Order values pushed onto the ingestion ring.
//
// Each configured source gets one Client connection supervised by the
// Manager: subscribe on connect, reconnect with exponential backoff, stale
// detection via ping silence. The feed is a queue producer and inherits the
// queue's contract: a full ring never blocks the read path, the order is
// dropped and counted instead.
package feed
