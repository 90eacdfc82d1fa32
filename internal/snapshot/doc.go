// Package snapshot dumps the in-memory order store to JSON files. This is a
// best-effort export for inspection and downstream tooling, not a
// crash-consistent durability mechanism: the dump walks the store's
// iteration interface instrument by instrument, so orders committed during
// the walk may or may not appear.
package snapshot
