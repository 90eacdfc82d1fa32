// Package model defines the shared data types that flow through the
// orderflow pipeline.
//
// Conventions:
//   - Prices: int64 ten-thousandths of the quote currency (4 implied decimals)
//   - Timestamps: int64 microseconds since Unix epoch
//   - Order events are immutable: a fill or cancel arrives as a new Order
//     event for the same OrderID, never as an in-place update
package model
