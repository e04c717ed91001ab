// Package conv provides checked integer conversions.
//
// Use cases:
//   - point indices, which are reported as int32
//   - dataset file headers, which store widths and dimensions as uint32
//
// For conversions that are provably safe by domain constraints (loop
// indices, bounded counters), use direct type casts instead.
package conv
