// Package dataset reads and writes point sets.
//
// Two formats are supported:
//
//   - Raw: a small binary header followed by the dimension-major float32
//     values, cut into blocks that are stored plain or compressed with LZ4
//     or ZSTD.
//   - Parquet: one row per point, {id int32, vector []float32}, ZSTD
//     compressed. Rows may come in any order; ids must cover [0, width).
//
// Save and Load pick the format from the file extension.
package dataset
