// Package distance provides Euclidean distance calculations on
// point-major vectors.
//
// Sums are accumulated in ascending dimension order with every squared
// difference rounded to float32 before it is added, so results are
// reproducible across ISAs and agree bit-for-bit with the tiled search.
//
// # Usage
//
//	d2 := distance.SquaredL2(a, b)
//	d := distance.Euclidean(a, b)
package distance
