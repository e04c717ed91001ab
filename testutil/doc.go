// Package testutil provides testing utilities for knn.
//
// This package is intended for use in tests, benchmarks and the knnbench
// tool. It provides helpers for generating random point sets, computing
// exact nearest neighbors in float64, and measuring recall.
//
// # Random Point Sets
//
//	rng := testutil.NewRNG(seed)
//	ref := rng.UniformPointSet(4096, 68)   // uniform [0, 1), dimension-major
//	query := rng.ClusteredPointSet(256, 68, 8, 0.05)
//
// # Exact Search (Ground Truth)
//
//	nn := testutil.BruteForceSearch(ref, query.Point(q, nil), k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(exact, res.Column(q))
package testutil
