// Package knn provides exact brute-force k-nearest-neighbor search under
// Euclidean distance.
//
// For every query point the k closest reference points are returned with
// their distances and indices. Two engines compute the same answer:
//
//   - Search runs a parallel three-stage pipeline: tiled all-pairs squared
//     distances, per-query top-k selection, and a square root over the
//     selected distances.
//   - SearchSequential is a straightforward per-query loop with an
//     insertion-based top-k. It is the reference the pipeline is checked
//     against.
//
// # Quick Start
//
//	ref := model.FromRows(refRows)
//	query := model.FromRows(queryRows)
//
//	res, err := knn.Search(ctx, ref, query, 20)
//	if err != nil {
//	    return err
//	}
//	for q := 0; q < res.Queries; q++ {
//	    for _, n := range res.Column(q) {
//	        fmt.Println(q, n.Index, n.Distance)
//	    }
//	}
//
// # Layout
//
// Point sets are stored dimension-major: dimension d of point p sits at
// d*Width+p. Results are k x Queries matrices with rank i of query q at
// i*Queries+q. SearchInto and SequentialInto write into caller buffers in
// this layout.
//
// # Ties
//
// Equal distances are ordered by ascending reference index in both
// engines.
//
// # Resource Limits
//
// Working memory, block parallelism and copy bandwidth can be bounded with
// a shared resource.Controller (WithResourceController) or a private
// memory limit (WithMemoryLimit). A request that does not fit fails with
// ErrAllocation before any output is written.
//
// # Checking Results
//
//	if err := knn.Verify(res, ref.Width); err != nil { ... }
//	acc, _ := knn.Compare(res, oracle, knn.DefaultPrecision)
package knn
