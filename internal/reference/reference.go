// Package reference is the sequential k-NN search used as ground truth for
// the parallel pipeline.
//
// It shares no selection code with the pipeline: every query computes the
// full distance row, then a modified insertion sort keeps the k smallest.
package reference

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/knn/distance"
	"github.com/hupe1980/knn/model"
	"github.com/hupe1980/knn/resource"
)

// ErrAllocation is returned when the scratch space cannot be reserved.
var ErrAllocation = errors.New("reference: scratch allocation failed")

// Request is one search. The caller guarantees valid shapes, as for the
// pipeline.
type Request struct {
	Ref   model.PointSet
	Query model.PointSet
	K     int

	// Dist and Ind receive the K x Query.Width result at i*Query.Width+q.
	Dist []float32
	Ind  []int32
}

// ScratchBytes is the working memory Run reserves for a request.
func ScratchBytes(refWidth, dim int) int64 {
	// point-major copy of ref + one query + distance row + index row
	return 4 * (int64(refWidth)*int64(dim) + int64(dim) + 2*int64(refWidth))
}

// Run executes the request. Scratch is charged to rc before anything is
// written, so an allocation failure leaves Dist and Ind untouched.
func Run(ctx context.Context, rc *resource.Controller, req Request) error {
	rw, qw, dim, k := req.Ref.Width, req.Query.Width, req.Ref.Dim, req.K

	bytes := ScratchBytes(rw, dim)
	if err := rc.AcquireMemory(bytes); err != nil {
		return fmt.Errorf("%w (%d bytes): %w", ErrAllocation, bytes, err)
	}
	defer rc.ReleaseMemory(bytes)

	refs := make([][]float32, rw)
	flat := make([]float32, rw*dim)
	for p := range refs {
		refs[p] = req.Ref.Point(p, flat[p*dim:(p+1)*dim:(p+1)*dim])
	}
	query := make([]float32, dim)
	dist := make([]float32, rw)
	index := make([]int32, rw)

	for q := 0; q < qw; q++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		query = req.Query.Point(q, query)
		for p, ref := range refs {
			dist[p] = distance.Euclidean(ref, query)
		}

		InsertionSort(dist, index, k)

		pos := q
		for i := 0; i < k; i++ {
			req.Dist[pos] = dist[i]
			req.Ind[pos] = index[i]
			pos += qw
		}
	}
	return nil
}

// InsertionSort orders the first k entries of dist ascending, with index
// holding each entry's original position. Entries beyond k are scratch.
// A value is only inserted if it is strictly smaller than the current k-th,
// so among equal values the one seen first ranks first.
func InsertionSort(dist []float32, index []int32, k int) {
	if len(dist) == 0 || k <= 0 {
		return
	}
	index[0] = 0
	for i := 1; i < len(dist); i++ {
		cur := dist[i]
		if i >= k && cur >= dist[k-1] {
			continue
		}
		j := min(i, k-1)
		for j > 0 && dist[j-1] > cur {
			dist[j] = dist[j-1]
			index[j] = index[j-1]
			j--
		}
		dist[j] = cur
		index[j] = int32(i)
	}
}
