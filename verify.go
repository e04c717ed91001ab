package knn

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/knn/internal/conv"
	"github.com/hupe1980/knn/internal/pool"
)

// DefaultPrecision is the largest distance difference Compare accepts as
// correct.
const DefaultPrecision = 0.001

// maxMismatchSamples bounds Accuracy.Mismatches.
const maxMismatchSamples = 32

var (
	// ErrInvalidResult is returned by Verify for a result that breaks an
	// ordering or uniqueness guarantee.
	ErrInvalidResult = errors.New("invalid result")

	// ErrShapeMismatch is returned by Compare when the results differ in k
	// or query count.
	ErrShapeMismatch = errors.New("result shapes differ")
)

// Verify checks that every column of r is sorted by distance and holds
// distinct indices in [0, refWidth).
func Verify(r *Result, refWidth int) error {
	if r == nil {
		return fmt.Errorf("%w: nil", ErrInvalidResult)
	}
	n := r.K * r.Queries
	if len(r.Distances) < n || len(r.Indices) < n {
		return fmt.Errorf("%w: %d distances and %d indices for %d x %d",
			ErrInvalidResult, len(r.Distances), len(r.Indices), r.K, r.Queries)
	}

	sc := pool.GetSelect(r.K)
	defer pool.PutSelect(sc)

	for q := 0; q < r.Queries; q++ {
		sc.Seen.ClearAll()
		prev := float32(math.Inf(-1))
		for i := 0; i < r.K; i++ {
			pos := i*r.Queries + q
			d, idx := r.Distances[pos], r.Indices[pos]

			if d < prev || math.IsNaN(float64(d)) {
				return fmt.Errorf("%w: query %d rank %d: distance %g after %g", ErrInvalidResult, q, i, d, prev)
			}
			prev = d

			u, err := conv.Int32ToUint(idx)
			if err != nil || int(idx) >= refWidth {
				return fmt.Errorf("%w: query %d rank %d: index %d not in [0, %d)", ErrInvalidResult, q, i, idx, refWidth)
			}
			if sc.MarkSeen(u) {
				return fmt.Errorf("%w: query %d rank %d: duplicate index %d", ErrInvalidResult, q, i, idx)
			}
		}
	}
	return nil
}

// Mismatch is one position where two results disagree on the index.
type Mismatch struct {
	Query int
	Rank  int
	Got   Neighbor
	Want  Neighbor
	// Tie is set when both neighbors report the same distance, so either
	// index is a correct answer.
	Tie bool
}

// Accuracy summarizes how closely one result matches another.
type Accuracy struct {
	Total int

	CorrectDistances int
	CorrectIndices   int
	Ties             int

	// PrecisionAccuracy is the fraction of distances within precision.
	PrecisionAccuracy float64
	// IndexAccuracy is the fraction of identical indices.
	IndexAccuracy float64
	// TieTolerantAccuracy also counts index differences at tied distances.
	TieTolerantAccuracy float64

	// Mismatches holds the first index disagreements, at most 32.
	Mismatches []Mismatch
}

// Compare scores got against want position by position. A distance is
// correct if it differs from want by at most precision; see DefaultPrecision.
func Compare(got, want *Result, precision float32) (Accuracy, error) {
	if got == nil || want == nil || got.K != want.K || got.Queries != want.Queries {
		return Accuracy{}, ErrShapeMismatch
	}

	acc := Accuracy{Total: got.K * got.Queries}
	for i := 0; i < got.K; i++ {
		for q := 0; q < got.Queries; q++ {
			g, w := got.At(i, q), want.At(i, q)

			if float32(math.Abs(float64(g.Distance-w.Distance))) <= precision {
				acc.CorrectDistances++
			}
			if g.Index == w.Index {
				acc.CorrectIndices++
				continue
			}

			tie := g.Distance == w.Distance
			if tie {
				acc.Ties++
			}
			if len(acc.Mismatches) < maxMismatchSamples {
				acc.Mismatches = append(acc.Mismatches, Mismatch{Query: q, Rank: i, Got: g, Want: w, Tie: tie})
			}
		}
	}

	if acc.Total > 0 {
		total := float64(acc.Total)
		acc.PrecisionAccuracy = float64(acc.CorrectDistances) / total
		acc.IndexAccuracy = float64(acc.CorrectIndices) / total
		acc.TieTolerantAccuracy = float64(acc.CorrectIndices+acc.Ties) / total
	}
	return acc, nil
}
