// Package tile computes all-pairs squared Euclidean distances between two
// dimension-major point sets, one output tile at a time.
//
// An output tile covers Tile reference rows by Tile query columns. The
// dimension axis is consumed in chunks of Tile: each chunk loads a
// Tile x Tile block of reference values and one of query values into the
// tile's private scratch (zero-padded past the edges), then accumulates the
// squared differences of every (row, column) pair. A tile owns its scratch
// and its output region, so tiles need no synchronisation with each other.
package tile

import (
	"github.com/hupe1980/knn/internal/device"
	"github.com/hupe1980/knn/internal/pool"
	"github.com/hupe1980/knn/internal/simd"
)

// DefaultSize is the default tile edge.
const DefaultSize = 16

// Problem describes one all-pairs distance pass.
type Problem struct {
	Ref      []float32 // Dim x RefWidth, dimension-major
	RefWidth int

	Query      []float32 // Dim x QueryWidth, dimension-major
	QueryWidth int

	Dim int

	// Out receives the RefWidth x QueryWidth squared distances at
	// r*QueryWidth+q.
	Out []float32

	Tile int
}

// Block returns the cell shape of one tile: X spans queries, Y spans
// references.
func (p *Problem) Block() device.Dims {
	return device.Dim2(p.Tile, p.Tile)
}

// Grid returns the number of tiles along each axis.
func (p *Problem) Grid() device.Dims {
	return device.GridFor(device.Dim2(p.QueryWidth, p.RefWidth), p.Block())
}

// Compute fills the output tile at query block bq and reference block br.
// tc must have been obtained for p.Tile.
func Compute(p *Problem, tc *pool.TileContext, bq, br int) {
	t := p.Tile
	r0 := br * t
	q0 := bq * t
	rows := min(t, p.RefWidth-r0)
	cols := min(t, p.QueryWidth-q0)
	if rows <= 0 || cols <= 0 {
		return
	}

	sa, sb, acc := tc.Ref, tc.Query, tc.Acc
	clear(acc)

	for d0 := 0; d0 < p.Dim; d0 += t {
		depth := min(t, p.Dim-d0)

		// Load phase: out-of-range reads become zero.
		for k := 0; k < t; k++ {
			ra := sa[k*t : (k+1)*t]
			rb := sb[k*t : (k+1)*t]
			if k >= depth {
				clear(ra)
				clear(rb)
				continue
			}
			refRow := p.Ref[(d0+k)*p.RefWidth:]
			queryRow := p.Query[(d0+k)*p.QueryWidth:]
			copy(ra[:rows], refRow[r0:r0+rows])
			clear(ra[rows:])
			copy(rb[:cols], queryRow[q0:q0+cols])
			clear(rb[cols:])
		}

		// Compute phase: padded dimensions contribute nothing, so only the
		// loaded depth is accumulated.
		for k := 0; k < depth; k++ {
			qv := sb[k*t : k*t+cols]
			for lr := 0; lr < rows; lr++ {
				simd.AccumulateSquaredDiff(acc[lr*t:lr*t+cols], qv, sa[k*t+lr])
			}
		}
	}

	// Write phase: only in-range cells.
	for lr := 0; lr < rows; lr++ {
		dst := p.Out[(r0+lr)*p.QueryWidth+q0:]
		copy(dst[:cols], acc[lr*t:lr*t+cols])
	}
}
