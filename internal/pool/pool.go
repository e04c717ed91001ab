// Package pool provides object pools for zero-allocation kernel blocks.
// Uses sync.Pool for automatic memory reuse and bitsets for index tracking.
package pool

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/knn/internal/topk"
)

const (
	// DefaultTileSize is the tile edge the scratch pool is primed for.
	DefaultTileSize = 16

	// DefaultK is the list capacity the select pool is primed for.
	DefaultK = 32

	// DefaultMaxIndices is the initial capacity of the seen-index bitset.
	DefaultMaxIndices = 4096
)

// TileContext holds the private scratch of one distance tile: the loaded
// reference and query chunks plus the per-(row, col) accumulators, each
// Tile*Tile long.
type TileContext struct {
	Ref   []float32
	Query []float32
	Acc   []float32
	Tile  int
}

var tileContextPool = sync.Pool{
	New: func() interface{} {
		return newTileContext(DefaultTileSize)
	},
}

func newTileContext(tile int) *TileContext {
	n := tile * tile
	buf := make([]float32, 3*n)
	return &TileContext{
		Ref:   buf[:n:n],
		Query: buf[n : 2*n : 2*n],
		Acc:   buf[2*n:],
		Tile:  tile,
	}
}

// GetTile retrieves a TileContext for the given tile edge. Acc is zeroed.
func GetTile(tile int) *TileContext {
	tc := tileContextPool.Get().(*TileContext)
	if tc.Tile != tile {
		tc = newTileContext(tile)
	}
	clear(tc.Acc)
	return tc
}

// PutTile returns a TileContext to the pool for reuse.
func PutTile(tc *TileContext) {
	tileContextPool.Put(tc)
}

// SelectContext holds the per-column working state of top-k selection.
type SelectContext struct {
	List *topk.List
	Seen *bitset.BitSet
}

var selectContextPool = sync.Pool{
	New: func() interface{} {
		return &SelectContext{
			List: topk.New(DefaultK),
			Seen: bitset.New(DefaultMaxIndices),
		}
	},
}

// GetSelect retrieves a SelectContext whose list has capacity k.
func GetSelect(k int) *SelectContext {
	sc := selectContextPool.Get().(*SelectContext)
	sc.List.Resize(k)
	sc.Seen.ClearAll()
	return sc
}

// PutSelect returns a SelectContext to the pool for reuse.
func PutSelect(sc *SelectContext) {
	if sc.Seen.Len() > DefaultMaxIndices*16 {
		sc.Seen = bitset.New(DefaultMaxIndices)
	}
	selectContextPool.Put(sc)
}

// MarkSeen records index as seen.
// Returns true if the index was already seen, false otherwise.
func (sc *SelectContext) MarkSeen(index uint) bool {
	if sc.Seen.Test(index) {
		return true
	}
	sc.Seen.Set(index)
	return false
}
