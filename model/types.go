package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWidth is returned when a point set has no points.
	ErrInvalidWidth = errors.New("point set width must be positive")

	// ErrInvalidDimension is returned when a point set has no dimensions.
	ErrInvalidDimension = errors.New("point set dimension must be positive")

	// ErrInvalidPointSet is returned when the backing data does not hold
	// exactly Width*Dim values.
	ErrInvalidPointSet = errors.New("invalid point set")
)

// PointSet is an ordered collection of Width points in Dim dimensions,
// stored dimension-major.
type PointSet struct {
	Data  []float32
	Width int
	Dim   int
}

// NewPointSet wraps dimension-major data without copying it.
func NewPointSet(data []float32, width, dim int) PointSet {
	return PointSet{Data: data, Width: width, Dim: dim}
}

// FromRows builds a dimension-major PointSet from point-major rows.
// All rows must have the same length; FromRows panics otherwise.
func FromRows(rows [][]float32) PointSet {
	if len(rows) == 0 {
		return PointSet{}
	}
	dim := len(rows[0])
	width := len(rows)
	data := make([]float32, width*dim)
	for p, row := range rows {
		if len(row) != dim {
			panic(fmt.Sprintf("model: row %d has %d values, want %d", p, len(row), dim))
		}
		for d, v := range row {
			data[d*width+p] = v
		}
	}
	return PointSet{Data: data, Width: width, Dim: dim}
}

// Validate checks the shape invariants.
func (ps PointSet) Validate() error {
	if ps.Width <= 0 {
		return ErrInvalidWidth
	}
	if ps.Dim <= 0 {
		return ErrInvalidDimension
	}
	if len(ps.Data) != ps.Width*ps.Dim {
		return fmt.Errorf("%w: have %d values, want %d (width %d x dim %d)",
			ErrInvalidPointSet, len(ps.Data), ps.Width*ps.Dim, ps.Width, ps.Dim)
	}
	return nil
}

// At returns the value of dimension dim of the given point.
func (ps PointSet) At(dim, point int) float32 {
	return ps.Data[dim*ps.Width+point]
}

// Point gathers point i into dst, growing it if needed, and returns it.
func (ps PointSet) Point(i int, dst []float32) []float32 {
	if cap(dst) < ps.Dim {
		dst = make([]float32, ps.Dim)
	}
	dst = dst[:ps.Dim]
	for d := range dst {
		dst[d] = ps.Data[d*ps.Width+i]
	}
	return dst
}

// Rows returns the points as point-major rows sharing one backing array.
func (ps PointSet) Rows() [][]float32 {
	flat := make([]float32, ps.Width*ps.Dim)
	rows := make([][]float32, ps.Width)
	for p := range rows {
		rows[p] = ps.Point(p, flat[p*ps.Dim:(p+1)*ps.Dim])
	}
	return rows
}

// Neighbor is one (reference index, distance) pair of a k-NN result.
type Neighbor struct {
	Index    int32
	Distance float32
}

// String returns a string representation of the Neighbor.
func (n Neighbor) String() string {
	return fmt.Sprintf("#%d@%g", n.Index, n.Distance)
}

// Result is a k x Queries matrix of neighbour distances paired with the
// reference indices they came from. Rank i of query q lives at i*Queries+q.
type Result struct {
	K         int
	Queries   int
	Distances []float32
	Indices   []int32
}

// NewResult allocates an empty Result for k neighbours of queries points.
func NewResult(k, queries int) *Result {
	return &Result{
		K:         k,
		Queries:   queries,
		Distances: make([]float32, k*queries),
		Indices:   make([]int32, k*queries),
	}
}

// At returns neighbour rank i of query q.
func (r *Result) At(i, q int) Neighbor {
	off := i*r.Queries + q
	return Neighbor{Index: r.Indices[off], Distance: r.Distances[off]}
}

// Column returns the K neighbours of query q, nearest first.
func (r *Result) Column(q int) []Neighbor {
	out := make([]Neighbor, r.K)
	for i := range out {
		out[i] = r.At(i, q)
	}
	return out
}
