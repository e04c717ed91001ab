package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRows(t *testing.T) {
	ps := FromRows([][]float32{{0, 0}, {1, 0}, {0, 1}, {5, 5}})

	require.NoError(t, ps.Validate())
	assert.Equal(t, 4, ps.Width)
	assert.Equal(t, 2, ps.Dim)
	// Dimension-major: all x values first, then all y values.
	assert.Equal(t, []float32{0, 1, 0, 5, 0, 0, 1, 5}, ps.Data)
	assert.Equal(t, float32(1), ps.At(1, 2))
	assert.Equal(t, float32(5), ps.At(0, 3))
}

func TestFromRows_Empty(t *testing.T) {
	ps := FromRows(nil)
	assert.ErrorIs(t, ps.Validate(), ErrInvalidWidth)
}

func TestFromRows_Ragged(t *testing.T) {
	assert.Panics(t, func() {
		FromRows([][]float32{{1, 2}, {3}})
	})
}

func TestPointSet_Validate(t *testing.T) {
	tests := []struct {
		name string
		ps   PointSet
		err  error
	}{
		{"Valid", NewPointSet(make([]float32, 6), 3, 2), nil},
		{"ZeroWidth", NewPointSet(nil, 0, 2), ErrInvalidWidth},
		{"NegativeWidth", NewPointSet(nil, -1, 2), ErrInvalidWidth},
		{"ZeroDim", NewPointSet(nil, 3, 0), ErrInvalidDimension},
		{"ShortData", NewPointSet(make([]float32, 5), 3, 2), ErrInvalidPointSet},
		{"LongData", NewPointSet(make([]float32, 7), 3, 2), ErrInvalidPointSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ps.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestPointSet_PointAndRows(t *testing.T) {
	rows := [][]float32{{1, 2, 3}, {4, 5, 6}}
	ps := FromRows(rows)

	assert.Equal(t, []float32{4, 5, 6}, ps.Point(1, nil))

	// Reuses dst when it is large enough.
	buf := make([]float32, 8)
	got := ps.Point(0, buf)
	assert.Equal(t, []float32{1, 2, 3}, got)
	assert.Same(t, &buf[0], &got[0])

	assert.Equal(t, rows, ps.Rows())
}

func TestResult(t *testing.T) {
	r := NewResult(2, 3)
	require.Len(t, r.Distances, 6)
	require.Len(t, r.Indices, 6)

	// rank 1, query 2
	r.Distances[1*3+2] = 0.5
	r.Indices[1*3+2] = 7
	r.Indices[0*3+2] = 4

	assert.Equal(t, Neighbor{Index: 7, Distance: 0.5}, r.At(1, 2))
	assert.Equal(t, []Neighbor{{Index: 4}, {Index: 7, Distance: 0.5}}, r.Column(2))
	assert.Equal(t, "#7@0.5", r.At(1, 2).String())
}
