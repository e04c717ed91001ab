package dataset

import (
	"errors"
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/knn/internal/conv"
	"github.com/hupe1980/knn/model"
	"github.com/parquet-go/parquet-go"
)

// VectorRecord represents a single point for Parquet serialization.
type VectorRecord struct {
	ID     int32     `parquet:"id"`
	Vector []float32 `parquet:"vector"`
}

// WriteParquet writes ps as one row per point.
func WriteParquet(w io.Writer, ps model.PointSet) error {
	if err := ps.Validate(); err != nil {
		return err
	}
	if _, err := conv.IntToInt32(ps.Width); err != nil {
		return err
	}

	pw := parquet.NewGenericWriter[VectorRecord](w, parquet.Compression(&parquet.Zstd))
	defer func() {
		// Best effort close on early return
		_ = pw.Close()
	}()

	const batch = 1024
	rows := make([]VectorRecord, 0, batch)
	flat := make([]float32, batch*ps.Dim)
	for p := 0; p < ps.Width; p++ {
		i := len(rows)
		rows = append(rows, VectorRecord{
			ID:     int32(p),
			Vector: ps.Point(p, flat[i*ps.Dim:(i+1)*ps.Dim:(i+1)*ps.Dim]),
		})
		if len(rows) == batch || p == ps.Width-1 {
			if _, err := pw.Write(rows); err != nil {
				return err
			}
			rows = rows[:0]
		}
	}
	return pw.Close()
}

// ReadParquet reads a point set written by WriteParquet, or any file with
// the same columns.
func ReadParquet(r io.ReaderAt, size int64) (model.PointSet, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return model.PointSet{}, err
	}

	pr := parquet.NewGenericReader[VectorRecord](pf)
	defer pr.Close()

	rows := make([]VectorRecord, pr.NumRows())
	n := 0
	for n < len(rows) {
		m, err := pr.Read(rows[n:])
		n += m
		if errors.Is(err, io.EOF) || (err == nil && m == 0) {
			break
		}
		if err != nil {
			return model.PointSet{}, err
		}
	}
	rows = rows[:n]
	if len(rows) == 0 {
		return model.PointSet{}, fmt.Errorf("%w: no rows", ErrCorrupt)
	}

	width, dim := len(rows), len(rows[0].Vector)
	if dim == 0 {
		return model.PointSet{}, fmt.Errorf("%w: empty vectors", ErrCorrupt)
	}
	data := make([]float32, width*dim)
	seen := bitset.New(uint(width))
	for _, row := range rows {
		if row.ID < 0 || int(row.ID) >= width || seen.Test(uint(row.ID)) {
			return model.PointSet{}, fmt.Errorf("%w: id %d invalid or repeated for %d rows", ErrCorrupt, row.ID, width)
		}
		if len(row.Vector) != dim {
			return model.PointSet{}, fmt.Errorf("%w: id %d has %d values, want %d", ErrCorrupt, row.ID, len(row.Vector), dim)
		}
		seen.Set(uint(row.ID))
		for d, v := range row.Vector {
			data[d*width+int(row.ID)] = v
		}
	}
	return model.NewPointSet(data, width, dim), nil
}
