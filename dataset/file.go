package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/knn/model"
)

// Format identifies a file format.
type Format int

const (
	// FormatRaw is the raw block format (.knn, and any unknown extension).
	FormatRaw Format = iota
	// FormatParquet is the parquet row format (.parquet).
	FormatParquet
)

func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatParquet:
		return "parquet"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// FormatOf returns the format implied by a file name.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return FormatParquet
	}
	return FormatRaw
}

// Save writes ps to path, choosing the format from the extension.
// Compression only applies to raw files.
func Save(path string, ps model.PointSet, compression Compression) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	switch FormatOf(path) {
	case FormatParquet:
		return WriteParquet(f, ps)
	default:
		return WriteRaw(f, ps, RawOptions{Compression: compression})
	}
}

// Load reads a point set from path, choosing the format from the extension.
func Load(path string) (model.PointSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.PointSet{}, err
	}
	defer f.Close()

	switch FormatOf(path) {
	case FormatParquet:
		fi, err := f.Stat()
		if err != nil {
			return model.PointSet{}, err
		}
		return ReadParquet(f, fi.Size())
	default:
		return ReadRaw(f)
	}
}
