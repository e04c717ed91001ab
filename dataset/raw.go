package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/knn/internal/conv"
	"github.com/hupe1980/knn/model"
)

// Raw file layout, little-endian:
//
//	magic    [4]byte "KNNP"
//	version  uint8
//	compress uint8
//	reserved uint16
//	width    uint32
//	dim      uint32
//	blocks   ...  until width*dim float32 values have been read
const (
	rawMagic      = "KNNP"
	rawVersion    = 1
	rawHeaderSize = 16

	// DefaultBlockSize is the uncompressed size of one raw block.
	DefaultBlockSize = 256 * 1024

	// maxValues caps width*dim accepted from a header.
	maxValues = 1 << 31
)

var (
	// ErrBadMagic is returned when a raw file does not start with the
	// expected signature.
	ErrBadMagic = errors.New("dataset: not a raw point set file")

	// ErrUnsupportedVersion is returned for raw files of a newer version.
	ErrUnsupportedVersion = errors.New("dataset: unsupported file version")

	// ErrCorrupt is returned when the file ends early or a block is
	// inconsistent with the header.
	ErrCorrupt = errors.New("dataset: corrupt file")
)

// RawOptions configures WriteRaw.
type RawOptions struct {
	Compression Compression
	// BlockSize is the uncompressed block size in bytes, rounded down to a
	// multiple of 4. If <= 0, DefaultBlockSize.
	BlockSize int
}

// WriteRaw writes ps in the raw format.
func WriteRaw(w io.Writer, ps model.PointSet, opts RawOptions) error {
	if err := ps.Validate(); err != nil {
		return err
	}
	width, err := conv.IntToUint32(ps.Width)
	if err != nil {
		return err
	}
	dim, err := conv.IntToUint32(ps.Dim)
	if err != nil {
		return err
	}

	blockSize := opts.BlockSize
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	perBlock := max(blockSize/4, 1)

	bw := bufio.NewWriter(w)

	var hdr [rawHeaderSize]byte
	copy(hdr[0:4], rawMagic)
	hdr[4] = rawVersion
	hdr[5] = byte(opts.Compression)
	binary.LittleEndian.PutUint32(hdr[8:], width)
	binary.LittleEndian.PutUint32(hdr[12:], dim)
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	plain := make([]byte, 0, perBlock*4)
	var framed []byte
	for start := 0; start < len(ps.Data); start += perBlock {
		end := min(start+perBlock, len(ps.Data))
		plain = plain[:0]
		for _, v := range ps.Data[start:end] {
			plain = binary.LittleEndian.AppendUint32(plain, math.Float32bits(v))
		}
		framed, err = appendBlock(framed[:0], plain, opts.Compression)
		if err != nil {
			return err
		}
		if _, err := bw.Write(framed); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadRaw reads a point set written by WriteRaw.
func ReadRaw(r io.Reader) (model.PointSet, error) {
	br := bufio.NewReader(r)

	var hdr [rawHeaderSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return model.PointSet{}, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	if string(hdr[0:4]) != rawMagic {
		return model.PointSet{}, ErrBadMagic
	}
	if hdr[4] != rawVersion {
		return model.PointSet{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr[4])
	}
	compression := Compression(hdr[5])
	width, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(hdr[8:]))
	if err != nil {
		return model.PointSet{}, err
	}
	dim, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(hdr[12:]))
	if err != nil {
		return model.PointSet{}, err
	}

	if width == 0 || dim == 0 || int64(width)*int64(dim) > maxValues {
		return model.PointSet{}, fmt.Errorf("%w: %d points of %d dimensions", ErrCorrupt, width, dim)
	}

	data := make([]float32, width*dim)
	var (
		payload []byte
		plain   []byte
	)
	for n := 0; n < len(data); {
		var bh [blockHeaderSize]byte
		if _, err := io.ReadFull(br, bh[:]); err != nil {
			return model.PointSet{}, fmt.Errorf("%w: block header at value %d: %w", ErrCorrupt, n, err)
		}
		size := int(binary.LittleEndian.Uint32(bh[0:]))
		stored := int(binary.LittleEndian.Uint32(bh[4:]))
		if size == 0 || size%4 != 0 || n+size/4 > len(data) {
			return model.PointSet{}, fmt.Errorf("%w: block of %d bytes at value %d", ErrCorrupt, size, n)
		}

		compressed := stored != 0
		if !compressed {
			stored = size
		}
		payload = grow(payload, stored)
		if _, err := io.ReadFull(br, payload); err != nil {
			return model.PointSet{}, fmt.Errorf("%w: block at value %d: %w", ErrCorrupt, n, err)
		}
		plain = grow(plain, size)
		if err := decompressBlock(plain, payload, compressed, compression); err != nil {
			return model.PointSet{}, fmt.Errorf("%w: block at value %d: %w", ErrCorrupt, n, err)
		}

		for off := 0; off < size; off += 4 {
			data[n] = math.Float32frombits(binary.LittleEndian.Uint32(plain[off:]))
			n++
		}
	}

	ps := model.NewPointSet(data, width, dim)
	if err := ps.Validate(); err != nil {
		return model.PointSet{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return ps, nil
}

func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}
