package device

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/knn/internal/simd"
	"github.com/hupe1980/knn/resource"
)

// ErrAllocation is returned when a buffer cannot be obtained.
var ErrAllocation = errors.New("device allocation failed")

// Config configures a Device.
type Config struct {
	// Workers bounds the number of blocks of one launch that run at once.
	// If <= 0, defaults to runtime.GOMAXPROCS(0).
	Workers int

	// Resources is the shared budget buffers, copies and blocks are charged
	// against. If nil, nothing is limited.
	Resources *resource.Controller
}

// Info describes the device.
type Info struct {
	Name    string
	ISA     simd.ISA
	Workers int
}

// Stats holds device counters. All values are cumulative.
type Stats struct {
	Allocations      int64
	AllocationErrors int64
	BytesAllocated   int64
	BytesLive        int64
	BytesCopied      int64
	Launches         int64
	BlocksExecuted   int64
}

// Device executes kernels on the host CPU.
type Device struct {
	workers int
	rc      *resource.Controller

	allocs      atomic.Int64
	allocErrs   atomic.Int64
	bytesAlloc  atomic.Int64
	bytesLive   atomic.Int64
	bytesCopied atomic.Int64
	launches    atomic.Int64
	blocks      atomic.Int64
}

// New creates a Device.
func New(cfg Config) *Device {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if limit := cfg.Resources.MaxWorkers(); limit > 0 && int64(workers) > limit {
		workers = int(limit)
	}
	return &Device{workers: workers, rc: cfg.Resources}
}

// Info returns a description of the device.
func (d *Device) Info() Info {
	return Info{
		Name:    "cpu/" + runtime.GOARCH,
		ISA:     simd.ActiveISA(),
		Workers: d.workers,
	}
}

// Workers returns the per-launch parallelism.
func (d *Device) Workers() int {
	return d.workers
}

// Stats returns a snapshot of the device counters.
func (d *Device) Stats() Stats {
	return Stats{
		Allocations:      d.allocs.Load(),
		AllocationErrors: d.allocErrs.Load(),
		BytesAllocated:   d.bytesAlloc.Load(),
		BytesLive:        d.bytesLive.Load(),
		BytesCopied:      d.bytesCopied.Load(),
		Launches:         d.launches.Load(),
		BlocksExecuted:   d.blocks.Load(),
	}
}

// Element is the set of types a Buffer can hold.
type Element interface {
	~float32 | ~int32
}

// Buffer is a linear device buffer of n elements.
type Buffer[T Element] struct {
	name     string
	data     []T
	bytes    int64
	dev      *Device
	released atomic.Bool
}

// Alloc obtains a zeroed buffer of n elements, charging its size to the
// device's resource budget. The caller must Release it.
func Alloc[T Element](d *Device, name string, n int) (*Buffer[T], error) {
	if n < 0 {
		d.allocErrs.Add(1)
		return nil, fmt.Errorf("%w: %s: negative length %d", ErrAllocation, name, n)
	}
	var zero T
	bytes := int64(n) * int64(unsafe.Sizeof(zero))
	if err := d.rc.AcquireMemory(bytes); err != nil {
		d.allocErrs.Add(1)
		return nil, fmt.Errorf("%w: %s (%d bytes): %w", ErrAllocation, name, bytes, err)
	}

	d.allocs.Add(1)
	d.bytesAlloc.Add(bytes)
	d.bytesLive.Add(bytes)
	return &Buffer[T]{
		name:  name,
		data:  make([]T, n),
		bytes: bytes,
		dev:   d,
	}, nil
}

// Name returns the buffer name given at allocation.
func (b *Buffer[T]) Name() string {
	return b.name
}

// Len returns the number of elements.
func (b *Buffer[T]) Len() int {
	return len(b.data)
}

// Bytes returns the buffer size in bytes.
func (b *Buffer[T]) Bytes() int64 {
	return b.bytes
}

// Data exposes the buffer memory to kernels. It is nil after Release.
func (b *Buffer[T]) Data() []T {
	return b.data
}

// Release returns the buffer to the budget. It is safe to call more than once.
func (b *Buffer[T]) Release() {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return
	}
	b.data = nil
	b.dev.bytesLive.Add(-b.bytes)
	b.dev.rc.ReleaseMemory(b.bytes)
}

// CopyIn copies host memory into a device buffer.
func CopyIn[T Element](ctx context.Context, dst *Buffer[T], src []T) error {
	if len(src) > len(dst.data) {
		return fmt.Errorf("device: copy of %d elements into %s of %d", len(src), dst.name, len(dst.data))
	}
	return transfer(ctx, dst.dev, dst.data, src)
}

// CopyOut copies the first len(dst) elements of a device buffer to host memory.
func CopyOut[T Element](ctx context.Context, dst []T, src *Buffer[T]) error {
	if len(dst) > len(src.data) {
		return fmt.Errorf("device: copy of %d elements out of %s of %d", len(dst), src.name, len(src.data))
	}
	return transfer(ctx, src.dev, dst, src.data[:len(dst)])
}

func transfer[T Element](ctx context.Context, d *Device, dst, src []T) error {
	var zero T
	bytes := len(src) * int(unsafe.Sizeof(zero))
	if err := d.rc.AcquireTransfer(ctx, bytes); err != nil {
		return err
	}
	copy(dst, src)
	d.bytesCopied.Add(int64(bytes))
	return nil
}
