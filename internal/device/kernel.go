package device

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Dims is a 2-dimensional extent. Y is the slow axis.
type Dims struct {
	X, Y int
}

// Dim1 returns a one-dimensional extent.
func Dim1(x int) Dims {
	return Dims{X: x, Y: 1}
}

// Dim2 returns a two-dimensional extent.
func Dim2(x, y int) Dims {
	return Dims{X: x, Y: y}
}

// Size returns the number of cells.
func (d Dims) Size() int {
	return d.X * d.Y
}

// GridFor returns the number of blocks of the given shape needed to cover
// extent, rounding up on both axes.
func GridFor(extent, block Dims) Dims {
	return Dims{
		X: (extent.X + block.X - 1) / block.X,
		Y: (extent.Y + block.Y - 1) / block.Y,
	}
}

// Kernel describes a launch: Grid blocks, each covering Block cells.
type Kernel struct {
	Name  string
	Grid  Dims
	Block Dims
}

// Block identifies one unit of work within a launch and the cell range it
// covers. Cell ranges are not clipped to the problem extent.
type Block struct {
	X, Y  int
	Shape Dims
}

// Origin returns the first cell of the block.
func (b Block) Origin() (x, y int) {
	return b.X * b.Shape.X, b.Y * b.Shape.Y
}

// BlockFunc is the body of a kernel, invoked once per block.
type BlockFunc func(ctx context.Context, b Block) error

// Launch runs fn for every block of k.Grid and returns after all of them have
// completed. Blocks run concurrently and must write disjoint memory. The first
// error cancels the remaining blocks and is returned.
func (d *Device) Launch(ctx context.Context, k Kernel, fn BlockFunc) error {
	if k.Grid.X <= 0 || k.Grid.Y <= 0 {
		return fmt.Errorf("device: kernel %q: empty grid %dx%d", k.Name, k.Grid.X, k.Grid.Y)
	}
	if k.Block.X <= 0 || k.Block.Y <= 0 {
		return fmt.Errorf("device: kernel %q: empty block %dx%d", k.Name, k.Block.X, k.Block.Y)
	}
	d.launches.Add(1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

schedule:
	for y := 0; y < k.Grid.Y; y++ {
		for x := 0; x < k.Grid.X; x++ {
			if gctx.Err() != nil {
				// Stop scheduling; Wait reports the cause.
				break schedule
			}
			b := Block{X: x, Y: y, Shape: k.Block}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := d.rc.AcquireWorker(gctx); err != nil {
					return err
				}
				defer d.rc.ReleaseWorker()

				if err := fn(gctx, b); err != nil {
					return fmt.Errorf("kernel %q block (%d,%d): %w", k.Name, b.X, b.Y, err)
				}
				d.blocks.Add(1)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// errgroup cancels gctx, not ctx; a parent cancel with no failing block
	// still has to surface.
	return ctx.Err()
}
