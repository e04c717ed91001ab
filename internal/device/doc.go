// Package device is the compute-device abstraction the search pipeline runs
// on: linear buffers charged against a resource budget, host<->device copies
// and grid kernel launches.
//
// The only backend is the host CPU. A kernel launch fans its grid out over a
// bounded set of goroutines and returns once every block has finished, so a
// sequence of launches forms a sequence of fully synchronised stages.
//
//	dev := device.New(device.Config{Workers: 8})
//	buf, err := device.Alloc[float32](dev, "dist", n)
//	if err != nil {
//		return err
//	}
//	defer buf.Release()
//
//	err = dev.Launch(ctx, device.Kernel{Name: "sqrt", Grid: device.Dim2(gx, gy)},
//		func(ctx context.Context, b device.Block) error { ... })
package device
