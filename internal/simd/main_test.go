package simd

import (
	"fmt"
	"os"
	"runtime"
	"testing"
)

// TestMain logs which kernels the run exercises; the generic fallback and
// the vectorized paths must produce the same results.
func TestMain(m *testing.M) {
	fmt.Printf("simd: %s/%s isa=%s overridden=%v (%s=%q) sqrt=%s\n",
		runtime.GOOS, runtime.GOARCH, ActiveISA(), IsOverridden(),
		OverrideEnv, os.Getenv(OverrideEnv), sqrtKernelName)

	os.Exit(m.Run())
}
