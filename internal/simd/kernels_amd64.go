//go:build amd64 && !noasm

package simd

import "github.com/viterin/vek/vek32"

// init sets the SIMD kernel pointers based on the active ISA.
// This runs after capability_amd64.go init() has detected CPU features
// and selected the active ISA.
func init() {
	switch activeISA {
	case AVX2, AVX512:
		setVekKernels()
	}
}

func setVekKernels() {
	kernelSqrt = sqrtVek
	sqrtKernelName = "vek32"
}

func sqrtVek(a []float32) {
	vek32.Sqrt_Inplace(a)
}
