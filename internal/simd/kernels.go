package simd

import "github.com/chewxy/math32"

// Kernel function pointers - set once at init.
// Generic implementations are the default; platform-specific init()
// functions override element-wise kernels when SIMD is available.
var (
	kernelSquaredL2   = squaredL2Generic
	kernelSquaredDiff = squaredDiffGeneric
	kernelSqrt        = sqrtGeneric

	sqrtKernelName = "generic"
)

// SquaredL2 calculates the squared L2 distance of two contiguous vectors.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func SquaredL2(a, b []float32) float32 {
	return kernelSquaredL2(a, b)
}

// AccumulateSquaredDiff adds (b-a[i])² to acc[i] for every i. It is the
// inner step of a tile row: one reference value b against a run of query
// values a.
//
// SAFETY: Assumes len(acc) == len(a). Caller MUST ensure lengths match.
func AccumulateSquaredDiff(acc, a []float32, b float32) {
	kernelSquaredDiff(acc, a, b)
}

// Sqrt returns the correctly rounded square root of x.
func Sqrt(x float32) float32 {
	return math32.Sqrt(x)
}

// SqrtInPlace replaces every element of a with its square root.
func SqrtInPlace(a []float32) {
	kernelSqrt(a)
}

func squaredL2Generic(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		// float32() forbids FMA fusion so every ISA rounds identically.
		sum += float32(diff * diff)
	}
	return sum
}

func squaredDiffGeneric(acc, a []float32, b float32) {
	for i, v := range a {
		diff := b - v
		acc[i] += float32(diff * diff)
	}
}

func sqrtGeneric(a []float32) {
	for i, v := range a {
		a[i] = math32.Sqrt(v)
	}
}
