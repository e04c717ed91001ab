// Package simd provides the float32 kernels used by the search pipeline.
//
// # Supported Platforms
//
//   - x86-64: AVX-512, AVX2 (element-wise kernels via vek32)
//   - ARM64: NEON, SVE2 (detected, generic kernels)
//
// Runtime CPU feature detection selects the implementation. Set KNN_SIMD to
// force a specific ISA ("generic" disables SIMD entirely).
//
// # Operations
//
//   - Distance: SquaredL2, AccumulateSquaredDiff
//   - Element-wise: SqrtInPlace
//
// Accumulations (SquaredL2, AccumulateSquaredDiff) always run in index
// order with every product rounded to float32 before it is added, so results
// are identical on every ISA. Only SqrtInPlace is vectorised.
package simd
