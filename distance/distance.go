package distance

import (
	"fmt"

	"github.com/hupe1980/knn/internal/simd"
)

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	return simd.SquaredL2(a, b)
}

// Euclidean calculates the L2 distance between two vectors.
func Euclidean(a, b []float32) float32 {
	return simd.Sqrt(simd.SquaredL2(a, b))
}

// Metric names the distance reported in results.
type Metric int

const (
	// MetricL2 is the Euclidean distance. Searches rank by its square and
	// report the root.
	MetricL2 Metric = iota
	// MetricSquaredL2 is the squared Euclidean distance.
	MetricSquaredL2
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricSquaredL2:
		return "SquaredL2"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return Euclidean, nil
	case MetricSquaredL2:
		return SquaredL2, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
