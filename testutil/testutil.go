package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/knn/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
func (r *RNG) FillUniformRange(dst []float32, minVal, maxVal float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float32()*span
	}
}

// UniformPointSet generates width points with values in range [0, 1).
// Values are drawn in storage order, dimension-major.
func (r *RNG) UniformPointSet(width, dim int) model.PointSet {
	data := make([]float32, width*dim)
	r.FillUniform(data)
	return model.NewPointSet(data, width, dim)
}

// UniformVectors generates random point-major vectors with values in
// range [0, 1). Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}

	return vectors
}

// ClusteredPointSet generates points scattered with Gaussian noise around
// clusters random centroids in [0, 1)^dim. Points are assigned to
// centroids round-robin.
func (r *RNG) ClusteredPointSet(width, dim, clusters int, spread float32) model.PointSet {
	centroids := r.UniformVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, width*dim)
	for p := range width {
		centroid := centroids[p%clusters]
		for d := range dim {
			data[d*width+p] = centroid[d] + float32(r.rand.NormFloat64())*spread
		}
	}
	return model.NewPointSet(data, width, dim)
}

// GridPointSet places points on an integer lattice, side values per axis,
// so that many reference points are exactly equidistant from a query.
// It returns min(width, side^dim) points.
func GridPointSet(width, dim, side int) model.PointSet {
	rows := make([][]float32, 0, width)
	coord := make([]int, dim)
	for len(rows) < width {
		row := make([]float32, dim)
		for d, c := range coord {
			row[d] = float32(c)
		}
		rows = append(rows, row)

		d := 0
		for ; d < dim; d++ {
			coord[d]++
			if coord[d] < side {
				break
			}
			coord[d] = 0
		}
		if d == dim {
			break
		}
	}
	return model.FromRows(rows)
}

// BruteForceSearch performs exact search for ground truth, accumulating in
// float64. Equal distances keep ascending index order.
func BruteForceSearch(ref model.PointSet, query []float32, k int) []model.Neighbor {
	type result struct {
		index int32
		dist  float64
	}

	results := make([]result, ref.Width)
	for p := range ref.Width {
		var sum float64
		for d, qv := range query {
			diff := float64(ref.At(d, p)) - float64(qv)
			sum += diff * diff
		}
		results[p] = result{index: int32(p), dist: sum}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].dist < results[j].dist
	})

	if len(results) > k {
		results = results[:k]
	}

	out := make([]model.Neighbor, len(results))
	for i, r := range results {
		out[i] = model.Neighbor{Index: r.index, Distance: float32(math.Sqrt(r.dist))}
	}
	return out
}

// ComputeRecall computes recall@k by comparing approximate results against ground truth.
func ComputeRecall(groundTruth, approximate []model.Neighbor) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truthSet := make(map[int32]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].Index] = struct{}{}
	}

	hits := 0
	for _, r := range approximate[:k] {
		if _, ok := truthSet[r.Index]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}
