package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
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

// UniformVectors generates random vectors with values in range [-1, 1).
// Every value is exactly representable as a float32.
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dimensions)
	vectors := make([][]float64, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = float64(r.rand.Float32()*2 - 1)
		}
		vectors[i] = vec
	}

	return vectors
}

// GaussianVectors generates standard normal vectors at full float64
// precision. They only round-trip exactly through 8-byte datasets.
func (r *RNG) GaussianVectors(num int, dimensions int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float64, num)
	for i := range vectors {
		vec := make([]float64, dimensions)
		for j := range vec {
			vec[j] = r.rand.NormFloat64()
		}
		vectors[i] = vec
	}
	return vectors
}

// Metadata generates one metadata object per row in decoded JSON form:
// numbers are float64 and objects are map[string]any.
func (r *RNG) Metadata(num int) []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta := make([]any, num)
	for i := range meta {
		meta[i] = map[string]any{
			"id":    float64(i),
			"text":  fmt.Sprintf("doc-%d", r.rand.Intn(math.MaxInt32)),
			"score": float64(r.rand.Intn(1000)) / 4,
			"tags":  []any{"a", "b"},
		}
	}
	return meta
}

// Rows returns num metadata values and num vectors of the given dimension.
func (r *RNG) Rows(num, dimensions int) ([]any, [][]float64) {
	return r.Metadata(num), r.UniformVectors(num, dimensions)
}

// SequenceVector returns a vector whose elements are start, start+1, ...
// Handy for spotting misaligned rows in failure output.
func SequenceVector(start float64, dimensions int) []float64 {
	vec := make([]float64, dimensions)
	for i := range vec {
		vec[i] = start + float64(i)
	}
	return vec
}
