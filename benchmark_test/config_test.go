package benchmark_test

// Standard dimensions used across benchmarks.
const (
	dimSmall  = 128  // Fast CI benchmarks
	dimMedium = 768  // OpenAI text-embedding-3-small, Cohere v3
	dimLarge  = 1536 // OpenAI text-embedding-3-large
)

// Standard dataset sizes.
const (
	sizeSmall  = 1_000
	sizeMedium = 10_000
)

var dims = []struct {
	name string
	dim  int
}{
	{"128", dimSmall},
	{"768", dimMedium},
	{"1536", dimLarge},
}
