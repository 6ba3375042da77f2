// Package testutil provides testing utilities for vecrow.
//
// This package is intended for use in tests and benchmarks only.
// It generates reproducible rows whose vectors survive a float32 round trip
// and whose metadata already has the shape JSON decoding produces, so
// written and read-back rows compare with assert.Equal.
//
//	rng := testutil.NewRNG(4711)
//	meta, vecs := rng.Rows(100, 8)
package testutil
