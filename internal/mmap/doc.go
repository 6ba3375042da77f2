// Package mmap maps dataset files read-only into memory.
//
// LocalStore serves blob reads from a Mapping, so ranged reads of a large
// binary stream copy straight out of the page cache:
//
//	m, err := mmap.Open("embeddings.bin")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	row, err := m.Slice(offset, rowBytes)
//
// On Unix the mapping uses mmap(2) and madvise(2); on Windows it uses
// CreateFileMapping and MapViewOfFile, and Advise is a no-op.
//
// A Mapping is safe for concurrent reads. Close is idempotent, but slices
// returned by Bytes or Slice must not be used after it.
package mmap
