// Package fs provides the filesystem seam used by dataset readers and writers.
//
//   - [File]: an open stream with read/write/seek/sync/stat
//   - [FileSystem]: open, stat, rename, remove, truncate
//   - [LocalFS]: the os-backed implementation ([Default])
//   - [FaultyFS]: a wrapper that injects write, sync, close and open failures
//     and counts open handles, so tests can assert that every error path
//     releases what it acquired.
//
// Operations take no context.Context: local file calls are not interruptible
// at the syscall level. Remote storage goes through package blobstore instead.
package fs
