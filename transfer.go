package vecrow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecrow/blobstore"
	"github.com/hupe1980/vecrow/resource"
)

const (
	directionUpload   = "upload"
	directionDownload = "download"

	partSuffix = ".part"
	prevSuffix = ".prev"
)

// Upload publishes the dataset at base to store as the blobs
// "<name>.meta" and "<name>.bin".
//
// The local dataset is checked with Stat first, so a dataset with a bad
// header or a torn binary stream is never published. Both streams are copied
// concurrently. If either copy fails, both blobs are deleted, so a failed
// Upload leaves nothing under name, including any earlier version.
func Upload(ctx context.Context, store blobstore.BlobStore, base, name string, optFns ...Option) error {
	o := applyOptions(optFns)
	log := o.logger.WithDataset(base)

	start := time.Now()
	n, err := upload(ctx, store, base, name, o)
	o.metrics.RecordTransfer(directionUpload, n, time.Since(start), err)
	log.LogTransfer(ctx, directionUpload, name, n, err)
	return err
}

func upload(ctx context.Context, store blobstore.BlobStore, base, name string, o options) (int64, error) {
	if _, err := Stat(base, withOptions(o)); err != nil {
		return 0, err
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, ext := range []string{MetaExt, BinExt} {
		g.Go(func() error {
			n, err := uploadStream(gctx, store, base+ext, name+ext, o)
			total.Add(n)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		// The other stream may already be committed.
		cleanup := context.WithoutCancel(ctx)
		errs := []error{err}
		for _, ext := range []string{MetaExt, BinExt} {
			if derr := store.Delete(cleanup, name+ext); derr != nil {
				errs = append(errs, fmt.Errorf("%w: delete blob %s: %w", ErrIO, name+ext, derr))
			}
		}
		return total.Load(), errors.Join(errs...)
	}
	return total.Load(), nil
}

func uploadStream(ctx context.Context, store blobstore.BlobStore, path, blobName string, o options) (int64, error) {
	if err := o.resources.AcquireTransfer(ctx); err != nil {
		return 0, err
	}
	defer o.resources.ReleaseTransfer()

	f, err := o.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return 0, ioError("open", path, err)
	}
	defer f.Close()

	wb, err := store.Create(ctx, blobName)
	if err != nil {
		return 0, fmt.Errorf("%w: create blob %s: %w", ErrIO, blobName, err)
	}

	n, err := io.Copy(wb, resource.NewRateLimitedReader(ctx, f, o.resources))
	if err != nil {
		_ = wb.Abort()
		return n, fmt.Errorf("%w: upload %s: %w", ErrIO, blobName, err)
	}
	if err := wb.Close(); err != nil {
		return n, fmt.Errorf("%w: commit blob %s: %w", ErrIO, blobName, err)
	}
	return n, nil
}

// Download fetches the blobs "<name>.meta" and "<name>.bin" from store into
// the dataset at base.
//
// Both streams are fetched concurrently into temporary files next to the
// targets, renamed into place once both are complete, and then checked with
// Stat. A missing blob fails with ErrNotFound and leaves base untouched. If
// the second rename fails, the previous metadata stream is restored.
func Download(ctx context.Context, store blobstore.BlobStore, name, base string, optFns ...Option) error {
	o := applyOptions(optFns)
	log := o.logger.WithDataset(base)

	start := time.Now()
	n, err := download(ctx, store, name, base, o)
	o.metrics.RecordTransfer(directionDownload, n, time.Since(start), err)
	log.LogTransfer(ctx, directionDownload, name, n, err)
	return err
}

func download(ctx context.Context, store blobstore.BlobStore, name, base string, o options) (int64, error) {
	if dir := filepath.Dir(base); dir != "." {
		if err := o.fs.MkdirAll(dir, 0o755); err != nil {
			return 0, ioError("mkdir", dir, err)
		}
	}

	exts := []string{MetaExt, BinExt}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, ext := range exts {
		g.Go(func() error {
			n, err := downloadStream(gctx, store, name+ext, base+ext+partSuffix, o)
			total.Add(n)
			return err
		})
	}
	err := g.Wait()
	if err == nil {
		err = install(o, base)
	}
	if err != nil {
		for _, ext := range exts {
			_ = o.fs.Remove(base + ext + partSuffix)
		}
		return total.Load(), err
	}

	if _, err := Stat(base, withOptions(o)); err != nil {
		return total.Load(), err
	}
	return total.Load(), nil
}

func downloadStream(ctx context.Context, store blobstore.BlobStore, blobName, path string, o options) (n int64, err error) {
	if err := o.resources.AcquireTransfer(ctx); err != nil {
		return 0, err
	}
	defer o.resources.ReleaseTransfer()

	blob, err := store.Open(ctx, blobName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return 0, fmt.Errorf("%w: blob %s: %w", ErrNotFound, blobName, err)
		}
		return 0, fmt.Errorf("%w: open blob %s: %w", ErrIO, blobName, err)
	}
	defer blob.Close()

	f, err := o.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, ioError("open", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = ioError("close", path, cerr)
		}
	}()

	if size := blob.Size(); size > 0 {
		rc, err := blob.ReadRange(ctx, 0, size)
		if err != nil {
			return 0, fmt.Errorf("%w: read blob %s: %w", ErrIO, blobName, err)
		}
		defer rc.Close()

		n, err = io.Copy(resource.NewRateLimitedWriter(ctx, f, o.resources), rc)
		if err != nil {
			return n, fmt.Errorf("%w: download %s: %w", ErrIO, blobName, err)
		}
		if n != size {
			return n, fmt.Errorf("%w: download %s: got %d of %d bytes", ErrIO, blobName, n, size)
		}
	}

	if err := f.Sync(); err != nil {
		return n, ioError("sync", path, err)
	}
	return n, nil
}

// install renames both part files into place. The existing metadata stream
// is moved aside first so it can be put back if the binary rename fails.
func install(o options, base string) error {
	metaPath, binPath := MetaPath(base), BinPath(base)
	prev := metaPath + prevSuffix

	hadMeta := true
	if err := o.fs.Rename(metaPath, prev); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return ioError("rename", metaPath, err)
		}
		hadMeta = false
	}

	if err := o.fs.Rename(metaPath+partSuffix, metaPath); err != nil {
		err = ioError("rename", metaPath, err)
		if hadMeta {
			err = errors.Join(err, restore(o, prev, metaPath))
		}
		return err
	}

	if err := o.fs.Rename(binPath+partSuffix, binPath); err != nil {
		err = ioError("rename", binPath, err)
		if hadMeta {
			err = errors.Join(err, restore(o, prev, metaPath))
		} else {
			_ = o.fs.Remove(metaPath)
		}
		return err
	}

	if hadMeta {
		if err := o.fs.Remove(prev); err != nil {
			return ioError("remove", prev, err)
		}
	}
	return nil
}

func restore(o options, prev, path string) error {
	if err := o.fs.Rename(prev, path); err != nil {
		return ioError("restore", path, err)
	}
	return nil
}

// withOptions carries already-applied options into a nested call.
func withOptions(src options) Option {
	return func(o *options) { *o = src }
}
