package vecrow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Export writes a complete dataset to base in one call, replacing any
// existing files.
//
// metadata and vectors are paired by position; differing lengths fail with
// ErrRowCountMismatch before anything is written. The dimension is taken from
// the first vector, or from WithDimension when there are no rows. A progress
// notice is logged every WithProgressInterval rows.
func Export(base string, metadata []any, vectors [][]float64, optFns ...Option) (err error) {
	if len(metadata) != len(vectors) {
		return &ErrRowCountMismatch{Metadata: len(metadata), Vectors: len(vectors)}
	}

	o := applyOptions(optFns)
	if len(vectors) > 0 {
		if o.dimension == 0 {
			optFns = append(optFns[:len(optFns):len(optFns)], WithDimension(len(vectors[0])))
		}
	} else if o.dimension <= 0 {
		return formatError(MetaPath(base), "cannot infer the dimension of an empty dataset, use WithDimension")
	}

	w, err := Create(base, optFns...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()

	ctx := context.Background()
	log := o.logger.WithDataset(base)
	start, last := time.Now(), time.Now()

	for i, m := range metadata {
		if err := w.Write(m, vectors[i]); err != nil {
			return fmt.Errorf("export row %d: %w", i, err)
		}
		if rows := i + 1; o.progressInterval > 0 && rows%o.progressInterval == 0 {
			log.LogExportProgress(ctx, rows, time.Since(last))
			o.metrics.RecordExportProgress(rows, time.Since(start))
			last = time.Now()
		}
	}
	o.metrics.RecordExportProgress(len(metadata), time.Since(start))
	return nil
}
