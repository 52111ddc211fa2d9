// Package rename moves classified files into their bucket directories under
// deterministic sequential names.
//
// Numbering is assigned only after a bucket is fully accumulated: the
// classification stage's arrival order is not reproducible across runs, so
// sequence numbers cannot be handed out while records are still in flight.
// Within one bucket the actual rename syscalls touch disjoint paths and run
// concurrently.
package rename

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"darkroom/internal/classify"
	"darkroom/internal/fileutil"
	"darkroom/internal/logging"
)

// Result reports the outcome of renaming one bucket.
type Result struct {
	Renamed int
	Failed  int
}

// Renamer performs per-bucket sequential renames.
type Renamer struct {
	root        string
	projectName string
	logger      *slog.Logger
}

// New constructs a Renamer for one run. root is the validated target
// directory; projectName comes from its base name.
func New(root, projectName string, logger *slog.Logger) *Renamer {
	return &Renamer{
		root:        root,
		projectName: projectName,
		logger:      logging.NewComponentLogger(logger, "renamer"),
	}
}

// NewName builds the destination file name for one record and its 1-based
// sequence number. All names are lowercase.
func (r *Renamer) NewName(rec classify.Record, seq int) string {
	return strings.ToLower(fmt.Sprintf("%s_%s_%03d.%s", rec.Timestamp, r.projectName, seq, rec.Ext))
}

// RenameBucket creates the bucket directory and renames every record into
// it. records must be the bucket's final contents; sequence numbers are
// 1..len(records) in slice order. Individual rename failures are logged and
// leave the file at its original path.
func (r *Renamer) RenameBucket(ctx context.Context, key string, records []classify.Record) (Result, error) {
	if len(records) == 0 {
		return Result{}, nil
	}

	destDir := filepath.Join(r.root, key)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create bucket directory %s: %w", destDir, err)
	}

	var failed atomic.Int64
	g, _ := errgroup.WithContext(ctx)
	for i, rec := range records {
		seq := i + 1
		rec := rec
		g.Go(func() error {
			oldPath := filepath.Join(r.root, rec.SourceFile)
			newPath := filepath.Join(destDir, r.NewName(rec, seq))
			if err := fileutil.MoveFile(oldPath, newPath); err != nil {
				failed.Add(1)
				r.logger.Error("rename failed, file left in place",
					logging.String("source", rec.SourceFile),
					logging.String(logging.FieldBucket, key),
					logging.Error(err))
				return nil
			}
			r.logger.Debug("renamed file",
				logging.String("source", rec.SourceFile),
				logging.String("target", newPath))
			return nil
		})
	}
	_ = g.Wait()

	result := Result{
		Renamed: len(records) - int(failed.Load()),
		Failed:  int(failed.Load()),
	}
	r.logger.Info("bucket renamed",
		logging.String(logging.FieldBucket, key),
		logging.Int("renamed", result.Renamed),
		logging.Int("failed", result.Failed))
	return result, nil
}
