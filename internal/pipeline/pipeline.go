// Package pipeline coordinates one organizer run: validate the target
// directory, read capture metadata, classify and bucket files, rename them
// into place, and convert RAW buckets to DNG.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"darkroom/internal/classify"
	"darkroom/internal/config"
	"darkroom/internal/dng"
	"darkroom/internal/exif"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/project"
	"darkroom/internal/rename"
	"darkroom/internal/services"
)

// lockFileName is dotted so the run lock never shows up as a candidate file.
const lockFileName = ".darkroom.lock"

// Summary aggregates the outcome of one run.
type Summary struct {
	RunID            string
	Project          string
	FilesTotal       int
	Classified       int
	Skipped          int
	Renamed          int
	RenameFailed     int
	ConversionJobs   int
	Converted        int
	ConversionFailed int
	Elapsed          time.Duration
}

// Pipeline wires the run stages together. The metadata provider and
// converter are injected so tests can substitute stubs for the external
// binaries.
type Pipeline struct {
	cfg       *config.Config
	provider  exif.Provider
	converter dng.Converter
	store     *journal.Store
	logger    *slog.Logger
}

// New constructs a Pipeline. store may be nil, in which case no run history
// is recorded.
func New(cfg *config.Config, provider exif.Provider, converter dng.Converter, store *journal.Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		provider:  provider,
		converter: converter,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run processes dir end to end. Per-file failures degrade the run and are
// reported in the summary; only validation, metadata extraction, and the
// no-classifiable-files case abort it.
func (p *Pipeline) Run(ctx context.Context, dir string) (*Summary, error) {
	started := time.Now()

	proj, err := project.Parse(dir)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)

	lock := flock.New(filepath.Join(proj.Root, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "locking", "acquire run lock", proj.Root, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "locking", "acquire run lock",
			fmt.Sprintf("another run is already processing %s", proj.Root), nil)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	logger.Info("run started",
		logging.String("directory", proj.Root),
		logging.String("project", proj.Name),
		logging.String("fallback_date", proj.FallbackDate))

	summary := &Summary{RunID: runID, Project: proj.Name}

	candidates, err := listCandidates(proj.Root)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "scanning", "list directory", proj.Root, err)
	}
	summary.FilesTotal = len(candidates)
	if len(candidates) == 0 {
		logger.Info("no unprocessed files found")
		summary.Elapsed = time.Since(started)
		return summary, nil
	}

	records, err := p.extractMetadata(services.WithStage(ctx, "extracting"), proj.Root, candidates)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extracting", "read metadata", proj.Root, err)
	}

	buckets := p.classifyAll(services.WithStage(ctx, "classifying"), proj, candidates, records, summary)
	if buckets.Len() == 0 {
		return nil, services.Wrap(services.ErrNotFound, "classifying", "bucket files", "no classifiable files", nil)
	}

	p.renameAll(services.WithStage(ctx, "renaming"), proj, buckets, summary)
	p.convertAll(services.WithStage(ctx, "converting"), proj, buckets, summary)

	summary.Elapsed = time.Since(started)
	p.recordRun(ctx, proj, started, summary)

	logger.Info("run finished",
		logging.Int("files", summary.FilesTotal),
		logging.Int("renamed", summary.Renamed),
		logging.Int("converted", summary.Converted),
		logging.Int("failed", summary.RenameFailed+summary.ConversionFailed),
		logging.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// listCandidates returns the plain-file names in root eligible for
// processing, sorted for deterministic metadata batches.
func listCandidates(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if project.Excluded(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (p *Pipeline) extractMetadata(ctx context.Context, root string, files []string) ([]exif.Record, error) {
	if timeout := p.cfg.Metadata.TimeoutSeconds; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}
	return p.provider.Extract(ctx, root, files)
}

// classifyAll fans classification out across a bounded worker group and
// accumulates the results. Sequence numbers are assigned later, once every
// bucket has its final membership.
func (p *Pipeline) classifyAll(ctx context.Context, proj *project.Context, candidates []string, records []exif.Record, summary *Summary) *classify.Buckets {
	logger := logging.WithContext(ctx, p.logger)
	classifier := classify.New(classify.NewFileSet(candidates), proj.FallbackDate, logger)

	var (
		mu      sync.Mutex
		buckets = classify.NewBuckets()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.ClassifyWorkers)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			classified := classifier.Classify(rec)
			if classified == nil {
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				return nil
			}
			if err := p.verifyCandidate(gctx, proj.Root, classified.SourceFile); err != nil {
				logger.Warn("file dropped after retries",
					logging.String("source", classified.SourceFile),
					logging.Error(err),
					logging.Alert("file_dropped"))
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			buckets.Add(*classified)
			summary.Classified++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return buckets
}

// verifyCandidate confirms the file still exists before it is bucketed.
// Stat failures are retried with a short backoff; network mounts disappear
// and come back.
func (p *Pipeline) verifyCandidate(ctx context.Context, root, name string) error {
	attempts := 1 + p.cfg.Pipeline.ClassifyRetries
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if _, lastErr = os.Stat(filepath.Join(root, name)); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (p *Pipeline) renameAll(ctx context.Context, proj *project.Context, buckets *classify.Buckets, summary *Summary) {
	renamer := rename.New(proj.Root, proj.Name, p.logger)
	for _, key := range buckets.Keys() {
		records := buckets.Records(key)
		// Concurrent classification makes arrival order nondeterministic;
		// sorting by source name pins the sequence assignment.
		sort.Slice(records, func(i, j int) bool {
			return records[i].SourceFile < records[j].SourceFile
		})
		result, err := renamer.RenameBucket(ctx, key, records)
		if err != nil {
			logging.WithContext(ctx, p.logger).Error("bucket rename failed",
				logging.String(logging.FieldBucket, key),
				logging.Error(err))
			summary.RenameFailed += len(records)
			continue
		}
		summary.Renamed += result.Renamed
		summary.RenameFailed += result.Failed
	}
}

func (p *Pipeline) convertAll(ctx context.Context, proj *project.Context, buckets *classify.Buckets, summary *Summary) {
	jobs := dng.Jobs(proj.Root, buckets.RawKeys())
	summary.ConversionJobs = len(jobs)
	if len(jobs) == 0 || p.converter == nil {
		return
	}

	timeout := time.Duration(p.cfg.Conversion.TimeoutSeconds) * time.Second
	orch := dng.NewOrchestrator(p.converter, timeout, p.logger)
	result := orch.Run(ctx, jobs)
	summary.Converted = result.Converted
	summary.ConversionFailed = result.Failed
}

func (p *Pipeline) recordRun(ctx context.Context, proj *project.Context, started time.Time, summary *Summary) {
	if p.store == nil {
		return
	}

	status := journal.StatusCompleted
	if summary.RenameFailed > 0 || summary.ConversionFailed > 0 {
		status = journal.StatusPartial
	}
	run := journal.Run{
		ID:         summary.RunID,
		Directory:  proj.Root,
		Project:    proj.Name,
		StartedAt:  started,
		FinishedAt: time.Now(),
		FilesTotal: summary.FilesTotal,
		Renamed:    summary.Renamed,
		Converted:  summary.Converted,
		Failed:     summary.RenameFailed + summary.ConversionFailed,
		Status:     status,
	}
	if err := p.store.RecordRun(ctx, run); err != nil {
		logging.WithContext(ctx, p.logger).Warn("record run in journal failed", logging.Error(err))
	}
}
