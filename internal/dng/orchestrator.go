package dng

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"darkroom/internal/classify"
	"darkroom/internal/logging"
)

// Job is one paired (RAW source directory, DNG destination directory)
// conversion unit.
type Job struct {
	SourceDir string
	DestDir   string
}

// Orchestrator runs conversion jobs for the RAW buckets of one run and
// cleans up originals afterwards.
//
// Jobs run strictly one at a time: the external converter misbehaves under
// concurrent invocation, so serialization here is a load-bearing constraint,
// not an optimization target.
type Orchestrator struct {
	converter Converter
	timeout   time.Duration
	logger    *slog.Logger
}

// NewOrchestrator constructs an Orchestrator. timeout bounds each individual
// conversion job; zero disables the bound.
func NewOrchestrator(converter Converter, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		converter: converter,
		timeout:   timeout,
		logger:    logging.NewComponentLogger(logger, "converter"),
	}
}

// Jobs derives the conversion job list from RAW bucket keys under root.
// Buckets whose key already carries the DNG extension are skipped; they are
// converted output re-encountered on a second run.
func Jobs(root string, rawKeys []string) []Job {
	jobs := make([]Job, 0, len(rawKeys))
	for _, key := range rawKeys {
		ext := classify.KeyExt(key)
		if ext == classify.DNGExt {
			continue
		}
		destKey := strings.TrimSuffix(key, ext) + classify.DNGExt
		jobs = append(jobs, Job{
			SourceDir: filepath.Join(root, key),
			DestDir:   filepath.Join(root, destKey),
		})
	}
	return jobs
}

// Result summarizes the conversion stage of one run.
type Result struct {
	Jobs      int
	Converted int
	Failed    int
}

// Run converts every job sequentially, then cleans up originals. Individual
// conversion failures are logged, never raised; cleanup only ever deletes
// RAW files whose DNG counterpart verifiably exists.
func (o *Orchestrator) Run(ctx context.Context, jobs []Job) Result {
	result := Result{Jobs: len(jobs)}
	for _, job := range jobs {
		if err := o.convertOne(ctx, job); err != nil {
			result.Failed++
			o.logger.Error("conversion failed, originals preserved",
				logging.String("source", job.SourceDir),
				logging.String("dest", job.DestDir),
				logging.Error(err))
			continue
		}
		result.Converted++
	}

	for _, job := range jobs {
		o.cleanup(job)
	}
	return result
}

func (o *Orchestrator) convertOne(ctx context.Context, job Job) error {
	o.logger.Info("converting RAW directory",
		logging.String("source", job.SourceDir),
		logging.String("dest", job.DestDir))

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.converter.Convert(ctx, job.SourceDir, job.DestDir)
}

// cleanup deletes originals for one job. If every RAW stem has a DNG
// counterpart the whole RAW directory goes; on a partial match only the
// matched RAW files are removed so unconverted originals survive.
func (o *Orchestrator) cleanup(job Job) {
	rawStems, rawNames, err := listStems(job.SourceDir)
	if err != nil {
		o.logger.Warn("cannot inspect RAW directory, skipping cleanup",
			logging.String("source", job.SourceDir),
			logging.Error(err))
		return
	}
	dngStems, _, err := listStems(job.DestDir)
	if err != nil {
		o.logger.Warn("cannot inspect DNG directory, skipping cleanup",
			logging.String("dest", job.DestDir),
			logging.Error(err))
		return
	}

	allConverted := true
	for stem := range rawStems {
		if _, ok := dngStems[stem]; !ok {
			allConverted = false
			break
		}
	}

	if allConverted {
		o.logger.Info("all files converted, deleting RAW directory",
			logging.String("source", job.SourceDir))
		if err := os.RemoveAll(job.SourceDir); err != nil {
			o.logger.Error("delete RAW directory failed",
				logging.String("source", job.SourceDir),
				logging.Error(err))
		}
		return
	}

	for _, name := range rawNames {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if _, ok := dngStems[stem]; !ok {
			continue
		}
		path := filepath.Join(job.SourceDir, name)
		if err := os.Remove(path); err != nil {
			o.logger.Error("delete converted RAW file failed",
				logging.String("path", path),
				logging.Error(err))
			continue
		}
		o.logger.Debug("deleted converted RAW file", logging.String("path", path))
	}
	o.logger.Warn("conversion incomplete, unconverted RAW files kept",
		logging.String("source", job.SourceDir),
		logging.Alert("partial_conversion"))
}

func listStems(dir string) (map[string]struct{}, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	stems := make(map[string]struct{}, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		names = append(names, name)
		stems[strings.TrimSuffix(name, filepath.Ext(name))] = struct{}{}
	}
	return stems, names, nil
}
