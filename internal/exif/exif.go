// Package exif defines the metadata provider boundary and its exiftool
// implementation.
//
// Metadata is read in one batch call per run: exiftool receives every
// candidate file and returns one JSON record per file it could read.
// Records are correlated by SourceFile, never by position; the provider may
// return fewer records than files requested.
package exif

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
)

var commandContext = exec.CommandContext

// Tags darkroom requests from exiftool for every file.
var Tags = []string{"EXIF:CreateDate", "EXIF:Make", "EXIF:Model"}

// Record is one file's extracted metadata. Pointer fields distinguish a tag
// that is absent (nil) from one present with an empty value.
type Record struct {
	SourceFile string  `json:"SourceFile"`
	CreateDate *string `json:"EXIF:CreateDate"`
	Make       *string `json:"EXIF:Make"`
	Model      *string `json:"EXIF:Model"`
}

// Provider supplies capture metadata for a batch of files.
type Provider interface {
	Extract(ctx context.Context, dir string, files []string) ([]Record, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the exiftool command-line metadata reader.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "exiftool"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Extract runs one batch exiftool invocation over files, relative to dir.
// SourceFile in each returned record is the name passed in, so callers can
// correlate records back to the candidate list.
func (c *CLI) Extract(ctx context.Context, dir string, files []string) ([]Record, error) {
	if len(files) == 0 {
		return nil, nil
	}

	args := make([]string, 0, len(Tags)+2+len(files))
	args = append(args, "-json", "-G")
	for _, tag := range Tags {
		args = append(args, "-"+tag)
	}
	args = append(args, files...)

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	// exiftool exits non-zero when any single file fails but still emits
	// records for the rest; trust the JSON whenever it is present.
	if stdout.Len() == 0 {
		if runErr != nil {
			return nil, fmt.Errorf("exiftool: %w: %s", runErr, bytes.TrimSpace(stderr.Bytes()))
		}
		return nil, errors.New("exiftool: empty output")
	}

	var records []Record
	if err := json.Unmarshal(stdout.Bytes(), &records); err != nil {
		return nil, fmt.Errorf("exiftool: decode output: %w", err)
	}
	return records, nil
}

var _ Provider = (*CLI)(nil)
