// Package dng drives RAW to DNG conversion through the external dnglab
// binary and owns the post-conversion cleanup of original RAW files.
package dng

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

var commandContext = exec.CommandContext

// Converter converts every RAW file in sourceDir into destDir.
type Converter interface {
	Convert(ctx context.Context, sourceDir, destDir string) error
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

// WithCompression selects the DNG compression method (lossless or
// uncompressed).
func WithCompression(compression string) Option {
	return func(c *CLI) {
		if compression != "" {
			c.compression = compression
		}
	}
}

// WithEmbeddedPreview embeds a JPEG preview in converted files.
func WithEmbeddedPreview(embed bool) Option {
	return func(c *CLI) {
		c.embedPreview = embed
	}
}

// CLI wraps the dnglab command-line converter.
type CLI struct {
	binary       string
	compression  string
	embedPreview bool
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "dnglab", compression: "lossless"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Convert launches dnglab convert over sourceDir, writing DNG files into
// destDir. destDir is created if missing.
func (c *CLI) Convert(ctx context.Context, sourceDir, destDir string) error {
	if sourceDir == "" {
		return errors.New("source directory required")
	}
	if destDir == "" {
		return errors.New("destination directory required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	args := []string{"convert", "--recursive", "--compression", c.compression}
	if c.embedPreview {
		args = append(args, "--embed-preview", "true")
	}
	args = append(args, sourceDir, destDir)

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("dnglab convert: %w", ctx.Err())
		}
		return fmt.Errorf("dnglab convert failed: %w: %s", err, bytes.TrimSpace(output.Bytes()))
	}
	return nil
}

var _ Converter = (*CLI)(nil)
