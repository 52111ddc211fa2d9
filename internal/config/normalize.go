package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMetadata()
	c.normalizeConversion()
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.JournalDir, err = ExpandPath(c.Paths.JournalDir); err != nil {
		return fmt.Errorf("paths.journal_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMetadata() {
	c.Metadata.ExiftoolBinary = strings.TrimSpace(c.Metadata.ExiftoolBinary)
	if c.Metadata.ExiftoolBinary == "" {
		c.Metadata.ExiftoolBinary = defaultExiftoolBinary
	}
	if c.Metadata.TimeoutSeconds < 0 {
		c.Metadata.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeConversion() {
	c.Conversion.DNGLabBinary = strings.TrimSpace(c.Conversion.DNGLabBinary)
	if c.Conversion.DNGLabBinary == "" {
		c.Conversion.DNGLabBinary = defaultDNGLabBinary
	}
	c.Conversion.Compression = strings.ToLower(strings.TrimSpace(c.Conversion.Compression))
	if c.Conversion.Compression == "" {
		c.Conversion.Compression = defaultCompression
	}
	if c.Conversion.TimeoutSeconds < 0 {
		c.Conversion.TimeoutSeconds = 0
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.ClassifyWorkers <= 0 {
		c.Pipeline.ClassifyWorkers = defaultClassifyWorkers
	}
	if c.Pipeline.ClassifyRetries < 0 {
		c.Pipeline.ClassifyRetries = defaultClassifyRetries
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
