package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateConversion() error {
	switch c.Conversion.Compression {
	case "lossless", "uncompressed":
	default:
		return fmt.Errorf("conversion.compression must be %q or %q, got %q", "lossless", "uncompressed", c.Conversion.Compression)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errors.New("logging.format must be console or json")
	}
	return nil
}
