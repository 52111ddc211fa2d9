package config

const (
	defaultLogDir            = "~/.local/share/darkroom/logs"
	defaultJournalDir        = "~/.local/share/darkroom"
	defaultExiftoolBinary    = "exiftool"
	defaultMetadataTimeout   = 120
	defaultDNGLabBinary      = "dnglab"
	defaultCompression       = "lossless"
	defaultConversionTimeout = 600
	defaultClassifyWorkers   = 8
	defaultClassifyRetries   = 2
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:     defaultLogDir,
			JournalDir: defaultJournalDir,
		},
		Metadata: Metadata{
			ExiftoolBinary: defaultExiftoolBinary,
			TimeoutSeconds: defaultMetadataTimeout,
		},
		Conversion: Conversion{
			DNGLabBinary:   defaultDNGLabBinary,
			Compression:    defaultCompression,
			TimeoutSeconds: defaultConversionTimeout,
		},
		Pipeline: Pipeline{
			ClassifyWorkers: defaultClassifyWorkers,
			ClassifyRetries: defaultClassifyRetries,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
