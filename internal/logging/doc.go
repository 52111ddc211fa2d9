// Package logging centralizes slog logger construction for darkroom.
//
// It builds console or JSON handlers from configuration, standardizes field
// names (component, run_id, stage, bucket), and provides context-aware
// helpers so pipeline stages emit uniformly tagged records. Loggers are
// always passed explicitly through constructors; there is no package-level
// default logger.
package logging
