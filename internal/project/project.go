// Package project models the on-disk directory naming contract.
//
// A target directory must be named YYYYMMDD_<project> or
// YYYYMMDD-YYYYMMDD_<project>. The leading date (the range start for the
// two-date form) becomes the fallback timestamp for files whose capture
// date cannot be read.
package project

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"darkroom/internal/services"
)

const dateLayout = "20060102"

var (
	dirNamePattern = regexp.MustCompile(`^(\d{8})(?:-(\d{8}))?_([\w-]+)$`)

	// Hidden files, thumbnail caches, and OS metadata are never candidates.
	excludePattern = regexp.MustCompile(`^(\.|Thumbs\.db|Adobe Bridge Cache|Desktop\.ini|desktop\.ini)`)
)

// Context captures the validated identity of one processing run. It is
// derived once from the directory base name and immutable afterwards.
type Context struct {
	Root         string
	Name         string
	FallbackDate string
	IsDateRange  bool
}

// Parse validates dir's base name against the naming contract and derives
// the run context. It fails with a validation error before any file I/O.
func Parse(dir string) (*Context, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "validating", "resolve directory", dir, err)
	}
	base := filepath.Base(abs)

	m := dirNamePattern.FindStringSubmatch(base)
	if m == nil {
		return nil, services.Wrap(
			services.ErrValidation,
			"validating",
			"parse directory name",
			fmt.Sprintf("%q must match YYYYMMDD_<project> or YYYYMMDD-YYYYMMDD_<project>", base),
			nil,
		)
	}

	start, end, name := m[1], m[2], m[3]
	startDate, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "validating", "parse start date", start, err)
	}
	isRange := end != ""
	if isRange {
		endDate, err := time.Parse(dateLayout, end)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "validating", "parse end date", end, err)
		}
		if endDate.Before(startDate) {
			return nil, services.Wrap(
				services.ErrValidation,
				"validating",
				"check date range",
				fmt.Sprintf("start %s is after end %s", start, end),
				nil,
			)
		}
	}

	return &Context{
		Root:         abs,
		Name:         name,
		FallbackDate: start,
		IsDateRange:  isRange,
	}, nil
}

// Excluded reports whether a directory entry is a system file that must not
// enter the pipeline.
func Excluded(name string) bool {
	return excludePattern.MatchString(name)
}
