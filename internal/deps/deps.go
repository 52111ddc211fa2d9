// Package deps reports the availability of the external binaries darkroom
// shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"darkroom/internal/config"
)

// Requirement defines an external dependency darkroom relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the binaries a pipeline run depends on, honoring
// configured binary overrides.
func Requirements(cfg *config.Config) []Requirement {
	exiftool := "exiftool"
	dnglab := "dnglab"
	if cfg != nil {
		exiftool = cfg.Metadata.ExiftoolBinary
		dnglab = cfg.Conversion.DNGLabBinary
	}
	return []Requirement{
		{
			Name:        "ExifTool",
			Command:     exiftool,
			Description: "batch EXIF metadata extraction",
		},
		{
			Name:        "DNGLab",
			Command:     dnglab,
			Description: "RAW to DNG conversion",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
