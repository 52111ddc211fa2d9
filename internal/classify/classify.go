// Package classify assigns every candidate file to a semantic bucket.
//
// Classification is a pure function of one metadata record plus the full
// candidate file set: extension tables decide the bucket family, a same-stem
// RAW sibling promotes a jpg to thumbnail, and the normalized camera
// make/model/extension triple becomes the destination directory key. The
// result is deterministic regardless of the order records arrive in.
package classify

import (
	"log/slog"
	"path"
	"strings"
	"time"

	"darkroom/internal/exif"
	"darkroom/internal/logging"
)

// Kind is the semantic bucket family of a classified file.
type Kind int

const (
	KindRawImage Kind = iota
	KindThumbnail
	KindCompressedImage
	KindCompressedVideo
)

func (k Kind) String() string {
	switch k {
	case KindRawImage:
		return "raw_image"
	case KindThumbnail:
		return "thumbnail"
	case KindCompressedImage:
		return "compressed_image"
	case KindCompressedVideo:
		return "compressed_video"
	default:
		return "unknown"
	}
}

// Record is one classified file with its normalized metadata.
type Record struct {
	Kind       Kind
	DirKey     string
	SourceFile string
	Ext        string
	Timestamp  string
	Make       string
	Model      string
}

// FileSet is the lowercase view of every candidate file name in the run,
// used for thumbnail promotion lookups.
type FileSet map[string]struct{}

// NewFileSet builds a FileSet from directory entry names.
func NewFileSet(names []string) FileSet {
	set := make(FileSet, len(names))
	for _, name := range names {
		set[strings.ToLower(name)] = struct{}{}
	}
	return set
}

func (s FileSet) contains(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

// Classifier maps metadata records onto buckets for one run.
type Classifier struct {
	files        FileSet
	fallbackDate string
	logger       *slog.Logger
}

// New constructs a Classifier over the run's candidate file set. Files whose
// capture date cannot be read are stamped with fallbackDate.
func New(files FileSet, fallbackDate string, logger *slog.Logger) *Classifier {
	return &Classifier{
		files:        files,
		fallbackDate: fallbackDate,
		logger:       logging.NewComponentLogger(logger, "classifier"),
	}
}

// Classify maps one metadata record to its bucket. It returns nil for
// records that cannot enter the pipeline: a missing SourceFile or an
// extension outside every membership table.
func (c *Classifier) Classify(rec exif.Record) *Record {
	if rec.SourceFile == "" {
		return nil
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(rec.SourceFile), "."))
	stem := strings.TrimSuffix(path.Base(rec.SourceFile), path.Ext(rec.SourceFile))

	var kind Kind
	switch {
	case inSet(rawExtSet, ext):
		kind = KindRawImage
	case inSet(compressedImageExtSet, ext):
		if ext == thumbnailExt && c.hasRawSibling(stem) {
			kind = KindThumbnail
		} else {
			kind = KindCompressedImage
		}
	case inSet(compressedVideoExtSet, ext):
		kind = KindCompressedVideo
	default:
		c.logger.Debug("unsupported extension, dropping file",
			logging.String("source", rec.SourceFile),
			logging.String("ext", ext))
		return nil
	}

	timestamp := c.normalizeDate(rec)
	makeName := normalizeMake(rec.Make, kind, ext)
	model := normalizeModel(rec.Model, makeName)

	keyExt := ext
	if kind == KindThumbnail {
		keyExt = thumbnailDir
	}
	dirKey := strings.ToLower(makeName + "_" + model + "_" + keyExt)

	return &Record{
		Kind:       kind,
		DirKey:     dirKey,
		SourceFile: rec.SourceFile,
		Ext:        ext,
		Timestamp:  timestamp,
		Make:       makeName,
		Model:      model,
	}
}

// hasRawSibling reports whether any RAW file shares the stem.
func (c *Classifier) hasRawSibling(stem string) bool {
	for _, rawExt := range RawExtensions() {
		if c.files.contains(stem + "." + rawExt) {
			return true
		}
	}
	return false
}

const exifDateLayout = "2006:01:02 15:04:05"

// normalizeDate reformats a valid EXIF capture date to YYYYMMDD-HHMMSS and
// substitutes the project fallback date otherwise.
func (c *Classifier) normalizeDate(rec exif.Record) string {
	if rec.CreateDate != nil {
		if ts, err := time.Parse(exifDateLayout, *rec.CreateDate); err == nil {
			return ts.Format("20060102-150405")
		}
	}
	c.logger.Warn("capture date missing or invalid, using fallback date",
		logging.String("source", rec.SourceFile),
		logging.String("fallback", c.fallbackDate),
		logging.Alert("date_fallback"))
	return c.fallbackDate
}

func normalizeMake(value *string, kind Kind, ext string) string {
	makeName := UnknownSentinel
	if value != nil {
		makeName = strings.ReplaceAll(*value, " ", "")
	}
	if makeName == UnknownSentinel && kind == KindRawImage {
		makeName = inferMakeFromExt(ext)
	}
	return makeName
}

func normalizeModel(value *string, makeName string) string {
	model := UnknownSentinel
	if value != nil {
		model = strings.ReplaceAll(*value, " ", "")
	}
	if makeName != "" && makeName != UnknownSentinel && strings.Contains(model, makeName) {
		model = strings.TrimSpace(strings.Replace(model, makeName, "", 1))
	}
	return model
}

func inSet(set map[string]struct{}, ext string) bool {
	_, ok := set[ext]
	return ok
}
