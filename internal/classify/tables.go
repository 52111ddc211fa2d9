package classify

import "strings"

// UnknownSentinel marks metadata keys that were absent from a record. A key
// present with an empty value stays an empty string and never becomes the
// sentinel.
const UnknownSentinel = "unknown"

const (
	thumbnailExt = "jpg"
	thumbnailDir = "thmb"
	// DNGExt is the archival container extension conversion jobs target.
	DNGExt = "dng"
)

// manufacturerRawExts maps camera manufacturers to their RAW extensions.
// Slice order is the committed lookup order for make inference; first match
// wins.
var manufacturerRawExts = []struct {
	Make string
	Exts []string
}{
	{"Adobe", []string{"dng"}},
	{"Canon", []string{"crw", "cr2", "cr3"}},
	{"Fujifilm", []string{"raf"}},
	{"Leica", []string{"rwl"}},
	{"Minolta", []string{"mrw"}},
	{"Nikon", []string{"nef", "nrw"}},
	{"Olympus", []string{"orw"}},
	{"Panasonic", []string{"raw", "rw2"}},
	{"Pentax", []string{"pef"}},
	{"Samsung", []string{"srw"}},
	{"Sony", []string{"arw", "sr2"}},
}

var compressedImageExts = []string{
	"jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp", "heic", "heif",
}

var compressedVideoExts = []string{
	"mp4", "mov", "avi", "mkv", "m4v", "mpg", "mpeg", "mts", "m2ts", "wmv", "webm",
}

var (
	rawExtSet             = buildRawExtSet()
	compressedImageExtSet = toSet(compressedImageExts)
	compressedVideoExtSet = toSet(compressedVideoExts)
)

func buildRawExtSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, entry := range manufacturerRawExts {
		for _, ext := range entry.Exts {
			set[ext] = struct{}{}
		}
	}
	return set
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// RawExtensions returns every supported RAW extension, lowercased.
func RawExtensions() []string {
	exts := make([]string, 0, len(rawExtSet))
	for _, entry := range manufacturerRawExts {
		exts = append(exts, entry.Exts...)
	}
	return exts
}

func inferMakeFromExt(ext string) string {
	ext = strings.ToLower(ext)
	for _, entry := range manufacturerRawExts {
		for _, candidate := range entry.Exts {
			if candidate == ext {
				return entry.Make
			}
		}
	}
	return UnknownSentinel
}
