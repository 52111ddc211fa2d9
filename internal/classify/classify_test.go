package classify

import (
	"testing"

	"darkroom/internal/exif"
	"darkroom/internal/logging"
)

func strptr(s string) *string { return &s }

func newTestClassifier(names ...string) *Classifier {
	return New(NewFileSet(names), "20241210", logging.NewNop())
}

func TestClassifyRawImage(t *testing.T) {
	c := newTestClassifier("test.cr2")
	rec := c.Classify(exif.Record{
		SourceFile: "test.cr2",
		CreateDate: strptr("2024:12:10 14:30:00"),
		Make:       strptr("Canon"),
		Model:      strptr("Canon EOS R5"),
	})
	if rec == nil {
		t.Fatal("expected record")
	}
	if rec.Kind != KindRawImage {
		t.Fatalf("expected raw image, got %v", rec.Kind)
	}
	if rec.DirKey != "canon_eosr5_cr2" {
		t.Fatalf("unexpected dir key %q", rec.DirKey)
	}
	if rec.Timestamp != "20241210-143000" {
		t.Fatalf("unexpected timestamp %q", rec.Timestamp)
	}
	if rec.Model != "EOSR5" {
		t.Fatalf("expected make stripped from model, got %q", rec.Model)
	}
}

func TestClassifyCompressedImage(t *testing.T) {
	c := newTestClassifier("test.jpg")
	rec := c.Classify(exif.Record{
		SourceFile: "test.jpg",
		CreateDate: strptr("2024:12:10 14:30:00"),
		Make:       strptr("Canon"),
		Model:      strptr("EOS R5"),
	})
	if rec == nil {
		t.Fatal("expected record")
	}
	if rec.Kind != KindCompressedImage {
		t.Fatalf("expected compressed image, got %v", rec.Kind)
	}
	if rec.DirKey != "canon_eosr5_jpg" {
		t.Fatalf("unexpected dir key %q", rec.DirKey)
	}
}

func TestClassifyCompressedVideo(t *testing.T) {
	c := newTestClassifier("clip.MP4")
	rec := c.Classify(exif.Record{
		SourceFile: "clip.MP4",
		Make:       strptr("DJI"),
		Model:      strptr("Mini 4 Pro"),
	})
	if rec == nil {
		t.Fatal("expected record")
	}
	if rec.Kind != KindCompressedVideo {
		t.Fatalf("expected compressed video, got %v", rec.Kind)
	}
	if rec.DirKey != "dji_mini4pro_mp4" {
		t.Fatalf("unexpected dir key %q", rec.DirKey)
	}
}

func TestClassifyThumbnailPromotion(t *testing.T) {
	c := newTestClassifier("DSC001.jpg", "DSC001.cr2")
	rec := c.Classify(exif.Record{
		SourceFile: "DSC001.jpg",
		Make:       strptr("Canon"),
	})
	if rec == nil {
		t.Fatal("expected record")
	}
	if rec.Kind != KindThumbnail {
		t.Fatalf("expected thumbnail, got %v", rec.Kind)
	}
	if KeyExt(rec.DirKey) != "thmb" {
		t.Fatalf("expected thmb key suffix, got %q", rec.DirKey)
	}

	// Without the RAW sibling the same record stays a compressed image.
	c = newTestClassifier("DSC001.jpg")
	rec = c.Classify(exif.Record{SourceFile: "DSC001.jpg", Make: strptr("Canon")})
	if rec.Kind != KindCompressedImage {
		t.Fatalf("expected compressed image without RAW sibling, got %v", rec.Kind)
	}
}

func TestClassifyThumbnailPromotionIgnoresCase(t *testing.T) {
	c := newTestClassifier("IMG001.JPG", "IMG001.CR2")
	rec := c.Classify(exif.Record{SourceFile: "IMG001.JPG"})
	if rec == nil || rec.Kind != KindThumbnail {
		t.Fatalf("expected uppercase RAW sibling to promote, got %+v", rec)
	}
}

func TestClassifyMissingSourceFile(t *testing.T) {
	c := newTestClassifier()
	if rec := c.Classify(exif.Record{CreateDate: strptr("2024:12:10 14:30:00")}); rec != nil {
		t.Fatalf("expected nil for record without source file, got %+v", rec)
	}
}

func TestClassifyUnknownExtension(t *testing.T) {
	c := newTestClassifier("notes.txt")
	if rec := c.Classify(exif.Record{SourceFile: "notes.txt"}); rec != nil {
		t.Fatalf("expected nil for unsupported extension, got %+v", rec)
	}
}

func TestClassifyDateFallback(t *testing.T) {
	tests := []struct {
		name       string
		createDate *string
	}{
		{"absent", nil},
		{"garbage", strptr("invalid")},
		{"wrong format", strptr("2024-12-10 14:30:00")},
		{"impossible date", strptr("2024:02:30 14:30:00")},
	}
	for _, tt := range tests {
		c := newTestClassifier("test.jpg")
		rec := c.Classify(exif.Record{SourceFile: "test.jpg", CreateDate: tt.createDate})
		if rec == nil {
			t.Fatalf("%s: expected record", tt.name)
		}
		if rec.Timestamp != "20241210" {
			t.Errorf("%s: expected fallback date, got %q", tt.name, rec.Timestamp)
		}
	}
}

func TestClassifyMakeInferenceFromRawExtension(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"test.nef", "Nikon"},
		{"test.cr3", "Canon"},
		{"test.arw", "Sony"},
		{"test.raf", "Fujifilm"},
		{"test.dng", "Adobe"},
	}
	for _, tt := range tests {
		c := newTestClassifier(tt.file)
		rec := c.Classify(exif.Record{SourceFile: tt.file})
		if rec == nil {
			t.Fatalf("%s: expected record", tt.file)
		}
		if rec.Make != tt.want {
			t.Errorf("%s: expected make %q, got %q", tt.file, tt.want, rec.Make)
		}
	}
}

func TestClassifyNoInferenceForCompressedImage(t *testing.T) {
	c := newTestClassifier("photo.jpg")
	rec := c.Classify(exif.Record{SourceFile: "photo.jpg"})
	if rec.Make != UnknownSentinel {
		t.Fatalf("expected unknown make for jpg without metadata, got %q", rec.Make)
	}
}

func TestClassifyEmptyStringsStayEmpty(t *testing.T) {
	// Present-but-empty differs from absent: no sentinel, no inference.
	c := newTestClassifier("test.cr2")
	rec := c.Classify(exif.Record{SourceFile: "test.cr2", Make: strptr(""), Model: strptr("")})
	if rec.Make != "" {
		t.Fatalf("expected empty make to stay empty, got %q", rec.Make)
	}
	if rec.DirKey != "__cr2" {
		t.Fatalf("expected empty segments in dir key, got %q", rec.DirKey)
	}
}

func TestClassifyModelDeduplication(t *testing.T) {
	c := newTestClassifier("test.arw")
	rec := c.Classify(exif.Record{
		SourceFile: "test.arw",
		Make:       strptr("Sony"),
		Model:      strptr("Sony ILCE-7M3"),
	})
	if rec.Model != "ILCE-7M3" {
		t.Fatalf("expected duplicated make removed from model, got %q", rec.Model)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := newTestClassifier("a.cr2", "a.jpg")
	rec := exif.Record{SourceFile: "a.jpg", Make: strptr("Canon"), Model: strptr("EOS R5")}
	first := c.Classify(rec)
	for i := 0; i < 10; i++ {
		again := c.Classify(rec)
		if again.DirKey != first.DirKey || again.Kind != first.Kind {
			t.Fatal("classification must be a pure function of its inputs")
		}
	}
}

func TestBucketsPreserveArrivalOrder(t *testing.T) {
	b := NewBuckets()
	b.Add(Record{DirKey: "canon_eosr5_cr2", SourceFile: "b.cr2", Kind: KindRawImage})
	b.Add(Record{DirKey: "canon_eosr5_jpg", SourceFile: "a.jpg", Kind: KindCompressedImage})
	b.Add(Record{DirKey: "canon_eosr5_cr2", SourceFile: "a.cr2", Kind: KindRawImage})

	if b.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", b.Len())
	}
	records := b.Records("canon_eosr5_cr2")
	if len(records) != 2 || records[0].SourceFile != "b.cr2" || records[1].SourceFile != "a.cr2" {
		t.Fatalf("bucket order not preserved: %+v", records)
	}
}

func TestBucketsRawKeys(t *testing.T) {
	b := NewBuckets()
	b.Add(Record{DirKey: "canon_eosr5_cr2", Kind: KindRawImage})
	b.Add(Record{DirKey: "canon_eosr5_thmb", Kind: KindThumbnail})
	b.Add(Record{DirKey: "nikon_d850_nef", Kind: KindRawImage})
	b.Add(Record{DirKey: "adobe_unknown_dng", Kind: KindRawImage})

	raw := b.RawKeys()
	if len(raw) != 3 {
		t.Fatalf("expected 3 raw buckets, got %v", raw)
	}
	if raw[0] != "canon_eosr5_cr2" || raw[1] != "nikon_d850_nef" {
		t.Fatalf("raw keys out of order: %v", raw)
	}
}

func TestKeyExt(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"canon_eosr5_cr2", "cr2"},
		{"canon_eosr5_thmb", "thmb"},
		{"__cr2", "cr2"},
		{"nokey", ""},
	}
	for _, tt := range tests {
		if got := KeyExt(tt.key); got != tt.want {
			t.Errorf("KeyExt(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
