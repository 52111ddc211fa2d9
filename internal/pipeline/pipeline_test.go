package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"darkroom/internal/exif"
	"darkroom/internal/journal"
	"darkroom/internal/logging"
	"darkroom/internal/services"
	"darkroom/internal/testsupport"
)

type fakeProvider struct {
	records []exif.Record
	err     error
}

func (f *fakeProvider) Extract(ctx context.Context, dir string, files []string) ([]exif.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeConverter struct {
	calls int
	fail  bool
}

func (f *fakeConverter) Convert(ctx context.Context, sourceDir, destDir string) error {
	f.calls++
	if f.fail {
		return errors.New("converter exit status 1")
	}
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		stem := name[:len(name)-len(filepath.Ext(name))]
		if err := os.WriteFile(filepath.Join(destDir, stem+".dng"), []byte("dng"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }

func canonRecord(source, date string) exif.Record {
	return exif.Record{
		SourceFile: source,
		CreateDate: strPtr(date),
		Make:       strPtr("Canon"),
		Model:      strPtr("Canon EOS R5"),
	}
}

func newRunDir(t *testing.T, name string, files ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	for _, file := range files {
		testsupport.WriteFile(t, filepath.Join(dir, file), 32)
	}
	if len(files) == 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return dir
}

func TestRunOrganizesAndConverts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := newRunDir(t, "20240601_wedding", "IMG001.CR2", "IMG001.JPG", "IMG002.JPG")

	provider := &fakeProvider{records: []exif.Record{
		canonRecord("IMG001.CR2", "2024:06:01 10:00:00"),
		canonRecord("IMG001.JPG", "2024:06:01 10:00:00"),
		canonRecord("IMG002.JPG", "2024:06:01 10:05:00"),
	}}
	converter := &fakeConverter{}

	p := New(cfg, provider, converter, nil, logging.NewNop())
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.FilesTotal != 3 || summary.Classified != 3 || summary.Renamed != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Project != "wedding" {
		t.Fatalf("unexpected project %q", summary.Project)
	}

	// The JPG with a RAW sibling lands in the thumbnail bucket; the other
	// JPG is an ordinary compressed image.
	expect := []string{
		filepath.Join("canon_eosr5_thmb", "20240601-100000_wedding_001.jpg"),
		filepath.Join("canon_eosr5_jpg", "20240601-100500_wedding_001.jpg"),
		filepath.Join("canon_eosr5_dng", "20240601-100000_wedding_001.dng"),
	}
	for _, rel := range expect {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Fatalf("expected %s to exist: %v", rel, err)
		}
	}

	// Fully converted RAW bucket is removed.
	if _, err := os.Stat(filepath.Join(dir, "canon_eosr5_cr2")); !os.IsNotExist(err) {
		t.Fatalf("expected RAW bucket to be removed, stat err: %v", err)
	}
	if converter.calls != 1 {
		t.Fatalf("expected one conversion job, got %d", converter.calls)
	}
	if summary.Converted != 1 || summary.ConversionFailed != 0 {
		t.Fatalf("unexpected conversion counts %+v", summary)
	}
}

func TestRunRecordsJournalEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	dir := newRunDir(t, "20240601_trip", "IMG001.JPG")
	provider := &fakeProvider{records: []exif.Record{canonRecord("IMG001.JPG", "2024:06:01 09:00:00")}}

	p := New(cfg, provider, &fakeConverter{}, store, logging.NewNop())
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(runs))
	}
	if runs[0].ID != summary.RunID || runs[0].Project != "trip" || runs[0].Status != journal.StatusCompleted {
		t.Fatalf("unexpected journal entry %+v", runs[0])
	}
}

func TestRunRejectsInvalidDirectoryName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := newRunDir(t, "wedding-photos")

	p := New(cfg, &fakeProvider{}, nil, nil, logging.NewNop())
	_, err := p.Run(context.Background(), dir)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunEmptyDirectoryIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := newRunDir(t, "20240601_empty")

	provider := &fakeProvider{err: errors.New("should not be called")}
	p := New(cfg, provider, nil, nil, logging.NewNop())
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.FilesTotal != 0 || summary.Renamed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunIgnoresExcludedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := newRunDir(t, "20240601_trip", ".hidden", "Thumbs.db", "Adobe Bridge Cache")

	provider := &fakeProvider{err: errors.New("should not be called")}
	p := New(cfg, provider, nil, nil, logging.NewNop())
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.FilesTotal != 0 {
		t.Fatalf("expected excluded files to be filtered, summary %+v", summary)
	}
}

func TestRunMetadataFailureIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := newRunDir(t, "20240601_trip", "IMG001.JPG")

	provider := &fakeProvider{err: errors.New("exiftool exit status 2")}
	p := New(cfg, provider, nil, nil, logging.NewNop())
	_, err := p.Run(context.Background(), dir)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

func TestRunNoClassifiableFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := newRunDir(t, "20240601_trip", "notes.txt")

	provider := &fakeProvider{records: []exif.Record{{SourceFile: "notes.txt"}}}
	p := New(cfg, provider, nil, nil, logging.NewNop())
	_, err := p.Run(context.Background(), dir)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := newRunDir(t, "20240601_trip", "IMG001.JPG")

	held := flock.New(filepath.Join(dir, lockFileName))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not pre-acquire lock: locked=%v err=%v", locked, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	p := New(cfg, &fakeProvider{}, nil, nil, logging.NewNop())
	if _, err := p.Run(context.Background(), dir); err == nil {
		t.Fatal("expected error while lock is held")
	}
}

func TestRunFallbackDateFromDirectoryName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := newRunDir(t, "20240115-20240120_alps", "IMG001.JPG")

	// Missing CreateDate forces the directory date fallback.
	provider := &fakeProvider{records: []exif.Record{{
		SourceFile: "IMG001.JPG",
		Make:       strPtr("Canon"),
		Model:      strPtr("Canon EOS R5"),
	}}}
	p := New(cfg, provider, nil, nil, logging.NewNop())
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Renamed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(dir, "canon_eosr5_jpg", "20240115_alps_001.jpg")); err != nil {
		t.Fatalf("expected fallback-dated name: %v", err)
	}
}

func TestRunPartialConversionKeepsOriginals(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := newRunDir(t, "20240601_trip", "IMG001.CR2")

	provider := &fakeProvider{records: []exif.Record{canonRecord("IMG001.CR2", "2024:06:01 08:00:00")}}
	converter := &fakeConverter{fail: true}
	p := New(cfg, provider, converter, nil, logging.NewNop())
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.ConversionFailed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(dir, "canon_eosr5_cr2", "20240601-080000_trip_001.cr2")); err != nil {
		t.Fatalf("expected RAW original to survive: %v", err)
	}
}
