package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"audiosurvey/internal/archive"
	"audiosurvey/internal/services"
	"audiosurvey/internal/testsupport"
)

func TestExtractClassifiesEntries(t *testing.T) {
	for _, name := range []string{"bundle.tar.gz", "bundle.tgz", "bundle.tar", "bundle.zip"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			src := testsupport.WriteArchive(t, filepath.Join(dir, name),
				testsupport.Audio("clips/b.wav"),
				testsupport.Audio("clips/a.FLAC"),
				testsupport.JSON(t, "clips/a.json", map[string]any{"sample_pool": []string{"Dog"}}),
				testsupport.Raw("clips/notes.txt", "ignored"),
			)

			res, err := archive.Extract(context.Background(), src, filepath.Join(dir, "out"), archive.Options{})
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			var names []string
			for _, a := range res.Assets {
				names = append(names, a.Name)
				if _, err := os.Stat(a.Path); err != nil {
					t.Fatalf("asset %s not written: %v", a.Name, err)
				}
			}
			slices.Sort(names)
			if !slices.Equal(names, []string{"a.FLAC", "b.wav"}) {
				t.Fatalf("unexpected assets %v", names)
			}
			if _, ok := res.Sidecars["a"]; !ok || len(res.Sidecars) != 1 {
				t.Fatalf("unexpected sidecars %v", res.Sidecars)
			}
			if len(res.Skipped) != 0 {
				t.Fatalf("unexpected skips %v", res.Skipped)
			}
		})
	}
}

func TestExtractRecordsSkips(t *testing.T) {
	dir := t.TempDir()
	src := testsupport.WriteArchive(t, filepath.Join(dir, "bundle.tar.gz"),
		testsupport.Audio("one.wav"),
		testsupport.Audio("nested/one.wav"),
		testsupport.Audio("../escape.wav"),
		testsupport.Raw("broken.json", "{not json"),
		testsupport.Raw("._one.wav", "appledouble"),
		testsupport.Raw("big.wav", strings.Repeat("x", 256)),
	)

	res, err := archive.Extract(context.Background(), src, filepath.Join(dir, "out"), archive.Options{MaxEntryBytes: 64})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Assets) != 1 || res.Assets[0].Name != "one.wav" {
		t.Fatalf("unexpected assets %+v", res.Assets)
	}
	reasons := map[string]string{}
	for _, s := range res.Skipped {
		reasons[s.Name] = s.Reason
	}
	want := map[string]string{
		"nested/one.wav": "duplicate audio name",
		"../escape.wav":  "path escapes extraction directory",
		"broken.json":    "invalid json",
		"big.wav":        "entry exceeds size limit",
	}
	for name, reason := range want {
		if reasons[name] != reason {
			t.Fatalf("skip for %s = %q, want %q (all: %v)", name, reasons[name], reason, res.Skipped)
		}
	}
	if len(res.Skipped) != len(want) {
		t.Fatalf("unexpected skip count %d: %v", len(res.Skipped), res.Skipped)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.wav")); !os.IsNotExist(err) {
		t.Fatalf("escaping entry must not be written, stat err=%v", err)
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bundle.tar.gz")
	if err := os.WriteFile(src, []byte("this is not an archive"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := archive.Extract(context.Background(), src, filepath.Join(dir, "out"), archive.Options{})
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}

	_, err = archive.Extract(context.Background(), filepath.Join(dir, "missing.tar"), filepath.Join(dir, "out"), archive.Options{})
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction error for missing archive, got %v", err)
	}
}

func TestExtractRejectsUnusableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	src := testsupport.WriteArchive(t, filepath.Join(dir, "bundle.zip"), testsupport.Audio("a.wav"))

	_, err := archive.Extract(context.Background(), src, filepath.Join(blocker, "out"), archive.Options{})
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestExtractHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	src := testsupport.WriteArchive(t, filepath.Join(dir, "bundle.tar"), testsupport.Audio("a.wav"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := archive.Extract(ctx, src, filepath.Join(dir, "out"), archive.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBaseNameAndIsAudio(t *testing.T) {
	if got := archive.BaseName("dir/clip_01.wav"); got != "clip_01" {
		t.Fatalf("BaseName = %q", got)
	}
	if !archive.IsAudio("X.WAV") || archive.IsAudio("x.json") {
		t.Fatal("IsAudio misclassified")
	}
}
