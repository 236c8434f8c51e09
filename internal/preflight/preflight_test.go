package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"audiosurvey/internal/content"
	"audiosurvey/internal/survey"
	"audiosurvey/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAllReportsPublishedArchives(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	pairs := survey.Identity{Kind: survey.KindQualityPairs}
	src := testsupport.WriteArchive(t, filepath.Join(t.TempDir(), "pairs.tar"),
		testsupport.Audio("raw_sample_1.wav"))
	if _, err := (content.DirSource{Root: cfg.Paths.ArchiveDir}).Publish(pairs, src); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 4+len(Identities) {
		t.Fatalf("expected %d results, got %d", 4+len(Identities), len(results))
	}
	for _, r := range results[:4] {
		if !r.Passed {
			t.Fatalf("directory check %q failed: %s", r.Name, r.Detail)
		}
	}
	byName := make(map[string]Result, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	if r := byName["Archive survey3/pairs"]; !r.Passed || r.Detail != filepath.Join(cfg.Paths.ArchiveDir, "survey3", "pairs.tar") {
		t.Fatalf("unexpected pairs archive result %+v", r)
	}
	if r := byName["Archive survey1/guide"]; r.Passed || r.Detail != "not published" {
		t.Fatalf("unexpected survey1 guide result %+v", r)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected no results, got %v", results)
	}
}
