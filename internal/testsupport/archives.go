package testsupport

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Entry is one member of a fixture archive.
type Entry struct {
	Name string
	Body []byte
}

// Audio returns an entry with deterministic fake audio bytes derived from name.
func Audio(name string) Entry {
	return Entry{Name: name, Body: []byte("RIFF" + name + "WAVE")}
}

// JSON returns an entry holding the JSON encoding of v.
func JSON(t testing.TB, name string, v any) Entry {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	return Entry{Name: name, Body: data}
}

// Raw returns an entry with the literal body.
func Raw(name, body string) Entry {
	return Entry{Name: name, Body: []byte(body)}
}

// WriteArchive writes entries into path, choosing the container from the
// extension: .zip, .tar.gz/.tgz, or plain .tar.
func WriteArchive(t testing.TB, path string, entries ...Entry) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		writeZip(t, f, entries)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz := gzip.NewWriter(f)
		writeTar(t, gz, entries)
		if err := gz.Close(); err != nil {
			t.Fatalf("close gzip: %v", err)
		}
	default:
		writeTar(t, f, entries)
	}
	return path
}

func writeTar(t testing.TB, w io.Writer, entries []Entry) {
	t.Helper()
	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Mode: 0o644, Size: int64(len(e.Body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", e.Name, err)
		}
		if _, err := tw.Write(e.Body); err != nil {
			t.Fatalf("tar write %s: %v", e.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
}

func writeZip(t testing.TB, w io.Writer, entries []Entry) {
	t.Helper()
	zw := zip.NewWriter(w)
	for _, e := range entries {
		fw, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("zip create %s: %v", e.Name, err)
		}
		if _, err := fw.Write(e.Body); err != nil {
			t.Fatalf("zip write %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}
