package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"audiosurvey/internal/logging"
	"audiosurvey/internal/services"
	"audiosurvey/internal/survey"
)

const maxSidecarBytes = 4 << 20

// audioExtensions lists the recognized audio containers, lower-cased.
var audioExtensions = map[string]struct{}{
	".wav":  {},
	".flac": {},
	".mp3":  {},
	".ogg":  {},
	".m4a":  {},
}

// RawAsset is an extracted audio file waiting to be moved into storage.
type RawAsset struct {
	Path string
	Name string
}

// Base returns the file name without its extension.
func (a RawAsset) Base() string {
	return BaseName(a.Name)
}

// Result is the classified content of one archive.
type Result struct {
	Assets   []RawAsset
	Sidecars map[string]json.RawMessage
	Skipped  []survey.Skip
}

// Options tunes extraction limits.
type Options struct {
	// MaxEntryBytes skips entries larger than the limit. Zero disables the cap.
	MaxEntryBytes int64
	Logger        *slog.Logger
}

// BaseName strips the directory and final extension from name.
func BaseName(name string) string {
	base := path.Base(filepath.ToSlash(name))
	return strings.TrimSuffix(base, path.Ext(base))
}

// IsAudio reports whether name carries a recognized audio extension.
func IsAudio(name string) bool {
	_, ok := audioExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// Extract unpacks archivePath into destDir and classifies its regular files
// into audio assets and parsed JSON sidecars. Malformed sidecars, oversized
// entries, unsafe paths and duplicate names are reported in Result.Skipped
// rather than failing the extraction.
func Extract(ctx context.Context, archivePath, destDir string, opts Options) (*Result, error) {
	logger := logging.NewComponentLogger(opts.Logger, "archive")

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "archive", "prepare", "cannot create extraction directory", err)
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "archive", "open", filepath.Base(archivePath), err)
	}
	defer file.Close()

	format, err := detectFormat(file, archivePath)
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "archive", "detect", filepath.Base(archivePath), err)
	}

	w := &walker{
		destDir:  destDir,
		maxBytes: opts.MaxEntryBytes,
		logger:   logger,
		seen:     make(map[string]struct{}),
		result:   &Result{Sidecars: make(map[string]json.RawMessage)},
	}

	switch format {
	case formatZip:
		err = w.walkZip(ctx, file)
	case formatGzipTar:
		gz, gzErr := gzip.NewReader(file)
		if gzErr != nil {
			return nil, services.Wrap(services.ErrExtraction, "archive", "gunzip", filepath.Base(archivePath), gzErr)
		}
		defer gz.Close()
		err = w.walkTar(ctx, tar.NewReader(gz))
	default:
		err = w.walkTar(ctx, tar.NewReader(bufio.NewReader(file)))
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrExtraction, "archive", "read", filepath.Base(archivePath), err)
	}

	logger.Debug("archive extracted",
		logging.String("archive", filepath.Base(archivePath)),
		logging.Int("audio_count", len(w.result.Assets)),
		logging.Int("sidecar_count", len(w.result.Sidecars)),
		logging.Int64("audio_bytes", w.written),
		logging.Int("skipped_count", len(w.result.Skipped)))
	return w.result, nil
}

type containerFormat int

const (
	formatTar containerFormat = iota
	formatGzipTar
	formatZip
)

func detectFormat(file *os.File, name string) (containerFormat, error) {
	header := make([]byte, 512)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, err
	}
	header = header[:n]
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	switch {
	case bytes.HasPrefix(header, []byte{0x1f, 0x8b}):
		return formatGzipTar, nil
	case bytes.HasPrefix(header, []byte("PK\x03\x04")), bytes.HasPrefix(header, []byte("PK\x05\x06")):
		return formatZip, nil
	case len(header) >= 262 && bytes.HasPrefix(header[257:], []byte("ustar")):
		return formatTar, nil
	}

	// Pre-POSIX tar files carry no magic; trust the extension for those.
	if strings.HasSuffix(strings.ToLower(name), ".tar") && len(header) == 512 {
		return formatTar, nil
	}
	return 0, fmt.Errorf("unsupported container format")
}

type walker struct {
	destDir  string
	maxBytes int64
	logger   *slog.Logger
	seen     map[string]struct{}
	result   *Result
	written  int64
}

func (w *walker) walkTar(ctx context.Context, tr *tar.Reader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) && hdr != nil {
			w.skip(hdr.Name, "path escapes extraction directory")
			continue
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := w.entry(hdr.Name, hdr.Size, tr); err != nil {
			return err
		}
	}
}

func (w *walker) walkZip(ctx context.Context, file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(file, info.Size())
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return err
	}
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !zf.Mode().IsRegular() {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			w.skip(zf.Name, "unreadable entry: "+err.Error())
			continue
		}
		err = w.entry(zf.Name, int64(zf.UncompressedSize64), rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// entry classifies one regular file. Only filesystem failures in the
// extraction directory are returned; content problems become skips.
func (w *walker) entry(name string, size int64, r io.Reader) error {
	clean, ok := safeName(name)
	if !ok {
		w.skip(name, "path escapes extraction directory")
		return nil
	}
	base := path.Base(clean)
	if strings.HasPrefix(base, "._") {
		return nil
	}
	ext := strings.ToLower(path.Ext(base))

	switch {
	case ext == ".json":
		w.sidecar(clean, r)
		return nil
	case IsAudio(base):
		return w.asset(clean, base, size, r)
	default:
		return nil
	}
}

func (w *walker) sidecar(name string, r io.Reader) {
	data, err := io.ReadAll(io.LimitReader(r, maxSidecarBytes+1))
	if err != nil {
		w.skip(name, "unreadable sidecar: "+err.Error())
		return
	}
	if len(data) > maxSidecarBytes {
		w.skip(name, "sidecar exceeds size limit")
		return
	}
	if !json.Valid(data) {
		w.skip(name, "invalid json")
		return
	}
	key := BaseName(name)
	if _, dup := w.result.Sidecars[key]; dup {
		w.skip(name, "duplicate sidecar name")
		return
	}
	w.result.Sidecars[key] = json.RawMessage(data)
}

func (w *walker) asset(name, base string, size int64, r io.Reader) error {
	if w.maxBytes > 0 && size > w.maxBytes {
		w.skip(name, "entry exceeds size limit")
		return nil
	}
	if _, dup := w.seen[base]; dup {
		w.skip(name, "duplicate audio name")
		return nil
	}

	target := filepath.Join(w.destDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create entry directory: %w", err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}

	src := r
	if w.maxBytes > 0 {
		src = io.LimitReader(r, w.maxBytes+1)
	}
	written, copyErr := io.Copy(out, src)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(target)
		w.skip(name, "truncated entry: "+copyErr.Error())
		return nil
	}
	if closeErr != nil {
		return fmt.Errorf("write entry: %w", closeErr)
	}
	if w.maxBytes > 0 && written > w.maxBytes {
		_ = os.Remove(target)
		w.skip(name, "entry exceeds size limit")
		return nil
	}

	w.seen[base] = struct{}{}
	w.written += written
	w.result.Assets = append(w.result.Assets, RawAsset{Path: target, Name: base})
	return nil
}

func (w *walker) skip(name, reason string) {
	w.result.Skipped = append(w.result.Skipped, survey.Skip{Name: name, Reason: reason})
	w.logger.Debug("archive entry skipped",
		logging.String("entry", name),
		logging.String("reason", reason))
}

// safeName normalizes an archive member name and rejects names that would
// land outside the extraction directory.
func safeName(name string) (string, bool) {
	slashed := strings.ReplaceAll(name, "\\", "/")
	if slashed == "" || strings.HasPrefix(slashed, "/") {
		return "", false
	}
	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	if len(clean) >= 2 && clean[1] == ':' {
		return "", false
	}
	return clean, true
}
