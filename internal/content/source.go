package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"audiosurvey/internal/fileutil"
	"audiosurvey/internal/services"
	"audiosurvey/internal/survey"
)

// ArchiveSource locates the archive backing an identity.
type ArchiveSource interface {
	Locate(ctx context.Context, id survey.Identity) (string, error)
}

// ArchiveExtensions lists the accepted archive suffixes in lookup order.
var ArchiveExtensions = []string{".tar.gz", ".tgz", ".tar", ".zip"}

// DirSource keeps one archive per identity under
// Root/survey{kind}/{guide|test|pairs}.{ext}.
type DirSource struct {
	Root string
}

// Locate returns the archive path for id or an ErrNotFound error.
func (s DirSource) Locate(ctx context.Context, id survey.Identity) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(s.Root) == "" {
		return "", services.Wrap(services.ErrConfiguration, "content", "locate", "archive directory not configured", nil)
	}
	base := filepath.Join(s.Root, id.Kind.Dir(), id.Slot())
	for _, ext := range ArchiveExtensions {
		candidate := base + ext
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrExtraction, "content", "locate", candidate, err)
		}
	}
	return "", services.Wrap(services.ErrNotFound, "content", "locate", "no archive for "+id.String(), nil)
}

// ArchiveExtension returns the accepted suffix of name, or "" when the name
// is not a supported archive.
func ArchiveExtension(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range ArchiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// Publish installs archivePath as the archive for id, replacing any archive
// previously published for it under another extension. The copy is verified
// before it becomes visible.
func (s DirSource) Publish(id survey.Identity, archivePath string) (string, error) {
	ext := ArchiveExtension(archivePath)
	if ext == "" {
		return "", services.Wrap(services.ErrInvalidInput, "content", "publish",
			fmt.Sprintf("%s is not a .tar, .tar.gz, .tgz or .zip archive", filepath.Base(archivePath)), nil)
	}
	info, err := os.Stat(archivePath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "content", "publish", archivePath, err)
	}
	if !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrInvalidInput, "content", "publish", archivePath+" is not a regular file", nil)
	}

	dir := filepath.Join(s.Root, id.Kind.Dir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "content", "publish", "create archive directory", err)
	}
	dst := filepath.Join(dir, id.Slot()+ext)
	partial := dst + ".partial"
	if err := fileutil.CopyFileVerified(archivePath, partial); err != nil {
		return "", services.Wrap(services.ErrInvalidInput, "content", "publish", "copy archive", err)
	}
	if err := os.Rename(partial, dst); err != nil {
		_ = os.Remove(partial)
		return "", services.Wrap(services.ErrInvalidInput, "content", "publish", "install archive", err)
	}
	for _, other := range ArchiveExtensions {
		if other == ext {
			continue
		}
		if err := os.Remove(filepath.Join(dir, id.Slot()+other)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return dst, services.Wrap(services.ErrInvalidInput, "content", "publish", "remove superseded archive", err)
		}
	}
	return dst, nil
}
