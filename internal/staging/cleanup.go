package staging

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"audiosurvey/internal/logging"
	"audiosurvey/internal/survey"
)

// CleanOptions selects which work directories CleanStale may remove.
type CleanOptions struct {
	StagingDir string
	// StorageDir locates the build locks. Work directories whose survey lock
	// is held by a running build are left alone.
	StorageDir string
	// MaxAge keeps directories modified more recently. Zero removes every
	// idle work directory.
	MaxAge time.Duration
	Logger *slog.Logger
}

// CleanReport lists what a cleanup pass did.
type CleanReport struct {
	Removed  []string
	Busy     []string
	Failures []Failure
}

// Failure pairs a directory with the error that kept it from being removed.
type Failure struct {
	Path string
	Err  error
}

// CleanStale removes abandoned work directories. Only names produced by
// WorkDirName are considered; anything else in the staging directory is
// left for the operator.
func CleanStale(ctx context.Context, opts CleanOptions) CleanReport {
	var report CleanReport
	logger := logging.NewComponentLogger(opts.Logger, "staging")

	dirs, err := scan(opts.StagingDir)
	if err != nil {
		report.Failures = append(report.Failures, Failure{Path: opts.StagingDir, Err: err})
		return report
	}

	cutoff := time.Now().Add(-opts.MaxAge)
	for _, wd := range dirs {
		if ctx.Err() != nil {
			break
		}
		if !wd.modTime.Before(cutoff) {
			continue
		}

		unlock, held, err := tryBuildLock(opts.StorageDir, wd.id.Kind)
		if err != nil {
			report.Failures = append(report.Failures, Failure{Path: wd.path, Err: err})
			continue
		}
		if held {
			report.Busy = append(report.Busy, wd.path)
			logger.Debug("work directory belongs to a running build",
				logging.String("path", wd.path),
				logging.String(logging.FieldSurvey, wd.id.String()))
			continue
		}
		err = os.RemoveAll(wd.path)
		unlock()
		if err != nil {
			report.Failures = append(report.Failures, Failure{Path: wd.path, Err: err})
			logging.WarnWithContext(logger, "failed to remove work directory", "staging_cleanup_failed",
				logging.String("path", wd.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"))
			continue
		}
		report.Removed = append(report.Removed, wd.path)
		logger.Info("removed abandoned work directory",
			logging.String("path", wd.path),
			logging.String(logging.FieldSurvey, wd.id.String()),
			logging.String(logging.FieldRunID, wd.runID),
			logging.Duration("age", time.Since(wd.modTime)),
			logging.String(logging.FieldEventType, "staging_cleanup"))
	}
	return report
}

// tryBuildLock takes the build lock of kind without waiting. held reports a
// lock owned by someone else. A survey without a storage directory has never
// been built, so there is nothing to lock.
func tryBuildLock(storageDir string, kind survey.Kind) (unlock func(), held bool, err error) {
	noop := func() {}
	if strings.TrimSpace(storageDir) == "" {
		return noop, false, nil
	}
	path := BuildLockPath(storageDir, kind)
	if _, err := os.Stat(filepath.Dir(path)); errors.Is(err, fs.ErrNotExist) {
		return noop, false, nil
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return noop, false, err
	}
	if !ok {
		return noop, true, nil
	}
	return func() { _ = lock.Unlock() }, false, nil
}

// DirInfo describes one directory in the staging area. Survey and RunID are
// empty for directories that do not follow the work directory naming.
type DirInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Survey  string    `json:"survey,omitempty"`
	RunID   string    `json:"run_id,omitempty"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// ListDirectories returns every directory in the staging area, sorted by name.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(stagingDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(stagingDir, entry.Name())
		label, runID, _ := ParseWorkDirName(entry.Name())
		out = append(out, DirInfo{
			Name:    entry.Name(),
			Path:    path,
			Survey:  label,
			RunID:   runID,
			ModTime: info.ModTime(),
			Size:    treeSize(path),
		})
	}
	return out, nil
}

type workDir struct {
	path    string
	id      survey.Identity
	runID   string
	modTime time.Time
}

// scan returns the work directories under stagingDir in name order. A missing
// staging directory has nothing to clean.
func scan(stagingDir string) ([]workDir, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(stagingDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var dirs []workDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, runID, ok := parseWorkDir(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, workDir{
			path:    filepath.Join(stagingDir, entry.Name()),
			id:      id,
			runID:   runID,
			modTime: info.ModTime(),
		})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].path < dirs[j].path })
	return dirs, nil
}

// treeSize sums regular file sizes below path, ignoring unreadable entries.
func treeSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
