// Package staging manages the scratch directories archives are extracted into.
//
// Every build extracts into its own work directory named
// survey{kind}-{slot}-{run id} and removes it when done. Directories that
// outlive their build are found by name, and a build in progress is
// recognized by the lock it holds on its survey's storage directory.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"audiosurvey/internal/survey"
)

const buildLockName = ".build.lock"

// WorkDirName is the directory name used for one build of id.
func WorkDirName(id survey.Identity, runID string) string {
	return id.Kind.Dir() + "-" + id.Slot() + "-" + runID
}

// ParseWorkDirName splits a work directory name into its identity label
// (e.g. "survey2/guide") and run id.
func ParseWorkDirName(name string) (label, runID string, ok bool) {
	id, runID, ok := parseWorkDir(name)
	if !ok {
		return "", "", false
	}
	return id.String(), runID, true
}

func parseWorkDir(name string) (survey.Identity, string, bool) {
	kindDir, rest, found := strings.Cut(name, "-")
	if !found || !strings.HasPrefix(kindDir, "survey") {
		return survey.Identity{}, "", false
	}
	slot, runID, found := strings.Cut(rest, "-")
	if !found || runID == "" {
		return survey.Identity{}, "", false
	}
	kind, err := survey.ParseKind(kindDir)
	if err != nil || kind.Dir() != kindDir {
		return survey.Identity{}, "", false
	}
	stage := survey.StageNone
	if slot != "pairs" {
		if stage, err = survey.ParseStage(slot); err != nil || string(stage) != slot {
			return survey.Identity{}, "", false
		}
	}
	id, err := survey.NewIdentity(kind, stage)
	if err != nil {
		return survey.Identity{}, "", false
	}
	return id, runID, true
}

// BuildLockPath is the lock file a build holds while it owns the storage
// directory of kind and its work directories.
func BuildLockPath(storageDir string, kind survey.Kind) string {
	return filepath.Join(storageDir, kind.Dir(), buildLockName)
}

// NewWorkDir creates a fresh, empty work directory for one build.
func NewWorkDir(stagingDir string, id survey.Identity, runID string) (string, error) {
	if strings.TrimSpace(stagingDir) == "" {
		return "", fmt.Errorf("staging directory not configured")
	}
	if strings.TrimSpace(runID) == "" {
		return "", fmt.Errorf("run id required")
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	dir := filepath.Join(stagingDir, WorkDirName(id, runID))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	return dir, nil
}
