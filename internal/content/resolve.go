package content

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"audiosurvey/internal/services"
	"audiosurvey/internal/survey"
)

// Resolve maps an audio reference handed out with an item back to the stored
// file, for the layer that serves raw bytes. References that do not name a
// known survey slot are rejected before touching the filesystem.
func (s *Store) Resolve(ref survey.AudioRef) (string, error) {
	kindDir, slot, name, err := ref.Split()
	if err != nil {
		return "", services.Wrap(services.ErrInvalidInput, "content", "resolve", string(ref), err)
	}
	kind, err := survey.ParseKind(kindDir)
	if err != nil || kind.Dir() != kindDir {
		return "", services.Wrap(services.ErrInvalidInput, "content", "resolve", "unknown survey in "+string(ref), nil)
	}
	stage := survey.StageNone
	if slot != "pairs" {
		if stage, err = survey.ParseStage(slot); err != nil || string(stage) != slot {
			return "", services.Wrap(services.ErrInvalidInput, "content", "resolve", "unknown stage in "+string(ref), nil)
		}
	}
	id, err := survey.NewIdentity(kind, stage)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidInput, "content", "resolve", err.Error(), nil)
	}

	path := filepath.Join(s.cfg.Paths.StorageDir, id.Kind.Dir(), id.Slot(), name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", services.Wrap(services.ErrNotFound, "content", "resolve", string(ref), nil)
	}
	if err != nil {
		return "", services.Wrap(services.ErrInvalidInput, "content", "resolve", string(ref), err)
	}
	if !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrNotFound, "content", "resolve", string(ref), nil)
	}
	return path, nil
}
