package items

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"

	"audiosurvey/internal/archive"
	"audiosurvey/internal/fileutil"
	"audiosurvey/internal/logging"
	"audiosurvey/internal/services"
	"audiosurvey/internal/survey"
)

// Placed is an asset that now lives in its final storage slot.
type Placed struct {
	Name    string
	Path    string
	Audio   survey.AudioRef
	Adopted bool
}

// Base returns the placed file name without its extension.
func (p Placed) Base() string {
	return archive.BaseName(p.Name)
}

// SlotDir returns the storage directory holding assets for id.
func SlotDir(storageRoot string, id survey.Identity) string {
	return filepath.Join(storageRoot, id.Kind.Dir(), id.Slot())
}

// Place moves assets, in ascending name order, into the storage slot for id.
// A slot already holding identical bytes is adopted; one holding different
// bytes is reported as a skip and the asset is left out.
func Place(ctx context.Context, storageRoot string, id survey.Identity, assets []archive.RawAsset, logger *slog.Logger) ([]Placed, []survey.Skip, error) {
	sorted := append([]archive.RawAsset(nil), assets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	dir := SlotDir(storageRoot, id)
	placed := make([]Placed, 0, len(sorted))
	var skips []survey.Skip
	for _, asset := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		dst := filepath.Join(dir, asset.Name)
		entry := Placed{Name: asset.Name, Path: dst, Audio: survey.NewAudioRef(id, asset.Name)}

		err := fileutil.MoveFile(asset.Path, dst)
		switch {
		case err == nil:
		case errors.Is(err, fileutil.ErrDestinationExists):
			same, cmpErr := fileutil.SameContent(asset.Path, dst)
			if cmpErr != nil {
				return nil, nil, services.Wrap(services.ErrInvalidInput, "items", "compare", asset.Name, cmpErr)
			}
			if !same {
				logging.WarnWithContext(logger, "storage slot holds different content", "asset_conflict",
					logging.String("asset", asset.Name),
					logging.String("path", dst),
					logging.String(logging.FieldErrorHint, "remove the stale file or rename the asset"),
					logging.String(logging.FieldImpact, "asset left out of the item list"))
				skips = append(skips, survey.Skip{Name: asset.Name, Reason: "storage slot holds different content"})
				continue
			}
			entry.Adopted = true
		default:
			return nil, nil, services.Wrap(services.ErrInvalidInput, "items", "store", asset.Name, err)
		}
		placed = append(placed, entry)
	}
	return placed, skips, nil
}
