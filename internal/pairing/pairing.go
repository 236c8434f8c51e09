// Package pairing builds the paired-comparison index for survey type 3.
//
// Two file-name prefixes identify the baseline and processed variants of a
// clip; the remainder of the name up to the first dot is the pair key. Only
// keys with both variants present become pairs, and the presentation order
// of the two options is re-drawn on every read.
package pairing

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"audiosurvey/internal/archive"
	"audiosurvey/internal/items"
	"audiosurvey/internal/logging"
	"audiosurvey/internal/services"
	"audiosurvey/internal/survey"
)

// Variant maps an asset name prefix to a variant identifier.
type Variant struct {
	Prefix string
	Name   string
}

// Config names the two variants of a pair. Baseline fills slot 0.
type Config struct {
	Baseline  Variant
	Processed Variant
}

// DefaultConfig matches raw_sample_N against superres_sample_N.
func DefaultConfig() Config {
	return Config{
		Baseline:  Variant{Prefix: "raw_sample_", Name: "raw"},
		Processed: Variant{Prefix: "superres_sample_", Name: "superres"},
	}
}

// Split returns the variant slot and pair key for name, or ok=false when the
// name carries neither prefix or has an empty key.
func (c Config) Split(name string) (slot int, key string, ok bool) {
	lower := strings.ToLower(name)
	for i, v := range []Variant{c.Baseline, c.Processed} {
		prefix := strings.ToLower(v.Prefix)
		if prefix == "" || !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := lower[len(prefix):]
		if dot := strings.IndexByte(rest, '.'); dot >= 0 {
			rest = rest[:dot]
		}
		if rest == "" {
			return 0, "", false
		}
		return i, rest, true
	}
	return 0, "", false
}

func (c Config) variant(slot int) Variant {
	if slot == 0 {
		return c.Baseline
	}
	return c.Processed
}

// Result is the output of a pair build.
type Result struct {
	Pairs   []survey.PairItem
	Skipped []survey.Skip
}

// Builder stores pair assets and produces the ordered pair list.
type Builder struct {
	storageRoot string
	cfg         Config
	logger      *slog.Logger
}

// NewBuilder constructs a pair builder writing into storageRoot.
func NewBuilder(storageRoot string, cfg Config, logger *slog.Logger) *Builder {
	return &Builder{
		storageRoot: storageRoot,
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "pairing"),
	}
}

// Build stores the matched assets for id and returns complete pairs sorted by
// key. Unmatched names and incomplete pairs are left in staging; an archive
// without a single complete pair yields an empty result.
func (b *Builder) Build(ctx context.Context, id survey.Identity, assets []archive.RawAsset) (*Result, error) {
	if id.Kind != survey.KindQualityPairs {
		return nil, services.Wrap(services.ErrInvalidInput, "pairing", "build", id.String()+" is not a pair survey", nil)
	}
	if len(assets) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pairing", "build", id.String()+" has no usable audio", nil)
	}
	logger := logging.WithContext(ctx, b.logger)

	type slots [2]*archive.RawAsset
	byKey := make(map[string]*slots)
	for i := range assets {
		slot, key, ok := b.cfg.Split(assets[i].Name)
		if !ok {
			continue
		}
		entry := byKey[key]
		if entry == nil {
			entry = &slots{}
			byKey[key] = entry
		}
		if entry[slot] == nil || assets[i].Name < entry[slot].Name {
			entry[slot] = &assets[i]
		}
	}

	keys := make([]string, 0, len(byKey))
	var complete []archive.RawAsset
	for key, entry := range byKey {
		if entry[0] == nil || entry[1] == nil {
			continue
		}
		keys = append(keys, key)
		complete = append(complete, *entry[0], *entry[1])
	}
	SortKeys(keys)

	placed, skips, err := items.Place(ctx, b.storageRoot, id, complete, logger)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]survey.AudioRef, len(placed))
	for _, p := range placed {
		stored[p.Name] = p.Audio
	}

	res := &Result{Skipped: skips}
	for _, key := range keys {
		entry := byKey[key]
		var pair survey.PairItem
		pair.Key = key
		usable := true
		for slot := range 2 {
			ref, ok := stored[entry[slot].Name]
			if !ok {
				usable = false
				break
			}
			v := b.cfg.variant(slot)
			pair.Options[slot] = survey.Option{Variant: v.Name, Audio: ref}
		}
		if !usable {
			continue
		}
		pair.Index = len(res.Pairs)
		res.Pairs = append(res.Pairs, pair)
	}
	labelPairs(res.Pairs)

	logger.Debug("pairs built",
		logging.Int("pair_count", len(res.Pairs)),
		logging.Int("asset_count", len(assets)),
		logging.Int("skipped_count", len(res.Skipped)))
	return res, nil
}

// SortKeys orders numeric keys by value ahead of other keys, which sort
// lexicographically.
func SortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, aErr := strconv.ParseUint(keys[i], 10, 64)
		b, bErr := strconv.ParseUint(keys[j], 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}

// Present returns copies of pairs with each option order independently
// shuffled and labels reassigned to "A" and "B".
func Present(pairs []survey.PairItem, rng *rand.Rand) []survey.PairItem {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	out := make([]survey.PairItem, len(pairs))
	for i, pair := range pairs {
		if rng.IntN(2) == 1 {
			pair.Options[0], pair.Options[1] = pair.Options[1], pair.Options[0]
		}
		out[i] = pair
	}
	labelPairs(out)
	return out
}

func labelPairs(pairs []survey.PairItem) {
	for i := range pairs {
		pairs[i].Options[0].Label = "A"
		pairs[i].Options[1].Label = "B"
	}
}
