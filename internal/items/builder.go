// Package items joins stored audio assets to their metadata and produces the
// indexed item lists, option sets and answer keys for survey types 1 and 2.
package items

import (
	"context"
	"fmt"
	"log/slog"

	"audiosurvey/internal/archive"
	"audiosurvey/internal/distractor"
	"audiosurvey/internal/logging"
	"audiosurvey/internal/metadata"
	"audiosurvey/internal/services"
	"audiosurvey/internal/survey"
)

// Result is the output of one item build.
type Result struct {
	Items   []survey.Item
	Key     survey.AnswerKey
	Skipped []survey.Skip
}

// Builder produces item lists for tagged and single-event surveys.
type Builder struct {
	storageRoot string
	optionCount int
	sampler     *distractor.Sampler
	logger      *slog.Logger
}

// NewBuilder constructs a builder writing into storageRoot.
func NewBuilder(storageRoot string, optionCount int, sampler *distractor.Sampler, logger *slog.Logger) *Builder {
	if sampler == nil {
		sampler = distractor.New(nil)
	}
	return &Builder{
		storageRoot: storageRoot,
		optionCount: optionCount,
		sampler:     sampler,
		logger:      logging.NewComponentLogger(logger, "items"),
	}
}

// Build stores assets for id and returns its items. Indices are contiguous
// from zero over the assets that survive placement, in ascending name order.
func (b *Builder) Build(ctx context.Context, id survey.Identity, assets []archive.RawAsset, records map[string]metadata.Record) (*Result, error) {
	if id.Kind != survey.KindSingleEvent && id.Kind != survey.KindEventTags {
		return nil, services.Wrap(services.ErrInvalidInput, "items", "build", fmt.Sprintf("%s is not an item survey", id), nil)
	}
	logger := logging.WithContext(ctx, b.logger)

	placed, skips, err := Place(ctx, b.storageRoot, id, assets, logger)
	if err != nil {
		return nil, err
	}
	if len(placed) == 0 {
		return nil, services.Wrap(services.ErrValidation, "items", "build", fmt.Sprintf("%s has no usable audio", id), nil)
	}

	res := &Result{Items: make([]survey.Item, len(placed)), Skipped: skips}
	for i, p := range placed {
		res.Items[i] = survey.Item{Index: i, Name: p.Name, Audio: p.Audio}
	}

	switch id.Kind {
	case survey.KindSingleEvent:
		err = b.singleEvent(id, res, records)
	case survey.KindEventTags:
		err = b.eventTags(id, placed, res, records, logger)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("items built",
		logging.Int("item_count", len(res.Items)),
		logging.Int("key_size", len(res.Key)),
		logging.Int("skipped_count", len(res.Skipped)))
	return res, nil
}

func (b *Builder) singleEvent(id survey.Identity, res *Result, records map[string]metadata.Record) error {
	if id.Stage != survey.StageGuide {
		return nil
	}
	answers := metadata.BooleanAnswers(records)
	if len(answers) == 0 {
		return services.Wrap(services.ErrValidation, "items", "answer key", fmt.Sprintf("%s has no answer record", id), nil)
	}
	key := make(survey.AnswerKey)
	for _, item := range res.Items {
		value, ok := answers[item.Name]
		if !ok {
			value, ok = answers[archive.BaseName(item.Name)]
		}
		if ok {
			key[item.Index] = survey.BoolTruth(value)
		}
	}
	if len(key) == 0 {
		return services.Wrap(services.ErrValidation, "items", "answer key", fmt.Sprintf("%s answers match no audio", id), nil)
	}
	res.Key = key
	return nil
}

func (b *Builder) eventTags(id survey.Identity, placed []Placed, res *Result, records map[string]metadata.Record, logger *slog.Logger) error {
	guide := id.Stage == survey.StageGuide
	if guide {
		res.Key = make(survey.AnswerKey, len(placed))
	}
	for i, p := range placed {
		rec, ok := records[p.Base()]
		if guide {
			if !ok || !rec.HasSelection() {
				return services.Wrap(services.ErrValidation, "items", "answer key", fmt.Sprintf("%s has no selected answer", p.Name), nil)
			}
			res.Key[i] = survey.TextTruth(rec.Selected)
		} else if !ok {
			logging.WarnWithContext(logger, "audio has no usable tag metadata", "item_without_tags",
				logging.String("asset", p.Name),
				logging.String(logging.FieldErrorHint, "add a json sidecar with the same base name"),
				logging.String(logging.FieldImpact, "item is shown without options"))
			continue
		}
		res.Items[i].Options = survey.TagOptions(b.sampler.Options(rec, b.optionCount))
	}
	return nil
}
