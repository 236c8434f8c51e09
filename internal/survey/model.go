package survey

import (
	"errors"
	"path"
	"strings"
	"time"
)

// AudioRef is an opaque locator for a stored audio asset. It is safe to hand
// to clients; only the content store can turn it back into a path.
type AudioRef string

// NewAudioRef builds the reference for a file stored under id.
func NewAudioRef(id Identity, fileName string) AudioRef {
	return AudioRef(path.Join(id.Kind.Dir(), id.Slot(), fileName))
}

// Split returns the kind directory, stage slot and file name encoded in the
// reference. References that do not have exactly three clean segments are
// rejected.
func (r AudioRef) Split() (kindDir, slot, fileName string, err error) {
	raw := string(r)
	if raw == "" || strings.HasPrefix(raw, "/") || path.Clean(raw) != raw {
		return "", "", "", errors.New("malformed audio reference")
	}
	parts := strings.Split(raw, "/")
	if len(parts) != 3 {
		return "", "", "", errors.New("malformed audio reference")
	}
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return "", "", "", errors.New("malformed audio reference")
		}
	}
	return parts[0], parts[1], parts[2], nil
}

// Option is one presentable choice. Tag options only carry a Label; pair
// options also carry the variant identifier and its audio.
type Option struct {
	Label   string   `json:"label"`
	Variant string   `json:"variant,omitempty"`
	Audio   AudioRef `json:"audio,omitempty"`
}

// TagOptions wraps plain tag strings as options.
func TagOptions(tags []string) []Option {
	if len(tags) == 0 {
		return nil
	}
	out := make([]Option, len(tags))
	for i, tag := range tags {
		out[i] = Option{Label: tag}
	}
	return out
}

// Labels returns the option labels in order.
func Labels(options []Option) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = opt.Label
	}
	return out
}

// Item is one survey question.
type Item struct {
	Index   int      `json:"index"`
	Name    string   `json:"-"`
	Audio   AudioRef `json:"audio"`
	Options []Option `json:"options,omitempty"`
}

// PairItem is one paired comparison. Options holds the two variants; their
// order is only meaningful for a single presentation.
type PairItem struct {
	Index   int       `json:"index"`
	Key     string    `json:"key"`
	Options [2]Option `json:"options"`
}

// Truth is the ground-truth value of a guide item. Kind 1 keys carry Flag,
// kind 2 keys carry Text.
type Truth struct {
	Flag *bool  `json:"flag,omitempty"`
	Text string `json:"text,omitempty"`
}

// BoolTruth builds a boolean ground truth.
func BoolTruth(v bool) Truth { return Truth{Flag: &v} }

// TextTruth builds a string ground truth.
func TextTruth(v string) Truth { return Truth{Text: v} }

// IsBool reports whether the truth is boolean.
func (t Truth) IsBool() bool { return t.Flag != nil }

// AnswerKey maps item index to ground truth.
type AnswerKey map[int]Truth

// Skip records an input that was deliberately left out of a build, such as a
// malformed sidecar or an asset whose storage slot holds different bytes.
type Skip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func (s Skip) String() string { return s.Name + ": " + s.Reason }

// StageData is the immutable result of building one Identity.
type StageData struct {
	Identity Identity
	Items    []Item
	Pairs    []PairItem
	Key      AnswerKey
	RunID    string
	BuiltAt  time.Time
	Skipped  []Skip
}

// Len returns the size of the index space (items or pairs).
func (d *StageData) Len() int {
	if d == nil {
		return 0
	}
	if d.Identity.Kind == KindQualityPairs {
		return len(d.Pairs)
	}
	return len(d.Items)
}

// Clone returns a deep copy so callers can modify the result without touching
// a cached build.
func (d *StageData) Clone() *StageData {
	if d == nil {
		return nil
	}
	out := *d
	if d.Items != nil {
		out.Items = make([]Item, len(d.Items))
		for i, item := range d.Items {
			item.Options = append([]Option(nil), item.Options...)
			out.Items[i] = item
		}
	}
	if d.Pairs != nil {
		out.Pairs = append([]PairItem(nil), d.Pairs...)
	}
	if d.Key != nil {
		out.Key = make(AnswerKey, len(d.Key))
		for idx, truth := range d.Key {
			if truth.Flag != nil {
				truth = BoolTruth(*truth.Flag)
			}
			out.Key[idx] = truth
		}
	}
	if d.Skipped != nil {
		out.Skipped = append([]Skip(nil), d.Skipped...)
	}
	return &out
}
