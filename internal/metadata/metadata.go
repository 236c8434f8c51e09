// Package metadata turns raw JSON sidecars into typed metadata records.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"audiosurvey/internal/survey"
)

// RecordKind discriminates the Record union.
type RecordKind int

const (
	KindTagList RecordKind = iota + 1
	KindPoolSelection
	KindBooleanAnswer
)

func (k RecordKind) String() string {
	switch k {
	case KindTagList:
		return "tag_list"
	case KindPoolSelection:
		return "pool_selection"
	case KindBooleanAnswer:
		return "boolean_answer"
	default:
		return "unknown"
	}
}

// Record is a normalized sidecar. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Record struct {
	Kind RecordKind

	// Tags holds a TagList in file order.
	Tags []string

	// Pool and Selected hold a PoolSelection. Selected may be empty.
	Pool     []string
	Selected string

	// Answers maps an audio name to its ground truth for BooleanAnswer records.
	Answers map[string]bool
}

// HasSelection reports whether the record designates a correct answer.
func (r Record) HasSelection() bool {
	return r.Kind == KindPoolSelection && r.Selected != ""
}

// Outcome explains why a sidecar did not produce a record. A zero Outcome
// means the sidecar was accepted.
type Outcome struct {
	Skipped bool
	Reason  string
}

func skipped(format string, args ...any) Outcome {
	return Outcome{Skipped: true, Reason: fmt.Sprintf(format, args...)}
}

// Normalize classifies one raw sidecar.
func Normalize(raw json.RawMessage) (Record, Outcome) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Record{}, skipped("empty sidecar")
	}

	switch trimmed[0] {
	case '[':
		var values []any
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return Record{}, skipped("invalid tag list: %v", err)
		}
		return Record{Kind: KindTagList, Tags: stringList(values)}, Outcome{}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return Record{}, skipped("invalid object: %v", err)
		}
		if rawPool, ok := obj["sample_pool"]; ok {
			return poolSelection(rawPool, obj["sample_selected"])
		}
		if rawAnswers, ok := obj["answer"]; ok {
			return booleanAnswer(rawAnswers)
		}
		return Record{}, skipped("unrecognized object shape")
	default:
		return Record{}, skipped("unsupported json value")
	}
}

func poolSelection(rawPool, rawSelected json.RawMessage) (Record, Outcome) {
	var values []any
	if err := json.Unmarshal(rawPool, &values); err != nil {
		return Record{}, skipped("sample_pool is not a list")
	}
	rec := Record{Kind: KindPoolSelection, Pool: stringList(values)}
	if len(rawSelected) > 0 && !bytes.Equal(bytes.TrimSpace(rawSelected), []byte("null")) {
		var selected string
		if err := json.Unmarshal(rawSelected, &selected); err != nil {
			return Record{}, skipped("sample_selected is not a string")
		}
		rec.Selected = strings.TrimSpace(selected)
	}
	return rec, Outcome{}
}

type answerEntry struct {
	Audio  string          `json:"audio"`
	Answer json.RawMessage `json:"answer"`
}

func booleanAnswer(raw json.RawMessage) (Record, Outcome) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return Record{}, skipped("answer is not a list")
	}
	answers := make(map[string]bool, len(entries))
	for _, rawEntry := range entries {
		var entry answerEntry
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			continue
		}
		audio := strings.TrimSpace(entry.Audio)
		if audio == "" {
			continue
		}
		value, ok := parseBool(entry.Answer)
		if !ok {
			continue
		}
		answers[audio] = value
	}
	if len(answers) == 0 {
		return Record{}, skipped("answer list has no usable entries")
	}
	return Record{Kind: KindBooleanAnswer, Answers: answers}, Outcome{}
}

func parseBool(raw json.RawMessage) (bool, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		if t == 1 {
			return true, true
		}
		if t == 0 {
			return false, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

// stringList keeps the trimmed, non-empty strings of values in order.
func stringList(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeAll normalizes every sidecar. Rejected sidecars are returned as
// skips, ordered by name.
func NormalizeAll(sidecars map[string]json.RawMessage) (map[string]Record, []survey.Skip) {
	names := make([]string, 0, len(sidecars))
	for name := range sidecars {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make(map[string]Record, len(sidecars))
	var skips []survey.Skip
	for _, name := range names {
		rec, outcome := Normalize(sidecars[name])
		if outcome.Skipped {
			skips = append(skips, survey.Skip{Name: name + ".json", Reason: outcome.Reason})
			continue
		}
		records[name] = rec
	}
	return records, skips
}

// BooleanAnswers merges every BooleanAnswer record. The answer sidecar is not
// tied to a particular audio base name, so callers look up by audio name.
// Later records (by sidecar name) override earlier ones.
func BooleanAnswers(records map[string]Record) map[string]bool {
	names := make([]string, 0, len(records))
	for name, rec := range records {
		if rec.Kind == KindBooleanAnswer {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	merged := make(map[string]bool)
	for _, name := range names {
		for audio, v := range records[name].Answers {
			merged[audio] = v
		}
	}
	return merged
}
