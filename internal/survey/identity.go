package survey

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the survey type number.
type Kind int

const (
	// KindSingleEvent asks whether a clip contains exactly one audio event.
	KindSingleEvent Kind = 1
	// KindEventTags asks the participant to pick the matching event tag.
	KindEventTags Kind = 2
	// KindQualityPairs compares a baseline clip against a processed variant.
	KindQualityPairs Kind = 3
)

// Valid reports whether k is one of the known survey types.
func (k Kind) Valid() bool {
	return k == KindSingleEvent || k == KindEventTags || k == KindQualityPairs
}

// Staged reports whether the kind runs a guide round before the test round.
func (k Kind) Staged() bool {
	return k == KindSingleEvent || k == KindEventTags
}

// Dir is the storage directory name for the kind (e.g. "survey2").
func (k Kind) Dir() string {
	return "survey" + strconv.Itoa(int(k))
}

func (k Kind) String() string { return k.Dir() }

// ParseKind converts a CLI or request value ("2", "survey2") to a Kind.
func ParseKind(value string) (Kind, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "survey")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid survey type %q", value)
	}
	k := Kind(n)
	if !k.Valid() {
		return 0, fmt.Errorf("unknown survey type %d", n)
	}
	return k, nil
}

// Stage selects which content set of a kind is addressed.
type Stage string

const (
	StageNone  Stage = ""
	StageGuide Stage = "guide"
	StageTest  Stage = "test"
)

// Scored reports whether submissions for the stage are checked against an answer key.
func (s Stage) Scored() bool { return s == StageGuide }

func (s Stage) String() string {
	if s == StageNone {
		return "none"
	}
	return string(s)
}

// ParseStage accepts "", "none", "guide" and "test" in any case.
func ParseStage(value string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return StageNone, nil
	case "guide":
		return StageGuide, nil
	case "test":
		return StageTest, nil
	default:
		return StageNone, fmt.Errorf("unknown stage %q", value)
	}
}

// Identity names one content set.
type Identity struct {
	Kind  Kind
	Stage Stage
}

// NewIdentity validates the kind/stage combination. Staged kinds require guide
// or test; kind 3 only accepts StageNone.
func NewIdentity(kind Kind, stage Stage) (Identity, error) {
	if !kind.Valid() {
		return Identity{}, fmt.Errorf("unknown survey type %d", int(kind))
	}
	switch {
	case kind.Staged() && stage == StageNone:
		return Identity{}, fmt.Errorf("%s requires a guide or test stage", kind)
	case !kind.Staged() && stage != StageNone:
		return Identity{}, fmt.Errorf("%s has no %s stage", kind, stage)
	}
	return Identity{Kind: kind, Stage: stage}, nil
}

// Slot is the storage subdirectory name for the identity's stage.
func (id Identity) Slot() string {
	if id.Stage == StageNone {
		return "pairs"
	}
	return string(id.Stage)
}

func (id Identity) String() string {
	return id.Kind.Dir() + "/" + id.Slot()
}
