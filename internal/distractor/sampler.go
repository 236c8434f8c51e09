// Package distractor builds multiple-choice option sets for tagged audio items.
package distractor

import (
	"math/rand/v2"
	"strings"

	"audiosurvey/internal/metadata"
)

// NoneOfTheAbove is the terminal marker appended to every sampled option set.
const NoneOfTheAbove = "none of the above"

// Supplemental is the fixed fallback vocabulary used when a pool is too small
// to fill the requested option count.
var Supplemental = []string{
	"Speech",
	"Music",
	"Dog",
	"Cat",
	"Bird",
	"Car",
	"Engine",
	"Siren",
	"Rain",
	"Wind",
	"Thunder",
	"Water",
	"Footsteps",
	"Door",
	"Applause",
	"Laughter",
	"Crying baby",
	"Telephone",
	"Alarm",
	"Keyboard typing",
}

// Sampler draws option sets. The zero value is not usable; construct with New.
type Sampler struct {
	rng *rand.Rand
}

// New returns a sampler drawing from rng. A nil rng uses an unseeded source.
func New(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{rng: rng}
}

// Options returns the option labels for rec with target size k.
//
// PoolSelection records place the selected answer first, then up to k-2
// shuffled pool distractors, then supplemental tags, and finally the
// NoneOfTheAbove marker. A selection that names the marker itself is answered
// by the terminal marker and is not repeated in the first slot. TagList
// records pass through their first k tags. Sets are never padded beyond the
// available real and fallback tags.
//
// With k == 1 there is no room for both an answer and the marker, so the
// result is the selected answer alone, or just the marker when nothing else
// is selected.
func (s *Sampler) Options(rec metadata.Record, k int) []string {
	if k <= 0 {
		return nil
	}
	switch rec.Kind {
	case metadata.KindTagList:
		if len(rec.Tags) <= k {
			return append([]string(nil), rec.Tags...)
		}
		return append([]string(nil), rec.Tags[:k]...)
	case metadata.KindPoolSelection:
		return s.poolOptions(rec, k)
	default:
		return nil
	}
}

func (s *Sampler) poolOptions(rec metadata.Record, k int) []string {
	seen := map[string]struct{}{fold(NoneOfTheAbove): {}}
	head := make([]string, 0, k)
	if rec.Selected != "" {
		if _, isMarker := seen[fold(rec.Selected)]; !isMarker {
			head = append(head, rec.Selected)
			seen[fold(rec.Selected)] = struct{}{}
		}
	}

	remaining := make([]string, 0, len(rec.Pool))
	for _, tag := range rec.Pool {
		key := fold(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		remaining = append(remaining, tag)
	}
	s.rng.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})

	// The pool contributes at most k-2 distractors; the last slot always holds
	// the terminal marker.
	take := min(max(k-2, 0), k-1-len(head), len(remaining))
	head = append(head, remaining[:max(take, 0)]...)

	if missing := k - 1 - len(head); missing > 0 {
		var candidates []string
		for _, tag := range Supplemental {
			if _, dup := seen[fold(tag)]; !dup {
				candidates = append(candidates, tag)
			}
		}
		for _, idx := range s.rng.Perm(len(candidates)) {
			if missing == 0 {
				break
			}
			head = append(head, candidates[idx])
			seen[fold(candidates[idx])] = struct{}{}
			missing--
		}
	}

	if k == 1 && len(head) > 0 {
		return head[:1]
	}
	return append(head, NoneOfTheAbove)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
