package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"audiosurvey/internal/logging"
	"audiosurvey/internal/pairing"
	"audiosurvey/internal/services"
	"audiosurvey/internal/survey"
)

// Loader returns the built content for an identity. content.Store satisfies it.
type Loader interface {
	Get(ctx context.Context, id survey.Identity) (*survey.StageData, error)
}

// View is what a participant sees for one identity.
type View struct {
	Identity survey.Identity   `json:"-"`
	Survey   string            `json:"survey"`
	Stage    string            `json:"stage"`
	Items    []survey.Item     `json:"items,omitempty"`
	Pairs    []survey.PairItem `json:"pairs,omitempty"`
}

// Outcome is the response to a submission. Guide stages carry a Result;
// other stages echo the answers back.
type Outcome struct {
	Identity survey.Identity `json:"-"`
	Survey   string          `json:"survey"`
	Stage    string          `json:"stage"`
	Echo     []Submission    `json:"answers,omitempty"`
	Result   *Result         `json:"result,omitempty"`
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRandSource overrides the per-call random source used for pair order.
func WithRandSource(fn func() *rand.Rand) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newRand = fn
		}
	}
}

// Manager serves items and scores submissions on top of a Loader.
type Manager struct {
	loader  Loader
	logger  *slog.Logger
	newRand func() *rand.Rand
}

// NewManager constructs a manager reading content from loader.
func NewManager(loader Loader, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		loader: loader,
		logger: logging.NewComponentLogger(logger, "scoring"),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Items returns the item list for id. Pair surveys get a freshly shuffled
// presentation order on every call.
func (m *Manager) Items(ctx context.Context, id survey.Identity) (*View, error) {
	data, err := m.loader.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &View{Identity: id, Survey: id.Kind.Dir(), Stage: id.Stage.String(), Items: data.Items}
	if id.Kind == survey.KindQualityPairs {
		view.Pairs = pairing.Present(data.Pairs, m.newRand())
	}
	return view, nil
}

// Submit scores guide submissions or echoes answers for unscored stages.
// Indices outside the built item range are rejected.
func (m *Manager) Submit(ctx context.Context, id survey.Identity, subs []Submission) (*Outcome, error) {
	data, err := m.loader.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	size := data.Len()
	for _, sub := range subs {
		if sub.Index < 0 || sub.Index >= size {
			return nil, services.Wrap(services.ErrValidation, "scoring", "submit",
				fmt.Sprintf("index %d outside %s range 0..%d", sub.Index, id, size-1), nil)
		}
	}

	out := &Outcome{Identity: id, Survey: id.Kind.Dir(), Stage: id.Stage.String()}
	if !id.Stage.Scored() {
		out.Echo = append([]Submission(nil), subs...)
		return out, nil
	}

	res := Score(id.Kind, data.Key, subs)
	out.Result = &res
	logging.WithContext(ctx, m.logger).Info("guide scored",
		logging.String(logging.FieldSurvey, id.String()),
		logging.Int("correct", res.CorrectCount),
		logging.Int("total", res.Total),
		logging.Float64("accuracy", res.Accuracy),
		logging.Bool("passed", res.Passed))
	return out, nil
}
