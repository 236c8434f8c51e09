// Package content builds and caches the item data for each survey identity.
//
// Store is the single entry point: Get returns the StageData for an identity,
// building it on first use from the archive located by an ArchiveSource.
// Concurrent first requests share one build through singleflight, and a file
// lock per survey storage directory keeps separate processes from moving
// assets into the same slots at the same time. Built entries are immutable
// and live until Evict is called.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"audiosurvey/internal/archive"
	"audiosurvey/internal/config"
	"audiosurvey/internal/distractor"
	"audiosurvey/internal/items"
	"audiosurvey/internal/logging"
	"audiosurvey/internal/metadata"
	"audiosurvey/internal/pairing"
	"audiosurvey/internal/services"
	"audiosurvey/internal/staging"
	"audiosurvey/internal/survey"
)

const lockRetryDelay = 100 * time.Millisecond

// Recorder persists finished builds. catalog.Store satisfies it.
type Recorder interface {
	RecordBuild(ctx context.Context, data *survey.StageData, archivePath string) error
}

// Option customizes a Store.
type Option func(*Store)

// WithRecorder records every finished build.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithRandSource overrides the random source handed to each build.
func WithRandSource(fn func() *rand.Rand) Option {
	return func(s *Store) {
		if fn != nil {
			s.newRand = fn
		}
	}
}

// WithClock overrides the build timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store memoizes built StageData per identity.
type Store struct {
	cfg      *config.Config
	source   ArchiveSource
	recorder Recorder
	base     *slog.Logger
	logger   *slog.Logger
	newRand  func() *rand.Rand
	now      func() time.Time

	mu      sync.RWMutex
	entries map[survey.Identity]*survey.StageData
	group   singleflight.Group
}

// NewStore constructs a content store. A nil source reads archives from
// cfg.Paths.ArchiveDir.
func NewStore(cfg *config.Config, source ArchiveSource, logger *slog.Logger, opts ...Option) *Store {
	if source == nil {
		source = DirSource{Root: cfg.Paths.ArchiveDir}
	}
	s := &Store{
		cfg:     cfg,
		source:  source,
		base:    logger,
		logger:  logging.NewComponentLogger(logger, "content"),
		entries: make(map[survey.Identity]*survey.StageData),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the StageData for id, building it on first use. Concurrent
// callers for the same identity wait for a single build. Each call returns
// its own copy; the cached build is never handed out.
func (s *Store) Get(ctx context.Context, id survey.Identity) (*survey.StageData, error) {
	if _, err := survey.NewIdentity(id.Kind, id.Stage); err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "content", "get", err.Error(), nil)
	}
	if data, ok := s.cached(id); ok {
		return data.Clone(), nil
	}

	ch := s.group.DoChan(id.String(), func() (any, error) {
		if data, ok := s.cached(id); ok {
			return data, nil
		}
		// The build outlives a single caller's cancellation so that waiting
		// callers still receive the result.
		data, err := s.build(context.WithoutCancel(ctx), id)
		if err != nil {
			logging.ErrorWithContext(logging.WithContext(services.WithIdentity(ctx, id), s.logger),
				"survey content build failed", "content_build_failed",
				logging.Error(err),
				logging.String("error_kind", services.Kind(err)),
				logging.String(logging.FieldErrorHint, buildFailureHint(err)))
			return nil, err
		}
		s.mu.Lock()
		s.entries[id] = data
		s.mu.Unlock()
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*survey.StageData).Clone(), nil
	}
}

func (s *Store) cached(id survey.Identity) (*survey.StageData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.entries[id]
	return data, ok
}

// Cached lists the identities currently held in memory.
func (s *Store) Cached() []survey.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]survey.Identity, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	return out
}

// Evict drops the cached entry for id so the next Get rebuilds it. Assets
// already placed in storage stay where they are and are adopted on rebuild.
func (s *Store) Evict(id survey.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

func (s *Store) build(ctx context.Context, id survey.Identity) (*survey.StageData, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(services.WithIdentity(ctx, id), runID)
	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()

	archivePath, err := s.source.Locate(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockStorage(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	workDir, err := staging.NewWorkDir(s.cfg.Paths.StagingDir, id, runID)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "content", "stage", "create work directory", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logging.WarnWithContext(logger, "failed to remove work directory", "staging_cleanup_failed",
				logging.String("path", workDir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run audiosurvey staging clean"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"))
		}
	}()

	extracted, err := archive.Extract(ctx, archivePath, filepath.Join(workDir, "extract"), archive.Options{
		MaxEntryBytes: s.cfg.MaxEntryBytes(),
		Logger:        s.base,
	})
	if err != nil {
		return nil, err
	}
	records, metaSkips := metadata.NormalizeAll(extracted.Sidecars)

	data := &survey.StageData{
		Identity: id,
		RunID:    runID,
		BuiltAt:  s.now().UTC(),
	}
	data.Skipped = append(data.Skipped, extracted.Skipped...)
	data.Skipped = append(data.Skipped, metaSkips...)

	storageRoot := s.cfg.Paths.StorageDir
	if id.Kind == survey.KindQualityPairs {
		builder := pairing.NewBuilder(storageRoot, s.pairingConfig(), s.base)
		res, err := builder.Build(ctx, id, extracted.Assets)
		if err != nil {
			return nil, err
		}
		data.Pairs = res.Pairs
		data.Skipped = append(data.Skipped, res.Skipped...)
	} else {
		builder := items.NewBuilder(storageRoot, s.cfg.Survey.OptionCount, distractor.New(s.newRand()), s.base)
		res, err := builder.Build(ctx, id, extracted.Assets, records)
		if err != nil {
			return nil, err
		}
		data.Items = res.Items
		data.Key = res.Key
		data.Skipped = append(data.Skipped, res.Skipped...)
	}

	if s.recorder != nil {
		if err := s.recorder.RecordBuild(ctx, data, archivePath); err != nil {
			logging.WarnWithContext(logger, "failed to record build in catalog", "catalog_record_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the catalog database under log_dir"),
				logging.String(logging.FieldImpact, "build is served but not audited"))
		}
	}

	logger.Info("survey content built",
		logging.String(logging.FieldEventType, "content_built"),
		logging.String("archive", filepath.Base(archivePath)),
		logging.Int("item_count", data.Len()),
		logging.Int("key_size", len(data.Key)),
		logging.Int("skipped_count", len(data.Skipped)),
		logging.Duration("elapsed", time.Since(started)))
	for _, skip := range data.Skipped {
		logger.Debug("input skipped", logging.String("entry", skip.Name), logging.String("reason", skip.Reason))
	}
	return data, nil
}

func buildFailureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "publish an archive with audiosurvey publish"
	case errors.Is(err, services.ErrExtraction):
		return "check that the archive is a readable tar, tar.gz, tgz or zip file"
	case errors.Is(err, services.ErrValidation):
		return "check the audio files and json sidecars in the archive"
	default:
		return "check logs for details"
	}
}

func (s *Store) pairingConfig() pairing.Config {
	p := s.cfg.Pairing
	return pairing.Config{
		Baseline:  pairing.Variant{Prefix: p.BaselinePrefix, Name: p.BaselineVariant},
		Processed: pairing.Variant{Prefix: p.ProcessedPrefix, Name: p.ProcessedVariant},
	}
}

// lockStorage takes the cross-process lock guarding a survey's storage
// directory.
func (s *Store) lockStorage(ctx context.Context, id survey.Identity) (func(), error) {
	path := staging.BuildLockPath(s.cfg.Paths.StorageDir, id.Kind)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "content", "lock", "create storage directory", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrInvalidInput, "content", "lock", "acquire storage lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrInvalidInput, "content", "lock", fmt.Sprintf("storage for %s is locked", id.Kind), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}
