package content_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"audiosurvey/internal/config"
	"audiosurvey/internal/content"
	"audiosurvey/internal/distractor"
	"audiosurvey/internal/services"
	"audiosurvey/internal/survey"
	"audiosurvey/internal/testsupport"
)

var (
	tagsGuide = survey.Identity{Kind: survey.KindEventTags, Stage: survey.StageGuide}
	pairsID   = survey.Identity{Kind: survey.KindQualityPairs}
)

type countingSource struct {
	inner content.ArchiveSource
	calls atomic.Int32
}

func (c *countingSource) Locate(ctx context.Context, id survey.Identity) (string, error) {
	c.calls.Add(1)
	return c.inner.Locate(ctx, id)
}

type memoryRecorder struct {
	mu     sync.Mutex
	builds []*survey.StageData
}

func (r *memoryRecorder) RecordBuild(_ context.Context, data *survey.StageData, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builds = append(r.builds, data)
	return nil
}

func publishTagsGuide(t *testing.T, cfg *config.Config) {
	t.Helper()
	src := testsupport.WriteArchive(t, filepath.Join(t.TempDir(), "upload.tar.gz"),
		testsupport.Audio("clip_b.wav"),
		testsupport.Audio("clip_a.wav"),
		testsupport.JSON(t, "clip_a.json", map[string]any{"sample_pool": []string{"Dog", "Cat", "Bird"}, "sample_selected": "Dog"}),
		testsupport.JSON(t, "clip_b.json", map[string]any{"sample_pool": []string{"Rain"}, "sample_selected": "Rain"}),
		testsupport.Raw("extra.json", "{broken"),
	)
	if _, err := (content.DirSource{Root: cfg.Paths.ArchiveDir}).Publish(tagsGuide, src); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func seededRand() func() *rand.Rand {
	return func() *rand.Rand { return rand.New(rand.NewPCG(3, 4)) }
}

func TestGetBuildsOnceAndCaches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	publishTagsGuide(t, cfg)
	source := &countingSource{inner: content.DirSource{Root: cfg.Paths.ArchiveDir}}
	recorder := &memoryRecorder{}
	store := content.NewStore(cfg, source, nil, content.WithRecorder(recorder), content.WithRandSource(seededRand()))

	first, err := store.Get(context.Background(), tagsGuide)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(first.Items) != 2 || first.Items[0].Audio != "survey2/guide/clip_a.wav" || first.Items[1].Audio != "survey2/guide/clip_b.wav" {
		t.Fatalf("unexpected items %+v", first.Items)
	}
	wantKey := survey.AnswerKey{0: survey.TextTruth("Dog"), 1: survey.TextTruth("Rain")}
	if diff := cmp.Diff(wantKey, first.Key); diff != "" {
		t.Fatalf("key mismatch (-want +got):\n%s", diff)
	}
	if len(first.Skipped) != 1 || first.Skipped[0].Name != "extra.json" {
		t.Fatalf("expected the broken sidecar to be reported, got %v", first.Skipped)
	}
	if first.RunID == "" || first.BuiltAt.IsZero() {
		t.Fatalf("build metadata missing: %+v", first)
	}

	second, err := store.Get(context.Background(), tagsGuide)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if second == first || second.RunID != first.RunID {
		t.Fatal("expected a copy of the cached build")
	}
	if diff := cmp.Diff(first.Items, second.Items); diff != "" {
		t.Fatalf("items changed between calls (-first +second):\n%s", diff)
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected one archive lookup, got %d", got)
	}
	if len(recorder.builds) != 1 {
		t.Fatalf("expected one recorded build, got %d", len(recorder.builds))
	}

	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("read staging: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work directory should be removed after build, found %d entries", len(entries))
	}
}

func TestGetConcurrentCallersShareOneBuild(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	publishTagsGuide(t, cfg)
	source := &countingSource{inner: content.DirSource{Root: cfg.Paths.ArchiveDir}}
	store := content.NewStore(cfg, source, nil)

	const callers = 16
	results := make([]*survey.StageData, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = store.Get(context.Background(), tagsGuide)
		}()
	}
	wg.Wait()

	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].RunID != results[0].RunID {
			t.Fatalf("caller %d received a different build", i)
		}
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one build, got %d archive lookups", got)
	}
}

func TestGetMissingArchiveIsNotFoundAndNotCached(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := content.NewStore(cfg, nil, nil)

	_, err := store.Get(context.Background(), tagsGuide)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(store.Cached()) != 0 {
		t.Fatal("failed builds must not be cached")
	}

	publishTagsGuide(t, cfg)
	if _, err := store.Get(context.Background(), tagsGuide); err != nil {
		t.Fatalf("Get after publish: %v", err)
	}
}

func TestGetRejectsInvalidIdentity(t *testing.T) {
	store := content.NewStore(testsupport.NewConfig(t), nil, nil)
	_, err := store.Get(context.Background(), survey.Identity{Kind: survey.KindEventTags})
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestGetSurfacesExtractionErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := filepath.Join(cfg.Paths.ArchiveDir, "survey2")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "guide.zip"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := content.NewStore(cfg, nil, nil).Get(context.Background(), tagsGuide)
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestGetBuildsPairs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	src := testsupport.WriteArchive(t, filepath.Join(t.TempDir(), "pairs.zip"),
		testsupport.Audio("raw_sample_7.wav"),
		testsupport.Audio("superres_sample_7.wav"),
		testsupport.Audio("raw_sample_9.wav"),
	)
	if _, err := (content.DirSource{Root: cfg.Paths.ArchiveDir}).Publish(pairsID, src); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	data, err := content.NewStore(cfg, nil, nil).Get(context.Background(), pairsID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(data.Pairs) != 1 || data.Pairs[0].Key != "7" || data.Len() != 1 {
		t.Fatalf("unexpected pairs %+v", data.Pairs)
	}
}

func TestRebuildAfterEvictAdoptsStoredAssets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	publishTagsGuide(t, cfg)
	store := content.NewStore(cfg, nil, nil, content.WithRandSource(seededRand()))

	first, err := store.Get(context.Background(), tagsGuide)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !store.Evict(tagsGuide) {
		t.Fatal("expected entry to be evicted")
	}
	second, err := store.Get(context.Background(), tagsGuide)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if second == first || second.RunID == first.RunID {
		t.Fatal("expected a fresh build after eviction")
	}
	if diff := cmp.Diff(first.Items, second.Items); diff != "" {
		t.Fatalf("rebuild changed items (-first +second):\n%s", diff)
	}
}

func TestResolve(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	publishTagsGuide(t, cfg)
	store := content.NewStore(cfg, nil, nil)
	data, err := store.Get(context.Background(), tagsGuide)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	path, err := store.Resolve(data.Items[0].Audio)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path != filepath.Join(cfg.Paths.StorageDir, "survey2", "guide", "clip_a.wav") {
		t.Fatalf("unexpected path %s", path)
	}

	if _, err := store.Resolve("survey2/guide/missing.wav"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, bad := range []survey.AudioRef{"survey2/../../etc/passwd", "survey9/guide/a.wav", "survey2/pairs/a.wav", "survey3/test/a.wav", "survey2/none/a.wav"} {
		if _, err := store.Resolve(bad); !errors.Is(err, services.ErrInvalidInput) {
			t.Fatalf("expected %q to be rejected, got %v", bad, err)
		}
	}
}

func TestGetHonoursConfiguredOptionCount(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOptionCount(2))
	publishTagsGuide(t, cfg)

	data, err := content.NewStore(cfg, nil, nil, content.WithRandSource(seededRand())).Get(context.Background(), tagsGuide)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, item := range data.Items {
		labels := survey.Labels(item.Options)
		if len(labels) != 2 || labels[1] != distractor.NoneOfTheAbove {
			t.Fatalf("item %d: unexpected options %v", item.Index, labels)
		}
	}
	if got := survey.Labels(data.Items[0].Options)[0]; got != "Dog" {
		t.Fatalf("expected the selected tag first, got %q", got)
	}
}

func TestGetReturnsIsolatedCopies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	publishTagsGuide(t, cfg)
	store := content.NewStore(cfg, nil, nil, content.WithRandSource(seededRand()))

	first, err := store.Get(context.Background(), tagsGuide)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	wantItems := first.Clone().Items
	wantKey := first.Clone().Key

	first.Items[0].Audio = "changed"
	first.Items[0].Options[0].Label = "changed"
	first.Key[0] = survey.TextTruth("changed")
	first.Items = first.Items[:1]

	second, err := store.Get(context.Background(), tagsGuide)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if diff := cmp.Diff(wantItems, second.Items); diff != "" {
		t.Fatalf("cached items changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantKey, second.Key); diff != "" {
		t.Fatalf("cached key changed (-want +got):\n%s", diff)
	}
}
