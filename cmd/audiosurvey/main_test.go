package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audiosurvey/internal/services"
	"audiosurvey/internal/testsupport"
)

type cliEnv struct {
	t          *testing.T
	base       string
	configPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	return newCLIEnvAtLevel(t, "error")
}

func newCLIEnvAtLevel(t *testing.T, level string) *cliEnv {
	t.Helper()
	base := t.TempDir()
	configPath := filepath.Join(base, "audiosurvey.toml")
	body := fmt.Sprintf(`[paths]
archive_dir = %q
storage_dir = %q
staging_dir = %q
log_dir = %q

[logging]
level = %q
`,
		filepath.Join(base, "archives"),
		filepath.Join(base, "uploads"),
		filepath.Join(base, "staging"),
		filepath.Join(base, "logs"),
		level)
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{t: t, base: base, configPath: configPath}
}

func (e *cliEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	if err != nil {
		e.t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func (e *cliEnv) tagsArchive() string {
	e.t.Helper()
	return testsupport.WriteArchive(e.t, filepath.Join(e.base, "upload.zip"),
		testsupport.Audio("clip_a.wav"),
		testsupport.Audio("clip_b.wav"),
		testsupport.JSON(e.t, "clip_a.json", map[string]any{"sample_pool": []string{"Dog", "Cat"}, "sample_selected": "Dog"}),
		testsupport.JSON(e.t, "clip_b.json", map[string]any{"sample_pool": []string{"Rain"}, "sample_selected": "Rain"}),
	)
}

func TestPublishItemsAndScore(t *testing.T) {
	env := newCLIEnv(t)
	archive := env.tagsArchive()

	out := env.mustRun("--json", "publish", "2", archive, "--stage", "guide")
	var summary struct {
		Survey  string `json:"survey"`
		RunID   string `json:"run_id"`
		Items   int    `json:"items"`
		KeySize int    `json:"key_size"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode publish output: %v\n%s", err, out)
	}
	if summary.Survey != "survey2/guide" || summary.Items != 2 || summary.KeySize != 2 || summary.RunID == "" {
		t.Fatalf("unexpected publish summary %+v", summary)
	}

	out = env.mustRun("--json", "items", "survey2", "-s", "guide")
	var view struct {
		Survey string `json:"survey"`
		Items  []struct {
			Index   int    `json:"index"`
			Audio   string `json:"audio"`
			Options []struct {
				Label string `json:"label"`
			} `json:"options"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode items output: %v\n%s", err, out)
	}
	if len(view.Items) != 2 || view.Items[0].Audio != "survey2/guide/clip_a.wav" {
		t.Fatalf("unexpected items %+v", view.Items)
	}
	if len(view.Items[0].Options) != 4 || view.Items[0].Options[0].Label != "Dog" {
		t.Fatalf("unexpected options %+v", view.Items[0].Options)
	}

	answers := filepath.Join(env.base, "answers.json")
	if err := os.WriteFile(answers, []byte(`[{"index":0,"answer":" dog "},{"index":1,"answer":"Wind"}]`), 0o644); err != nil {
		t.Fatalf("write answers: %v", err)
	}
	out = env.mustRun("score", "2", "--stage", "guide", "--answers", answers)
	if !strings.Contains(out, "Passed: no") || !strings.Contains(out, "(1/2)") {
		t.Fatalf("unexpected score output:\n%s", out)
	}

	out, err := env.run(`[{"index":0,"answer":"Dog"},{"index":1,"answer":"rain"}]`, "--json", "score", "2", "--stage", "guide", "--answers", "-")
	if err != nil {
		t.Fatalf("score from stdin: %v\n%s", err, out)
	}
	var outcome struct {
		Result struct {
			Passed   bool    `json:"passed"`
			Accuracy float64 `json:"accuracy"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("decode score output: %v\n%s", err, out)
	}
	if !outcome.Result.Passed || outcome.Result.Accuracy != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	out = env.mustRun("resolve", "survey2/guide/clip_b.wav")
	if want := filepath.Join(env.base, "uploads", "survey2", "guide", "clip_b.wav"); strings.TrimSpace(out) != want {
		t.Fatalf("resolve = %q, want %q", strings.TrimSpace(out), want)
	}

	out = env.mustRun("catalog", "list")
	if !strings.Contains(out, summary.RunID) || !strings.Contains(out, "survey2/guide") {
		t.Fatalf("catalog list missing build:\n%s", out)
	}
	out = env.mustRun("catalog", "show", summary.RunID)
	if !strings.Contains(out, "survey2/guide/clip_a.wav") {
		t.Fatalf("catalog show missing entry:\n%s", out)
	}
}

func TestItemsForMissingArchiveIsNotFound(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("", "items", "1", "--stage", "test")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if code := exitCode(err); code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
}

func TestInvalidIdentityIsInvalidInput(t *testing.T) {
	env := newCLIEnv(t)
	for _, args := range [][]string{
		{"items", "2"},
		{"items", "3", "--stage", "guide"},
		{"items", "7"},
	} {
		_, err := env.run("", args...)
		if !errors.Is(err, services.ErrInvalidInput) {
			t.Fatalf("%v: expected invalid input, got %v", args, err)
		}
		if code := exitCode(err); code != 2 {
			t.Fatalf("%v: exit code = %d, want 2", args, code)
		}
	}
}

func TestScoreRejectsEmptyAnswers(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("[]", "score", "1", "--stage", "guide", "--answers", "-")
	if !errors.Is(err, errNoAnswers) {
		t.Fatalf("expected errNoAnswers, got %v", err)
	}
}

func TestPublishNoBuildAndStagingCommands(t *testing.T) {
	env := newCLIEnv(t)
	archive := env.tagsArchive()

	out := env.mustRun("publish", "2", archive, "--stage", "test", "--no-build")
	if !strings.Contains(out, "Published survey2/test") {
		t.Fatalf("unexpected publish output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(env.base, "archives", "survey2", "test.zip")); err != nil {
		t.Fatalf("published archive missing: %v", err)
	}

	stale := filepath.Join(env.base, "staging", "survey2-test-abandoned")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	out = env.mustRun("staging", "list")
	if !strings.Contains(out, "survey2-test-abandoned") {
		t.Fatalf("staging list missing directory:\n%s", out)
	}
	out = env.mustRun("staging", "clean", "--all")
	if !strings.Contains(out, "Removed") {
		t.Fatalf("unexpected clean output:\n%s", out)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale directory removed, stat err=%v", err)
	}
}

func TestStatusReportsArchives(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("publish", "2", env.tagsArchive(), "--stage", "guide", "--no-build")

	out := env.mustRun("--json", "status")
	var results []struct {
		Name   string `json:"name"`
		Passed bool   `json:"passed"`
	}
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode status output: %v\n%s", err, out)
	}
	passed := map[string]bool{}
	for _, r := range results {
		passed[r.Name] = r.Passed
	}
	if !passed["Storage directory"] || !passed["Archive survey2/guide"] || passed["Archive survey2/test"] {
		t.Fatalf("unexpected status %+v", results)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := newCLIEnv(t)
	target := filepath.Join(env.base, "sample.toml")

	env.mustRun("config", "init", "--path", target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
	if _, err := env.run("", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	env.mustRun("config", "init", "--path", target, "--overwrite")

	out := env.mustRun("config", "show")
	if !strings.Contains(out, "option_count = 4") || !strings.Contains(out, filepath.Join(env.base, "archives")) {
		t.Fatalf("unexpected config show output:\n%s", out)
	}
}

func TestLogLinesCarryCorrelationID(t *testing.T) {
	env := newCLIEnvAtLevel(t, "info")
	env.mustRun("publish", "2", env.tagsArchive(), "--stage", "guide")
	if _, err := env.run("", "items", "1", "--stage", "test"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	data, err := os.ReadFile(filepath.Join(env.base, "logs", "audiosurvey.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	ids := map[string]bool{}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, "content_built") && !strings.Contains(line, "content_build_failed") {
			continue
		}
		_, rest, ok := strings.Cut(line, "correlation_id=")
		if !ok {
			t.Fatalf("log line without correlation id: %s", line)
		}
		ids[strings.Fields(rest)[0]] = true
	}
	if len(ids) != 2 {
		t.Fatalf("expected one correlation id per invocation, got %v\n%s", ids, data)
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.Wrap(services.ErrNotFound, "c", "op", "m", nil), 3},
		{services.Wrap(services.ErrExtraction, "c", "op", "m", nil), 4},
		{services.Wrap(services.ErrValidation, "c", "op", "m", nil), 4},
		{services.Wrap(services.ErrInvalidInput, "c", "op", "m", nil), 2},
		{errors.New("boom"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
