package preflight

import (
	"context"

	"audiosurvey/internal/config"
	"audiosurvey/internal/content"
	"audiosurvey/internal/survey"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Identities lists every survey slot in display order.
var Identities = []survey.Identity{
	{Kind: survey.KindSingleEvent, Stage: survey.StageGuide},
	{Kind: survey.KindSingleEvent, Stage: survey.StageTest},
	{Kind: survey.KindEventTags, Stage: survey.StageGuide},
	{Kind: survey.KindEventTags, Stage: survey.StageTest},
	{Kind: survey.KindQualityPairs, Stage: survey.StageNone},
}

// RunAll checks the configured directories. Archive checks are informational:
// a missing archive only fails the slot it belongs to.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Archive directory", cfg.Paths.ArchiveDir),
		CheckDirectoryAccess("Storage directory", cfg.Paths.StorageDir),
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	source := content.DirSource{Root: cfg.Paths.ArchiveDir}
	for _, id := range Identities {
		if ctx.Err() != nil {
			break
		}
		results = append(results, CheckArchive(ctx, source, id))
	}
	return results
}
