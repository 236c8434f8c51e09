package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audiosurvey/internal/content"
	"audiosurvey/internal/survey"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string
	var noBuild bool

	cmd := &cobra.Command{
		Use:   "publish <survey> <archive>",
		Short: "Install an archive as the content for a survey stage",
		Long: `Copy a .tar, .tar.gz, .tgz or .zip archive into the archive directory as the
content for one survey identity, then build it so problems surface immediately.

Survey types 1 and 2 need --stage guide or --stage test; survey 3 has no stage.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			id, err := parseIdentity(args[0], stageFlag)
			if err != nil {
				return err
			}

			dst, err := content.DirSource{Root: cfg.Paths.ArchiveDir}.Publish(id, args[1])
			if err != nil {
				return err
			}
			if noBuild {
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"survey": id.String(), "archive": dst})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published %s to %s\n", id, dst)
				return nil
			}

			store, err := ctx.contentStore()
			if err != nil {
				return err
			}
			data, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printBuildSummary(cmd, ctx, dst, data)
		},
	}

	cmd.Flags().StringVarP(&stageFlag, "stage", "s", "", "Stage for survey types 1 and 2 (guide or test)")
	cmd.Flags().BoolVar(&noBuild, "no-build", false, "Only install the archive; build on first use")
	return cmd
}

func printBuildSummary(cmd *cobra.Command, ctx *commandContext, archivePath string, data *survey.StageData) error {
	skipped := data.Skipped
	if skipped == nil {
		skipped = []survey.Skip{}
	}
	if ctx.JSONMode() {
		return writeJSON(cmd, map[string]any{
			"survey":   data.Identity.String(),
			"archive":  archivePath,
			"run_id":   data.RunID,
			"items":    data.Len(),
			"key_size": len(data.Key),
			"skipped":  skipped,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Published %s from %s\n", data.Identity, archivePath)
	fmt.Fprintf(out, "Run: %s\n", data.RunID)
	fmt.Fprintf(out, "Items: %d", data.Len())
	if len(data.Key) > 0 {
		fmt.Fprintf(out, " (answer key: %d)", len(data.Key))
	}
	fmt.Fprintln(out)
	if len(skipped) > 0 {
		fmt.Fprintf(out, "Skipped %d inputs:\n", len(skipped))
		for _, s := range skipped {
			fmt.Fprintf(out, "  %s\n", s)
		}
	}
	return nil
}
