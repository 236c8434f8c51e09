package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"audiosurvey/internal/logging"
	"audiosurvey/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage build work directories",
	}
	cmd.AddCommand(newStagingListCommand(ctx))
	cmd.AddCommand(newStagingCleanCommand(ctx))
	return cmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List work directories left in the staging area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.ListDirectories(cfg.Paths.StagingDir)
			if err != nil {
				return fmt.Errorf("list staging directories: %w", err)
			}
			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				return writeJSON(cmd, dirs)
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No staging directories")
				return nil
			}
			now := time.Now()
			var total int64
			rows := make([][]string, 0, len(dirs))
			for _, d := range dirs {
				total += d.Size
				rows = append(rows, []string{
					d.Name,
					d.Survey,
					formatDuration(now.Sub(d.ModTime)),
					logging.FormatBytes(d.Size),
				})
			}
			headers := []string{"Directory", "Survey", "Age", "Size"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight}
			fmt.Fprint(out, renderTable(out, headers, rows, aligns))
			fmt.Fprintf(out, "Total: %d directories, %s\n", len(dirs), logging.FormatBytes(total))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale work directories",
		Long: `Remove work directories older than ingest.staging_max_age_hours. Builds remove
their own work directory, so anything left behind comes from an interrupted
build. Use --all to remove every directory regardless of age.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			maxAge := time.Duration(cfg.Ingest.StagingMaxAgeHours) * time.Hour
			if all {
				maxAge = 0
			}
			report := staging.CleanStale(cmd.Context(), staging.CleanOptions{
				StagingDir: cfg.Paths.StagingDir,
				StorageDir: cfg.Paths.StorageDir,
				MaxAge:     maxAge,
				Logger:     logger,
			})

			if ctx.JSONMode() {
				failures := make([]map[string]string, 0, len(report.Failures))
				for _, f := range report.Failures {
					failures = append(failures, map[string]string{"path": f.Path, "error": f.Err.Error()})
				}
				return writeJSON(cmd, map[string]any{
					"removed": nonNil(report.Removed),
					"busy":    nonNil(report.Busy),
					"errors":  failures,
				})
			}

			out := cmd.OutOrStdout()
			for _, path := range report.Removed {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			for _, path := range report.Busy {
				fmt.Fprintf(out, "Skipped %s (build in progress)\n", path)
			}
			for _, f := range report.Failures {
				fmt.Fprintf(out, "Failed %s: %v\n", f.Path, f.Err)
			}
			if len(report.Removed)+len(report.Busy)+len(report.Failures) == 0 {
				fmt.Fprintln(out, "Nothing to clean")
			}
			if len(report.Failures) > 0 {
				return fmt.Errorf("%d staging directories could not be removed", len(report.Failures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove all work directories regardless of age")
	return cmd
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
