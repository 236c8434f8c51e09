package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"audiosurvey/internal/catalog"
	"audiosurvey/internal/services"
	"audiosurvey/internal/survey"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect recorded content builds",
	}
	cmd.AddCommand(newCatalogListCommand(ctx))
	cmd.AddCommand(newCatalogShowCommand(ctx))
	return cmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent builds, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(store *catalog.Store) error {
				builds, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if builds == nil {
						builds = []*catalog.Build{}
					}
					return writeJSON(cmd, builds)
				}

				out := cmd.OutOrStdout()
				if len(builds) == 0 {
					fmt.Fprintln(out, "No builds recorded")
					return nil
				}
				rows := make([][]string, 0, len(builds))
				for _, b := range builds {
					rows = append(rows, []string{
						b.RunID,
						b.Survey,
						strconv.Itoa(b.ItemCount),
						strconv.Itoa(b.KeySize),
						strconv.Itoa(len(b.Skipped)),
						b.BuiltAt.Local().Format("2006-01-02 15:04:05"),
					})
				}
				headers := []string{"Run", "Survey", "Items", "Key", "Skipped", "Built"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}
				fmt.Fprint(out, renderTable(out, headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of builds to list (0 for all)")
	return cmd
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the items recorded for one build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := strings.TrimSpace(args[0])
			return ctx.withCatalog(func(store *catalog.Store) error {
				entries, err := store.Entries(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					return services.Wrap(services.ErrNotFound, "cli", "catalog show", "no entries for run "+runID, nil)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, entries)
				}

				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						strconv.Itoa(e.Index),
						e.PairKey,
						string(e.Audio),
						strings.Join(survey.Labels(e.Options), " | "),
					})
				}
				fmt.Fprint(out, renderTable(out, []string{"#", "Key", "Audio", "Options"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}
}
