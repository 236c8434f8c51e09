package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"audiosurvey/internal/scoring"
	"audiosurvey/internal/survey"
)

func newItemsCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string

	cmd := &cobra.Command{
		Use:   "items <survey>",
		Short: "List the items a participant is shown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIdentity(args[0], stageFlag)
			if err != nil {
				return err
			}
			mgr, err := ctx.manager()
			if err != nil {
				return err
			}
			view, err := mgr.Items(cmd.Context(), id)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, view)
			}
			printView(cmd, view)
			return nil
		},
	}

	cmd.Flags().StringVarP(&stageFlag, "stage", "s", "", "Stage for survey types 1 and 2 (guide or test)")
	return cmd
}

func printView(cmd *cobra.Command, view *scoring.View) {
	out := cmd.OutOrStdout()
	if view.Identity.Kind == survey.KindQualityPairs {
		rows := make([][]string, 0, len(view.Pairs))
		for _, p := range view.Pairs {
			rows = append(rows, []string{
				strconv.Itoa(p.Index),
				p.Key,
				string(p.Options[0].Audio),
				string(p.Options[1].Audio),
			})
		}
		fmt.Fprint(out, renderTable(out, []string{"#", "Key", "A", "B"}, rows, []columnAlignment{alignRight}))
		fmt.Fprintf(out, "%d pairs\n", len(view.Pairs))
		return
	}

	rows := make([][]string, 0, len(view.Items))
	for _, item := range view.Items {
		rows = append(rows, []string{
			strconv.Itoa(item.Index),
			string(item.Audio),
			strings.Join(survey.Labels(item.Options), " | "),
		})
	}
	fmt.Fprint(out, renderTable(out, []string{"#", "Audio", "Options"}, rows, []columnAlignment{alignRight}))
	fmt.Fprintf(out, "%d items\n", len(view.Items))
}
