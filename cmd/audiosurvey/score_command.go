package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"audiosurvey/internal/scoring"
	"audiosurvey/internal/services"
)

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string
	var answersPath string

	cmd := &cobra.Command{
		Use:   "score <survey>",
		Short: "Score guide answers or echo test answers",
		Long: `Read a JSON array of {"index": N, "answer": value} objects and submit it for a
survey stage. Guide stages are scored against the answer key; test stages echo
the answers back unchanged. Use --answers - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIdentity(args[0], stageFlag)
			if err != nil {
				return err
			}
			subs, err := readSubmissions(cmd, answersPath)
			if err != nil {
				return err
			}
			mgr, err := ctx.manager()
			if err != nil {
				return err
			}
			outcome, err := mgr.Submit(cmd.Context(), id, subs)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, outcome)
			}

			out := cmd.OutOrStdout()
			if outcome.Result == nil {
				fmt.Fprintf(out, "Recorded %d answers for %s (not scored)\n", len(outcome.Echo), id)
				return nil
			}
			res := outcome.Result
			fmt.Fprintf(out, "Passed: %s\n", yesNo(res.Passed))
			fmt.Fprintf(out, "Accuracy: %.1f%% (%d/%d)\n", res.Accuracy*100, res.CorrectCount, res.Total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&stageFlag, "stage", "s", "", "Stage for survey types 1 and 2 (guide or test)")
	cmd.Flags().StringVarP(&answersPath, "answers", "a", "", "JSON file with submissions, or - for stdin")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func readSubmissions(cmd *cobra.Command, path string) ([]scoring.Submission, error) {
	path = strings.TrimSpace(path)
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "cli", "read answers", path, err)
	}
	var subs []scoring.Submission
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "cli", "decode answers", path, err)
	}
	if len(subs) == 0 {
		return nil, services.Wrap(services.ErrInvalidInput, "cli", "decode answers", path, errNoAnswers)
	}
	return subs, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
