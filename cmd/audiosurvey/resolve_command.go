package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audiosurvey/internal/survey"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <audio-ref>",
		Short: "Print the stored file behind an audio reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.contentStore()
			if err != nil {
				return err
			}
			path, err := store.Resolve(survey.AudioRef(args[0]))
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]string{"audio": args[0], "path": path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
