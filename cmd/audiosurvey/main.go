package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"audiosurvey/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps error classes to distinct statuses so scripts can tell a
// missing archive from a broken one.
func exitCode(err error) int {
	switch services.Kind(err) {
	case "not_found":
		return 3
	case "extraction", "validation":
		return 4
	case "invalid_input", "configuration":
		return 2
	default:
		return 1
	}
}
