package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"audiosurvey/internal/content"
	"audiosurvey/internal/services"
	"audiosurvey/internal/survey"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckArchive reports whether an archive is published for id.
func CheckArchive(ctx context.Context, source content.ArchiveSource, id survey.Identity) Result {
	name := "Archive " + id.String()
	path, err := source.Locate(ctx, id)
	switch {
	case err == nil:
		return Result{Name: name, Passed: true, Detail: path}
	case errors.Is(err, services.ErrNotFound):
		return Result{Name: name, Detail: "not published"}
	default:
		return Result{Name: name, Detail: err.Error()}
	}
}
