// Package preflight provides readiness checks for the directories and
// published archives audiosurvey depends on.
//
// The CLI "audiosurvey status" command runs RunAll and renders each Result.
// A failed check does not stop other checks from running.
package preflight
