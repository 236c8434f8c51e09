// Package scoring checks guide-stage submissions against answer keys and
// serves item lists to the request layer.
package scoring

import (
	"strings"

	"golang.org/x/text/cases"

	"audiosurvey/internal/survey"
)

// PassThreshold is the minimum guide accuracy that admits a participant to
// the test stage.
const PassThreshold = 0.60

// Result is the outcome of scoring a guide stage.
type Result struct {
	Passed       bool    `json:"passed"`
	Accuracy     float64 `json:"accuracy"`
	CorrectCount int     `json:"correct_count"`
	Total        int     `json:"total"`
}

// Score compares submissions against key. Only indices present in the key
// count; when an index is submitted more than once the last answer wins.
// Accuracy is measured against the full key size.
func Score(kind survey.Kind, key survey.AnswerKey, subs []Submission) Result {
	res := Result{Total: len(key)}
	if len(key) == 0 {
		return res
	}

	latest := make(map[int]Answer, len(subs))
	for _, sub := range subs {
		if _, ok := key[sub.Index]; ok {
			latest[sub.Index] = sub.Answer
		}
	}

	folder := cases.Fold()
	for idx, answer := range latest {
		if matches(kind, key[idx], answer, folder) {
			res.CorrectCount++
		}
	}
	res.Accuracy = float64(res.CorrectCount) / float64(res.Total)
	res.Passed = res.Accuracy >= PassThreshold
	return res
}

func matches(kind survey.Kind, truth survey.Truth, answer Answer, folder cases.Caser) bool {
	if kind == survey.KindSingleEvent || truth.IsBool() {
		if truth.Flag == nil {
			return false
		}
		got, ok := answer.Bool()
		return ok && got == *truth.Flag
	}
	return normalizeText(folder, answer.Text()) == normalizeText(folder, truth.Text)
}

// normalizeText folds case and collapses runs of whitespace.
func normalizeText(folder cases.Caser, s string) string {
	return folder.String(strings.Join(strings.Fields(s), " "))
}
