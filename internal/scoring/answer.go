package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Answer is a submitted value. Clients send booleans for single-event items
// and strings for tag items; numbers and strings are accepted for either.
type Answer struct {
	value any
}

// BoolAnswer wraps a boolean answer.
func BoolAnswer(v bool) Answer { return Answer{value: v} }

// TextAnswer wraps a string answer.
func TextAnswer(v string) Answer { return Answer{value: v} }

// IsZero reports whether no value was supplied.
func (a Answer) IsZero() bool { return a.value == nil }

// Bool interprets the answer as a yes/no judgement.
func (a Answer) Bool() (bool, bool) {
	switch v := a.value.(type) {
	case bool:
		return v, true
	case float64:
		switch v {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

// Text renders the answer as a string.
func (a Answer) Text() string {
	switch v := a.value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (a Answer) String() string { return a.Text() }

// MarshalJSON echoes the answer in the shape it was received.
func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.value)
}

// UnmarshalJSON accepts a JSON bool, string, number or null.
func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		a.value = nil
		return nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	switch v.(type) {
	case bool, string, float64:
		a.value = v
		return nil
	default:
		return fmt.Errorf("answer must be a boolean, string or number")
	}
}

// Submission is one (item index, answer) pair from a participant.
type Submission struct {
	Index  int    `json:"index"`
	Answer Answer `json:"answer"`
}
