package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotPolicyDocument means the model itself flagged the upload as not
// being a policy document. Surfaced distinctly so the UI can ask for a
// different file instead of showing a generic failure.
var ErrNotPolicyDocument = errors.New("uploaded file is not a policy document")

// ParseError means the model response was not valid JSON after stripping
// code fences. Raw keeps the response text for server-side diagnosis.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse model response as JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StripCodeFences removes a leading ```json (or bare ```) fence and the
// trailing fence the model tends to wrap its output in.
func StripCodeFences(s string) string {
	out := strings.TrimSpace(s)
	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```json")
		out = strings.TrimPrefix(out, "```")
		out = strings.TrimSpace(out)
	}
	if strings.HasSuffix(out, "```") {
		out = strings.TrimSuffix(out, "```")
		out = strings.TrimSpace(out)
	}
	return out
}

// ParseModelResponse turns raw model output into the parsed JSON object.
// An "error" key in the object means the model refused the document and
// maps to ErrNotPolicyDocument; anything unparseable maps to *ParseError.
func ParseModelResponse(text string) (map[string]any, error) {
	cleaned := StripCodeFences(text)
	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, &ParseError{Raw: text, Err: err}
	}
	if msg, ok := raw["error"]; ok {
		if s := Str(msg); s != "" {
			return nil, fmt.Errorf("%w: %s", ErrNotPolicyDocument, s)
		}
		return nil, ErrNotPolicyDocument
	}
	return raw, nil
}
