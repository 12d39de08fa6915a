package extraction

import (
	"errors"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "json_fence", in: "```json\n{\"a\":1}\n```", want: "{\"a\":1}"},
		{name: "bare_fence", in: "```\n{\"a\":1}\n```", want: "{\"a\":1}"},
		{name: "no_fence", in: "  {\"a\":1}  ", want: "{\"a\":1}"},
		{name: "leading_only", in: "```json\n{\"a\":1}", want: "{\"a\":1}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripCodeFences(tc.in); got != tc.want {
				t.Fatalf("StripCodeFences(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseModelResponse(t *testing.T) {
	t.Run("valid object", func(t *testing.T) {
		raw, err := ParseModelResponse("```json\n{\"policy\":{\"policyNumber\":\"AP-1\"}}\n```")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pol, ok := raw["policy"].(map[string]any)
		if !ok || pol["policyNumber"] != "AP-1" {
			t.Fatalf("unexpected parse result: %v", raw)
		}
	})

	t.Run("error key maps to ErrNotPolicyDocument", func(t *testing.T) {
		_, err := ParseModelResponse(`{"error":"This is a restaurant menu"}`)
		if !errors.Is(err, ErrNotPolicyDocument) {
			t.Fatalf("want ErrNotPolicyDocument, got %v", err)
		}
	})

	t.Run("empty error value still refused", func(t *testing.T) {
		_, err := ParseModelResponse(`{"error":""}`)
		if !errors.Is(err, ErrNotPolicyDocument) {
			t.Fatalf("want ErrNotPolicyDocument, got %v", err)
		}
	})

	t.Run("invalid JSON maps to ParseError", func(t *testing.T) {
		_, err := ParseModelResponse("the document shows a policy for...")
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("want *ParseError, got %v", err)
		}
		if pe.Raw == "" {
			t.Fatal("ParseError should keep the raw response")
		}
	})

	t.Run("JSON array is a parse error", func(t *testing.T) {
		_, err := ParseModelResponse(`[1,2,3]`)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("want *ParseError, got %v", err)
		}
	})
}
