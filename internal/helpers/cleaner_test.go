package helpers

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "bare array",
			in:   `[{"a":1},{"b":2}]`,
			want: `[{"a":1},{"b":2}]`,
		},
		{
			name: "fenced with language tag",
			in:   "```json\n{\"score\": 85}\n```",
			want: `{"score": 85}`,
		},
		{
			name: "tilde fence",
			in:   "~~~\n[1,2,3]\n~~~",
			want: `[1,2,3]`,
		},
		{
			name: "json buried in prose",
			in:   "Here is the ranking you asked for:\n{\"selected\": []}\nHope that helps!",
			want: `{"selected": []}`,
		},
		{
			name: "braces inside strings ignored",
			in:   `{"reason":"uses {curly} braces and \"quotes\""}`,
			want: `{"reason":"uses {curly} braces and \"quotes\""}`,
		},
		{
			name: "nested structures",
			in:   `noise {"a":{"b":[1,{"c":2}]}} trailing`,
			want: `{"a":{"b":[1,{"c":2}]}}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if err != nil {
				t.Fatalf("ExtractJSON() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ExtractJSON() got %q, want %q", got, tt.want)
			}
			if !json.Valid([]byte(got)) {
				t.Fatalf("extracted text is not valid JSON: %q", got)
			}
		})
	}
}

func TestExtractJSONErrors(t *testing.T) {
	t.Parallel()
	cases := []string{
		"",
		"no json here at all",
		"{unbalanced",
		strings.Repeat("[", 5),
	}
	for _, in := range cases {
		if _, err := ExtractJSON(in); err == nil {
			t.Fatalf("expected error for input %q", in)
		}
	}
}
