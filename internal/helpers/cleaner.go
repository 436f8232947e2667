package helpers

import (
	"errors"
	"strings"
)

// ExtractJSON finds and returns the first JSON object or array in s.
// Model output is untrusted text: it may be bare JSON, JSON wrapped in a
// Markdown code fence, or JSON buried in prose. The extraction attempts are
// ordered cheapest first: unwrap a leading fence, try the quick path when the
// content already starts with '{' or '[', then scan for the first balanced
// object or array while ignoring braces inside strings.
func ExtractJSON(s string) (string, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	if s == "" {
		return "", errors.New("empty input")
	}

	if inner, ok := stripLeadingFence(s); ok {
		s = strings.TrimSpace(inner)
	}

	if len(s) > 0 && (s[0] == '{' || s[0] == '[') {
		if out, ok := balancedJSONAt(s, 0); ok {
			return out, nil
		}
	}

	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			if out, ok := balancedJSONAt(s, i); ok {
				return out, nil
			}
		}
	}

	return "", errors.New("no balanced JSON object/array found")
}

// stripLeadingFence removes the first fenced code block when s starts with
// ``` or ~~~, tolerating an optional language tag such as ```json.
func stripLeadingFence(s string) (string, bool) {
	trim := strings.TrimLeft(s, "\n\r\t ")
	fence := ""
	switch {
	case strings.HasPrefix(trim, "```"):
		fence = "```"
	case strings.HasPrefix(trim, "~~~"):
		fence = "~~~"
	default:
		return "", false
	}

	rest := trim[len(fence):]
	nl := strings.IndexByte(rest, '\n')
	if nl == -1 {
		return "", false
	}
	rest = rest[nl+1:]

	if end := strings.Index(rest, fence); end != -1 {
		return rest[:end], true
	}
	return "", false
}

// balancedJSONAt extracts a balanced JSON value starting at startIdx. It
// handles nested objects/arrays and skips string contents including escape
// sequences.
func balancedJSONAt(s string, startIdx int) (string, bool) {
	if startIdx < 0 || startIdx >= len(s) {
		return "", false
	}
	open := s[startIdx]
	if open != '{' && open != '[' {
		return "", false
	}

	var (
		stack    []byte
		inString bool
		escape   bool
	)
	stack = append(stack, open)

	for i := startIdx + 1; i < len(s); i++ {
		c := s[i]

		if inString {
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			top := stack[len(stack)-1]
			if (top == '{' && c != '}') || (top == '[' && c != ']') {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[startIdx : i+1], true
			}
		}
	}

	return "", false
}
