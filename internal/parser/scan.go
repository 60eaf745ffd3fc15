package parser

import (
	"strings"
	"unicode/utf8"
)

// stripFences removes an opening ``` or ~~~ line (with optional language tag)
// and a closing fence, independently: truncated output often has the former
// without the latter.
func stripFences(s string) string {
	s = strings.TrimSpace(trimBOM(s))
	for _, fence := range []string{"```", "~~~"} {
		if strings.HasPrefix(s, fence) {
			rest := s[len(fence):]
			if nl := strings.IndexByte(rest, '\n'); nl != -1 {
				s = rest[nl+1:]
			} else {
				s = strings.TrimLeft(rest, "jsonJSON")
			}
		}
		s = strings.TrimSpace(s)
		if strings.HasSuffix(s, fence) {
			s = strings.TrimSpace(strings.TrimSuffix(s, fence))
		}
	}
	return s
}

// cutProse drops anything before the first '[' or '{'. It returns "" when the
// text holds neither.
func cutProse(s string) string {
	i := strings.IndexAny(s, "[{")
	if i == -1 {
		return ""
	}
	return s[i:]
}

// balancedPrefix returns the first complete JSON object or array at the start
// of s, ignoring brackets inside strings.
func balancedPrefix(s string) (string, bool) {
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return "", false
	}
	var (
		stack    []byte
		inString bool
		escape   bool
	)
	for i := 0; i < len(s); i++ {
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
			if len(stack) == 0 {
				return "", false
			}
			top := stack[len(stack)-1]
			if (top == '{' && c != '}') || (top == '[' && c != ']') {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// objectSpans returns every {...} span that closes at brace depth zero, in
// order. When an object is left open at the end of the text, the scan resumes
// just inside it so that closed objects nested in a truncated wrapper are
// still found.
func objectSpans(s string) []string {
	var (
		spans    []string
		depth    int
		start    = -1
		inString bool
		escape   bool
	)
	for i := 0; i < len(s); i++ {
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
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				spans = append(spans, s[start:i+1])
				start = -1
			}
		}
	}
	if depth > 0 && start >= 0 {
		spans = append(spans, objectSpans(s[start+1:])...)
	}
	return spans
}

func trimBOM(s string) string {
	if strings.HasPrefix(s, "\uFEFF") {
		return strings.TrimPrefix(s, "\uFEFF")
	}
	if len(s) >= 3 && s[0] == 0xEF && s[1] == 0xBB && s[2] == 0xBF && utf8.ValidString(s[3:]) {
		return s[3:]
	}
	return s
}
