package report

import (
	"encoding/json"
	"errors"
)

// ErrNoPayload is returned when the model output contains no JSON object.
var ErrNoPayload = errors.New("no JSON object found in model output")

// ExtractObject returns the first balanced {...} substring of text that parses as a JSON
// object. Braces inside string literals do not count toward balance, and balanced
// candidates that fail to parse are skipped. Surrounding prose and code fences are ignored.
func ExtractObject(text string) (string, error) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end := balancedEnd(text, start)
		if end < 0 {
			continue
		}
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}
	return "", ErrNoPayload
}

// balancedEnd returns the index of the brace closing text[start], or -1.
func balancedEnd(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
