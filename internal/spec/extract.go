package spec

import (
	"errors"
	"strings"
)

// ErrNoJSONObject is returned by ExtractJSON when no balanced object exists.
var ErrNoJSONObject = errors.New("no JSON object found in text")

// ExtractJSON recovers the first balanced JSON object from free text, such
// as a model reply wrapped in prose or markdown code fences. Braces inside
// string literals are ignored.
func ExtractJSON(text string) (string, error) {
	text = stripFences(text)
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := balancedEnd(text, start); end > 0 {
			return text[start:end], nil
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSONObject
}

// stripFences returns the body of the first ``` fenced block, or text
// unchanged when there is none.
func stripFences(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	// Skip the info string ("json") up to the end of the fence line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		return body[:end]
	}
	return body
}

// balancedEnd returns the index just past the brace closing the object that
// opens at start, or -1.
func balancedEnd(text string, start int) int {
	depth := 0
	inString, escaped := false, false
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
				return i + 1
			}
		}
	}
	return -1
}
