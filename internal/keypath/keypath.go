// Package keypath addresses values inside decoded JSON using dotted,
// bracketed path strings such as "choices[0].text".
package keypath

import (
	"strconv"
	"strings"
)

// Tokenize splits a path into its traversal tokens: the path is split on "."
// first, then each segment is split on its bracket-delimited parts, so
// "choices[0].text" becomes ["choices", "0", "text"]. Empty tokens are
// dropped; "a..b" and "a[].b" both behave like "a.b".
func Tokenize(path string) []string {
	var tokens []string
	for _, segment := range strings.Split(path, ".") {
		parts := strings.FieldsFunc(segment, func(r rune) bool {
			return r == '[' || r == ']'
		})
		tokens = append(tokens, parts...)
	}
	return tokens
}

// Extract returns the value addressed by path inside value, or fallback as
// soon as any token cannot be followed: a missing key, an index outside the
// slice, a non-numeric index, or a scalar met before the path is consumed.
// It never panics. An empty path returns value itself when value is a
// container, fallback otherwise.
func Extract(value any, path string, fallback any) any {
	tokens := Tokenize(path)
	if len(tokens) == 0 {
		switch value.(type) {
		case map[string]any, []any:
			return value
		default:
			return fallback
		}
	}

	current := value
	for _, token := range tokens {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[token]
			if !ok {
				return fallback
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(v) {
				return fallback
			}
			current = v[idx]
		default:
			return fallback
		}
	}
	return current
}

// Coerce renders a decoded JSON leaf as text. String leaves are returned
// as-is, number and bool leaves are formatted. Containers, null and a nil
// value are not text.
func Coerce(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// String extracts a string-like leaf. String leaves are returned as-is,
// number and bool leaves are rendered, anything else (miss, null, container)
// yields fallback.
func String(value any, path string, fallback string) string {
	if s, ok := Coerce(Extract(value, path, nil)); ok {
		return s
	}
	return fallback
}
