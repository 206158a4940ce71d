package httpheader

import (
	"net/http"
	"strings"
)

// ETag is a parsed entity-tag per RFC 9110 §8.8.3.
type ETag struct {
	Value string
	Weak  bool
}

// String renders the ETag back to wire form, e.g. `"abc"` or `W/"abc"`.
func (e ETag) String() string {
	if e.Weak {
		return `W/"` + e.Value + `"`
	}
	return `"` + e.Value + `"`
}

// Matches compares two ETags under the given comparison strength.
// Strong comparison (used for If-Match and If-Range) requires both tags
// to be strong and byte-equal; weak comparison (used for If-None-Match)
// only requires the opaque values to match.
func (e ETag) Matches(other ETag, strong bool) bool {
	if strong && (e.Weak || other.Weak) {
		return false
	}
	return e.Value == other.Value
}

// ParseETagList parses a comma-separated If-Match/If-None-Match header
// value, including the "*" wildcard form.
func ParseETagList(header string) (tags []ETag, isWildcard bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, false
	}
	if header == "*" {
		return nil, true
	}
	for _, part := range splitTopLevelComma(header) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if tag, ok := parseOneETag(part); ok {
			tags = append(tags, tag)
		}
	}
	return tags, false
}

func parseOneETag(s string) (ETag, bool) {
	weak := false
	if strings.HasPrefix(s, "W/") || strings.HasPrefix(s, "w/") {
		weak = true
		s = s[2:]
	}
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ETag{}, false
	}
	return ETag{Value: s[1 : len(s)-1], Weak: weak}, true
}

// splitTopLevelComma splits on commas that are not inside a quoted
// entity-tag value, so a (disallowed but tolerated) comma-containing
// value doesn't break neighboring tags.
func splitTopLevelComma(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '"':
			depth = 1 - depth
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// ParseHTTPDate parses an RFC 9110 §5.6.7 HTTP-date (IMF-fixdate, RFC 850,
// or asctime form) returning ok=false on any unrecognized format.
func ParseHTTPDate(value string) (unixMS int64, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	t, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}
