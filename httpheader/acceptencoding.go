// Package httpheader parses the request headers the orchestrator needs
// to understand: Accept-Encoding, Range, and the If-* preconditions. Each
// parser degrades gracefully on malformed input per RFC 9110 rather than
// erroring, mirroring how the rest of this module treats header parsing
// as best-effort input sanitation, never a hard failure path.
package httpheader

import (
	"strconv"
	"strings"
)

// EncodingPreference is one parsed Accept-Encoding token with its
// effective quality value.
type EncodingPreference struct {
	Token string
	Q     float64
}

var encodingAliases = map[string]string{
	"x-gzip":     "gzip",
	"x-compress": "compress",
}

// ParseAcceptEncoding parses an Accept-Encoding header value into an
// ordered list of (token, q) pairs. An empty or missing header is
// equivalent to "identity;q=1".
func ParseAcceptEncoding(header string) []EncodingPreference {
	header = strings.TrimSpace(header)
	if header == "" {
		return []EncodingPreference{{Token: "identity", Q: 1}}
	}

	prefs := make([]EncodingPreference, 0, 4)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		token, q := parseEncodingToken(part)
		if token == "" {
			continue
		}
		if canonical, ok := encodingAliases[token]; ok {
			token = canonical
		}
		prefs = append(prefs, EncodingPreference{Token: token, Q: q})
	}
	return prefs
}

func parseEncodingToken(part string) (token string, q float64) {
	q = 1
	fields := strings.Split(part, ";")
	token = strings.ToLower(strings.TrimSpace(fields[0]))
	for _, param := range fields[1:] {
		param = strings.TrimSpace(param)
		name, val, found := strings.Cut(param, "=")
		if !found || strings.ToLower(strings.TrimSpace(name)) != "q" {
			continue
		}
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			q = parsed
		}
	}
	return token, q
}

// EffectiveQ returns the quality value the client assigned to name given
// a parsed preference list, per RFC 9110 §12.5.3: an explicit entry for
// name wins, then a wildcard entry, then the identity default of 1 for
// "identity" (0 for anything else unlisted).
func EffectiveQ(prefs []EncodingPreference, name string) float64 {
	name = strings.ToLower(name)
	var wildcard float64 = -1
	for _, p := range prefs {
		if p.Token == name {
			return p.Q
		}
		if p.Token == "*" {
			wildcard = p.Q
		}
	}
	if wildcard >= 0 {
		return wildcard
	}
	if name == "identity" {
		return 1
	}
	return 0
}
