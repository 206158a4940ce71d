// Package encoding selects the best available on-disk encoded variant
// of a resource given a client's Accept-Encoding preferences and a set
// of configured (regex matcher -> encoding name -> replacement pattern)
// mappings. It is storage-agnostic: the actual "does this path exist"
// check is supplied by the caller as an Opener function.
package encoding

import (
	"fmt"
	"regexp"
	"strings"
)

// Pair is one configured (encoding name, path replacement pattern) entry
// as written in Options.ContentEncodingMappings, e.g. {"gzip", "$1.gz"}.
// Replacement follows regexp.Regexp.Expand syntax ($1, $2, ...), plus
// $& for the whole match.
type Pair struct {
	Name        string
	Replacement string
}

// pref is a Pair normalized with its declared order, used to break ties
// when two encodings are equally acceptable to the client.
type pref struct {
	name        string
	replacement string
	order       int
}

// Mapping is one normalized (matcher, ordered preference list) entry.
// Construct with NewMapping; the zero value is not usable.
type Mapping struct {
	Matcher *regexp.Regexp
	prefs   []pref
}

// NewMapping compiles matcher and normalizes pairs into a Mapping. If no
// pair names "identity", one is synthesized with replacement "$&" (i.e.
// the resolved path unchanged) ordered after every configured pair, so
// identity always remains a selectable candidate.
func NewMapping(matcher string, pairs []Pair) (Mapping, error) {
	re, err := regexp.Compile(matcher)
	if err != nil {
		return Mapping{}, fmt.Errorf("encoding: invalid matcher %q: %w", matcher, err)
	}

	m := Mapping{Matcher: re}
	hasIdentity := false
	for i, p := range pairs {
		if p.Name == "identity" {
			hasIdentity = true
		}
		m.prefs = append(m.prefs, pref{name: p.Name, replacement: p.Replacement, order: i})
	}
	if !hasIdentity {
		m.prefs = append(m.prefs, pref{name: "identity", replacement: "$&", order: len(pairs)})
	}
	return m, nil
}

// Matches reports whether resolvedPath is governed by this Mapping.
func (m Mapping) Matches(resolvedPath string) bool {
	return m.Matcher.MatchString(resolvedPath)
}

// expand applies the $1/$&-style replacement grammar via
// regexp.Regexp.Expand. Expand has no "$&" form, so "$&" (the whole
// match) is rewritten to its "${0}" equivalent first; "$$" stays a
// literal dollar sign.
func (m Mapping) expand(resolvedPath, replacement string) string {
	match := m.Matcher.FindStringSubmatchIndex(resolvedPath)
	if match == nil {
		return resolvedPath
	}
	var tmpl strings.Builder
	for i := 0; i < len(replacement); i++ {
		if replacement[i] == '$' && i+1 < len(replacement) && (replacement[i+1] == '&' || replacement[i+1] == '$') {
			if replacement[i+1] == '&' {
				tmpl.WriteString("${0}")
			} else {
				tmpl.WriteString("$$")
			}
			i++
			continue
		}
		tmpl.WriteByte(replacement[i])
	}
	return string(m.Matcher.ExpandString(nil, tmpl.String(), resolvedPath, match))
}
