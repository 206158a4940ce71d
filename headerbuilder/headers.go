// Package headerbuilder assembles the response headers described in
// spec §4.E: Content-Type, Content-Disposition, Last-Modified, ETag,
// Vary, Cache-Control, Accept-Ranges, and Content-Length.
package headerbuilder

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ETag formats the default strong or weak entity-tag for a resource:
// "<size>-<mtime-ms-in-hex>-<encoding>", optionally wrapped as W/"...".
func ETag(size, mtimeMS int64, encoding string, weak bool) string {
	value := fmt.Sprintf("%d-%x-%s", size, mtimeMS, encoding)
	if weak {
		return `W/"` + value + `"`
	}
	return `"` + value + `"`
}

// LastModified formats mtimeMS as an RFC 7231 IMF-fixdate.
func LastModified(mtimeMS int64) string {
	return time.UnixMilli(mtimeMS).UTC().Format(http.TimeFormat)
}

// CharsetRule is one entry of the configured defaultCharsets list: MIME
// types matching Matcher get "; charset=Charset" appended.
type CharsetRule struct {
	Matcher *regexp.Regexp
	Charset string
}

// DefaultCharsetRules returns the spec's built-in default:
// text/* and application/javascript|json get UTF-8.
func DefaultCharsetRules() []CharsetRule {
	return []CharsetRule{
		{Matcher: regexp.MustCompile(`^(?:text/.+|application/(?:javascript|json))$`), Charset: "UTF-8"},
	}
}

// ContentType appends "; charset=..." to mimeType when a rule matches
// and mimeType doesn't already specify one. An explicit charset
// override (from storage or options) always wins over rule matching.
func ContentType(mimeType, explicitCharset string, rules []CharsetRule) string {
	if mimeType == "" {
		return ""
	}
	if explicitCharset != "" {
		return mimeType + "; charset=" + explicitCharset
	}
	if strings.Contains(strings.ToLower(mimeType), "charset=") {
		return mimeType
	}
	for _, r := range rules {
		if r.Matcher.MatchString(mimeType) {
			return mimeType + "; charset=" + r.Charset
		}
	}
	return mimeType
}

// MergeVary combines a storage-supplied Vary value with "Accept-Encoding"
// when the encoding negotiation touched the response, de-duplicating.
func MergeVary(storageVary string, addAcceptEncoding bool) string {
	var fields []string
	seen := map[string]bool{}
	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		fields = append(fields, v)
	}
	if storageVary != "" {
		add(storageVary)
	}
	if addAcceptEncoding {
		add("Accept-Encoding")
	}
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += f
	}
	return out
}

// AcceptRanges returns "bytes" when ranges are enabled and the size is
// known, "none" otherwise.
func AcceptRanges(maxRanges int, hasSize bool) string {
	if maxRanges > 0 && hasSize {
		return "bytes"
	}
	return "none"
}

// ContentLength formats a known length. Callers check storage.Info.HasSize
// to decide whether to emit the header at all.
func ContentLength(n int64) string {
	return strconv.FormatInt(n, 10)
}
