package headerbuilder

import (
	"net/url"
	"strings"
)

// ContentDisposition renders an RFC 6266 Content-Disposition value. ASCII
// filenames are quoted-string escaped; non-ASCII filenames additionally
// emit filename*=UTF-8''<percent-encoded> alongside an ASCII fallback so
// legacy clients still get a usable name.
func ContentDisposition(dispositionType, filename string) string {
	if dispositionType == "" {
		dispositionType = "inline"
	}
	if filename == "" {
		return dispositionType
	}

	if isASCII(filename) {
		return dispositionType + `; filename="` + escapeQuotedString(filename) + `"`
	}

	fallback := asciiFallback(filename)
	encoded := url.PathEscape(filename)
	return dispositionType + `; filename="` + escapeQuotedString(fallback) +
		`"; filename*=UTF-8''` + encoded
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

// escapeQuotedString backslash-escapes '"' and '\' per RFC 9110 §5.6.4.
func escapeQuotedString(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// asciiFallback substitutes '_' for any non-ASCII rune so older clients
// that only read "filename" still get a syntactically valid value.
func asciiFallback(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r > 0x7f {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
