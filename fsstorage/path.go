package fsstorage

import (
	"net/url"
	"regexp"

	"github.com/servestream/servestream/storage"
)

// DirectoryMode controls how a trailing slash (or its absence) on a
// resolved path is handled.
type DirectoryMode string

const (
	DirectoryForbidden  DirectoryMode = ""
	DirectoryListFiles  DirectoryMode = "list-files"
	DirectoryServeIndex DirectoryMode = "serve-index"
)

// DefaultIgnorePattern matches dotfiles, the spec's default ignorePattern.
var DefaultIgnorePattern = regexp.MustCompile(`^\.`)

func isForbiddenRune(r rune) bool {
	switch r {
	case '/', '?', '<', '>', '\\', ':', '*', '|', '"':
		return true
	}
	if r >= 0x00 && r <= 0x1f {
		return true
	}
	if r >= 0x80 && r <= 0x9f {
		return true
	}
	return false
}

func hasForbiddenRune(s string) bool {
	for _, r := range s {
		if isForbiddenRune(r) {
			return true
		}
	}
	return false
}

// parseResult is the outcome of parseReference before directory-intent
// resolution: parts never includes the trailing empty segment
// that signals a trailing slash; hadTrailingSlash records whether one
// was present.
type parseResult struct {
	parts            []string
	hadTrailingSlash bool
}

// parseReference validates ref and splits it into decoded path parts,
// per §3/§4.H step 1 of the path-safety rules. ignore, if non-nil, is
// matched against each segment to reject ignored files/directories.
func parseReference(ref storage.Reference, ignore *regexp.Regexp) (parseResult, *storage.Error) {
	switch v := ref.(type) {
	case string:
		return parseStringReference(v, ignore)
	case []string:
		return parsePartsReference(v, ignore)
	default:
		return parseResult{}, storage.NewError(storage.KindMalformedPath, ref, nil)
	}
}

func parseStringReference(raw string, ignore *regexp.Regexp) (parseResult, *storage.Error) {
	if raw == "" || raw[0] != '/' {
		return parseResult{}, storage.NewError(storage.KindMalformedPath, raw, nil)
	}

	rawSegs := splitPath(raw[1:])
	decoded := make([]string, len(rawSegs))
	for i, seg := range rawSegs {
		d, err := url.PathUnescape(seg)
		if err != nil {
			return parseResult{}, storage.NewError(storage.KindMalformedPath, raw, nil)
		}
		decoded[i] = d
	}

	// Unlike the array-reference form, a string reference has a raw URL
	// it can be redirected to, so "." and ".." segments are collapsed to
	// their canonical form (clamped at root) rather than rejected
	// outright: the collapse always differs from the raw input, so it
	// always reports as NotNormalized.
	hadTrailingSlash := len(decoded) > 0 && decoded[len(decoded)-1] == ""
	body := decoded
	if hadTrailingSlash {
		body = decoded[:len(decoded)-1]
	}
	if containsDotSegment(body) {
		resolved := resolveDotSegments(body)
		canonical := "/" + joinPath(resolved)
		if hadTrailingSlash && canonical != "/" {
			canonical += "/"
		}
		e := storage.NewError(storage.KindNotNormalized, raw, decoded)
		e.NormalizedPath = canonical
		return parseResult{}, e
	}

	for i, seg := range rawSegs {
		if url.PathEscape(decoded[i]) != seg {
			canonical := "/" + joinPath(decoded)
			e := storage.NewError(storage.KindNotNormalized, raw, decoded)
			e.NormalizedPath = canonical
			return parseResult{}, e
		}
	}

	return finishParse(decoded, raw, ignore)
}

func parsePartsReference(parts []string, ignore *regexp.Regexp) (parseResult, *storage.Error) {
	if len(parts) == 0 || parts[0] != "" {
		return parseResult{}, storage.NewError(storage.KindMalformedPath, parts, nil)
	}
	decoded := parts[1:]

	if err := checkTraversal(decoded, parts); err != nil {
		return parseResult{}, err
	}

	return finishParse(decoded, parts, ignore)
}

// checkTraversal rejects any "." or ".." segment outright. It only
// applies to the array-reference form: an array reference has no raw
// URL to redirect a client to, so a dot segment there is simply
// invalid rather than something to collapse and normalize.
func checkTraversal(decoded []string, ref storage.Reference) *storage.Error {
	for _, seg := range decoded {
		if seg == "." || seg == ".." {
			return storage.NewError(storage.KindInvalidPath, ref, decoded)
		}
	}
	return nil
}

func containsDotSegment(segs []string) bool {
	for _, seg := range segs {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// resolveDotSegments collapses "." and ".." segments against a stack,
// clamped at root: a ".." with nothing to pop is simply dropped rather
// than erroring, mirroring how a browser resolves "/../x" to "/x".
func resolveDotSegments(segs []string) []string {
	var stack []string
	for _, seg := range segs {
		switch seg {
		case ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	return stack
}

func finishParse(decoded []string, ref storage.Reference, ignore *regexp.Regexp) (parseResult, *storage.Error) {
	hadTrailingSlash := len(decoded) > 0 && decoded[len(decoded)-1] == ""
	body := decoded
	if hadTrailingSlash {
		body = decoded[:len(decoded)-1]
	}

	for _, seg := range body {
		if seg == "" {
			return parseResult{}, storage.NewError(storage.KindConsecutiveSlashes, ref, decoded)
		}
	}

	for _, seg := range body {
		if hasForbiddenRune(seg) {
			return parseResult{}, storage.NewError(storage.KindForbiddenCharacter, ref, body)
		}
	}

	if ignore != nil {
		for _, seg := range body {
			if ignore.MatchString(seg) {
				return parseResult{}, storage.NewError(storage.KindIgnoredFile, ref, body)
			}
		}
	}

	return parseResult{parts: body, hadTrailingSlash: hadTrailingSlash}, nil
}

// splitPath splits s on '/' without the stdlib path package's
// cleaning behavior, since "." and ".." segments must survive so that
// parseStringReference can detect them and report the collapsed path as
// NotNormalized rather than silently serving it.
func splitPath(s string) []string {
	if s == "" {
		return []string{""}
	}
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func joinPath(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += url.PathEscape(p)
	}
	return out
}
