// Package conditional implements the RFC 9110 §13.2 precondition state
// machine: given the request's If-* headers and a resource's current
// ETag/mtime, decide whether to serve 200/206, 304, or 412, and whether
// an accompanying Range request should be honored or dropped.
package conditional

import "github.com/servestream/servestream/httpheader"

// Verdict is the outcome of evaluating preconditions.
type Verdict int

const (
	// Proceed means: continue to range planning / full body as normal.
	Proceed Verdict = iota
	NotModified
	PreconditionFailed
)

// Request bundles the parsed precondition-related headers of an
// incoming request. Empty string means the header was absent.
type Request struct {
	Method string // GET, HEAD, or anything else

	IfMatch           string
	IfNoneMatch       string
	IfModifiedSince   string
	IfUnmodifiedSince string

	HasRange bool
	IfRange  string
}

// Resource is the current metadata of the thing being requested.
type Resource struct {
	ETag     httpheader.ETag
	HasETag  bool
	MTimeMS  int64
	HasMTime bool
}

// Result is the full outcome: the status verdict plus whether an
// accompanying Range header should be dropped (served as if absent).
type Result struct {
	Verdict   Verdict
	DropRange bool
}

func isGetOrHead(method string) bool {
	return method == "GET" || method == "HEAD"
}

// Evaluate runs the ordered precondition steps of §4.D. A missing ETag
// or mtime on the resource makes the corresponding precondition
// automatically pass, per spec.
func Evaluate(req Request, res Resource) Result {
	// Step 1: If-Match
	if req.IfMatch != "" {
		tags, wildcard := httpheader.ParseETagList(req.IfMatch)
		if res.HasETag {
			if !(wildcard || etagListContains(tags, res.ETag, true)) {
				return Result{Verdict: PreconditionFailed}
			}
		}
	}

	// Step 2: If-Unmodified-Since
	if req.IfUnmodifiedSince != "" && res.HasMTime {
		if ms, ok := httpheader.ParseHTTPDate(req.IfUnmodifiedSince); ok {
			if res.MTimeMS > ms {
				return Result{Verdict: PreconditionFailed}
			}
		}
	}

	// Step 3 / 3': If-None-Match
	if req.IfNoneMatch != "" {
		tags, wildcard := httpheader.ParseETagList(req.IfNoneMatch)
		matched := res.HasETag && (wildcard || etagListContains(tags, res.ETag, false))
		if matched {
			if isGetOrHead(req.Method) {
				return Result{Verdict: NotModified}
			}
			return Result{Verdict: PreconditionFailed}
		}
	} else if req.IfModifiedSince != "" && res.HasMTime && isGetOrHead(req.Method) {
		// Step 4: If-Modified-Since (only consulted when If-None-Match
		// was absent, per RFC 9110 §13.1.3).
		if ms, ok := httpheader.ParseHTTPDate(req.IfModifiedSince); ok {
			if res.MTimeMS <= ms {
				return Result{Verdict: NotModified}
			}
		}
	}

	// Step 5: If-Range
	dropRange := false
	if req.HasRange && req.IfRange != "" {
		dropRange = !ifRangeMatches(req.IfRange, res)
	}

	return Result{Verdict: Proceed, DropRange: dropRange}
}

func etagListContains(tags []httpheader.ETag, target httpheader.ETag, strong bool) bool {
	for _, t := range tags {
		if t.Matches(target, strong) {
			return true
		}
	}
	return false
}

// ifRangeMatches reports whether the If-Range validator still identifies
// the current representation: an ETag must match strongly, a date must
// equal the mtime exactly.
func ifRangeMatches(ifRange string, res Resource) bool {
	if tag, ok := parseSingleETag(ifRange); ok {
		return res.HasETag && res.ETag.Matches(tag, true)
	}
	if ms, ok := httpheader.ParseHTTPDate(ifRange); ok {
		return res.HasMTime && res.MTimeMS == ms
	}
	return false
}

func parseSingleETag(s string) (httpheader.ETag, bool) {
	tags, wildcard := httpheader.ParseETagList(s)
	if wildcard || len(tags) != 1 {
		return httpheader.ETag{}, false
	}
	return tags[0], true
}
