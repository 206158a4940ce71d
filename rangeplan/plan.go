// Package rangeplan validates and orders the byte ranges parsed from a
// Range header into a concrete serving plan: the whole resource, one
// sub-range, or a multipart/byteranges framing of several.
package rangeplan

import (
	"fmt"

	"github.com/servestream/servestream/httpheader"
)

// Kind discriminates the four plan shapes from §3.
type Kind int

const (
	Full Kind = iota
	Single
	Multipart
	Unsatisfiable
)

// Part is one resolved, orderable sub-range of a Multipart plan. A
// Single plan carries its one range in Plan.Start/End instead.
type Part struct {
	Start, End int64 // inclusive
}

// Plan is the outcome of planning a Range header against a resource.
type Plan struct {
	Kind Kind

	// Single: the one requested range.
	Start, End int64

	// Multipart: every requested range, in client-supplied order
	// (never coalesced), plus the boundary token to frame them with.
	Parts    []Part
	Boundary string
}

// Options configures planning behavior.
type Options struct {
	// MaxRanges is the configured cap on simultaneously requested
	// ranges. nil means "use the spec default of 200". 0 disables
	// range support entirely (Plan always returns Full). 1 disables
	// multipart: a second parsed range (satisfiable or not) makes the
	// request ">maxRanges parsed", which degrades silently to Full.
	MaxRanges *int
}

// DefaultMaxRanges is used when Options.MaxRanges is nil.
const DefaultMaxRanges = 200

// Build constructs a Plan for the given raw ranges against a resource of
// the given size. size < 0 means "unknown size", which always yields
// Full regardless of what was requested.
func Build(raw []httpheader.RawRange, size int64, opts Options) Plan {
	maxRanges := DefaultMaxRanges
	if opts.MaxRanges != nil {
		maxRanges = *opts.MaxRanges
	}
	if size < 0 {
		return Plan{Kind: Full}
	}
	if maxRanges <= 0 {
		return Plan{Kind: Full}
	}
	if len(raw) > maxRanges {
		return Plan{Kind: Full}
	}

	var satisfiable []Part
	for _, r := range raw {
		resolved := r.Resolve(size)
		if resolved.Satisfiable {
			satisfiable = append(satisfiable, Part{Start: resolved.Start, End: resolved.End})
		}
	}

	switch len(satisfiable) {
	case 0:
		return Plan{Kind: Unsatisfiable}
	case 1:
		return Plan{Kind: Single, Start: satisfiable[0].Start, End: satisfiable[0].End}
	default:
		return Plan{Kind: Multipart, Parts: satisfiable, Boundary: newBoundary()}
	}
}

// PartHeaders returns the Content-Type/Content-Range header block for
// one multipart sub-part, in the order the framer writes them.
func PartHeaders(contentType string, part Part, size int64) string {
	return fmt.Sprintf("content-type: %s\r\ncontent-range: bytes %d-%d/%d\r\n",
		contentType, part.Start, part.End, size)
}
