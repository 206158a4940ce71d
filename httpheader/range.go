package httpheader

import (
	"strconv"
	"strings"
)

// RawRange is one "start-end" / "start-" / "-suffixLen" spec as written
// on the wire, before it is resolved against a known resource size.
type RawRange struct {
	// HasStart/HasEnd distinguish the three RFC 9110 §14.1.2 forms:
	//   HasStart && HasEnd   -> "start-end"
	//   HasStart && !HasEnd  -> "start-"
	//   !HasStart && HasEnd  -> "-suffixLen" (End holds the suffix length)
	HasStart bool
	HasEnd   bool
	Start    int64
	End      int64
}

// ParseRange parses a Range header value with the "bytes=" unit. It
// returns ok=false when the unit isn't "bytes" or the syntax is invalid,
// signaling the caller to ignore the header entirely and serve 200.
func ParseRange(header string) (ranges []RawRange, ok bool) {
	header = strings.TrimSpace(header)
	unit, spec, found := strings.Cut(header, "=")
	if !found || strings.TrimSpace(unit) != "bytes" {
		return nil, false
	}
	specs := strings.Split(spec, ",")
	ranges = make([]RawRange, 0, len(specs))
	for _, s := range specs {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, false
		}
		r, ok := parseOneRange(s)
		if !ok {
			return nil, false
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return nil, false
	}
	return ranges, true
}

func parseOneRange(s string) (RawRange, bool) {
	startStr, endStr, found := strings.Cut(s, "-")
	if !found {
		return RawRange{}, false
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	switch {
	case startStr == "" && endStr == "":
		return RawRange{}, false
	case startStr == "": // -suffixLen
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n < 0 {
			return RawRange{}, false
		}
		return RawRange{HasEnd: true, End: n}, true
	case endStr == "": // start-
		n, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || n < 0 {
			return RawRange{}, false
		}
		return RawRange{HasStart: true, Start: n}, true
	default: // start-end
		start, err1 := strconv.ParseInt(startStr, 10, 64)
		end, err2 := strconv.ParseInt(endStr, 10, 64)
		if err1 != nil || err2 != nil || start < 0 || end < 0 {
			return RawRange{}, false
		}
		return RawRange{HasStart: true, HasEnd: true, Start: start, End: end}, true
	}
}

// Resolved is a RawRange resolved against a known resource size, or a
// marker that it could never be satisfiable.
type Resolved struct {
	Start, End  int64 // inclusive, valid only if Satisfiable
	Satisfiable bool
}

// Resolve maps the three RawRange forms onto a concrete, clamped
// [Start, End] interval given the resource size, per RFC 9110 §14.1.2.
func (r RawRange) Resolve(size int64) Resolved {
	switch {
	case r.HasStart && r.HasEnd: // start-end
		if r.Start >= size || r.Start > r.End {
			return Resolved{}
		}
		end := r.End
		if end > size-1 {
			end = size - 1
		}
		return Resolved{Start: r.Start, End: end, Satisfiable: true}
	case r.HasStart: // start-
		if r.Start >= size {
			return Resolved{}
		}
		return Resolved{Start: r.Start, End: size - 1, Satisfiable: true}
	default: // -suffixLen
		if r.End <= 0 {
			return Resolved{}
		}
		start := size - r.End
		if start < 0 {
			start = 0
		}
		if size == 0 {
			return Resolved{}
		}
		return Resolved{Start: start, End: size - 1, Satisfiable: true}
	}
}
