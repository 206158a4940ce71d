package encoding

import (
	"sort"

	"github.com/servestream/servestream/httpheader"
)

// ErrDoesNotExist mirrors storage.KindDoesNotExist without importing the
// storage package, keeping this package dependency-free of it; fsstorage
// maps it back to a *storage.Error.
var ErrDoesNotExist = errDoesNotExist{}

type errDoesNotExist struct{}

func (errDoesNotExist) Error() string { return "encoding: no acceptable variant exists" }

// ProbeResult is what an Opener reports about one candidate path.
type ProbeResult struct {
	// Exists is false if nothing is at candidatePath.
	Exists bool
	// IsDir is true if candidatePath names a directory.
	IsDir bool
}

// Opener probes a candidate path, without retaining any resources: the
// real open happens again (or is reused) by the caller once Select has
// picked a winner. Implementations typically Stat the path.
type Opener func(candidatePath string) (ProbeResult, error)

// Selection is the winning candidate.
type Selection struct {
	Name string
	Path string
	// VaryAccepted is true if the mapping applied at all (even if
	// identity won), signaling the caller must add Vary: Accept-Encoding.
	VaryAccepted bool
}

// Select runs the §4.B procedure: filter the mapping's preferences by
// the client's Accept-Encoding, try each acceptable candidate in
// declared order via probe, and return the first that exists and is not
// an unwanted directory.
//
// mapping may be nil (no mapping configured for this path); in that
// case Select always returns the identity candidate unprobed.
func Select(mapping *Mapping, resolvedPath string, clientPrefs []httpheader.EncodingPreference, probe Opener) (Selection, error) {
	if mapping == nil {
		return Selection{Name: "identity", Path: resolvedPath}, nil
	}

	candidates := acceptableCandidates(*mapping, resolvedPath, clientPrefs)
	for _, c := range candidates {
		result, err := probe(c.path)
		if err != nil {
			return Selection{}, err
		}
		if !result.Exists {
			continue
		}
		if result.IsDir {
			if c.name == "identity" {
				return Selection{}, ErrDirectory{Path: c.path}
			}
			continue
		}
		return Selection{Name: c.name, Path: c.path, VaryAccepted: true}, nil
	}
	return Selection{}, ErrDoesNotExist
}

// ErrDirectory signals the winning identity candidate is a directory;
// the orchestrator/fsstorage decides how to handle that (index file,
// listing, or reject) rather than encoding deciding for it.
type ErrDirectory struct{ Path string }

func (e ErrDirectory) Error() string { return "encoding: " + e.Path + " is a directory" }

type candidate struct {
	name string
	path string
}

func acceptableCandidates(mapping Mapping, resolvedPath string, clientPrefs []httpheader.EncodingPreference) []candidate {
	type scored struct {
		candidate
		order int
	}
	var acceptable []scored
	for _, p := range mapping.prefs {
		q := httpheader.EffectiveQ(clientPrefs, p.name)
		if q <= 0 {
			continue
		}
		acceptable = append(acceptable, scored{
			candidate: candidate{name: p.name, path: mapping.expand(resolvedPath, p.replacement)},
			order:     p.order,
		})
	}
	sort.SliceStable(acceptable, func(i, j int) bool { return acceptable[i].order < acceptable[j].order })

	out := make([]candidate, len(acceptable))
	for i, s := range acceptable {
		out[i] = s.candidate
	}
	return out
}
