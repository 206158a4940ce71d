package fsstorage

import (
	"io"
	"os"
	"strings"
)

// listingReader generates a directory's HTML listing lazily, entry by
// entry, reopening the directory by path rather than keeping a handle
// from Open — CreateReadableStream may be called well after Open
// returned, and a directory's contents may have changed in between, so
// there is no long-lived fd worth retaining.
func (s *Storage) listingReader(resolvedPath string) io.ReadCloser {
	entries, err := os.ReadDir(resolvedPath)
	if err != nil {
		return &errReader{err: err}
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if hasForbiddenRune(name) {
			continue
		}
		if s.opts.Ignore != nil && s.opts.Ignore.MatchString(name) {
			continue
		}
		names = append(names, name)
	}
	return &listingStream{names: names, pending: []byte(listingHeader)}
}

const listingHeader = "<!DOCTYPE html>\n<html><body><ul>\n"
const listingFooter = "</ul></body></html>\n"

// listingStream emits listingHeader, one <li> per entry, then
// listingFooter, never holding more than one rendered line in memory.
type listingStream struct {
	names      []string
	index      int
	pending    []byte
	footerSent bool
}

func (l *listingStream) Read(p []byte) (int, error) {
	for {
		if len(l.pending) > 0 {
			n := copy(p, l.pending)
			l.pending = l.pending[n:]
			return n, nil
		}
		if l.index < len(l.names) {
			name := l.names[l.index]
			l.index++
			esc := escapeAmpersand(name)
			l.pending = []byte(`<li><a href="` + esc + `">` + esc + `</a></li>` + "\n")
			continue
		}
		if !l.footerSent {
			l.footerSent = true
			l.pending = []byte(listingFooter)
			continue
		}
		return 0, io.EOF
	}
}

func (l *listingStream) Close() error { return nil }

func escapeAmpersand(s string) string {
	return strings.ReplaceAll(s, "&", "&amp;")
}

// errReader surfaces a deferred error (e.g. the directory vanished
// between Open and CreateReadableStream) as the first Read's result.
type errReader struct{ err error }

func (e *errReader) Read(p []byte) (int, error) { return 0, e.err }
func (e *errReader) Close() error               { return nil }
