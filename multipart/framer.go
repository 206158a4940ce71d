// Package multipart lazily frames several byte sub-streams as a
// multipart/byteranges body, per RFC 9110 §14.6: each part is preceded
// by "--boundary" and its header block, and the whole body is closed out
// with a final "--boundary--".
//
// Only one backing sub-stream is ever open at a time: the next part is
// opened only once the previous one has been fully read and closed, the
// same one-active-operation-at-a-time discipline a response tee applies
// to writes.
package multipart

import (
	"errors"
	"io"
)

// Part is one sub-range to frame: Header is the pre-rendered
// "content-type: ...\r\ncontent-range: ...\r\n" block for this part, and
// Open lazily acquires the body bytes when the framer reaches this part.
type Part struct {
	Header string
	Open   func() (io.ReadCloser, error)
}

type stage int

const (
	stagePreamble stage = iota
	stagePartHeader
	stagePartBody
	stageEpilogue
	stageDone
)

// Framer implements io.ReadCloser, producing the full multipart body on
// demand.
type Framer struct {
	boundary string
	parts    []Part
	index    int

	stage   stage
	pending []byte // buffered literal bytes not yet copied out
	current io.ReadCloser
}

// NewFramer builds a Framer for boundary over parts, which must be
// non-empty.
func NewFramer(boundary string, parts []Part) *Framer {
	f := &Framer{boundary: boundary, parts: parts}
	f.pending = []byte(f.partPrefix(0))
	return f
}

func (f *Framer) partPrefix(i int) string {
	return "\r\n--" + f.boundary + "\r\n" + f.parts[i].Header + "\r\n"
}

func (f *Framer) epilogue() string {
	return "\r\n--" + f.boundary + "--\r\n"
}

// Read implements io.Reader. It drains any buffered literal header bytes
// first, then streams the current part's body, advancing to the next
// part (opening it lazily) once the current one is exhausted.
func (f *Framer) Read(p []byte) (int, error) {
	for {
		if len(f.pending) > 0 {
			n := copy(p, f.pending)
			f.pending = f.pending[n:]
			return n, nil
		}
		switch f.stage {
		case stagePreamble:
			f.stage = stagePartBody
			if err := f.openCurrent(); err != nil {
				return 0, err
			}
			continue
		case stagePartBody:
			n, err := f.current.Read(p)
			if n > 0 {
				return n, nil
			}
			if err == io.EOF {
				if closeErr := f.closeCurrent(); closeErr != nil {
					return 0, closeErr
				}
				f.index++
				if f.index >= len(f.parts) {
					f.stage = stageEpilogue
					f.pending = []byte(f.epilogue())
					continue
				}
				f.pending = []byte(f.partPrefix(f.index))
				f.stage = stagePreamble
				continue
			}
			if err != nil {
				return 0, err
			}
			// n == 0, err == nil: ask the underlying reader again.
			continue
		case stageEpilogue:
			f.stage = stageDone
			continue
		case stageDone:
			return 0, io.EOF
		}
	}
}

func (f *Framer) openCurrent() error {
	if f.index >= len(f.parts) {
		return errors.New("multipart: no part to open")
	}
	rc, err := f.parts[f.index].Open()
	if err != nil {
		return err
	}
	f.current = rc
	return nil
}

func (f *Framer) closeCurrent() error {
	if f.current == nil {
		return nil
	}
	err := f.current.Close()
	f.current = nil
	return err
}

// Close releases whatever part is currently open, suppressing any
// attempt to open a further part. Safe to call multiple times and safe
// to call after Read has already returned io.EOF.
func (f *Framer) Close() error {
	f.stage = stageDone
	f.pending = nil
	return f.closeCurrent()
}
