package multipart

import (
	"io"
	"regexp"
	"strings"
	"testing"
)

func openerFor(s string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}

func TestFramerProducesExpectedFraming(t *testing.T) {
	parts := []Part{
		{Header: "content-type: text/plain; charset=UTF-8\r\ncontent-range: bytes 0-0/5\r\n", Open: openerFor("w")},
		{Header: "content-type: text/plain; charset=UTF-8\r\ncontent-range: bytes 2-2/5\r\n", Open: openerFor("r")},
	}
	f := NewFramer("BOUNDARY123456789012345", parts)
	out, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	re := regexp.MustCompile(`^\r\n--[^\r\n]+\r\ncontent-type: text/plain; charset=UTF-8\r\ncontent-range: bytes 0-0/5\r\n\r\nw\r\n--[^\r\n]+\r\ncontent-type: text/plain; charset=UTF-8\r\ncontent-range: bytes 2-2/5\r\n\r\nr\r\n--[^\r\n]+--\r\n$`)
	if !re.MatchString(string(out)) {
		t.Fatalf("framing mismatch:\n%q", out)
	}
}

func TestFramerOpensOnePartAtATime(t *testing.T) {
	var openedAt []int
	makeOpen := func(i int) func() (io.ReadCloser, error) {
		return func() (io.ReadCloser, error) {
			openedAt = append(openedAt, i)
			return io.NopCloser(strings.NewReader("x")), nil
		}
	}
	parts := []Part{
		{Header: "a\r\n", Open: makeOpen(0)},
		{Header: "b\r\n", Open: makeOpen(1)},
	}
	f := NewFramer("B", parts)
	if _, err := io.ReadAll(f); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(openedAt) != 2 || openedAt[0] != 0 || openedAt[1] != 1 {
		t.Fatalf("parts opened out of order: %v", openedAt)
	}
}

func TestFramerCloseSuppressesFurtherOpens(t *testing.T) {
	opened := 0
	parts := []Part{
		{Header: "a\r\n", Open: func() (io.ReadCloser, error) {
			opened++
			return io.NopCloser(strings.NewReader("aaaaaaaaaa")), nil
		}},
		{Header: "b\r\n", Open: func() (io.ReadCloser, error) {
			opened++
			return io.NopCloser(strings.NewReader("b")), nil
		}},
	}
	f := NewFramer("B", parts)
	buf := make([]byte, 4)
	// The first part's framing prefix is returned before its body is
	// opened, so keep reading until the first part is open.
	for opened == 0 {
		if _, err := f.Read(buf); err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := f.Read(buf); err != io.EOF {
		t.Fatalf("expected EOF after close, got %v", err)
	}
	if opened != 1 {
		t.Fatalf("expected only the first part to have opened, got %d", opened)
	}
}
