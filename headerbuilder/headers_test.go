package headerbuilder

import (
	"strings"
	"testing"
)

func TestETagStrongAndWeak(t *testing.T) {
	strong := ETag(5, 0x10, "identity", false)
	if !strings.HasPrefix(strong, `"`) || !strings.HasSuffix(strong, `"`) {
		t.Fatalf("got %q", strong)
	}
	weak := ETag(5, 0x10, "identity", true)
	if !strings.HasPrefix(weak, `W/"`) {
		t.Fatalf("got %q", weak)
	}
}

func TestContentTypeCharsetDefault(t *testing.T) {
	rules := DefaultCharsetRules()
	ct := ContentType("text/plain", "", rules)
	if ct != "text/plain; charset=UTF-8" {
		t.Fatalf("got %q", ct)
	}
	ct = ContentType("image/png", "", rules)
	if ct != "image/png" {
		t.Fatalf("got %q", ct)
	}
}

func TestContentTypeExplicitCharsetWins(t *testing.T) {
	ct := ContentType("text/plain", "ISO-8859-1", DefaultCharsetRules())
	if ct != "text/plain; charset=ISO-8859-1" {
		t.Fatalf("got %q", ct)
	}
}

func TestMergeVary(t *testing.T) {
	if got := MergeVary("", true); got != "Accept-Encoding" {
		t.Fatalf("got %q", got)
	}
	if got := MergeVary("Cookie", true); got != "Cookie, Accept-Encoding" {
		t.Fatalf("got %q", got)
	}
	if got := MergeVary("Accept-Encoding", true); got != "Accept-Encoding" {
		t.Fatalf("got %q, want deduplicated", got)
	}
}

func TestAcceptRanges(t *testing.T) {
	if got := AcceptRanges(200, true); got != "bytes" {
		t.Fatalf("got %q", got)
	}
	if got := AcceptRanges(0, true); got != "none" {
		t.Fatalf("got %q", got)
	}
	if got := AcceptRanges(200, false); got != "none" {
		t.Fatalf("got %q", got)
	}
}

func TestContentDispositionASCII(t *testing.T) {
	got := ContentDisposition("inline", `my "file".txt`)
	want := `inline; filename="my \"file\".txt"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestContentDispositionNonASCII(t *testing.T) {
	got := ContentDisposition("inline", "café.txt")
	if !strings.Contains(got, `filename="caf_.txt"`) {
		t.Fatalf("missing ascii fallback: %q", got)
	}
	if !strings.Contains(got, "filename*=UTF-8''") {
		t.Fatalf("missing filename*: %q", got)
	}
}
