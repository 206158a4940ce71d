package conditional

import (
	"testing"

	"github.com/servestream/servestream/httpheader"
)

func TestIfNoneMatchYieldsNotModifiedOnGet(t *testing.T) {
	res := Resource{ETag: httpheader.ETag{Value: "abc"}, HasETag: true}
	result := Evaluate(Request{Method: "GET", IfNoneMatch: `"abc"`}, res)
	if result.Verdict != NotModified {
		t.Fatalf("got %+v", result)
	}
}

func TestIfNoneMatchYieldsPreconditionFailedOnPost(t *testing.T) {
	res := Resource{ETag: httpheader.ETag{Value: "abc"}, HasETag: true}
	result := Evaluate(Request{Method: "POST", IfNoneMatch: `"abc"`}, res)
	if result.Verdict != PreconditionFailed {
		t.Fatalf("got %+v", result)
	}
}

func TestIfMatchFailsWhenNoTagMatches(t *testing.T) {
	res := Resource{ETag: httpheader.ETag{Value: "abc"}, HasETag: true}
	result := Evaluate(Request{Method: "GET", IfMatch: `"xyz"`}, res)
	if result.Verdict != PreconditionFailed {
		t.Fatalf("got %+v", result)
	}
}

func TestMissingETagAutoPassesIfMatch(t *testing.T) {
	result := Evaluate(Request{Method: "GET", IfMatch: `"xyz"`}, Resource{})
	if result.Verdict != Proceed {
		t.Fatalf("got %+v", result)
	}
}

func TestMissingETagAutoPassesIfNoneMatch(t *testing.T) {
	result := Evaluate(Request{Method: "GET", IfNoneMatch: `"xyz"`}, Resource{})
	if result.Verdict != Proceed {
		t.Fatalf("got %+v", result)
	}
}

func TestIfModifiedSinceNotModified(t *testing.T) {
	res := Resource{MTimeMS: 1000, HasMTime: true}
	result := Evaluate(Request{Method: "GET", IfModifiedSince: "Sun, 06 Nov 1994 08:49:37 GMT"}, res)
	// resource mtime (1000ms since epoch) is far earlier than 1994 so should be not-modified
	if result.Verdict != NotModified {
		t.Fatalf("got %+v", result)
	}
}

func TestIfNoneMatchTakesPrecedenceOverIfModifiedSince(t *testing.T) {
	res := Resource{ETag: httpheader.ETag{Value: "abc"}, HasETag: true, MTimeMS: 99999999999999, HasMTime: true}
	result := Evaluate(Request{
		Method:          "GET",
		IfNoneMatch:     `"zzz"`, // does not match -> proceed regardless of date
		IfModifiedSince: "Sun, 06 Nov 1994 08:49:37 GMT",
	}, res)
	if result.Verdict != Proceed {
		t.Fatalf("got %+v, want Proceed since If-None-Match governs when present", result)
	}
}

func TestIfRangeETagMismatchDropsRange(t *testing.T) {
	res := Resource{ETag: httpheader.ETag{Value: "abc"}, HasETag: true}
	result := Evaluate(Request{Method: "GET", HasRange: true, IfRange: `"different"`}, res)
	if result.Verdict != Proceed || !result.DropRange {
		t.Fatalf("got %+v", result)
	}
}

func TestIfRangeETagMatchKeepsRange(t *testing.T) {
	res := Resource{ETag: httpheader.ETag{Value: "abc"}, HasETag: true}
	result := Evaluate(Request{Method: "GET", HasRange: true, IfRange: `"abc"`}, res)
	if result.Verdict != Proceed || result.DropRange {
		t.Fatalf("got %+v", result)
	}
}

func TestIfUnmodifiedSinceFails(t *testing.T) {
	res := Resource{MTimeMS: 99999999999999, HasMTime: true}
	result := Evaluate(Request{Method: "GET", IfUnmodifiedSince: "Sun, 06 Nov 1994 08:49:37 GMT"}, res)
	if result.Verdict != PreconditionFailed {
		t.Fatalf("got %+v", result)
	}
}
