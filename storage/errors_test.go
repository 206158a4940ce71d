package storage

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := &Error{Kind: KindUnknown, Err: cause}

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to unwrap to cause")
	}

	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected errors.As to match *Error")
	}
	if se.Kind != KindUnknown {
		t.Fatalf("got kind %v, want KindUnknown", se.Kind)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindMalformedPath:      "malformed-path",
		KindNotNormalized:      "not-normalized",
		KindConsecutiveSlashes: "consecutive-slashes",
		KindIsDirectory:        "is-directory",
		KindDoesNotExist:       "does-not-exist",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestNewErrorCarriesReferenceAndParts(t *testing.T) {
	err := NewError(KindForbiddenCharacter, "/a/b", []string{"", "a", "b"})
	if err.Kind != KindForbiddenCharacter {
		t.Fatalf("got kind %v", err.Kind)
	}
	if err.Reference != "/a/b" {
		t.Fatalf("got reference %v", err.Reference)
	}
	if len(err.PathParts) != 3 {
		t.Fatalf("got %d path parts", len(err.PathParts))
	}
}
