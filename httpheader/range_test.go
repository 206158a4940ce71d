package httpheader

import "testing"

func TestParseRangeForms(t *testing.T) {
	cases := []struct {
		header string
		ok     bool
		count  int
	}{
		{"bytes=0-0", true, 1},
		{"bytes=7-7", true, 1},
		{"bytes=-3", true, 1},
		{"bytes=0-0,2-2", true, 2},
		{"test=1-1", false, 0},
		{"bytes=", false, 0},
		{"bytes=a-b", false, 0},
	}
	for _, c := range cases {
		ranges, ok := ParseRange(c.header)
		if ok != c.ok {
			t.Fatalf("ParseRange(%q) ok = %v, want %v", c.header, ok, c.ok)
		}
		if ok && len(ranges) != c.count {
			t.Fatalf("ParseRange(%q) len = %d, want %d", c.header, len(ranges), c.count)
		}
	}
}

func TestResolveStartEnd(t *testing.T) {
	r := RawRange{HasStart: true, HasEnd: true, Start: 0, End: 0}
	res := r.Resolve(5)
	if !res.Satisfiable || res.Start != 0 || res.End != 0 {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveStartEndOutOfBounds(t *testing.T) {
	r := RawRange{HasStart: true, HasEnd: true, Start: 7, End: 7}
	res := r.Resolve(5)
	if res.Satisfiable {
		t.Fatalf("expected unsatisfiable, got %+v", res)
	}
}

func TestResolveSuffix(t *testing.T) {
	r := RawRange{HasEnd: true, End: 3}
	res := r.Resolve(9)
	if !res.Satisfiable || res.Start != 6 || res.End != 8 {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveStartOnly(t *testing.T) {
	r := RawRange{HasStart: true, Start: 2}
	res := r.Resolve(5)
	if !res.Satisfiable || res.Start != 2 || res.End != 4 {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveClampsEnd(t *testing.T) {
	r := RawRange{HasStart: true, HasEnd: true, Start: 0, End: 1000}
	res := r.Resolve(5)
	if !res.Satisfiable || res.End != 4 {
		t.Fatalf("got %+v", res)
	}
}
