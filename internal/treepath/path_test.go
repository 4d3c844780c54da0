package treepath

import (
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name       string
		parentPath string
		id         int64
		want       string
	}{
		{name: "root", parentPath: "", id: 1, want: "/1/"},
		{name: "child of root", parentPath: "/1/", id: 2, want: "/1/2/"},
		{name: "deep node", parentPath: "/1/2/3/", id: 40, want: "/1/2/3/40/"},
		{name: "large id", parentPath: "/1/", id: 9007199254740993, want: "/1/9007199254740993/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.parentPath, tt.id); got != tt.want {
				t.Errorf("Encode(%q, %d) = %q, want %q", tt.parentPath, tt.id, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    []int64
		corrupt bool
	}{
		{name: "root", path: "/1/", want: []int64{1}},
		{name: "chain", path: "/1/2/3/", want: []int64{1, 2, 3}},
		{name: "empty", path: "", corrupt: true},
		{name: "bare slash", path: "/", corrupt: true},
		{name: "missing leading slash", path: "1/2/", corrupt: true},
		{name: "missing trailing slash", path: "/1/2", corrupt: true},
		{name: "non-numeric segment", path: "/1/x/3/", corrupt: true},
		{name: "empty segment", path: "/1//3/", corrupt: true},
		{name: "negative id", path: "/-1/", corrupt: true},
		{name: "zero id", path: "/0/", corrupt: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.path)
			if tt.corrupt {
				var cpe *CorruptPathError
				if !errors.As(err, &cpe) {
					t.Fatalf("Decode(%q) error = %v, want CorruptPathError", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) unexpected error: %v", tt.path, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Decode(%q) = %v, want %v", tt.path, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Decode(%q)[%d] = %d, want %d", tt.path, i, got[i], tt.want[i])
				}
			}
		})
	}
}

// TestRoundTrip verifies encode(decode(path)) == path for well-formed paths.
func TestRoundTrip(t *testing.T) {
	paths := []string{"/1/", "/1/2/", "/7/3/19/240/", "/100/200/300/"}
	for _, p := range paths {
		ids, err := Decode(p)
		if err != nil {
			t.Fatalf("Decode(%q): %v", p, err)
		}
		rebuilt := ""
		for _, id := range ids {
			rebuilt = Encode(rebuilt, id)
		}
		if rebuilt != p {
			t.Errorf("round trip of %q produced %q", p, rebuilt)
		}
	}
}

func TestDepthOf(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{path: "/1/", want: 0},
		{path: "/1/2/", want: 1},
		{path: "/1/2/3/4/5/", want: 4},
	}
	for _, tt := range tests {
		got, err := DepthOf(tt.path)
		if err != nil {
			t.Fatalf("DepthOf(%q): %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("DepthOf(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}

	if _, err := DepthOf("bogus"); err == nil {
		t.Error("DepthOf on malformed path should fail")
	}
}

func TestSelfID(t *testing.T) {
	id, err := SelfID("/1/2/9/")
	if err != nil {
		t.Fatalf("SelfID: %v", err)
	}
	if id != 9 {
		t.Errorf("SelfID = %d, want 9", id)
	}
}

func TestIsDescendant(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		ancestor  string
		want      bool
	}{
		{name: "direct child", candidate: "/1/2/", ancestor: "/1/", want: true},
		{name: "grandchild", candidate: "/1/2/3/", ancestor: "/1/", want: true},
		{name: "self", candidate: "/1/", ancestor: "/1/", want: false},
		{name: "sibling", candidate: "/2/", ancestor: "/1/", want: false},
		{name: "ancestor not descendant", candidate: "/1/", ancestor: "/1/2/", want: false},
		// "/12/" must not match prefix "/1" — the trailing slash in
		// every stored path prevents partial-segment matches.
		{name: "shared digit prefix", candidate: "/12/", ancestor: "/1/", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDescendant(tt.candidate, tt.ancestor); got != tt.want {
				t.Errorf("IsDescendant(%q, %q) = %v, want %v", tt.candidate, tt.ancestor, got, tt.want)
			}
		})
	}
}
