package lang

import (
	"context"
	"testing"
)

type stubGrammar struct {
	id   string
	exts []string
}

func (s *stubGrammar) ID() string           { return s.id }
func (s *stubGrammar) Extensions() []string { return s.exts }
func (s *stubGrammar) Parse(ctx context.Context, source []byte) (*Tree, error) {
	return NewTree(nil, nil), nil
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubGrammar{id: "mock", exts: []string{".mk"}})

	if _, ok := r.Get("mock"); !ok {
		t.Fatal("expected grammar registered under its ID")
	}
	if _, ok := r.Get("MOCK"); !ok {
		t.Error("lookup should be case-insensitive")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("unregistered ID should not resolve")
	}
}

func TestRegistryByExtension(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubGrammar{id: "mock", exts: []string{".mk", "mke", " .MKX "}})

	tests := []struct {
		ext  string
		want bool
	}{
		{".mk", true},
		{"mk", true},
		{".mke", true},
		{".mkx", true},
		{".nope", false},
	}

	for _, tt := range tests {
		if _, ok := r.ByExtension(tt.ext); ok != tt.want {
			t.Errorf("ByExtension(%q) = %v, want %v", tt.ext, ok, tt.want)
		}
	}
}

func TestRegistryLanguages(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubGrammar{id: "zeta"})
	r.Register(&stubGrammar{id: "alpha"})

	langs := r.Languages()
	if len(langs) != 2 || langs[0] != "alpha" || langs[1] != "zeta" {
		t.Errorf("Languages() = %v, want sorted [alpha zeta]", langs)
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	for _, id := range []string{"javascript", "typescript", "go", "python", "php"} {
		if _, ok := r.Get(id); !ok {
			t.Errorf("built-in grammar %q missing", id)
		}
	}
	if g, ok := r.ByExtension(".mjs"); !ok || g.ID() != "javascript" {
		t.Error(".mjs should resolve to the javascript grammar")
	}
}

func TestSpanOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Span
		want bool
	}{
		{"disjoint", Span{0, 5}, Span{5, 10}, false},
		{"touching is not overlap", Span{0, 5}, Span{5, 6}, false},
		{"nested", Span{0, 10}, Span{2, 4}, true},
		{"partial", Span{0, 5}, Span{4, 8}, true},
		{"identical", Span{3, 7}, Span{3, 7}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("%v.Overlaps(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("overlap must be symmetric for %v and %v", tt.a, tt.b)
			}
		})
	}
}
