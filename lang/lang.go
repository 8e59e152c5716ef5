// Package lang defines the syntax tree boundary consumed by the match
// engine: an opaque node capability interface, the grammar contract that
// produces trees from source text, and a registry for looking grammars up
// by language identifier or file extension.
package lang

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Span is a half-open byte range into the original source.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Node is the engine's view of one syntax tree node. Implementations wrap a
// concrete parser's node type; the engine never sees anything richer than
// this interface.
type Node interface {
	// Kind returns the grammar's name for this node, e.g. "call_expression".
	Kind() string

	// Field returns the child node(s) addressed by a field name. The second
	// result is false when the node has no such field. Grammars may expose
	// synthetic fields for positional children (see projections in the
	// tree-sitter adapter).
	Field(name string) ([]Node, bool)

	// Children returns the named children in document order.
	Children() []Node

	// Text returns the literal source text covered by the node.
	Text() string

	// Span returns the node's byte range in the original source.
	Span() Span
}

// Tree owns one parse result. Close releases parser-side memory; the nodes
// handed out by Root must not be used afterwards.
type Tree struct {
	root    Node
	release func()
}

// NewTree wraps a root node with an optional release hook.
func NewTree(root Node, release func()) *Tree {
	return &Tree{root: root, release: release}
}

// Root returns the tree's root node.
func (t *Tree) Root() Node {
	return t.root
}

// Close releases any resources held by the underlying parser.
func (t *Tree) Close() {
	if t.release != nil {
		t.release()
		t.release = nil
	}
}

// Grammar parses source text of one language into a Tree.
type Grammar interface {
	ID() string
	Extensions() []string
	Parse(ctx context.Context, source []byte) (*Tree, error)
}

// Registry manages the available grammars.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Grammar
	byExt map[string]Grammar
}

// NewRegistry creates an empty grammar registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[string]Grammar),
		byExt: make(map[string]Grammar),
	}
}

// Register adds a grammar. Later registrations for the same ID or extension
// overwrite earlier ones.
func (r *Registry) Register(g Grammar) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[strings.ToLower(g.ID())] = g
	for _, ext := range g.Extensions() {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.byExt[ext] = g
	}
}

// Get retrieves a grammar by language ID.
func (r *Registry) Get(id string) (Grammar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byID[strings.ToLower(id)]
	return g, ok
}

// ByExtension retrieves the grammar registered for a file extension
// (with or without the leading dot).
func (r *Registry) ByExtension(ext string) (Grammar, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byExt[ext]
	return g, ok
}

// Languages returns the registered language IDs, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRegistry returns a registry with all built-in grammars registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewJavaScript())
	r.Register(NewTypeScript())
	r.Register(NewGo())
	r.Register(NewPython())
	r.Register(NewPHP())
	return r
}
