package engine

import (
	"strings"
	"testing"

	"github.com/termfx/graft/lang"
)

// fakeNode is an in-memory syntax node for engine tests; no parser runs.
type fakeNode struct {
	kind     string
	text     string
	span     lang.Span
	fields   map[string][]lang.Node
	children []lang.Node
}

func (n *fakeNode) Kind() string { return n.kind }

func (n *fakeNode) Field(name string) ([]lang.Node, bool) {
	ns, ok := n.fields[name]
	return ns, ok
}

func (n *fakeNode) Children() []lang.Node { return n.children }
func (n *fakeNode) Text() string          { return n.text }
func (n *fakeNode) Span() lang.Span       { return n.span }

// nodeAt builds a node covering the first occurrence of text inside src, so
// spans stay consistent with the document the test splices back into.
func nodeAt(t *testing.T, src, kind, text string) *fakeNode {
	t.Helper()
	off := strings.Index(src, text)
	if off < 0 {
		t.Fatalf("fixture text %q not found in %q", text, src)
	}
	return &fakeNode{
		kind: kind,
		text: text,
		span: lang.Span{Start: off, End: off + len(text)},
	}
}

func withFields(n *fakeNode, fields map[string][]lang.Node) *fakeNode {
	n.fields = fields
	return n
}

func fakeTree(root lang.Node) *lang.Tree {
	return lang.NewTree(root, nil)
}

// requireCallNode builds the call_expression subtree for the require('mod')
// occurrence inside src.
func requireCallNode(t *testing.T, src string) *fakeNode {
	t.Helper()
	frag := nodeAt(t, src, "string_fragment", "mod")
	str := withFields(nodeAt(t, src, "string", "'mod'"),
		map[string][]lang.Node{"fragments": {frag}})
	args := withFields(nodeAt(t, src, "arguments", "('mod')"),
		map[string][]lang.Node{"items": {str}})
	fn := nodeAt(t, src, "identifier", "require")
	return withFields(nodeAt(t, src, "call_expression", "require('mod')"),
		map[string][]lang.Node{"function": {fn}, "arguments": {args}})
}

// constRequireTree wraps name and value nodes in the declaration chain
// program → lexical_declaration → variable_declarator covering all of src.
func constRequireTree(t *testing.T, src string, name, value lang.Node) *lang.Tree {
	t.Helper()
	decl := withFields(
		nodeAt(t, src, "variable_declarator", strings.TrimPrefix(src, "const ")),
		map[string][]lang.Node{"name": {name}, "value": {value}},
	)
	lex := withFields(nodeAt(t, src, "lexical_declaration", src),
		map[string][]lang.Node{"declarators": {decl}})
	lex.children = []lang.Node{decl}
	root := withFields(nodeAt(t, src, "program", src),
		map[string][]lang.Node{"statements": {lex}})
	root.children = []lang.Node{lex}
	return fakeTree(root)
}

// destructuredTree is constRequireTree with an object_pattern holding the
// given property nodes on the name side.
func destructuredTree(t *testing.T, src string, props []lang.Node) *lang.Tree {
	t.Helper()
	objText := src[strings.Index(src, "{") : strings.Index(src, "}")+1]
	obj := withFields(nodeAt(t, src, "object_pattern", objText),
		map[string][]lang.Node{"properties": props})
	return constRequireTree(t, src, obj, requireCallNode(t, src))
}
