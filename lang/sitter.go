package lang

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// projection exposes positional children of a node kind under a synthetic
// field name, for grammars that do not field-address the children a pattern
// needs (object pattern properties, call arguments, statement lists).
type projection struct {
	// kinds restricts the projected children to these node kinds.
	// Empty means every named child.
	kinds []string

	// single projects only the first matching child.
	single bool
}

type fieldTable map[string]map[string]projection

// sitterGrammar adapts one tree-sitter language to the Grammar interface.
type sitterGrammar struct {
	id       string
	exts     []string
	language *sitter.Language
	fields   fieldTable
	parsers  sync.Pool
}

func newSitterGrammar(id string, exts []string, language *sitter.Language, fields fieldTable) *sitterGrammar {
	if language == nil {
		panic(fmt.Sprintf("tree-sitter language for %s failed to load", id))
	}
	g := &sitterGrammar{
		id:       id,
		exts:     exts,
		language: language,
		fields:   fields,
	}
	g.parsers.New = func() any {
		p := sitter.NewParser()
		p.SetLanguage(language)
		return p
	}
	return g
}

func (g *sitterGrammar) ID() string {
	return g.id
}

func (g *sitterGrammar) Extensions() []string {
	return g.exts
}

// Parse turns source text into a Tree. Parsers are pooled because a parser
// instance is not safe for concurrent use while files are processed in
// parallel.
func (g *sitterGrammar) Parse(ctx context.Context, source []byte) (*Tree, error) {
	parser := g.parsers.Get().(*sitter.Parser)
	defer g.parsers.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s source: %w", g.id, err)
	}

	root := &sitterNode{inner: tree.RootNode(), source: source, grammar: g}
	return NewTree(root, tree.Close), nil
}

// sitterNode wraps a tree-sitter node together with the source it was
// parsed from.
type sitterNode struct {
	inner   *sitter.Node
	source  []byte
	grammar *sitterGrammar
}

func (n *sitterNode) wrap(inner *sitter.Node) *sitterNode {
	return &sitterNode{inner: inner, source: n.source, grammar: n.grammar}
}

func (n *sitterNode) Kind() string {
	return n.inner.Type()
}

func (n *sitterNode) Text() string {
	return n.inner.Content(n.source)
}

func (n *sitterNode) Span() Span {
	return Span{Start: int(n.inner.StartByte()), End: int(n.inner.EndByte())}
}

func (n *sitterNode) Children() []Node {
	count := int(n.inner.NamedChildCount())
	out := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.wrap(n.inner.NamedChild(i)))
	}
	return out
}

// Field resolves a real grammar field first, then the grammar's projection
// table. A projected field exists even when it selects zero children; a
// field unknown to both the grammar and the table does not.
func (n *sitterNode) Field(name string) ([]Node, bool) {
	if child := n.inner.ChildByFieldName(name); child != nil {
		return []Node{n.wrap(child)}, true
	}

	proj, ok := n.grammar.fields[n.inner.Type()][name]
	if !ok {
		return nil, false
	}

	var out []Node
	count := int(n.inner.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.inner.NamedChild(i)
		if !proj.match(child.Type()) {
			continue
		}
		out = append(out, n.wrap(child))
		if proj.single {
			break
		}
	}
	return out, true
}

func (p projection) match(kind string) bool {
	if len(p.kinds) == 0 {
		return true
	}
	for _, k := range p.kinds {
		if k == kind {
			return true
		}
	}
	return false
}
