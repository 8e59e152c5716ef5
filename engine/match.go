package engine

import (
	"fmt"

	"github.com/termfx/graft/lang"
	"github.com/termfx/graft/pattern"
)

// target is what a pattern is currently being matched against: a single
// node, or a run of sibling nodes produced by a multi-valued field.
// listText carries the source text covering a run, separators included, so
// a list binding renders the way it reads in the document.
type target struct {
	node     lang.Node
	list     []lang.Node
	listText string
	isList   bool
}

func nodeTarget(n lang.Node) target {
	return target{node: n}
}

func listTarget(nodes []lang.Node, covering string) target {
	return target{list: nodes, listText: covering, isList: true}
}

// fieldTarget shapes a field lookup result: a lone child becomes a node
// target, anything else a run target covering the children.
func fieldTarget(parent lang.Node, nodes []lang.Node) target {
	if len(nodes) == 1 {
		return nodeTarget(nodes[0])
	}
	return listTarget(nodes, coveringText(parent, nodes))
}

// coveringText slices the parent's text down to the range spanned by nodes.
func coveringText(parent lang.Node, nodes []lang.Node) string {
	if len(nodes) == 0 {
		return ""
	}
	base := parent.Span().Start
	lo := nodes[0].Span().Start - base
	hi := nodes[len(nodes)-1].Span().End - base
	text := parent.Text()
	if lo < 0 || hi > len(text) || lo > hi {
		return ""
	}
	return text[lo:hi]
}

// asNodes views the target as a run. A node target is a run of one.
func (t target) asNodes() []lang.Node {
	if t.isList {
		return t.list
	}
	return []lang.Node{t.node}
}

// asNode unwraps a single node; a one-element run counts.
func (t target) asNode() (lang.Node, bool) {
	if !t.isList {
		return t.node, true
	}
	if len(t.list) == 1 {
		return t.list[0], true
	}
	return nil, false
}

func (t target) text() string {
	if t.isList {
		return t.listText
	}
	return t.node.Text()
}

// span returns the source range the target covers. An empty run has none.
func (t target) span() (lang.Span, bool) {
	if !t.isList {
		return t.node.Span(), true
	}
	if len(t.list) == 0 {
		return lang.Span{}, false
	}
	return lang.Span{
		Start: t.list[0].Span().Start,
		End:   t.list[len(t.list)-1].Span().End,
	}, true
}

func (t target) value() Value {
	if t.isList {
		return ListValue(t.list, t.listText)
	}
	return NodeValue(t.node)
}

// matchState is one top-level attempt's mutable context: the variable
// scope, the candidate edit log, and the step and depth budgets.
type matchState struct {
	env    *Env
	edits  []Edit
	limits Limits
	steps  int
	depth  int
}

// savepoint captures the rollback state at a branch point. The edit log is
// truncated back and the scope snapshot swapped in on restore, so nothing a
// failed branch did survives it.
type savepoint struct {
	env   *Env
	edits int
}

func (st *matchState) save() savepoint {
	return savepoint{env: st.env.Clone(), edits: len(st.edits)}
}

func (st *matchState) restore(sp savepoint) {
	st.env = sp.env
	st.edits = st.edits[:sp.edits]
}

func (st *matchState) step() error {
	st.steps++
	if st.steps > st.limits.MaxSteps {
		return &ResourceExhausted{Limit: "step", Max: st.limits.MaxSteps}
	}
	return nil
}

func (st *matchState) enter() error {
	st.depth++
	if st.depth > st.limits.MaxDepth {
		return &ResourceExhausted{Limit: "depth", Max: st.limits.MaxDepth}
	}
	return nil
}

func (st *matchState) exit() {
	st.depth--
}

// matcher evaluates one compiled program against targets. Engine.Run builds
// a fresh one per top-level attempt.
type matcher struct {
	defs []*pattern.Def
	st   *matchState
}

// match reports whether p accepts t, mutating the attempt state as it goes.
// A false result is an ordinary mismatch; an error is a hard failure that
// aborts the whole attempt.
func (m *matcher) match(p pattern.Pattern, t target) (bool, error) {
	if err := m.st.step(); err != nil {
		return false, err
	}
	if err := m.st.enter(); err != nil {
		return false, err
	}
	defer m.st.exit()

	switch p := p.(type) {
	case *pattern.NodeShape:
		return m.matchShape(p, t)

	case *pattern.Literal:
		return t.text() == p.Text, nil

	case *pattern.Variable:
		if p.Name == pattern.AnonymousVar {
			return true, nil
		}
		return m.st.env.Bind(p.Name, t.value()), nil

	case *pattern.As:
		ok, err := m.match(p.Sub, t)
		if !ok || err != nil {
			return false, err
		}
		if p.Name == pattern.AnonymousVar {
			return true, nil
		}
		return m.st.env.Bind(p.Name, t.value()), nil

	case *pattern.Or:
		for _, alt := range p.Alternatives {
			sp := m.st.save()
			ok, err := m.match(alt, t)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
			m.st.restore(sp)
		}
		return false, nil

	case *pattern.And:
		for _, sub := range p.Patterns {
			ok, err := m.match(sub, t)
			if !ok || err != nil {
				return false, err
			}
		}
		return true, nil

	case *pattern.ListOf:
		return m.matchList(p, t)

	case *pattern.Call:
		return m.matchCall(p, t)

	case *pattern.Where:
		ok, err := m.match(p.Sub, t)
		if !ok || err != nil {
			return false, err
		}
		return m.evalClauses(p.Clauses)

	case *pattern.Rewrite:
		return m.matchRewrite(p, t)

	default:
		return false, fmt.Errorf("unhandled pattern %T", p)
	}
}

// matchShape requires a node of the declared kind and matches every
// declared field in order. A missing field is a mismatch; undeclared
// fields are unconstrained.
func (m *matcher) matchShape(p *pattern.NodeShape, t target) (bool, error) {
	n, ok := t.asNode()
	if !ok {
		return false, nil
	}
	if n.Kind() != p.Kind {
		return false, nil
	}
	for _, f := range p.Fields {
		children, ok := n.Field(f.Name)
		if !ok {
			return false, nil
		}
		ok, err := m.match(f.Pattern, fieldTarget(n, children))
		if !ok || err != nil {
			return false, err
		}
	}
	return true, nil
}

func (m *matcher) matchList(p *pattern.ListOf, t target) (bool, error) {
	nodes := t.asNodes()

	switch p.Quant {
	case pattern.QuantExact:
		if len(nodes) != len(p.Items) {
			return false, nil
		}
		for i, item := range p.Items {
			ok, err := m.match(item, nodeTarget(nodes[i]))
			if !ok || err != nil {
				return false, err
			}
		}
		return true, nil

	case pattern.QuantSome:
		// Non-matching elements are skipped with their effects rolled
		// back; matching elements thread the scope left to right.
		item := p.Items[0]
		matched := 0
		for _, n := range nodes {
			sp := m.st.save()
			ok, err := m.match(item, nodeTarget(n))
			if err != nil {
				return false, err
			}
			if ok {
				matched++
				continue
			}
			m.st.restore(sp)
		}
		return matched > 0, nil

	case pattern.QuantEvery:
		item := p.Items[0]
		for _, n := range nodes {
			ok, err := m.match(item, nodeTarget(n))
			if !ok || err != nil {
				return false, err
			}
		}
		return true, nil

	default:
		return false, fmt.Errorf("unhandled quantifier %v", p.Quant)
	}
}

// matchCall matches a definition's body in a fresh scope. A variable
// argument aliases the caller's variable: its value is copied in before the
// body runs and the parameter's final value is copied out after it
// succeeds, which is how a caller's accumulator grows inside a callee. A
// template argument pre-binds the parameter. Everything else the body binds
// stays encapsulated.
func (m *matcher) matchCall(p *pattern.Call, t target) (bool, error) {
	def := m.defs[p.Def]

	callEnv := NewEnv()
	for _, arg := range p.Args {
		switch v := arg.Value.(type) {
		case *pattern.Variable:
			if v.Name == pattern.AnonymousVar {
				continue
			}
			if val, ok := m.st.env.Lookup(v.Name); ok {
				callEnv.Set(arg.Param, val)
			}
		case *pattern.Literal:
			callEnv.Set(arg.Param, StringValue(v.Text))
		}
	}

	outer := m.st.env
	m.st.env = callEnv
	ok, err := m.match(def.Body, t)
	inner := m.st.env
	m.st.env = outer
	if !ok || err != nil {
		return false, err
	}

	for _, arg := range p.Args {
		v, isVar := arg.Value.(*pattern.Variable)
		if !isVar || v.Name == pattern.AnonymousVar {
			continue
		}
		if val, bound := inner.Lookup(arg.Param); bound {
			m.st.env.Set(v.Name, val)
		}
	}
	return true, nil
}

func (m *matcher) matchRewrite(p *pattern.Rewrite, t target) (bool, error) {
	ok, err := m.match(p.Sub, t)
	if !ok || err != nil {
		return false, err
	}
	span, ok := t.span()
	if !ok {
		return false, errNoSpan
	}
	text, err := render(p.Template, m.st.env)
	if err != nil {
		return false, err
	}
	m.st.edits = append(m.st.edits, Edit{Span: span, Text: text})
	return true, nil
}

// evalClauses runs a where block in written order; the first failing clause
// fails the block.
func (m *matcher) evalClauses(clauses []pattern.Clause) (bool, error) {
	for _, c := range clauses {
		switch c := c.(type) {
		case *pattern.RefineClause:
			ok, err := m.refine(c)
			if !ok || err != nil {
				return false, err
			}
		case *pattern.AccumClause:
			text, err := render(c.Template, m.st.env)
			if err != nil {
				return false, err
			}
			m.st.env.Append(c.Var, text)
		default:
			return false, fmt.Errorf("unhandled clause %T", c)
		}
	}
	return true, nil
}

// refine re-matches a bound value against a guard pattern. An unbound
// variable fails the clause: the guard has nothing to hold.
func (m *matcher) refine(c *pattern.RefineClause) (bool, error) {
	val, ok := m.st.env.Lookup(c.Var)
	if !ok {
		return false, nil
	}
	switch val.Kind() {
	case ValueNode:
		return m.match(c.Pattern, nodeTarget(val.Node()))
	case ValueList:
		return m.match(c.Pattern, listTarget(val.List(), val.Text()))
	default:
		return m.refineString(c.Pattern, val)
	}
}

// refineString guards a string binding. Strings have no structure, so only
// text-shaped patterns can hold: literals compare, variables bind, or picks
// the first holding alternative.
func (m *matcher) refineString(p pattern.Pattern, val Value) (bool, error) {
	switch p := p.(type) {
	case *pattern.Literal:
		return p.Text == val.Text(), nil
	case *pattern.Variable:
		if p.Name == pattern.AnonymousVar {
			return true, nil
		}
		return m.st.env.Bind(p.Name, val), nil
	case *pattern.Or:
		for _, alt := range p.Alternatives {
			sp := m.st.save()
			ok, err := m.refineString(alt, val)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
			m.st.restore(sp)
		}
		return false, nil
	default:
		return false, nil
	}
}
