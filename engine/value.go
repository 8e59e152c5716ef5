package engine

import (
	"github.com/termfx/graft/lang"
)

// ValueKind discriminates the variants a variable binding can hold.
type ValueKind int

const (
	// ValueNode is a binding to a single syntax tree node.
	ValueNode ValueKind = iota

	// ValueString is a binding to plain text, produced by template arguments
	// and by accumulation.
	ValueString

	// ValueList is a binding to a run of sibling nodes, produced by matching
	// a multi-valued field.
	ValueList
)

func (k ValueKind) String() string {
	switch k {
	case ValueNode:
		return "node"
	case ValueString:
		return "string"
	case ValueList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is one variable binding. Values are immutable; rebinding a variable
// replaces the whole value.
type Value struct {
	kind ValueKind
	node lang.Node
	str  string
	list []lang.Node
}

// NodeValue binds a single node.
func NodeValue(n lang.Node) Value {
	return Value{kind: ValueNode, node: n}
}

// StringValue binds plain text.
func StringValue(s string) Value {
	return Value{kind: ValueString, str: s}
}

// ListValue binds a run of sibling nodes. text must be the source text
// covering the whole run, separators included, so the binding renders the
// way it reads in the original document.
func ListValue(nodes []lang.Node, text string) Value {
	return Value{kind: ValueList, list: nodes, str: text}
}

// Kind returns the variant held by the value.
func (v Value) Kind() ValueKind { return v.kind }

// Node returns the bound node, or nil for non-node values.
func (v Value) Node() lang.Node {
	if v.kind != ValueNode {
		return nil
	}
	return v.node
}

// List returns the bound nodes, or nil for non-list values.
func (v Value) List() []lang.Node {
	if v.kind != ValueList {
		return nil
	}
	return v.list
}

// Text returns the source text the value stands for: the node's text, the
// string itself, or the covered source of a node run.
func (v Value) Text() string {
	if v.kind == ValueNode {
		if v.node == nil {
			return ""
		}
		return v.node.Text()
	}
	return v.str
}

// Equal reports whether two values are equivalent. Equivalence is textual:
// two bindings are interchangeable exactly when they stand for the same
// source text.
func (v Value) Equal(o Value) bool {
	return v.Text() == o.Text()
}
