package pattern

// Compiled pattern model. The compiler produces these once per program; they
// are immutable and shared read-only across concurrent matches.

// AnonymousVar is the wildcard variable name: it matches anything and never
// binds.
const AnonymousVar = "_"

// Quantifier selects the matching mode of a list pattern.
type Quantifier int

const (
	// QuantExact requires the target list to have exactly as many elements
	// as the pattern has item patterns, matched elementwise.
	QuantExact Quantifier = iota

	// QuantSome skips non-matching elements and requires at least one
	// element to match the single item pattern.
	QuantSome

	// QuantEvery requires every element to match the single item pattern;
	// it succeeds on an empty list.
	QuantEvery
)

func (q Quantifier) String() string {
	switch q {
	case QuantExact:
		return "exact"
	case QuantSome:
		return "some"
	case QuantEvery:
		return "every"
	default:
		return "unknown"
	}
}

// Pattern is one compiled combinator node.
type Pattern interface {
	pattern()
}

// NodeShape matches a node of a given kind and constrains the declared
// fields. Undeclared fields are unconstrained; field patterns evaluate in
// declaration order, threading the environment left to right.
type NodeShape struct {
	Kind   string
	Fields []FieldPattern
}

// FieldPattern is one field constraint inside a NodeShape.
type FieldPattern struct {
	Name    string
	Pattern Pattern
}

// Literal matches a target whose source text equals Text exactly.
type Literal struct {
	Text string
}

// Variable binds the target to a name, or constrains the target to equal a
// prior binding of the same name.
type Variable struct {
	Name string
}

// As matches Sub, then additionally binds the target to Name.
type As struct {
	Sub  Pattern
	Name string
}

// Or tries alternatives in declared order; the first one whose full
// evaluation succeeds wins.
type Or struct {
	Alternatives []Pattern
}

// And matches every pattern against the same target, threading the
// environment left to right.
type And struct {
	Patterns []Pattern
}

// ListOf matches a list target. With QuantExact, Items are matched
// elementwise; otherwise Items holds the single quantified item pattern.
type ListOf struct {
	Quant Quantifier
	Items []Pattern
}

// Call invokes a pattern definition by arena index. Args bind the callee's
// parameters: a *Variable argument aliases the caller's variable in and out,
// and a *Literal argument pre-binds a string. The compiler rejects any other
// argument form.
type Call struct {
	Def  int
	Name string
	Args []Arg
}

// Arg is one named argument of a Call.
type Arg struct {
	Param string
	Value Pattern
}

// Where matches Sub and then evaluates Clauses in written order; the first
// failing clause fails the whole pattern.
type Where struct {
	Sub     Pattern
	Clauses []Clause
}

// Clause is one predicate inside a where block.
type Clause interface {
	clause()
}

// RefineClause re-matches the bound value of Var against Pattern, acting as
// a guard.
type RefineClause struct {
	Var     string
	Pattern Pattern
}

// AccumClause appends the rendered Template to the string value of Var,
// creating it empty when unbound. This is the model's only mutation.
type AccumClause struct {
	Var      string
	Template *Template
}

// Rewrite matches Sub and, on success, renders Template into a candidate
// edit covering the matched target's span.
type Rewrite struct {
	Sub      Pattern
	Template *Template
}

func (*NodeShape) pattern() {}
func (*Literal) pattern()   {}
func (*Variable) pattern()  {}
func (*As) pattern()        {}
func (*Or) pattern()        {}
func (*And) pattern()       {}
func (*ListOf) pattern()    {}
func (*Call) pattern()      {}
func (*Where) pattern()     {}
func (*Rewrite) pattern()   {}

func (*RefineClause) clause() {}
func (*AccumClause) clause()  {}

// Segment is one piece of a compiled template: literal text, or an
// interpolation when Var is non-empty.
type Segment struct {
	Text string
	Var  string
}

// Template is a compiled quasiquote literal: literal segments interleaved
// with named interpolation slots. Compiled once, rendered per match.
type Template struct {
	Source   string
	Segments []Segment
}

// Vars returns the distinct interpolation names in order of first use.
func (t *Template) Vars() []string {
	var names []string
	seen := make(map[string]bool)
	for _, seg := range t.Segments {
		if seg.Var == "" || seen[seg.Var] {
			continue
		}
		seen[seg.Var] = true
		names = append(names, seg.Var)
	}
	return names
}

// Def is one named pattern definition in the program arena.
type Def struct {
	Name   string
	Params []string
	Body   Pattern
}

// Program is a compiled pattern program: the target language, the
// definition arena (calls reference definitions by index, so recursion and
// mutual recursion need no back-patching at match time), and the entry
// pattern, which may be nil for definition-only libraries.
type Program struct {
	Language string
	Defs     []*Def
	Entry    Pattern
}
