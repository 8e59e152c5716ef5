package pattern

// Parse-tree nodes. The parser leaves name resolution to the compiler: an
// applyExpr is a pattern call when its name matches a definition and a
// node-shape match otherwise.

type file struct {
	language string
	langPos  Pos
	defs     []*defDecl
	entry    expr
}

type defDecl struct {
	name   string
	params []string
	body   expr
	pos    Pos
}

type expr interface {
	position() Pos
}

type applyExpr struct {
	name     string
	bindings []binding
	pos      Pos
}

type binding struct {
	name  string
	value expr
	pos   Pos
}

type varExpr struct {
	name string
	pos  Pos
}

type literalExpr struct {
	raw string
	pos Pos
}

type orExpr struct {
	alts []expr
	pos  Pos
}

type andExpr struct {
	items []expr
	pos   Pos
}

type listExpr struct {
	quant Quantifier
	items []expr
	pos   Pos
}

type asExpr struct {
	sub  expr
	name string
	pos  Pos
}

type whereExpr struct {
	sub     expr
	clauses []clauseDecl
	pos     Pos
}

type clauseDecl struct {
	variable string
	// Exactly one of pattern (for <:) or template (for +=) is set.
	pattern  expr
	template string
	tplPos   Pos
	pos      Pos
}

type rewriteExpr struct {
	sub    expr
	tplRaw string
	tplPos Pos
	pos    Pos
}

type bubbleExpr struct {
	vars []string
	sub  expr
	pos  Pos
}

func (e *applyExpr) position() Pos   { return e.pos }
func (e *varExpr) position() Pos     { return e.pos }
func (e *literalExpr) position() Pos { return e.pos }
func (e *orExpr) position() Pos      { return e.pos }
func (e *andExpr) position() Pos     { return e.pos }
func (e *listExpr) position() Pos    { return e.pos }
func (e *asExpr) position() Pos      { return e.pos }
func (e *whereExpr) position() Pos   { return e.pos }
func (e *rewriteExpr) position() Pos { return e.pos }
func (e *bubbleExpr) position() Pos  { return e.pos }
