package pattern

import (
	"fmt"
	"strings"
)

// Compile turns pattern source into a Program. All validation that can
// happen before matching happens here: syntax, duplicate definitions,
// argument arity and names on calls, quantified list shape, template escape
// errors. Everything is reported as a *CompileError.
func Compile(src string) (*Program, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	f, err := parse(tokens)
	if err != nil {
		return nil, err
	}

	c := &compiler{
		defIndex: make(map[string]int, len(f.defs)),
	}
	for i, def := range f.defs {
		if prev, ok := c.defIndex[def.name]; ok {
			return nil, errf(def.pos, "pattern %q is already defined (definition %d)", def.name, prev+1)
		}
		params, err := paramNames(def)
		if err != nil {
			return nil, err
		}
		c.defIndex[def.name] = i
		c.defs = append(c.defs, &Def{Name: def.name, Params: params})
	}

	for i, def := range f.defs {
		body, err := c.compileExpr(def.body)
		if err != nil {
			return nil, err
		}
		c.defs[i].Body = body
	}

	prog := &Program{Language: f.language}
	if f.entry != nil {
		entry, err := c.compileExpr(f.entry)
		if err != nil {
			return nil, err
		}
		prog.Entry = entry
	}
	prog.Defs = c.defs // after entry: bubble desugaring may have grown the arena
	return prog, nil
}

type compiler struct {
	defIndex map[string]int
	defs     []*Def
}

func paramNames(def *defDecl) ([]string, error) {
	seen := make(map[string]bool, len(def.params))
	params := make([]string, 0, len(def.params))
	for _, p := range def.params {
		if p == AnonymousVar {
			return nil, errf(def.pos, "pattern %q: '$_' cannot be a parameter", def.name)
		}
		if seen[p] {
			return nil, errf(def.pos, "pattern %q: duplicate parameter $%s", def.name, p)
		}
		seen[p] = true
		params = append(params, p)
	}
	return params, nil
}

func (c *compiler) compileExpr(e expr) (Pattern, error) {
	switch e := e.(type) {
	case *varExpr:
		return &Variable{Name: e.name}, nil

	case *literalExpr:
		text, err := unescapeLiteral(e.raw, e.pos)
		if err != nil {
			return nil, err
		}
		return &Literal{Text: text}, nil

	case *orExpr:
		alts, err := c.compileAll(e.alts)
		if err != nil {
			return nil, err
		}
		return &Or{Alternatives: alts}, nil

	case *andExpr:
		items, err := c.compileAll(e.items)
		if err != nil {
			return nil, err
		}
		return &And{Patterns: items}, nil

	case *listExpr:
		items, err := c.compileAll(e.items)
		if err != nil {
			return nil, err
		}
		return &ListOf{Quant: e.quant, Items: items}, nil

	case *asExpr:
		sub, err := c.compileExpr(e.sub)
		if err != nil {
			return nil, err
		}
		if e.name == AnonymousVar {
			return nil, errf(e.pos, "'as $_' binds nothing")
		}
		return &As{Sub: sub, Name: e.name}, nil

	case *whereExpr:
		return c.compileWhere(e)

	case *rewriteExpr:
		sub, err := c.compileExpr(e.sub)
		if err != nil {
			return nil, err
		}
		tpl, err := compileTemplate(e.tplRaw, e.tplPos)
		if err != nil {
			return nil, err
		}
		return &Rewrite{Sub: sub, Template: tpl}, nil

	case *bubbleExpr:
		return c.compileBubble(e)

	case *applyExpr:
		return c.compileApply(e)
	}

	return nil, errf(e.position(), "unsupported pattern form")
}

func (c *compiler) compileAll(exprs []expr) ([]Pattern, error) {
	out := make([]Pattern, 0, len(exprs))
	for _, e := range exprs {
		p, err := c.compileExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *compiler) compileWhere(e *whereExpr) (Pattern, error) {
	sub, err := c.compileExpr(e.sub)
	if err != nil {
		return nil, err
	}
	w := &Where{Sub: sub}
	for _, cl := range e.clauses {
		if cl.variable == AnonymousVar {
			return nil, errf(cl.pos, "'$_' cannot appear in a where clause")
		}
		if cl.pattern != nil {
			sub, err := c.compileExpr(cl.pattern)
			if err != nil {
				return nil, err
			}
			w.Clauses = append(w.Clauses, &RefineClause{Var: cl.variable, Pattern: sub})
			continue
		}
		tpl, err := compileTemplate(cl.template, cl.tplPos)
		if err != nil {
			return nil, err
		}
		w.Clauses = append(w.Clauses, &AccumClause{Var: cl.variable, Template: tpl})
	}
	return w, nil
}

// compileBubble desugars `bubble($a, $b) p` into an anonymous definition
// with parameters $a, $b called with itself-aliasing arguments: the body
// runs in a fresh scope where only the listed variables are shared with the
// surrounding pattern.
func (c *compiler) compileBubble(e *bubbleExpr) (Pattern, error) {
	seen := make(map[string]bool, len(e.vars))
	for _, v := range e.vars {
		if v == AnonymousVar {
			return nil, errf(e.pos, "'$_' cannot be shared through bubble")
		}
		if seen[v] {
			return nil, errf(e.pos, "bubble lists $%s twice", v)
		}
		seen[v] = true
	}

	body, err := c.compileExpr(e.sub)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("bubble@%d:%d", e.pos.Line, e.pos.Col)
	idx := len(c.defs)
	c.defs = append(c.defs, &Def{Name: name, Params: e.vars, Body: body})

	call := &Call{Def: idx, Name: name, Args: make([]Arg, 0, len(e.vars))}
	for _, v := range e.vars {
		call.Args = append(call.Args, Arg{Param: v, Value: &Variable{Name: v}})
	}
	return call, nil
}

// compileApply resolves the call/shape ambiguity: a name with a definition
// compiles to a Call (with arity checking), anything else to a NodeShape
// whose kinds belong to the target grammar's open world.
func (c *compiler) compileApply(e *applyExpr) (Pattern, error) {
	if idx, ok := c.defIndex[e.name]; ok {
		return c.compileCall(e, idx)
	}

	shape := &NodeShape{Kind: e.name}
	seen := make(map[string]bool, len(e.bindings))
	for _, b := range e.bindings {
		if seen[b.name] {
			return nil, errf(b.pos, "%s(...) constrains field %q twice", e.name, b.name)
		}
		seen[b.name] = true
		sub, err := c.compileExpr(b.value)
		if err != nil {
			return nil, err
		}
		shape.Fields = append(shape.Fields, FieldPattern{Name: b.name, Pattern: sub})
	}
	return shape, nil
}

func (c *compiler) compileCall(e *applyExpr, idx int) (Pattern, error) {
	def := c.defs[idx]
	call := &Call{Def: idx, Name: e.name}

	declared := make(map[string]bool, len(def.Params))
	for _, p := range def.Params {
		declared[p] = true
	}

	supplied := make(map[string]bool, len(e.bindings))
	for _, b := range e.bindings {
		if !declared[b.name] {
			return nil, errf(b.pos, "pattern %q has no parameter $%s (declared: %s)",
				e.name, b.name, paramList(def.Params))
		}
		if supplied[b.name] {
			return nil, errf(b.pos, "argument $%s supplied twice in call to %q", b.name, e.name)
		}
		supplied[b.name] = true
		value, err := c.compileExpr(b.value)
		if err != nil {
			return nil, err
		}
		switch value.(type) {
		case *Variable, *Literal:
		default:
			return nil, errf(b.pos, "argument $%s in call to %q must be a variable or a template", b.name, e.name)
		}
		call.Args = append(call.Args, Arg{Param: b.name, Value: value})
	}

	if len(e.bindings) != len(def.Params) {
		for _, p := range def.Params {
			if !supplied[p] {
				return nil, errf(e.pos, "call to %q is missing argument $%s", e.name, p)
			}
		}
	}
	return call, nil
}

func paramList(params []string) string {
	if len(params) == 0 {
		return "none"
	}
	named := make([]string, len(params))
	for i, p := range params {
		named[i] = "$" + p
	}
	return strings.Join(named, ", ")
}

// unescapeLiteral resolves template escapes for a match-position literal and
// rejects interpolations, which have no meaning there.
func unescapeLiteral(raw string, pos Pos) (string, error) {
	tpl, err := compileTemplate(raw, pos)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, seg := range tpl.Segments {
		if seg.Var != "" {
			return "", errf(pos, "interpolation $%s is not allowed in match position; bind with a pattern instead", seg.Var)
		}
		b.WriteString(seg.Text)
	}
	return b.String(), nil
}

// compileTemplate parses a raw back-quoted body into segments. `$name`
// interpolates; `\$`, `\\` and a backslash-escaped backtick produce the
// literal character; a lone `$` stays literal.
func compileTemplate(raw string, pos Pos) (*Template, error) {
	tpl := &Template{Source: raw}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			tpl.Segments = append(tpl.Segments, Segment{Text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); {
		ch := raw[i]
		if ch == '\\' {
			if i+1 >= len(raw) {
				return nil, errf(pos, "template ends with a bare backslash")
			}
			next := raw[i+1]
			switch next {
			case '`', '$', '\\':
				lit.WriteByte(next)
			case 'n':
				lit.WriteByte('\n')
			case 't':
				lit.WriteByte('\t')
			default:
				return nil, errf(pos, "unknown template escape \\%c", next)
			}
			i += 2
			continue
		}
		if ch == '$' {
			j := i + 1
			for j < len(raw) && isIdentByte(raw[j]) {
				j++
			}
			if j == i+1 {
				lit.WriteByte('$')
				i++
				continue
			}
			flush()
			tpl.Segments = append(tpl.Segments, Segment{Var: raw[i+1 : j]})
			i = j
			continue
		}
		lit.WriteByte(ch)
		i++
	}
	flush()
	return tpl, nil
}

func isIdentByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
