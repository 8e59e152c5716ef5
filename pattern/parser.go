package pattern

// parser is a recursive-descent parser over the token stream.
//
// Grammar:
//
//	program  := "language" IDENT def* [expr]
//	def      := "pattern" IDENT "(" [params] ")" "{" expr "}"
//	params   := VARIABLE ("," VARIABLE)* [","]
//	expr     := where ["=>" TEMPLATE]
//	where    := asexpr ["where" "{" clause ("," clause)* [","] "}"]
//	clause   := VARIABLE "<:" expr | VARIABLE "+=" TEMPLATE
//	asexpr   := primary ["as" VARIABLE]
//	primary  := "or" "{" exprs "}" | "and" "{" exprs "}"
//	          | "bubble" ["(" vars ")"] expr
//	          | ["some"|"every"] "[" exprs "]"
//	          | TEMPLATE | VARIABLE
//	          | IDENT "(" [binding ("," binding)* [","]] ")"
//	binding  := IDENT "=" expr
//
// "where" binding tighter than "=>" guarantees a rewrite template renders
// only after the predicates ran, so accumulators are complete.
type parser struct {
	tokens []Token
	pos    int
}

func parse(tokens []Token) (*file, error) {
	p := &parser{tokens: tokens}
	return p.parseFile()
}

func (p *parser) current() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) accept(t TokenType) (Token, bool) {
	if p.current().Type == t {
		return p.advance(), true
	}
	return Token{}, false
}

func (p *parser) expect(t TokenType) (Token, error) {
	tok := p.current()
	if tok.Type != t {
		return Token{}, errf(tok.Pos, "expected %s, found %s", t, describe(tok))
	}
	return p.advance(), nil
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdent, TokenVariable:
		return tok.Type.String() + " '" + tok.Text + "'"
	default:
		return tok.Type.String()
	}
}

func (p *parser) parseFile() (*file, error) {
	f := &file{}

	langTok, err := p.expect(TokenLanguage)
	if err != nil {
		return nil, errf(p.current().Pos, "pattern program must start with a language declaration")
	}
	idTok, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	f.language = idTok.Text
	f.langPos = langTok.Pos

	for {
		if _, ok := p.accept(TokenPattern); ok {
			def, err := p.parseDef()
			if err != nil {
				return nil, err
			}
			f.defs = append(f.defs, def)
			continue
		}
		break
	}

	if p.current().Type != TokenEOF {
		entry, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		f.entry = entry
	}

	if tok := p.current(); tok.Type != TokenEOF {
		return nil, errf(tok.Pos, "unexpected %s after entry expression", describe(tok))
	}
	return f, nil
}

func (p *parser) parseDef() (*defDecl, error) {
	nameTok, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	def := &defDecl{name: nameTok.Text, pos: nameTok.Pos}

	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	for p.current().Type == TokenVariable {
		param := p.advance()
		def.params = append(def.params, param.Text)
		if _, ok := p.accept(TokenComma); !ok {
			break
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	def.body = body
	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	return def, nil
}

func (p *parser) parseExpr() (expr, error) {
	sub, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	if arrow, ok := p.accept(TokenArrow); ok {
		tpl, err := p.expect(TokenTemplate)
		if err != nil {
			return nil, err
		}
		return &rewriteExpr{sub: sub, tplRaw: tpl.Text, tplPos: tpl.Pos, pos: arrow.Pos}, nil
	}
	return sub, nil
}

func (p *parser) parseWhere() (expr, error) {
	sub, err := p.parseAs()
	if err != nil {
		return nil, err
	}
	whereTok, ok := p.accept(TokenWhere)
	if !ok {
		return sub, nil
	}

	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}
	w := &whereExpr{sub: sub, pos: whereTok.Pos}
	for p.current().Type != TokenRBrace {
		clause, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		w.clauses = append(w.clauses, clause)
		if _, ok := p.accept(TokenComma); !ok {
			break
		}
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	if len(w.clauses) == 0 {
		return nil, errf(whereTok.Pos, "where block has no clauses")
	}
	return w, nil
}

func (p *parser) parseClause() (clauseDecl, error) {
	varTok, err := p.expect(TokenVariable)
	if err != nil {
		return clauseDecl{}, errf(p.current().Pos, "where clause must start with a variable")
	}
	clause := clauseDecl{variable: varTok.Text, pos: varTok.Pos}

	switch tok := p.advance(); tok.Type {
	case TokenRefine:
		sub, err := p.parseExpr()
		if err != nil {
			return clauseDecl{}, err
		}
		clause.pattern = sub
	case TokenPlusEq:
		tpl, err := p.expect(TokenTemplate)
		if err != nil {
			return clauseDecl{}, err
		}
		clause.template = tpl.Text
		clause.tplPos = tpl.Pos
	default:
		return clauseDecl{}, errf(tok.Pos, "expected '<:' or '+=' in where clause, found %s", describe(tok))
	}
	return clause, nil
}

func (p *parser) parseAs() (expr, error) {
	sub, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if asTok, ok := p.accept(TokenAs); ok {
		varTok, err := p.expect(TokenVariable)
		if err != nil {
			return nil, err
		}
		return &asExpr{sub: sub, name: varTok.Text, pos: asTok.Pos}, nil
	}
	return sub, nil
}

func (p *parser) parsePrimary() (expr, error) {
	tok := p.current()
	switch tok.Type {
	case TokenOr:
		p.advance()
		alts, err := p.parseBracedExprs()
		if err != nil {
			return nil, err
		}
		return &orExpr{alts: alts, pos: tok.Pos}, nil

	case TokenAnd:
		p.advance()
		items, err := p.parseBracedExprs()
		if err != nil {
			return nil, err
		}
		return &andExpr{items: items, pos: tok.Pos}, nil

	case TokenBubble:
		p.advance()
		b := &bubbleExpr{pos: tok.Pos}
		if _, ok := p.accept(TokenLParen); ok {
			for p.current().Type == TokenVariable {
				v := p.advance()
				b.vars = append(b.vars, v.Text)
				if _, ok := p.accept(TokenComma); !ok {
					break
				}
			}
			if _, err := p.expect(TokenRParen); err != nil {
				return nil, err
			}
		}
		// The body extends through any as/where/rewrite chain so the whole
		// per-element evaluation runs inside the fresh scope.
		sub, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		b.sub = sub
		return b, nil

	case TokenSome, TokenEvery:
		p.advance()
		quant := QuantSome
		if tok.Type == TokenEvery {
			quant = QuantEvery
		}
		open, err := p.expect(TokenLBracket)
		if err != nil {
			return nil, err
		}
		items, err := p.parseExprListUntil(TokenRBracket)
		if err != nil {
			return nil, err
		}
		if len(items) != 1 {
			return nil, errf(open.Pos, "%s takes exactly one item pattern, found %d", tok.Text, len(items))
		}
		return &listExpr{quant: quant, items: items, pos: tok.Pos}, nil

	case TokenLBracket:
		p.advance()
		items, err := p.parseExprListUntil(TokenRBracket)
		if err != nil {
			return nil, err
		}
		return &listExpr{quant: QuantExact, items: items, pos: tok.Pos}, nil

	case TokenTemplate:
		p.advance()
		return &literalExpr{raw: tok.Text, pos: tok.Pos}, nil

	case TokenVariable:
		p.advance()
		return &varExpr{name: tok.Text, pos: tok.Pos}, nil

	case TokenIdent:
		p.advance()
		return p.parseApply(tok)
	}

	return nil, errf(tok.Pos, "expected a pattern, found %s", describe(tok))
}

func (p *parser) parseApply(nameTok Token) (expr, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, errf(nameTok.Pos, "'%s' must be followed by '(' (node kinds and pattern calls always take parentheses)", nameTok.Text)
	}

	app := &applyExpr{name: nameTok.Text, pos: nameTok.Pos}
	for p.current().Type != TokenRParen {
		fieldTok, err := p.expect(TokenIdent)
		if err != nil {
			return nil, errf(p.current().Pos, "expected a field or argument name in %s(...)", nameTok.Text)
		}
		if _, err := p.expect(TokenEq); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		app.bindings = append(app.bindings, binding{name: fieldTok.Text, value: value, pos: fieldTok.Pos})
		if _, ok := p.accept(TokenComma); !ok {
			break
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return app, nil
}

func (p *parser) parseBracedExprs() ([]expr, error) {
	open, err := p.expect(TokenLBrace)
	if err != nil {
		return nil, err
	}
	items, err := p.parseExprListUntil(TokenRBrace)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errf(open.Pos, "empty combinator block")
	}
	return items, nil
}

func (p *parser) parseExprListUntil(closer TokenType) ([]expr, error) {
	var items []expr
	for p.current().Type != closer {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if _, ok := p.accept(TokenComma); !ok {
			break
		}
	}
	if _, err := p.expect(closer); err != nil {
		return nil, err
	}
	return items, nil
}
