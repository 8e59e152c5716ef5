package pattern

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexer scans pattern source into tokens. Templates are captured raw; their
// interpolation structure is resolved by compileTemplate.
type lexer struct {
	src  string
	off  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

// tokenize scans the whole input, returning the token stream terminated by
// an EOF token.
func tokenize(src string) ([]Token, error) {
	lx := newLexer(src)
	var tokens []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

func (lx *lexer) peek() rune {
	if lx.off >= len(lx.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.off:])
	return r
}

func (lx *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(lx.src[lx.off:])
	lx.off += size
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

func (lx *lexer) pos() Pos {
	return Pos{Line: lx.line, Col: lx.col}
}

func (lx *lexer) next() (Token, error) {
	lx.skipSpaceAndComments()

	pos := lx.pos()
	if lx.off >= len(lx.src) {
		return Token{Type: TokenEOF, Pos: pos}, nil
	}

	r := lx.peek()
	switch {
	case r == '$':
		return lx.lexVariable()
	case r == '`':
		return lx.lexTemplate()
	case isIdentStart(r):
		return lx.lexIdent()
	}

	lx.advance()
	switch r {
	case '(':
		return Token{Type: TokenLParen, Text: "(", Pos: pos}, nil
	case ')':
		return Token{Type: TokenRParen, Text: ")", Pos: pos}, nil
	case '{':
		return Token{Type: TokenLBrace, Text: "{", Pos: pos}, nil
	case '}':
		return Token{Type: TokenRBrace, Text: "}", Pos: pos}, nil
	case '[':
		return Token{Type: TokenLBracket, Text: "[", Pos: pos}, nil
	case ']':
		return Token{Type: TokenRBracket, Text: "]", Pos: pos}, nil
	case ',':
		return Token{Type: TokenComma, Text: ",", Pos: pos}, nil
	case '=':
		if lx.peek() == '>' {
			lx.advance()
			return Token{Type: TokenArrow, Text: "=>", Pos: pos}, nil
		}
		return Token{Type: TokenEq, Text: "=", Pos: pos}, nil
	case '+':
		if lx.peek() == '=' {
			lx.advance()
			return Token{Type: TokenPlusEq, Text: "+=", Pos: pos}, nil
		}
		return Token{}, errf(pos, "unexpected '+', did you mean '+='?")
	case '<':
		if lx.peek() == ':' {
			lx.advance()
			return Token{Type: TokenRefine, Text: "<:", Pos: pos}, nil
		}
		return Token{}, errf(pos, "unexpected '<', did you mean '<:'?")
	}

	return Token{}, errf(pos, "unexpected character %q", r)
}

func (lx *lexer) skipSpaceAndComments() {
	for lx.off < len(lx.src) {
		r := lx.peek()
		if unicode.IsSpace(r) {
			lx.advance()
			continue
		}
		if r == '/' && strings.HasPrefix(lx.src[lx.off:], "//") {
			for lx.off < len(lx.src) && lx.peek() != '\n' {
				lx.advance()
			}
			continue
		}
		return
	}
}

func (lx *lexer) lexVariable() (Token, error) {
	pos := lx.pos()
	lx.advance() // $

	start := lx.off
	for lx.off < len(lx.src) && isIdentPart(lx.peek()) {
		lx.advance()
	}
	name := lx.src[start:lx.off]
	if name == "" {
		return Token{}, errf(pos, "'$' must be followed by a variable name")
	}
	return Token{Type: TokenVariable, Text: name, Pos: pos}, nil
}

func (lx *lexer) lexIdent() (Token, error) {
	pos := lx.pos()
	start := lx.off
	for lx.off < len(lx.src) && isIdentPart(lx.peek()) {
		lx.advance()
	}
	text := lx.src[start:lx.off]
	if t, ok := keywords[text]; ok {
		return Token{Type: t, Text: text, Pos: pos}, nil
	}
	return Token{Type: TokenIdent, Text: text, Pos: pos}, nil
}

// lexTemplate captures a back-quoted literal. Escapes stay raw here so the
// token text can be compiled once into template segments later; only the
// closing backtick scan honors them.
func (lx *lexer) lexTemplate() (Token, error) {
	pos := lx.pos()
	lx.advance() // `

	var raw strings.Builder
	for {
		if lx.off >= len(lx.src) {
			return Token{}, errf(pos, "unterminated template literal")
		}
		r := lx.advance()
		if r == '`' {
			return Token{Type: TokenTemplate, Text: raw.String(), Pos: pos}, nil
		}
		if r == '\\' {
			if lx.off >= len(lx.src) {
				return Token{}, errf(pos, "unterminated template literal")
			}
			raw.WriteRune(r)
			raw.WriteRune(lx.advance())
			continue
		}
		raw.WriteRune(r)
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
