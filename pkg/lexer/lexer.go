// Package lexer implements the Monkey language tokenizer.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/monkey/pkg/ast"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Special
	TokIllegal TokenType = iota
	TokEOF

	// Identifiers + literals
	TokIdent
	TokInt
	TokString

	// Operators
	TokAssign   // =
	TokPlus     // +
	TokMinus    // -
	TokBang     // !
	TokAsterisk // *
	TokSlash    // /
	TokLt       // <
	TokGt       // >
	TokEq       // ==
	TokNotEq    // !=

	// Delimiters
	TokComma     // ,
	TokSemicolon // ;
	TokLParen    // (
	TokRParen    // )
	TokLBrace    // {
	TokRBrace    // }

	// Keywords
	TokFunction
	TokLet
	TokTrue
	TokFalse
	TokIf
	TokElse
	TokReturn
)

var tokenNames = [...]string{
	TokIllegal:   "ILLEGAL",
	TokEOF:       "EOF",
	TokIdent:     "IDENT",
	TokInt:       "INT",
	TokString:    "STRING",
	TokAssign:    "=",
	TokPlus:      "+",
	TokMinus:     "-",
	TokBang:      "!",
	TokAsterisk:  "*",
	TokSlash:     "/",
	TokLt:        "<",
	TokGt:        ">",
	TokEq:        "==",
	TokNotEq:     "!=",
	TokComma:     ",",
	TokSemicolon: ";",
	TokLParen:    "(",
	TokRParen:    ")",
	TokLBrace:    "{",
	TokRBrace:    "}",
	TokFunction:  "FUNCTION",
	TokLet:       "LET",
	TokTrue:      "TRUE",
	TokFalse:     "FALSE",
	TokIf:        "IF",
	TokElse:      "ELSE",
	TokReturn:    "RETURN",
}

// String returns the name used for the token type in diagnostics.
func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "UNKNOWN"
}

// Token represents a single lexer token.
type Token struct {
	Type    TokenType
	Literal string
	Span    ast.Span
}

var keywords = map[string]TokenType{
	"fn":     TokFunction,
	"let":    TokLet,
	"true":   TokTrue,
	"false":  TokFalse,
	"if":     TokIf,
	"else":   TokElse,
	"return": TokReturn,
}

// LookupIdent maps an identifier to its keyword token type, or TokIdent.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokIdent
}

// Lexer is a pull-based scanner over a single source text. After the end
// of input it keeps returning EOF tokens.
type Lexer struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

// New creates a lexer positioned at the start of source.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// advanceRune consumes one UTF-8 encoded rune and returns it. Columns
// count runes, not bytes.
func (l *Lexer) advanceRune() rune {
	r, size := utf8.DecodeRuneInString(l.source[l.pos:])
	switch size {
	case 0:
		return r
	case 1:
		l.advance()
		return r
	}
	l.pos += size
	l.col++
	return r
}

func (l *Lexer) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      l.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   l.line,
		EndCol:    l.col,
	}
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		default:
			return
		}
	}
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) scanString() Token {
	startLine, startCol := l.line, l.col
	startPos := l.pos
	l.advance() // consume opening "

	var buf strings.Builder
	for !l.atEnd() {
		ch := l.peek()
		if ch == '"' {
			l.advance() // consume closing "
			return Token{Type: TokString, Literal: buf.String(), Span: l.span(startLine, startCol)}
		}
		if ch == '\\' {
			l.advance()
			if l.atEnd() {
				break
			}
			switch esc := l.advanceRune(); esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			default:
				buf.WriteRune(esc)
			}
			continue
		}
		buf.WriteRune(l.advanceRune())
	}

	// Unterminated string literal.
	return Token{Type: TokIllegal, Literal: l.source[startPos:l.pos], Span: l.span(startLine, startCol)}
}

func (l *Lexer) scanNumber() Token {
	startLine, startCol := l.line, l.col
	startPos := l.pos
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}
	return Token{Type: TokInt, Literal: l.source[startPos:l.pos], Span: l.span(startLine, startCol)}
}

func (l *Lexer) scanIdentOrKeyword() Token {
	startLine, startCol := l.line, l.col
	startPos := l.pos
	for !l.atEnd() && (isLetter(l.peek()) || isDigit(l.peek())) {
		l.advance()
	}
	text := l.source[startPos:l.pos]
	return Token{Type: LookupIdent(text), Literal: text, Span: l.span(startLine, startCol)}
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.atEnd() {
		return Token{Type: TokEOF, Literal: "", Span: l.span(l.line, l.col)}
	}

	ch := l.peek()
	startLine, startCol := l.line, l.col

	single := func(typ TokenType) Token {
		l.advance()
		return Token{Type: typ, Literal: string(ch), Span: l.span(startLine, startCol)}
	}

	// Single-char tokens
	switch ch {
	case ';':
		return single(TokSemicolon)
	case ',':
		return single(TokComma)
	case '(':
		return single(TokLParen)
	case ')':
		return single(TokRParen)
	case '{':
		return single(TokLBrace)
	case '}':
		return single(TokRBrace)
	case '+':
		return single(TokPlus)
	case '-':
		return single(TokMinus)
	case '*':
		return single(TokAsterisk)
	case '/':
		return single(TokSlash)
	case '<':
		return single(TokLt)
	case '>':
		return single(TokGt)
	}

	// Multi-char tokens
	switch ch {
	case '=':
		l.advance()
		if l.peek() == '=' {
			l.advance()
			return Token{Type: TokEq, Literal: "==", Span: l.span(startLine, startCol)}
		}
		return Token{Type: TokAssign, Literal: "=", Span: l.span(startLine, startCol)}

	case '!':
		l.advance()
		if l.peek() == '=' {
			l.advance()
			return Token{Type: TokNotEq, Literal: "!=", Span: l.span(startLine, startCol)}
		}
		return Token{Type: TokBang, Literal: "!", Span: l.span(startLine, startCol)}

	case '"':
		return l.scanString()
	}

	if isDigit(ch) {
		return l.scanNumber()
	}

	if isLetter(ch) {
		return l.scanIdentOrKeyword()
	}

	r := l.advanceRune()
	return Token{Type: TokIllegal, Literal: string(r), Span: l.span(startLine, startCol)}
}

// Tokenize breaks source code into a slice of tokens ending with exactly one
// EOF token.
func Tokenize(source, filename string) []Token {
	l := New(source, filename)
	var tokens []Token

	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens
}
