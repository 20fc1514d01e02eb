// Package parser implements the Monkey language parser: recursive descent
// for statements and Pratt (operator-precedence) parsing for expressions.
package parser

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/monkey/pkg/ast"
	"github.com/thomasrohde/monkey/pkg/diagnostics"
	"github.com/thomasrohde/monkey/pkg/lexer"
)

// Binding powers, lowest first.
const (
	precLowest int = iota
	precEquals      // == !=
	precLessGreater // < >
	precSum         // + -
	precProduct     // * /
	precPrefix      // -x !x
	precCall        // f(x)
)

var precedences = map[lexer.TokenType]int{
	lexer.TokEq:       precEquals,
	lexer.TokNotEq:    precEquals,
	lexer.TokLt:       precLessGreater,
	lexer.TokGt:       precLessGreater,
	lexer.TokPlus:     precSum,
	lexer.TokMinus:    precSum,
	lexer.TokAsterisk: precProduct,
	lexer.TokSlash:    precProduct,
	lexer.TokLParen:   precCall,
}

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(left ast.Expr) ast.Expr
)

// TokenSource is anything that yields tokens in source order, ending with
// EOF forever. *lexer.Lexer is the usual implementation.
type TokenSource interface {
	NextToken() lexer.Token
}

type parser struct {
	src   TokenSource
	cur   lexer.Token
	peek  lexer.Token
	diags []diagnostics.Diagnostic
	depth int // open blocks

	nesting int  // expression depth of the tree being built
	tooDeep bool // nesting diagnostic already reported

	prefixFns map[lexer.TokenType]prefixParseFn
	infixFns  map[lexer.TokenType]infixParseFn
}

// Parse tokenizes source and parses it into an AST. When any diagnostic is
// reported the program is nil and every collected diagnostic is returned.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	return ParseTokens(lexer.New(source, filename), filename)
}

// ParseTokens parses a program from an arbitrary token source.
func ParseTokens(src TokenSource, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	p := newParser(src)
	prog := p.parseProgram(filename)
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

func newParser(src TokenSource) *parser {
	p := &parser{src: src}

	p.prefixFns = map[lexer.TokenType]prefixParseFn{
		lexer.TokIdent:    p.parseIdentifier,
		lexer.TokInt:      p.parseIntLiteral,
		lexer.TokString:   p.parseStrLiteral,
		lexer.TokTrue:     p.parseBoolLiteral,
		lexer.TokFalse:    p.parseBoolLiteral,
		lexer.TokBang:     p.parsePrefixExpr,
		lexer.TokMinus:    p.parsePrefixExpr,
		lexer.TokLParen:   p.parseGroupedExpr,
		lexer.TokIf:       p.parseIfExpr,
		lexer.TokFunction: p.parseFunctionLiteral,
	}

	p.infixFns = map[lexer.TokenType]infixParseFn{
		lexer.TokPlus:     p.parseInfixExpr,
		lexer.TokMinus:    p.parseInfixExpr,
		lexer.TokAsterisk: p.parseInfixExpr,
		lexer.TokSlash:    p.parseInfixExpr,
		lexer.TokLt:       p.parseInfixExpr,
		lexer.TokGt:       p.parseInfixExpr,
		lexer.TokEq:       p.parseInfixExpr,
		lexer.TokNotEq:    p.parseInfixExpr,
		lexer.TokLParen:   p.parseCallExpr,
	}

	// Fill cur and peek.
	p.nextToken()
	p.nextToken()
	return p
}

func (p *parser) nextToken() {
	p.cur = p.peek
	p.peek = p.src.NextToken()
}

func (p *parser) curIs(typ lexer.TokenType) bool {
	return p.cur.Type == typ
}

func (p *parser) peekIs(typ lexer.TokenType) bool {
	return p.peek.Type == typ
}

// expectPeek advances when the next token has the given type and records a
// diagnostic otherwise.
func (p *parser) expectPeek(typ lexer.TokenType) bool {
	if p.peekIs(typ) {
		p.nextToken()
		return true
	}
	p.peekError(typ)
	return false
}

func (p *parser) peekError(typ lexer.TokenType) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead", typ, p.peek.Type)
	p.addError(p.peek, msg)
}

func (p *parser) addError(tok lexer.Token, msg string) {
	span := tok.Span
	code := diagnostics.EParse
	hint := ""
	if tok.Type == lexer.TokIllegal {
		code = diagnostics.ELex
		hint = fmt.Sprintf("unrecognized input %q", tok.Literal)
	}
	p.diags = append(p.diags, diagnostics.MakeDiag(code, msg, &span, hint))
}

func (p *parser) peekPrecedence() int {
	if prec, ok := precedences[p.peek.Type]; ok {
		return prec
	}
	return precLowest
}

func (p *parser) curPrecedence() int {
	if prec, ok := precedences[p.cur.Type]; ok {
		return prec
	}
	return precLowest
}

func spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// --- Program ---

func (p *parser) parseProgram(filename string) *ast.Program {
	start := p.cur.Span
	var stmts []ast.Stmt

	for !p.curIs(lexer.TokEOF) {
		stmt := p.parseStmt()
		if stmt == nil {
			p.synchronize()
		} else {
			stmts = append(stmts, stmt)
		}
		p.nextToken()
	}

	span := spanFromTo(start, p.cur.Span)
	span.File = filename
	return &ast.Program{Span: span, Statements: stmts}
}

// synchronize skips the rest of a failed top-level statement so that
// parsing can resume at the next one. Blocks left open by the failure are
// skipped up to their closing brace.
func (p *parser) synchronize() {
	depth := p.depth
	p.depth = 0
	for !p.curIs(lexer.TokEOF) {
		switch p.cur.Type {
		case lexer.TokLBrace:
			depth++
		case lexer.TokRBrace:
			depth--
			if depth <= 0 {
				if p.peekIs(lexer.TokSemicolon) {
					p.nextToken()
				}
				return
			}
		case lexer.TokSemicolon:
			if depth <= 0 {
				return
			}
		}
		p.nextToken()
	}
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	switch p.cur.Type {
	case lexer.TokLet:
		s := p.parseLetStmt()
		if s == nil {
			return nil
		}
		return s
	case lexer.TokReturn:
		s := p.parseReturnStmt()
		if s == nil {
			return nil
		}
		return s
	default:
		s := p.parseExprStmt()
		if s == nil {
			return nil
		}
		return s
	}
}

func (p *parser) parseLetStmt() *ast.LetStmt {
	start := p.cur // 'let'

	if !p.expectPeek(lexer.TokIdent) {
		return nil
	}
	name := &ast.Identifier{Span: p.cur.Span, Name: p.cur.Literal}

	if !p.expectPeek(lexer.TokAssign) {
		return nil
	}
	p.nextToken()

	value := p.parseExpr(precLowest)
	if value == nil {
		return nil
	}

	if !p.expectPeek(lexer.TokSemicolon) {
		return nil
	}

	return &ast.LetStmt{
		Span:  spanFromTo(start.Span, p.cur.Span),
		Name:  name,
		Value: value,
	}
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.cur // 'return'

	if p.peekIs(lexer.TokSemicolon) {
		p.nextToken()
		return &ast.ReturnStmt{Span: spanFromTo(start.Span, p.cur.Span)}
	}

	p.nextToken()
	value := p.parseExpr(precLowest)
	if value == nil {
		return nil
	}

	if !p.expectPeek(lexer.TokSemicolon) {
		return nil
	}

	return &ast.ReturnStmt{
		Span:  spanFromTo(start.Span, p.cur.Span),
		Value: value,
	}
}

func (p *parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpr(precLowest)
	if expr == nil {
		return nil
	}

	if p.peekIs(lexer.TokSemicolon) {
		p.nextToken()
	}

	return &ast.ExprStmt{
		Span: spanFromTo(expr.NodeSpan(), p.cur.Span),
		Expr: expr,
	}
}

// --- Block ---

// parseBlockStmt expects cur to be '{' and leaves cur on the matching '}'.
// A failed inner statement fails the whole block.
func (p *parser) parseBlockStmt() *ast.BlockStmt {
	start := p.cur // '{'
	p.depth++
	p.nextToken()

	stmts := []ast.Stmt{}
	for !p.curIs(lexer.TokRBrace) {
		if p.curIs(lexer.TokEOF) {
			p.addError(p.cur, fmt.Sprintf("expected next token to be %s, got %s instead", lexer.TokRBrace, lexer.TokEOF))
			return nil
		}
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
		p.nextToken()
	}
	p.depth--

	return &ast.BlockStmt{
		Span:       spanFromTo(start.Span, p.cur.Span),
		Statements: stmts,
	}
}

// --- Expressions (precedence climbing) ---

// nest records one more level of expression nesting. Past ast.MaxNesting
// it reports a single diagnostic and returns false.
func (p *parser) nest() bool {
	p.nesting++
	if p.nesting <= ast.MaxNesting {
		return true
	}
	if !p.tooDeep {
		p.tooDeep = true
		p.addError(p.cur, fmt.Sprintf("expression nested too deeply (max %d)", ast.MaxNesting))
	}
	return false
}

func (p *parser) parseExpr(precedence int) ast.Expr {
	saved := p.nesting
	defer func() { p.nesting = saved }()
	if !p.nest() {
		return nil
	}

	prefix, ok := p.prefixFns[p.cur.Type]
	if !ok {
		p.addError(p.cur, fmt.Sprintf("no prefix parse function found for %s", p.cur.Type))
		return nil
	}

	left := prefix()
	if left == nil {
		return nil
	}

	// Each infix step wraps left in another node, so long chains count too.
	for !p.peekIs(lexer.TokSemicolon) && precedence < p.peekPrecedence() {
		infix, ok := p.infixFns[p.peek.Type]
		if !ok {
			return left
		}
		p.nextToken()
		if !p.nest() {
			return nil
		}
		left = infix(left)
		if left == nil {
			return nil
		}
	}

	return left
}

func (p *parser) parseIdentifier() ast.Expr {
	return &ast.Identifier{Span: p.cur.Span, Name: p.cur.Literal}
}

func (p *parser) parseIntLiteral() ast.Expr {
	val, err := strconv.ParseInt(p.cur.Literal, 10, 64)
	if err != nil {
		p.addError(p.cur, fmt.Sprintf("could not parse %q as integer", p.cur.Literal))
		return nil
	}
	return &ast.IntLiteral{Span: p.cur.Span, Value: val}
}

func (p *parser) parseStrLiteral() ast.Expr {
	return &ast.StrLiteral{Span: p.cur.Span, Value: p.cur.Literal}
}

func (p *parser) parseBoolLiteral() ast.Expr {
	return &ast.BoolLiteral{Span: p.cur.Span, Value: p.curIs(lexer.TokTrue)}
}

func (p *parser) parsePrefixExpr() ast.Expr {
	start := p.cur
	p.nextToken()

	operand := p.parseExpr(precPrefix)
	if operand == nil {
		return nil
	}

	return &ast.PrefixExpr{
		Span:    spanFromTo(start.Span, operand.NodeSpan()),
		Op:      ast.UnaryOp(start.Literal),
		Operand: operand,
	}
}

func (p *parser) parseInfixExpr(left ast.Expr) ast.Expr {
	op := p.cur
	precedence := p.curPrecedence()
	p.nextToken()

	right := p.parseExpr(precedence)
	if right == nil {
		return nil
	}

	return &ast.InfixExpr{
		Span:  spanFromTo(left.NodeSpan(), right.NodeSpan()),
		Op:    ast.BinaryOp(op.Literal),
		Left:  left,
		Right: right,
	}
}

func (p *parser) parseGroupedExpr() ast.Expr {
	p.nextToken() // consume '('

	expr := p.parseExpr(precLowest)
	if expr == nil {
		return nil
	}

	if !p.expectPeek(lexer.TokRParen) {
		return nil
	}
	return expr
}

func (p *parser) parseIfExpr() ast.Expr {
	start := p.cur // 'if'

	if !p.expectPeek(lexer.TokLParen) {
		return nil
	}
	p.nextToken()

	cond := p.parseExpr(precLowest)
	if cond == nil {
		return nil
	}

	if !p.expectPeek(lexer.TokRParen) {
		return nil
	}
	if !p.expectPeek(lexer.TokLBrace) {
		return nil
	}

	consequence := p.parseBlockStmt()
	if consequence == nil {
		return nil
	}

	var alternative *ast.BlockStmt
	if p.peekIs(lexer.TokElse) {
		p.nextToken()
		if !p.expectPeek(lexer.TokLBrace) {
			return nil
		}
		alternative = p.parseBlockStmt()
		if alternative == nil {
			return nil
		}
	}

	return &ast.IfExpr{
		Span:        spanFromTo(start.Span, p.cur.Span),
		Condition:   cond,
		Consequence: consequence,
		Alternative: alternative,
	}
}

func (p *parser) parseFunctionLiteral() ast.Expr {
	start := p.cur // 'fn'

	if !p.expectPeek(lexer.TokLParen) {
		return nil
	}

	params, ok := p.parseFunctionParams()
	if !ok {
		return nil
	}

	if !p.expectPeek(lexer.TokLBrace) {
		return nil
	}

	body := p.parseBlockStmt()
	if body == nil {
		return nil
	}

	return &ast.FunctionLiteral{
		Span:       spanFromTo(start.Span, p.cur.Span),
		Parameters: params,
		Body:       body,
	}
}

// parseFunctionParams expects cur to be '(' and leaves cur on ')'.
func (p *parser) parseFunctionParams() ([]*ast.Identifier, bool) {
	params := []*ast.Identifier{}

	if p.peekIs(lexer.TokRParen) {
		p.nextToken()
		return params, true
	}

	if !p.expectPeek(lexer.TokIdent) {
		return nil, false
	}
	params = append(params, &ast.Identifier{Span: p.cur.Span, Name: p.cur.Literal})

	for p.peekIs(lexer.TokComma) {
		p.nextToken()
		if !p.expectPeek(lexer.TokIdent) {
			return nil, false
		}
		params = append(params, &ast.Identifier{Span: p.cur.Span, Name: p.cur.Literal})
	}

	if !p.expectPeek(lexer.TokRParen) {
		return nil, false
	}
	return params, true
}

func (p *parser) parseCallExpr(fn ast.Expr) ast.Expr {
	args, ok := p.parseExprList(lexer.TokRParen)
	if !ok {
		return nil
	}
	return &ast.CallExpr{
		Span:      spanFromTo(fn.NodeSpan(), p.cur.Span),
		Function:  fn,
		Arguments: args,
	}
}

// parseExprList parses a comma-separated expression list. cur is the
// opening delimiter on entry and the closing one on success.
func (p *parser) parseExprList(end lexer.TokenType) ([]ast.Expr, bool) {
	list := []ast.Expr{}

	if p.peekIs(end) {
		p.nextToken()
		return list, true
	}

	p.nextToken()
	expr := p.parseExpr(precLowest)
	if expr == nil {
		return nil, false
	}
	list = append(list, expr)

	for p.peekIs(lexer.TokComma) {
		p.nextToken()
		p.nextToken()
		expr := p.parseExpr(precLowest)
		if expr == nil {
			return nil, false
		}
		list = append(list, expr)
	}

	if !p.expectPeek(end) {
		return nil, false
	}
	return list, true
}
