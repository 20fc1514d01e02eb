// Package ast defines the Monkey language AST node types.
package ast

import (
	"strconv"
	"strings"
)

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// MaxNesting bounds how deeply expressions may nest. The parser rejects
// deeper input and the evaluator enforces the same bound on trees built
// by hand.
const MaxNesting = 10000

// Node is the interface implemented by all AST nodes.
// String renders the node as canonical source text with every prefix and
// infix expression fully parenthesized.
type Node interface {
	Kind() string
	NodeSpan() Span
	String() string
}

// BinaryOp represents an infix operator.
type BinaryOp string

const (
	OpAdd   BinaryOp = "+"
	OpSub   BinaryOp = "-"
	OpMul   BinaryOp = "*"
	OpDiv   BinaryOp = "/"
	OpLt    BinaryOp = "<"
	OpGt    BinaryOp = ">"
	OpEqEq  BinaryOp = "=="
	OpNotEq BinaryOp = "!="
)

// UnaryOp represents a prefix operator.
type UnaryOp string

const (
	OpNot UnaryOp = "!"
	OpNeg UnaryOp = "-"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

type IntLiteral struct {
	Span  Span
	Value int64
}

func (n *IntLiteral) Kind() string   { return "IntLiteral" }
func (n *IntLiteral) NodeSpan() Span { return n.Span }
func (n *IntLiteral) exprNode()      {}
func (n *IntLiteral) String() string { return strconv.FormatInt(n.Value, 10) }

type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}
func (n *BoolLiteral) String() string { return strconv.FormatBool(n.Value) }

type StrLiteral struct {
	Span  Span
	Value string
}

func (n *StrLiteral) Kind() string   { return "StrLiteral" }
func (n *StrLiteral) NodeSpan() Span { return n.Span }
func (n *StrLiteral) exprNode()      {}
func (n *StrLiteral) String() string { return Quote(n.Value) }

// --- Identifiers ---

type Identifier struct {
	Span Span
	Name string
}

func (n *Identifier) Kind() string   { return "Identifier" }
func (n *Identifier) NodeSpan() Span { return n.Span }
func (n *Identifier) exprNode()      {}
func (n *Identifier) String() string { return n.Name }

// --- Prefix & Infix Expressions ---

type PrefixExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *PrefixExpr) Kind() string   { return "PrefixExpr" }
func (n *PrefixExpr) NodeSpan() Span { return n.Span }
func (n *PrefixExpr) exprNode()      {}
func (n *PrefixExpr) String() string {
	return "(" + string(n.Op) + n.Operand.String() + ")"
}

type InfixExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *InfixExpr) Kind() string   { return "InfixExpr" }
func (n *InfixExpr) NodeSpan() Span { return n.Span }
func (n *InfixExpr) exprNode()      {}
func (n *InfixExpr) String() string {
	return "(" + n.Left.String() + " " + string(n.Op) + " " + n.Right.String() + ")"
}

// --- Control Flow ---

// IfExpr is a conditional. Alternative is nil when there is no else branch.
type IfExpr struct {
	Span        Span
	Condition   Expr
	Consequence *BlockStmt
	Alternative *BlockStmt
}

func (n *IfExpr) Kind() string   { return "IfExpr" }
func (n *IfExpr) NodeSpan() Span { return n.Span }
func (n *IfExpr) exprNode()      {}
func (n *IfExpr) String() string {
	out := "if (" + n.Condition.String() + ") " + n.Consequence.String()
	if n.Alternative != nil {
		out += " else " + n.Alternative.String()
	}
	return out
}

// --- Functions ---

type FunctionLiteral struct {
	Span       Span
	Parameters []*Identifier
	Body       *BlockStmt
}

func (n *FunctionLiteral) Kind() string   { return "FunctionLiteral" }
func (n *FunctionLiteral) NodeSpan() Span { return n.Span }
func (n *FunctionLiteral) exprNode()      {}
func (n *FunctionLiteral) String() string {
	return "fn(" + strings.Join(n.ParamNames(), ", ") + ") " + n.Body.String()
}

// ParamNames returns the parameter names in declaration order.
func (n *FunctionLiteral) ParamNames() []string {
	names := make([]string, len(n.Parameters))
	for i, p := range n.Parameters {
		names[i] = p.Name
	}
	return names
}

type CallExpr struct {
	Span      Span
	Function  Expr
	Arguments []Expr
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) exprNode()      {}
func (n *CallExpr) String() string {
	args := make([]string, len(n.Arguments))
	for i, a := range n.Arguments {
		args[i] = a.String()
	}
	return n.Function.String() + "(" + strings.Join(args, ", ") + ")"
}

// --- Statements ---

type LetStmt struct {
	Span  Span
	Name  *Identifier
	Value Expr
}

func (n *LetStmt) Kind() string   { return "LetStmt" }
func (n *LetStmt) NodeSpan() Span { return n.Span }
func (n *LetStmt) stmtNode()      {}
func (n *LetStmt) String() string {
	return "let " + n.Name.Name + " = " + n.Value.String() + ";"
}

// ReturnStmt returns from the enclosing function. Value is nil for a bare
// `return;`.
type ReturnStmt struct {
	Span  Span
	Value Expr
}

func (n *ReturnStmt) Kind() string   { return "ReturnStmt" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) stmtNode()      {}
func (n *ReturnStmt) String() string {
	if n.Value == nil {
		return "return;"
	}
	return "return " + n.Value.String() + ";"
}

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}
func (n *ExprStmt) String() string { return n.Expr.String() }

type BlockStmt struct {
	Span       Span
	Statements []Stmt
}

func (n *BlockStmt) Kind() string   { return "BlockStmt" }
func (n *BlockStmt) NodeSpan() Span { return n.Span }
func (n *BlockStmt) stmtNode()      {}
func (n *BlockStmt) String() string {
	if len(n.Statements) == 0 {
		return "{ }"
	}
	parts := make([]string, len(n.Statements))
	for i, s := range n.Statements {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// --- Program ---

type Program struct {
	Span       Span
	Statements []Stmt
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }
func (n *Program) String() string {
	var b strings.Builder
	for _, s := range n.Statements {
		b.WriteString(s.String())
	}
	return b.String()
}

// Quote renders s as a string literal using only the escapes the lexer
// understands.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
