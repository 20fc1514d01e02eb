// Package formatter implements the Monkey source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/monkey/pkg/ast"
)

const indent = "  "

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpEqEq: 1, ast.OpNotEq: 1,
	ast.OpGt: 2, ast.OpLt: 2,
	ast.OpAdd: 3, ast.OpSub: 3,
	ast.OpMul: 4, ast.OpDiv: 4,
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := child.(*ast.InfixExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// Left-associativity: for same-precedence on right side, add parens
	if childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format pretty-prints a Monkey AST back to source code, one top-level
// statement per line.
func Format(program *ast.Program) string {
	if len(program.Statements) == 0 {
		return ""
	}

	lines := make([]string, len(program.Statements))
	for i, s := range program.Statements {
		lines[i] = formatStmt(s, 0)
	}

	return strings.Join(lines, "\n") + "\n"
}

func formatStmt(stmt ast.Stmt, depth int) string {
	pad := strings.Repeat(indent, depth)

	switch s := stmt.(type) {
	case *ast.LetStmt:
		return pad + "let " + s.Name.Name + " = " + formatExpr(s.Value, depth) + ";"

	case *ast.ReturnStmt:
		if s.Value == nil {
			return pad + "return;"
		}
		return pad + "return " + formatExpr(s.Value, depth) + ";"

	case *ast.ExprStmt:
		return pad + formatExpr(s.Expr, depth) + ";"

	case *ast.BlockStmt:
		return pad + formatBlock(s, depth)

	default:
		return pad + stmt.String()
	}
}

// formatBlock renders a braced block whose closing brace sits at depth.
func formatBlock(block *ast.BlockStmt, depth int) string {
	if len(block.Statements) == 0 {
		return "{}"
	}

	var b strings.Builder
	b.WriteString("{\n")
	for _, s := range block.Statements {
		b.WriteString(formatStmt(s, depth+1))
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat(indent, depth))
	b.WriteString("}")
	return b.String()
}

func formatExpr(expr ast.Expr, depth int) string {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(e.Value, 10)

	case *ast.BoolLiteral:
		return strconv.FormatBool(e.Value)

	case *ast.StrLiteral:
		return ast.Quote(e.Value)

	case *ast.Identifier:
		return e.Name

	case *ast.PrefixExpr:
		operand := formatExpr(e.Operand, depth)
		if _, ok := e.Operand.(*ast.InfixExpr); ok {
			operand = "(" + operand + ")"
		}
		return string(e.Op) + operand

	case *ast.InfixExpr:
		left := formatExpr(e.Left, depth)
		if needsParens(e.Left, e.Op, false) {
			left = "(" + left + ")"
		}
		right := formatExpr(e.Right, depth)
		if needsParens(e.Right, e.Op, true) {
			right = "(" + right + ")"
		}
		return left + " " + string(e.Op) + " " + right

	case *ast.IfExpr:
		out := "if (" + formatExpr(e.Condition, depth) + ") " + formatBlock(e.Consequence, depth)
		if e.Alternative != nil {
			out += " else " + formatBlock(e.Alternative, depth)
		}
		return out

	case *ast.FunctionLiteral:
		return "fn(" + strings.Join(e.ParamNames(), ", ") + ") " + formatBlock(e.Body, depth)

	case *ast.CallExpr:
		callee := formatExpr(e.Function, depth)
		switch e.Function.(type) {
		case *ast.InfixExpr, *ast.PrefixExpr:
			callee = "(" + callee + ")"
		}
		args := make([]string, len(e.Arguments))
		for i, a := range e.Arguments {
			args[i] = formatExpr(a, depth)
		}
		return callee + "(" + strings.Join(args, ", ") + ")"

	default:
		return expr.String()
	}
}
