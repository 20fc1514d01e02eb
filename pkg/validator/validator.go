// Package validator implements static checks over Monkey AST programs.
// It reports only problems that are certain to fail at runtime once the
// offending code is reached: names declared nowhere in scope and bindings
// that are declared twice in one environment.
package validator

import (
	"fmt"

	"github.com/thomasrohde/monkey/pkg/ast"
	"github.com/thomasrohde/monkey/pkg/diagnostics"
)

type scope struct {
	bindings map[string]bool
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bindings: make(map[string]bool), parent: parent}
}

func (s *scope) has(name string) bool {
	if s.bindings[name] {
		return true
	}
	if s.parent != nil {
		return s.parent.has(name)
	}
	return false
}

func (s *scope) add(name string) {
	s.bindings[name] = true
}

type validator struct {
	diags []diagnostics.Diagnostic
}

// Validate performs static analysis on a Monkey program and returns
// diagnostics. predeclared names (builtins, session bindings) count as
// declared in a scope enclosing the program.
func Validate(program *ast.Program, predeclared []string) []diagnostics.Diagnostic {
	v := &validator{}

	outer := newScope(nil)
	for _, name := range predeclared {
		outer.add(name)
	}

	root := newScope(outer)
	declareStmts(program.Statements, root)
	v.checkStatements(program.Statements, root, nil)

	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, ""))
}

// --- declaration pass ---

// declareStmts records every let binding that lands in s. Blocks of if
// expressions share the enclosing environment; function bodies do not.
func declareStmts(stmts []ast.Stmt, s *scope) {
	for _, stmt := range stmts {
		declareStmt(stmt, s)
	}
}

func declareStmt(stmt ast.Stmt, s *scope) {
	switch st := stmt.(type) {
	case *ast.LetStmt:
		s.add(st.Name.Name)
		declareExpr(st.Value, s)
	case *ast.ReturnStmt:
		if st.Value != nil {
			declareExpr(st.Value, s)
		}
	case *ast.ExprStmt:
		declareExpr(st.Expr, s)
	case *ast.BlockStmt:
		declareStmts(st.Statements, s)
	}
}

func declareExpr(expr ast.Expr, s *scope) {
	switch e := expr.(type) {
	case *ast.PrefixExpr:
		declareExpr(e.Operand, s)
	case *ast.InfixExpr:
		declareExpr(e.Left, s)
		declareExpr(e.Right, s)
	case *ast.IfExpr:
		declareExpr(e.Condition, s)
		declareStmts(e.Consequence.Statements, s)
		if e.Alternative != nil {
			declareStmts(e.Alternative.Statements, s)
		}
	case *ast.CallExpr:
		declareExpr(e.Function, s)
		for _, arg := range e.Arguments {
			declareExpr(arg, s)
		}
	}
}

// --- check pass ---

// checkStatements validates one statement list. params holds the parameter
// names when the list is a function body.
func (v *validator) checkStatements(stmts []ast.Stmt, s *scope, params map[string]bool) {
	seen := make(map[string]bool)
	for _, stmt := range stmts {
		if let, ok := stmt.(*ast.LetStmt); ok {
			name := let.Name.Name
			if seen[name] || params[name] {
				v.addDiag(diagnostics.EDupBinding,
					fmt.Sprintf("Identifier has already been declared: %s", name), let.Name.Span)
			}
			seen[name] = true
		}
		v.checkStmt(stmt, s)
	}
}

func (v *validator) checkStmt(stmt ast.Stmt, s *scope) {
	switch st := stmt.(type) {
	case *ast.LetStmt:
		v.checkExpr(st.Value, s)
	case *ast.ReturnStmt:
		if st.Value != nil {
			v.checkExpr(st.Value, s)
		}
	case *ast.ExprStmt:
		v.checkExpr(st.Expr, s)
	case *ast.BlockStmt:
		v.checkStatements(st.Statements, s, nil)
	}
}

func (v *validator) checkExpr(expr ast.Expr, s *scope) {
	switch e := expr.(type) {
	case *ast.Identifier:
		if !s.has(e.Name) {
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("Unknown identifier: %s", e.Name), e.Span)
		}

	case *ast.PrefixExpr:
		v.checkExpr(e.Operand, s)

	case *ast.InfixExpr:
		v.checkExpr(e.Left, s)
		v.checkExpr(e.Right, s)

	case *ast.IfExpr:
		v.checkExpr(e.Condition, s)
		v.checkStatements(e.Consequence.Statements, s, nil)
		if e.Alternative != nil {
			v.checkStatements(e.Alternative.Statements, s, nil)
		}

	case *ast.FunctionLiteral:
		v.checkFunction(e, s)

	case *ast.CallExpr:
		v.checkExpr(e.Function, s)
		for _, arg := range e.Arguments {
			v.checkExpr(arg, s)
		}
	}
}

func (v *validator) checkFunction(fn *ast.FunctionLiteral, s *scope) {
	fnScope := newScope(s)
	params := make(map[string]bool, len(fn.Parameters))
	for _, p := range fn.Parameters {
		if params[p.Name] {
			v.addDiag(diagnostics.EDupBinding,
				fmt.Sprintf("Identifier has already been declared: %s", p.Name), p.Span)
		}
		params[p.Name] = true
		fnScope.add(p.Name)
	}

	declareStmts(fn.Body.Statements, fnScope)
	v.checkStatements(fn.Body.Statements, fnScope, params)
}
