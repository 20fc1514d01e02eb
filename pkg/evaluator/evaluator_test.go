package evaluator_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/thomasrohde/monkey/pkg/ast"
	"github.com/thomasrohde/monkey/pkg/diagnostics"
	"github.com/thomasrohde/monkey/pkg/evaluator"
	"github.com/thomasrohde/monkey/pkg/parser"
	"github.com/thomasrohde/monkey/pkg/stdlib"
)

// --- helpers ---

// defaultOpts returns ExecOptions with the default builtins registered.
func defaultOpts() evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Builtins: stdlib.Defaults().All(),
	}
}

// run parses and executes Monkey source in a fresh environment.
func run(t *testing.T, src string) (*evaluator.ExecResult, error) {
	t.Helper()
	return runWith(t, src, evaluator.NewEnv(nil), defaultOpts())
}

// runWith parses and executes Monkey source with a custom env and options.
func runWith(t *testing.T, src string, env *evaluator.Env, opts evaluator.ExecOptions) (*evaluator.ExecResult, error) {
	t.Helper()
	prog, diags := parser.Parse(src, "test.mk")
	if len(diags) > 0 {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, true))
	}
	return evaluator.Execute(context.Background(), prog, env, opts)
}

// mustRun is like run but also fails on runtime errors.
func mustRun(t *testing.T, src string) evaluator.Value {
	t.Helper()
	res, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if _, leaked := res.Value.(evaluator.ReturnSignal); leaked {
		t.Fatalf("return signal leaked out of Execute: %s", res.Value.Describe())
	}
	return res.Value
}

// expectError runs src and asserts a runtime error with the given code and message.
func expectError(t *testing.T, src, code, msg string) {
	t.Helper()
	_, err := run(t, src)
	if err == nil {
		t.Fatalf("expected runtime error %q", msg)
	}
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if rtErr.Code != code {
		t.Errorf("code = %s, want %s", rtErr.Code, code)
	}
	if rtErr.Message != msg {
		t.Errorf("message = %q, want %q", rtErr.Message, msg)
	}
	if rtErr.Span == nil {
		t.Error("expected error span")
	}
}

// expectInteger asserts the value is an Integer with the expected value.
func expectInteger(t *testing.T, val evaluator.Value, expected int64) {
	t.Helper()
	n, ok := val.(evaluator.Integer)
	if !ok {
		t.Fatalf("expected Integer, got %T (%s)", val, val.Describe())
	}
	if n.Value != expected {
		t.Errorf("got %d, want %d", n.Value, expected)
	}
}

// expectBool asserts the value is a Boolean with the expected value.
func expectBool(t *testing.T, val evaluator.Value, expected bool) {
	t.Helper()
	b, ok := val.(evaluator.Boolean)
	if !ok {
		t.Fatalf("expected Boolean, got %T (%s)", val, val.Describe())
	}
	if b.Value != expected {
		t.Errorf("got %v, want %v", b.Value, expected)
	}
}

// expectNull asserts the value is Null.
func expectNull(t *testing.T, val evaluator.Value) {
	t.Helper()
	if _, ok := val.(evaluator.Null); !ok {
		t.Fatalf("expected Null, got %T (%s)", val, val.Describe())
	}
}

// --- literals and operators ---

func TestIntegerArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{"5", 5},
		{"10", 10},
		{"-5", -5},
		{"-10", -10},
		{"5 + 5 + 5 + 5 - 10", 10},
		{"2 * 2 * 2 * 2 * 2", 32},
		{"-50 + 100 + -50", 0},
		{"5 * 2 + 10", 20},
		{"5 + 2 * 10", 25},
		{"5 + 5 * 2", 15},
		{"(5 + 5) * 2", 20},
		{"50 / 2 * 2 + 10", 60},
		{"2 * (5 + 10)", 30},
		{"3 * 3 * 3 + 10", 37},
		{"3 * (3 * 3) + 10", 37},
		{"(5 + 10 * 2 + 15 / 3) * 2 + -10", 50},
		{"7 / 2", 3},
		{"-7 / 2", -3},
		{"9223372036854775807 + 1", -9223372036854775808},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expectInteger(t, mustRun(t, tt.src), tt.want)
		})
	}
}

func TestBooleanExpressions(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"1 < 2", true},
		{"1 > 2", false},
		{"1 < 1", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{"1 == 2", false},
		{"1 != 2", true},
		{"true == true", true},
		{"false == false", true},
		{"true == false", false},
		{"true != false", true},
		{"(1 < 2) == true", true},
		{"(1 > 2) == true", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expectBool(t, mustRun(t, tt.src), tt.want)
		})
	}
}

func TestBangOperatorUsesTruthiness(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"!true", false},
		{"!false", true},
		{"!5", false},
		{"!0", true},
		{"!!true", true},
		{"!!5", true},
		{"!!0", false},
		{`!""`, true},
		{`!"x"`, false},
		{"!fn() { 1 }", false},
		{"!len", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expectBool(t, mustRun(t, tt.src), tt.want)
		})
	}
}

func TestStringLiteral(t *testing.T) {
	v := mustRun(t, `"Hello World!"`)
	s, ok := v.(evaluator.String)
	if !ok || s.Value != "Hello World!" {
		t.Errorf("got %s", v.Describe())
	}
}

// --- conditionals ---

func TestIfElseExpressions(t *testing.T) {
	tests := []struct {
		src  string
		want any // int64 or nil for Null
	}{
		{"if (true) { 10 }", int64(10)},
		{"if (false) { 10 }", nil},
		{"if (0) { 10 }", nil},
		{"if (1) { 10 }", int64(10)},
		{"if (-1) { 10 }", int64(10)},
		{"if (1 < 2) { 10 }", int64(10)},
		{"if (1 > 2) { 10 }", nil},
		{"if (1 > 2) { 10 } else { 20 }", int64(20)},
		{"if (1 < 2) { 10 } else { 20 }", int64(10)},
		{"if (0) { 10 } else { 20 }", int64(20)},
		{`if ("") { 10 } else { 20 }`, int64(20)},
		{"if (true) { }", nil},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v := mustRun(t, tt.src)
			if tt.want == nil {
				expectNull(t, v)
				return
			}
			expectInteger(t, v, tt.want.(int64))
		})
	}
}

func TestIfSharesEnclosingScope(t *testing.T) {
	env := evaluator.NewEnv(nil)
	res, err := runWith(t, "if (true) { let inner = 4; } inner * 2;", env, defaultOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectInteger(t, res.Value, 8)
	if !env.Has("inner") {
		t.Error("binding from if block should land in the enclosing environment")
	}
}

// --- return ---

func TestReturnStatements(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{"return 10;", 10},
		{"return 10; 9;", 10},
		{"return 2 * 5; 9;", 10},
		{"9; return 2 * 5; 9;", 10},
		{"if (10 > 1) { if (10 > 1) { return 10; } return 1; }", 10},
		{"let f = fn() { if (true) { if (true) { return 10; } return 1; } }; f();", 10},
		{"let f = fn(x) { return x; x + 10; }; f(10);", 10},
		{"let f = fn(x) { let result = x + 10; return result; return 10; }; f(10);", 20},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expectInteger(t, mustRun(t, tt.src), tt.want)
		})
	}
}

func TestReturnUnwrappedOnceAtCallSite(t *testing.T) {
	// The inner return ends only the inner function.
	src := `
let inner = fn() { return 1; };
let outer = fn() { let a = inner(); return a + 1; };
outer();`
	expectInteger(t, mustRun(t, src), 2)
}

func TestReturnedValueUsableInArithmetic(t *testing.T) {
	expectInteger(t, mustRun(t, "let f = fn() { if (true) { return 2; } }; f() + 1;"), 3)
}

func TestBareReturnYieldsNull(t *testing.T) {
	expectNull(t, mustRun(t, "let f = fn() { return; 5; }; f();"))
}

// --- let and identifiers ---

func TestLetStatements(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{"let a = 5; a;", 5},
		{"let a = 5 * 5; a;", 25},
		{"let a = 5; let b = a; b;", 5},
		{"let a = 5; let b = a; let c = a + b + 5; c;", 15},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expectInteger(t, mustRun(t, tt.src), tt.want)
		})
	}
}

func TestLetEvaluatesToNull(t *testing.T) {
	expectNull(t, mustRun(t, "let a = 1;"))
}

func TestRedeclaration(t *testing.T) {
	expectError(t, "let a = 1; let a = 2;", diagnostics.EDupBinding, "Identifier has already been declared: a")
}

func TestParameterShadowsOuterBinding(t *testing.T) {
	expectInteger(t, mustRun(t, "let a = 1; let f = fn(a) { a }; f(9);"), 9)
}

func TestLetInFunctionShadowsOuterBinding(t *testing.T) {
	expectInteger(t, mustRun(t, "let a = 1; let f = fn() { let a = 5; a }; f() + a;"), 6)
}

func TestLetReusingParameterIsRedeclaration(t *testing.T) {
	expectError(t, "let f = fn(a) { let a = 2; a }; f(1);", diagnostics.EDupBinding, "Identifier has already been declared: a")
}

func TestBuiltinsCanBeShadowed(t *testing.T) {
	expectInteger(t, mustRun(t, "let len = 3; len;"), 3)
}

// --- functions and closures ---

func TestFunctionObject(t *testing.T) {
	v := mustRun(t, "fn(x) { x + 2; };")
	fn, ok := v.(evaluator.Function)
	if !ok {
		t.Fatalf("expected Function, got %s", v.Describe())
	}
	if len(fn.Parameters) != 1 || fn.Parameters[0] != "x" {
		t.Errorf("parameters = %v", fn.Parameters)
	}
	if got := fn.Body.String(); got != "{ (x + 2) }" {
		t.Errorf("body = %q", got)
	}
}

func TestFunctionApplication(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{"let identity = fn(x) { x; }; identity(5);", 5},
		{"let identity = fn(x) { return x; }; identity(5);", 5},
		{"let double = fn(x) { x * 2; }; double(5);", 10},
		{"let add = fn(x, y) { x + y; }; add(5, 5);", 10},
		{"let add = fn(x, y) { x + y; }; add(5 + 5, add(5, 5));", 20},
		{"fn(x) { x; }(5)", 5},
		{"let fib = fn(n) { if (n < 2) { n } else { fib(n - 1) + fib(n - 2) } }; fib(10);", 55},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expectInteger(t, mustRun(t, tt.src), tt.want)
		})
	}
}

func TestClosures(t *testing.T) {
	src := "let newAdder = fn(x) { fn(y) { x + y } }; let addTwo = newAdder(2); addTwo(3);"
	expectInteger(t, mustRun(t, src), 5)
}

func TestLexicalNotDynamicScope(t *testing.T) {
	src := "let x = 1; let f = fn() { x }; let g = fn(x) { f() }; g(2);"
	expectInteger(t, mustRun(t, src), 1)
}

func TestClosureCountersAreIndependent(t *testing.T) {
	src := `
let make = fn(base) { fn(n) { base + n } };
let a = make(10);
let b = make(100);
a(1) + b(2);`
	expectInteger(t, mustRun(t, src), 113)
}

func TestArityMismatchDoesNotRunBody(t *testing.T) {
	var out bytes.Buffer
	opts := defaultOpts()
	opts.Stdout = &out

	_, err := runWith(t, `let f = fn() { puts("ran"); }; f(1);`, evaluator.NewEnv(nil), opts)
	if err == nil {
		t.Fatal("expected arity error")
	}
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EArity {
		t.Fatalf("expected %s, got %v", diagnostics.EArity, err)
	}
	if rtErr.Message != "Wrong number of arguments: expected (), got 1" {
		t.Errorf("message = %q", rtErr.Message)
	}
	if out.Len() != 0 {
		t.Errorf("body ran and wrote %q", out.String())
	}
}

func TestArityMessageNamesParameters(t *testing.T) {
	expectError(t, "let add = fn(x, y) { x + y }; add(1);", diagnostics.EArity, "Wrong number of arguments: expected (x, y), got 1")
}

// --- runtime errors ---

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		src  string
		code string
		msg  string
	}{
		{"5 + true;", diagnostics.EType, "Expected integer, found: Boolean(true)"},
		{"5 + true; 5;", diagnostics.EType, "Expected integer, found: Boolean(true)"},
		{"-true", diagnostics.EType, "Expected integer, found: Boolean(true)"},
		{`-"a"`, diagnostics.EType, `Expected integer, found: String("a")`},
		{"true + false;", diagnostics.EUnknownOp, "Unknown operation: Boolean + Boolean"},
		{"false + true", diagnostics.EUnknownOp, "Unknown operation: Boolean + Boolean"},
		{"true < false", diagnostics.EUnknownOp, "Unknown operation: Boolean < Boolean"},
		{"5; true + false; 5", diagnostics.EUnknownOp, "Unknown operation: Boolean + Boolean"},
		{"if (10 > 1) { true + false; }", diagnostics.EUnknownOp, "Unknown operation: Boolean + Boolean"},
		{"if (10 > 1) { if (10 > 1) { return true + false; } return 1; }", diagnostics.EUnknownOp, "Unknown operation: Boolean + Boolean"},
		{"true == 1", diagnostics.EType, "Expected integer, found: Boolean(true)"},
		{"true + 1", diagnostics.EType, "Expected integer, found: Boolean(true)"},
		{"false != 0", diagnostics.EType, "Expected integer, found: Boolean(false)"},
		{`true == "t"`, diagnostics.EType, "Expected integer, found: Boolean(true)"},
		{`"a" + "b"`, diagnostics.EType, `Expected integer, found: String("a")`},
		{"let f = fn() { 1 }; f + 1", diagnostics.EType, "Expected integer, found: Function()"},
		{"foobar", diagnostics.EUnbound, "Unknown identifier: foobar"},
		{"5(1)", diagnostics.ENotFn, "Expected function, found: Integer(5)"},
		{`"f"()`, diagnostics.ENotFn, `Expected function, found: String("f")`},
		{"10 / 0", diagnostics.EDivZero, "Division by zero"},
		{"len(1)", diagnostics.EFn, "builtin 'len' error: argument must be a String, got Integer(1)"},
		{`len("a", "b")`, diagnostics.EArity, "Wrong number of arguments to len: expected 1, got 2"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expectError(t, tt.src, tt.code, tt.msg)
		})
	}
}

func TestErrorsKeepEarlierBindings(t *testing.T) {
	env := evaluator.NewEnv(nil)
	_, err := runWith(t, "let a = 1; let b = missing; let c = 3;", env, defaultOpts())
	if err == nil || err.Error() != "Unknown identifier: missing" {
		t.Fatalf("got %v", err)
	}
	if !env.Has("a") {
		t.Error("binding made before the error should remain")
	}
	if env.Has("b") || env.Has("c") {
		t.Error("statements after the error must not run")
	}
}

func TestEnvironmentPersistsAcrossExecutions(t *testing.T) {
	env := evaluator.NewEnv(nil)
	if _, err := runWith(t, "let x = 20;", env, defaultOpts()); err != nil {
		t.Fatal(err)
	}
	res, err := runWith(t, "x + 1", env, defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	expectInteger(t, res.Value, 21)
}

// --- builtins ---

func TestBuiltinCalls(t *testing.T) {
	expectInteger(t, mustRun(t, `len("four")`), 4)
	expectInteger(t, mustRun(t, `len(concat("ab", "c"))`), 3)
	expectInteger(t, mustRun(t, `max(1, abs(-9), 4)`), 9)

	v := mustRun(t, `type(fn(x) { x })`)
	if s, ok := v.(evaluator.String); !ok || s.Value != "Function" {
		t.Errorf("type() = %s", v.Describe())
	}
}

func TestPutsWritesToStdout(t *testing.T) {
	var out bytes.Buffer
	opts := defaultOpts()
	opts.Stdout = &out

	res, err := runWith(t, `puts("a", 1 + 1); puts(true);`, evaluator.NewEnv(nil), opts)
	if err != nil {
		t.Fatal(err)
	}
	expectNull(t, res.Value)
	if out.String() != "a\n2\ntrue\n" {
		t.Errorf("output = %q", out.String())
	}
}

// --- Eval ---

func TestEvalSingleNode(t *testing.T) {
	prog, diags := parser.Parse("1 + 2 * 3", "test.mk")
	if len(diags) > 0 {
		t.Fatal(diagnostics.Messages(diags))
	}
	v, err := evaluator.Eval(context.Background(), prog.Statements[0], nil, evaluator.ExecOptions{})
	if err != nil {
		t.Fatal(err)
	}
	expectInteger(t, v, 7)
}

func TestEvalUnwrapsReturn(t *testing.T) {
	prog, _ := parser.Parse("return 4;", "test.mk")
	v, err := evaluator.Eval(context.Background(), prog, nil, evaluator.ExecOptions{})
	if err != nil {
		t.Fatal(err)
	}
	expectInteger(t, v, 4)
}

// --- budgets ---

const fibSrc = "let fib = fn(n) { if (n < 2) { n } else { fib(n - 1) + fib(n - 2) } }; fib(35);"

func expectBudgetError(t *testing.T, err error, prefix string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected budget error")
	}
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EBudget {
		t.Fatalf("expected %s, got %v", diagnostics.EBudget, err)
	}
	if !strings.HasPrefix(rtErr.Message, prefix) {
		t.Errorf("message = %q, want prefix %q", rtErr.Message, prefix)
	}
}

func TestCallDepthBudget(t *testing.T) {
	opts := defaultOpts()
	opts.Budget.MaxDepth = 50
	_, err := runWith(t, "let f = fn(n) { f(n + 1) }; f(0);", evaluator.NewEnv(nil), opts)
	expectBudgetError(t, err, "maximum call depth exceeded (50)")
}

func TestDefaultCallDepthStopsRunawayRecursion(t *testing.T) {
	_, err := run(t, "let f = fn(n) { f(n + 1) }; f(0);")
	expectBudgetError(t, err, "maximum call depth exceeded (10000)")
}

func TestDepthWithinBudget(t *testing.T) {
	opts := defaultOpts()
	opts.Budget.MaxDepth = 3
	res, err := runWith(t, "let f = fn(n) { if (n > 0) { f(n - 1) } else { 0 } }; f(2);", evaluator.NewEnv(nil), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, want 3", res.MaxDepth)
	}
}

func TestStepBudget(t *testing.T) {
	opts := defaultOpts()
	opts.Budget.MaxSteps = 1000
	res, err := runWith(t, fibSrc, evaluator.NewEnv(nil), opts)
	expectBudgetError(t, err, "evaluation step budget exceeded (max 1000)")
	if res.Steps != 1001 {
		t.Errorf("Steps = %d, want 1001", res.Steps)
	}
}

func TestTimeBudget(t *testing.T) {
	opts := defaultOpts()
	opts.Budget.TimeMs = 10
	_, err := runWith(t, fibSrc, evaluator.NewEnv(nil), opts)
	expectBudgetError(t, err, "time budget exceeded (10ms)")
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prog, _ := parser.Parse(fibSrc, "test.mk")
	_, err := evaluator.Execute(ctx, prog, nil, defaultOpts())
	expectBudgetError(t, err, "evaluation cancelled: context canceled")
}

// deepNegation builds -(-(...(1))) directly, skipping the parser's own
// nesting check.
func deepNegation(n int) ast.Expr {
	var expr ast.Expr = &ast.IntLiteral{Value: 1}
	for i := 0; i < n; i++ {
		expr = &ast.PrefixExpr{Op: ast.OpNeg, Operand: expr}
	}
	return expr
}

func TestDeepExpressionIsBudgetError(t *testing.T) {
	_, err := evaluator.Eval(context.Background(), deepNegation(ast.MaxNesting+1), nil, defaultOpts())
	expectBudgetError(t, err, "expression nested too deeply (max 10000)")

	prog := &ast.Program{Statements: []ast.Stmt{&ast.ExprStmt{Expr: deepNegation(4 * ast.MaxNesting)}}}
	res, err := evaluator.Execute(context.Background(), prog, nil, defaultOpts())
	expectBudgetError(t, err, "expression nested too deeply")
	if res.Value != nil {
		t.Errorf("value = %v, want none", res.Value)
	}
}

func TestExpressionNestingBelowLimit(t *testing.T) {
	v, err := evaluator.Eval(context.Background(), deepNegation(ast.MaxNesting-1), nil, defaultOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectInteger(t, v, -1)
}

func TestNestingRestartsPerCall(t *testing.T) {
	// Each level of recursion sits a few expressions deep, so without a
	// per-call reset this would trip the nesting limit long before the
	// call depth limit.
	v := mustRun(t, "let f = fn(n) { if (n > 0) { 1 + f(n - 1) } else { 0 } }; f(6000);")
	expectInteger(t, v, 6000)
}

// --- trace ---

func TestTraceEvents(t *testing.T) {
	var events []evaluator.TraceEvent
	opts := defaultOpts()
	opts.RunID = "run-1"
	opts.Trace = func(ev evaluator.TraceEvent) { events = append(events, ev) }

	_, err := runWith(t, `let f = fn(x) { len(x) }; f("abc");`, evaluator.NewEnv(nil), opts)
	if err != nil {
		t.Fatal(err)
	}

	var kinds []string
	for _, ev := range events {
		if ev.RunID != "run-1" {
			t.Errorf("event %s has run id %q", ev.Event, ev.RunID)
		}
		kinds = append(kinds, string(ev.Event))
	}
	want := "run_start,fn_call_start,builtin_call,fn_call_end,run_end"
	if got := strings.Join(kinds, ","); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
	if events[len(events)-1].Data["steps"] == "" {
		t.Error("run_end should carry the step count")
	}
}

func TestTraceErrorEvents(t *testing.T) {
	var kinds []string
	opts := defaultOpts()
	opts.Budget.MaxDepth = 5
	opts.Trace = func(ev evaluator.TraceEvent) { kinds = append(kinds, string(ev.Event)) }

	_, err := runWith(t, "let f = fn() { f() }; f();", evaluator.NewEnv(nil), opts)
	if err == nil {
		t.Fatal("expected error")
	}
	got := strings.Join(kinds, ",")
	if !strings.Contains(got, "budget_exceeded,") || !strings.HasSuffix(got, "run_end,error") {
		t.Errorf("events = %s", got)
	}
}
