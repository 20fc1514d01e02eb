package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/thomasrohde/monkey/pkg/ast"
	"github.com/thomasrohde/monkey/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart       TraceEventType = "run_start"
	TraceRunEnd         TraceEventType = "run_end"
	TraceFnCallStart    TraceEventType = "fn_call_start"
	TraceFnCallEnd      TraceEventType = "fn_call_end"
	TraceBuiltinCall    TraceEventType = "builtin_call"
	TraceBudgetExceeded TraceEventType = "budget_exceeded"
	TraceError          TraceEventType = "error"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Span      *ast.Span         `json:"span,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	// Builtins are resolved after the environment chain.
	Builtins map[string]*Builtin
	Budget   Budget
	Trace    func(event TraceEvent)
	RunID    string
	// Stdout receives output written by builtins. Nil discards it.
	Stdout io.Writer
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	Value    Value
	Steps    int64
	MaxDepth int
}

// RuntimeError represents a runtime error during Monkey execution.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a diagnostic for reporting.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

// how often (in steps) the clock and the context are polled
const pollInterval = 1024

type evaluator struct {
	ctx        context.Context
	opts       ExecOptions
	out        io.Writer
	depthLimit int
	tracker    BudgetTracker
	started    time.Time
	nesting    int // expression depth within the current call
}

func newEvaluator(ctx context.Context, opts ExecOptions) *evaluator {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.Stdout
	if out == nil {
		out = io.Discard
	}
	now := time.Now()
	return &evaluator{
		ctx:        ctx,
		opts:       opts,
		out:        out,
		depthLimit: opts.Budget.depthLimit(),
		started:    now,
		tracker:    BudgetTracker{StartMs: now.UnixMilli()},
	}
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span) {
	ev.emitWithData(event, span, nil)
}

func (ev *evaluator) emitWithData(event TraceEventType, span *ast.Span, data map[string]string) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

func (ev *evaluator) budgetError(span ast.Span, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	ev.emitWithData(TraceBudgetExceeded, &span, map[string]string{"message": msg})
	return &RuntimeError{Code: diagnostics.EBudget, Message: msg, Span: &span}
}

// step counts one evaluation step and enforces the step, time and
// cancellation limits.
func (ev *evaluator) step(span ast.Span) error {
	ev.tracker.Steps++
	if limit := ev.opts.Budget.MaxSteps; limit > 0 && ev.tracker.Steps > limit {
		return ev.budgetError(span, "evaluation step budget exceeded (max %d)", limit)
	}
	if ev.tracker.Steps%pollInterval != 1 {
		return nil
	}
	if limit := ev.opts.Budget.TimeMs; limit > 0 {
		if time.Since(ev.started).Milliseconds() >= limit {
			return ev.budgetError(span, "time budget exceeded (%dms)", limit)
		}
	}
	if err := ev.ctx.Err(); err != nil {
		cause := context.Cause(ev.ctx)
		if cause == nil {
			cause = err
		}
		return ev.budgetError(span, "evaluation cancelled: %v", cause)
	}
	return nil
}

// Execute runs a Monkey program in env and returns the final value. A nil
// env gets a fresh root environment. Bindings made before a runtime error
// stay in env.
func Execute(ctx context.Context, program *ast.Program, env *Env, opts ExecOptions) (*ExecResult, error) {
	if env == nil {
		env = NewEnv(nil)
	}
	ev := newEvaluator(ctx, opts)

	span := program.Span
	ev.emit(TraceRunStart, &span)

	val, err := ev.evalStatements(program.Statements, env)

	ev.emitWithData(TraceRunEnd, &span, map[string]string{
		"steps":    strconv.FormatInt(ev.tracker.Steps, 10),
		"maxDepth": strconv.Itoa(ev.tracker.MaxDepth),
	})

	res := &ExecResult{Steps: ev.tracker.Steps, MaxDepth: ev.tracker.MaxDepth}
	if err != nil {
		ev.reportError(err)
		return res, err
	}

	res.Value = Unwrap(val)
	return res, nil
}

// Eval evaluates a single node in env. A return signal reaching the top is
// unwrapped, so callers never see one.
func Eval(ctx context.Context, node ast.Node, env *Env, opts ExecOptions) (Value, error) {
	if env == nil {
		env = NewEnv(nil)
	}
	ev := newEvaluator(ctx, opts)

	var (
		val Value
		err error
	)
	switch n := node.(type) {
	case *ast.Program:
		val, err = ev.evalStatements(n.Statements, env)
	case ast.Stmt:
		val, err = ev.evalStmt(n, env)
	case ast.Expr:
		val, err = ev.evalExpr(n, env)
	default:
		return nil, fmt.Errorf("evaluator: unsupported node %s", node.Kind())
	}
	if err != nil {
		ev.reportError(err)
		return nil, err
	}
	return Unwrap(val), nil
}

func (ev *evaluator) reportError(err error) {
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) {
		ev.emitWithData(TraceError, rtErr.Span, map[string]string{"code": rtErr.Code, "message": rtErr.Message})
	}
}

// evalStatements runs a statement sequence in one environment and stops at
// the first return signal, which is passed up still wrapped.
func (ev *evaluator) evalStatements(stmts []ast.Stmt, env *Env) (Value, error) {
	var result Value = NewNull()

	for _, stmt := range stmts {
		val, err := ev.evalStmt(stmt, env)
		if err != nil {
			return nil, err
		}
		if _, ok := val.(ReturnSignal); ok {
			return val, nil
		}
		result = val
	}

	return result, nil
}

func (ev *evaluator) evalStmt(stmt ast.Stmt, env *Env) (Value, error) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		val, err := ev.evalExpr(s.Value, env)
		if err != nil {
			return nil, err
		}
		if err := env.Set(s.Name.Name, Unwrap(val)); err != nil {
			return nil, withSpan(err, s.Name.Span)
		}
		return NewNull(), nil

	case *ast.ReturnStmt:
		if s.Value == nil {
			return ReturnSignal{Value: NewNull()}, nil
		}
		val, err := ev.evalExpr(s.Value, env)
		if err != nil {
			return nil, err
		}
		return ReturnSignal{Value: Unwrap(val)}, nil

	case *ast.ExprStmt:
		return ev.evalExpr(s.Expr, env)

	case *ast.BlockStmt:
		return ev.evalStatements(s.Statements, env)

	default:
		span := stmt.NodeSpan()
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("unsupported statement type: %T", stmt),
			Span:    &span,
		}
	}
}

func (ev *evaluator) evalExpr(expr ast.Expr, env *Env) (Value, error) {
	if err := ev.step(expr.NodeSpan()); err != nil {
		return nil, err
	}
	if ev.nesting >= ast.MaxNesting {
		return nil, ev.budgetError(expr.NodeSpan(), "expression nested too deeply (max %d)", ast.MaxNesting)
	}
	ev.nesting++
	defer func() { ev.nesting-- }()

	switch e := expr.(type) {
	case *ast.IntLiteral:
		return NewInteger(e.Value), nil

	case *ast.BoolLiteral:
		return NewBool(e.Value), nil

	case *ast.StrLiteral:
		return NewString(e.Value), nil

	case *ast.Identifier:
		return ev.evalIdentifier(e, env)

	case *ast.PrefixExpr:
		return ev.evalPrefix(e, env)

	case *ast.InfixExpr:
		return ev.evalInfix(e, env)

	case *ast.IfExpr:
		return ev.evalIf(e, env)

	case *ast.FunctionLiteral:
		return Function{Parameters: e.ParamNames(), Body: e.Body, Env: env}, nil

	case *ast.CallExpr:
		return ev.evalCall(e, env)

	default:
		span := expr.NodeSpan()
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("unsupported expression type: %T", expr),
			Span:    &span,
		}
	}
}

func (ev *evaluator) evalIdentifier(e *ast.Identifier, env *Env) (Value, error) {
	if val, ok := env.Lookup(e.Name); ok {
		return val, nil
	}
	if b, ok := ev.opts.Builtins[e.Name]; ok {
		return b, nil
	}
	span := e.Span
	return nil, &RuntimeError{
		Code:    diagnostics.EUnbound,
		Message: fmt.Sprintf("Unknown identifier: %s", e.Name),
		Span:    &span,
	}
}

func (ev *evaluator) evalPrefix(e *ast.PrefixExpr, env *Env) (Value, error) {
	operand, err := ev.evalExpr(e.Operand, env)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case ast.OpNot:
		return NewBool(!Truthiness(operand)), nil
	case ast.OpNeg:
		n, err := expectInteger(operand, e.Operand.NodeSpan())
		if err != nil {
			return nil, err
		}
		return NewInteger(-n), nil
	default:
		span := e.Span
		return nil, &RuntimeError{
			Code:    diagnostics.EUnknownOp,
			Message: fmt.Sprintf("Unknown operation: %s%s", e.Op, Unwrap(operand).Kind()),
			Span:    &span,
		}
	}
}

func (ev *evaluator) evalInfix(e *ast.InfixExpr, env *Env) (Value, error) {
	left, err := ev.evalExpr(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(e.Right, env)
	if err != nil {
		return nil, err
	}

	span := e.Span
	switch l := Unwrap(left).(type) {
	case Integer:
		r, err := expectInteger(right, e.Right.NodeSpan())
		if err != nil {
			return nil, err
		}
		return integerInfix(e.Op, l.Value, r, span)

	case Boolean:
		r, ok := Unwrap(right).(Boolean)
		if !ok {
			// Mixed operands are coerced to integers, so the boolean side
			// is the one reported.
			_, err := expectInteger(l, e.Left.NodeSpan())
			return nil, err
		}
		switch e.Op {
		case ast.OpEqEq:
			return NewBool(l.Value == r.Value), nil
		case ast.OpNotEq:
			return NewBool(l.Value != r.Value), nil
		}
		return nil, unknownOp("Boolean", e.Op, span)

	default:
		_, err := expectInteger(l, e.Left.NodeSpan())
		return nil, err
	}
}

func integerInfix(op ast.BinaryOp, l, r int64, span ast.Span) (Value, error) {
	switch op {
	case ast.OpAdd:
		return NewInteger(l + r), nil
	case ast.OpSub:
		return NewInteger(l - r), nil
	case ast.OpMul:
		return NewInteger(l * r), nil
	case ast.OpDiv:
		if r == 0 {
			return nil, &RuntimeError{Code: diagnostics.EDivZero, Message: "Division by zero", Span: &span}
		}
		if l == -1<<63 && r == -1 {
			// Wraps like the other operators instead of trapping.
			return NewInteger(l), nil
		}
		return NewInteger(l / r), nil
	case ast.OpLt:
		return NewBool(l < r), nil
	case ast.OpGt:
		return NewBool(l > r), nil
	case ast.OpEqEq:
		return NewBool(l == r), nil
	case ast.OpNotEq:
		return NewBool(l != r), nil
	}
	return nil, unknownOp("Integer", op, span)
}

func unknownOp(kind string, op ast.BinaryOp, span ast.Span) error {
	return &RuntimeError{
		Code:    diagnostics.EUnknownOp,
		Message: fmt.Sprintf("Unknown operation: %s %s %s", kind, op, kind),
		Span:    &span,
	}
}

// expectInteger coerces v to an integer, unwrapping return signals.
func expectInteger(v Value, span ast.Span) (int64, error) {
	if n, ok := Unwrap(v).(Integer); ok {
		return n.Value, nil
	}
	return 0, &RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("Expected integer, found: %s", Unwrap(v).Describe()),
		Span:    &span,
	}
}

// evalIf evaluates the chosen branch in the current environment; only
// function calls open a new scope.
func (ev *evaluator) evalIf(e *ast.IfExpr, env *Env) (Value, error) {
	cond, err := ev.evalExpr(e.Condition, env)
	if err != nil {
		return nil, err
	}

	if Truthiness(cond) {
		return ev.evalStatements(e.Consequence.Statements, env)
	}
	if e.Alternative != nil {
		return ev.evalStatements(e.Alternative.Statements, env)
	}
	return NewNull(), nil
}

func (ev *evaluator) evalCall(e *ast.CallExpr, env *Env) (Value, error) {
	callee, err := ev.evalExpr(e.Function, env)
	if err != nil {
		return nil, err
	}
	callee = Unwrap(callee)

	switch callee.(type) {
	case Function, *Builtin:
	default:
		span := e.Function.NodeSpan()
		return nil, &RuntimeError{
			Code:    diagnostics.ENotFn,
			Message: fmt.Sprintf("Expected function, found: %s", callee.Describe()),
			Span:    &span,
		}
	}

	// Arguments are evaluated in the caller's environment.
	args := make([]Value, len(e.Arguments))
	for i, argExpr := range e.Arguments {
		val, err := ev.evalExpr(argExpr, env)
		if err != nil {
			return nil, err
		}
		args[i] = Unwrap(val)
	}

	span := e.Span
	switch fn := callee.(type) {
	case *Builtin:
		return ev.callBuiltin(fn, args, span)
	default:
		return ev.callFunction(fn.(Function), args, span)
	}
}

func (ev *evaluator) callFunction(fn Function, args []Value, span ast.Span) (Value, error) {
	if len(args) != len(fn.Parameters) {
		return nil, &RuntimeError{
			Code: diagnostics.EArity,
			Message: fmt.Sprintf("Wrong number of arguments: expected (%s), got %d",
				strings.Join(fn.Parameters, ", "), len(args)),
			Span: &span,
		}
	}

	if ev.depthLimit > 0 && ev.tracker.Depth >= ev.depthLimit {
		return nil, ev.budgetError(span, "maximum call depth exceeded (%d)", ev.depthLimit)
	}
	ev.tracker.Depth++
	if ev.tracker.Depth > ev.tracker.MaxDepth {
		ev.tracker.MaxDepth = ev.tracker.Depth
	}
	defer func() { ev.tracker.Depth-- }()

	ev.emitWithData(TraceFnCallStart, &span, map[string]string{"fn": fn.Describe()})

	// The call scope hangs off the captured environment, not the caller's.
	callEnv := fn.Env.Child()
	for i, name := range fn.Parameters {
		if err := callEnv.Set(name, args[i]); err != nil {
			return nil, withSpan(err, span)
		}
	}

	// Call depth has its own limit, so nesting restarts inside the body.
	outer := ev.nesting
	ev.nesting = 0
	result, err := ev.evalStatements(fn.Body.Statements, callEnv)
	ev.nesting = outer
	ev.emit(TraceFnCallEnd, &span)
	if err != nil {
		return nil, err
	}
	return Unwrap(result), nil
}

func (ev *evaluator) callBuiltin(b *Builtin, args []Value, span ast.Span) (Value, error) {
	if b.Arity >= 0 && len(args) != b.Arity {
		return nil, &RuntimeError{
			Code:    diagnostics.EArity,
			Message: fmt.Sprintf("Wrong number of arguments to %s: expected %d, got %d", b.Name, b.Arity, len(args)),
			Span:    &span,
		}
	}

	ev.emitWithData(TraceBuiltinCall, &span, map[string]string{"fn": b.Name})
	result, err := b.Execute(ev.out, args)
	if err != nil {
		return nil, &RuntimeError{
			Code:    diagnostics.EFn,
			Message: fmt.Sprintf("builtin '%s' error: %s", b.Name, err.Error()),
			Span:    &span,
		}
	}
	if result == nil {
		result = NewNull()
	}
	return result, nil
}

// withSpan attaches span to a runtime error that has none yet.
func withSpan(err error, span ast.Span) error {
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) && rtErr.Span == nil {
		rtErr.Span = &span
	}
	return err
}
