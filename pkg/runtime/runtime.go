// Package runtime provides the top-level Monkey runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/thomasrohde/monkey/pkg/ast"
	"github.com/thomasrohde/monkey/pkg/diagnostics"
	"github.com/thomasrohde/monkey/pkg/evaluator"
	"github.com/thomasrohde/monkey/pkg/formatter"
	"github.com/thomasrohde/monkey/pkg/parser"
	"github.com/thomasrohde/monkey/pkg/stdlib"
	"github.com/thomasrohde/monkey/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	Value    evaluator.Value
	Steps    int64
	MaxDepth int
}

// Runtime wires together all Monkey components for program execution.
type Runtime struct {
	builtins *stdlib.Registry
	budget   evaluator.Budget
	logger   *slog.Logger
	out      io.Writer
	runID    string
	trace    func(event evaluator.TraceEvent)
	validate bool
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithBuiltins sets the builtin registry.
func WithBuiltins(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.builtins = r
	}
}

// WithBudget sets the resource limits applied to every execution.
func WithBudget(b evaluator.Budget) Option {
	return func(rt *Runtime) {
		rt.budget = b
	}
}

// WithLogger sets the logger. Trace events are also logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithOutput sets where builtins such as puts write.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.out = w
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithValidation makes Run validate the whole program before executing
// any of it. Without it, errors such as a redeclaration surface when the
// offending statement runs, after earlier statements have had their
// effects.
func WithValidation(on bool) Option {
	return func(rt *Runtime) {
		rt.validate = on
	}
}

// New creates a new Runtime with the given options.
// By default, the stdlib builtins are registered and output is discarded.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		builtins: stdlib.Defaults(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		out:      io.Discard,
		runID:    "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Run parses and executes a Monkey program in a fresh environment. Static
// validation only happens when enabled with WithValidation.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		rt.logger.Debug("parse failed", "file", filename, "errors", len(diags))
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	if rt.validate {
		vDiags := validator.Validate(program, rt.builtins.Names())
		if len(vDiags) > 0 {
			rt.logger.Debug("validation failed", "file", filename, "errors", len(vDiags))
			return nil, &DiagnosticError{Diagnostics: vDiags}
		}
	}

	result, err := evaluator.Execute(ctx, program, nil, rt.buildExecOptions())
	res := &Result{Value: result.Value, Steps: result.Steps, MaxDepth: result.MaxDepth}
	if err != nil {
		rt.logger.Debug("execution failed", "file", filename, "error", err)
		return res, err
	}
	rt.logger.Debug("execution finished", "file", filename, "steps", res.Steps, "maxDepth", res.MaxDepth)
	return res, nil
}

// Check parses and validates a Monkey program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}

	return validator.Validate(program, rt.builtins.Names())
}

// Format parses and formats a Monkey program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions() evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Builtins: rt.builtins.All(),
		Budget:   rt.budget,
		Trace:    rt.traceFunc(),
		RunID:    rt.runID,
		Stdout:   rt.out,
	}
}

func (rt *Runtime) traceFunc() func(evaluator.TraceEvent) {
	debug := rt.logger.Enabled(context.Background(), slog.LevelDebug)
	if !debug {
		return rt.trace
	}
	return func(ev evaluator.TraceEvent) {
		attrs := []any{"runId", ev.RunID}
		if ev.Span != nil {
			attrs = append(attrs, "at", fmt.Sprintf("%s:%d:%d", ev.Span.File, ev.Span.StartLine, ev.Span.StartCol))
		}
		for k, v := range ev.Data {
			attrs = append(attrs, k, v)
		}
		rt.logger.Debug(string(ev.Event), attrs...)
		if rt.trace != nil {
			rt.trace(ev)
		}
	}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Diagnostics extracts the diagnostics carried by err: the list of a
// DiagnosticError, or the single diagnostic of a runtime error. Other
// errors yield nil.
func Diagnostics(err error) []diagnostics.Diagnostic {
	var dErr *DiagnosticError
	if errors.As(err, &dErr) {
		return dErr.Diagnostics
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		return []diagnostics.Diagnostic{rtErr.Diagnostic()}
	}
	return nil
}

// Session evaluates successive inputs against one persistent environment,
// the way a REPL needs.
type Session struct {
	rt   *Runtime
	env  *evaluator.Env
	name string
}

// NewSession creates a session with an empty root environment. Inputs are
// attributed to filename in spans.
func (rt *Runtime) NewSession(filename string) *Session {
	return &Session{rt: rt, env: evaluator.NewEnv(nil), name: filename}
}

// Env returns the session's root environment.
func (s *Session) Env() *evaluator.Env {
	return s.env
}

// Parse parses one input without evaluating it.
func (s *Session) Parse(source string) (*ast.Program, error) {
	program, diags := parser.Parse(source, s.name)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	return program, nil
}

// Eval parses and evaluates one input. Bindings made before an error stay
// in the session.
func (s *Session) Eval(ctx context.Context, source string) (evaluator.Value, error) {
	program, err := s.Parse(source)
	if err != nil {
		return nil, err
	}
	result, err := evaluator.Execute(ctx, program, s.env, s.rt.buildExecOptions())
	if err != nil {
		s.rt.logger.Debug("session input failed", "error", err)
		return nil, err
	}
	return result.Value, nil
}
