// Package evaluator implements the Monkey tree-walking evaluator.
package evaluator

import (
	"io"
	"strconv"
	"strings"

	"github.com/thomasrohde/monkey/pkg/ast"
)

// Value is the interface for all Monkey runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	// Kind names the value kind as used in diagnostics ("Integer", "Boolean", ...).
	Kind() string
	// Inspect is the display form printed by the REPL.
	Inspect() string
	// Describe is the debug form used inside error messages, e.g. Integer(5).
	Describe() string
	monkeyValue() // sealed marker
}

// Null represents the absence of a value.
type Null struct{}

func (Null) Kind() string     { return "Null" }
func (Null) Inspect() string  { return "null" }
func (Null) Describe() string { return "Null" }
func (Null) monkeyValue()     {}

// Integer is a 64-bit signed integer.
type Integer struct {
	Value int64
}

func (i Integer) Kind() string     { return "Integer" }
func (i Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }
func (i Integer) Describe() string { return "Integer(" + i.Inspect() + ")" }
func (Integer) monkeyValue()       {}

// Boolean is true or false.
type Boolean struct {
	Value bool
}

func (b Boolean) Kind() string     { return "Boolean" }
func (b Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b Boolean) Describe() string { return "Boolean(" + b.Inspect() + ")" }
func (Boolean) monkeyValue()       {}

// String is an immutable text value.
type String struct {
	Value string
}

func (s String) Kind() string     { return "String" }
func (s String) Inspect() string  { return s.Value }
func (s String) Describe() string { return "String(" + ast.Quote(s.Value) + ")" }
func (String) monkeyValue()       {}

// ReturnSignal wraps the operand of a return statement while it unwinds
// enclosing blocks. It never escapes Execute, Eval or a function call.
type ReturnSignal struct {
	Value Value
}

func (r ReturnSignal) Kind() string     { return r.Value.Kind() }
func (r ReturnSignal) Inspect() string  { return r.Value.Inspect() }
func (r ReturnSignal) Describe() string { return r.Value.Describe() }
func (ReturnSignal) monkeyValue()       {}

// Function is a closure: parameter names, a shared body and the environment
// that was active where the literal was evaluated.
type Function struct {
	Parameters []string
	Body       *ast.BlockStmt
	Env        *Env
}

func (f Function) Kind() string { return "Function" }
func (f Function) Inspect() string {
	return "fn(" + strings.Join(f.Parameters, ", ") + ") " + f.Body.String()
}
func (f Function) Describe() string {
	return "Function(" + strings.Join(f.Parameters, ", ") + ")"
}
func (Function) monkeyValue() {}

// BuiltinFn is the host implementation of a builtin. out is where output
// produced by the call goes.
type BuiltinFn func(out io.Writer, args []Value) (Value, error)

// Builtin is a host-provided function. Arity -1 accepts any number of
// arguments.
type Builtin struct {
	Name    string
	Arity   int
	Execute BuiltinFn
}

func (b *Builtin) Kind() string     { return "Builtin" }
func (b *Builtin) Inspect() string  { return "builtin " + b.Name }
func (b *Builtin) Describe() string { return "Builtin(" + b.Name + ")" }
func (*Builtin) monkeyValue()       {}

// NewNull creates a null value.
func NewNull() Value {
	return Null{}
}

// NewInteger creates an integer value.
func NewInteger(n int64) Value {
	return Integer{Value: n}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Boolean{Value: b}
}

// NewString creates a string value.
func NewString(s string) Value {
	return String{Value: s}
}

// Unwrap strips any ReturnSignal wrappers from v.
func Unwrap(v Value) Value {
	for {
		rs, ok := v.(ReturnSignal)
		if !ok {
			return v
		}
		v = rs.Value
	}
}

// Truthiness returns the boolean interpretation of a Monkey value.
// Zero, null, false and "" are falsy; everything else is truthy.
func Truthiness(v Value) bool {
	switch val := Unwrap(v).(type) {
	case Null:
		return false
	case Boolean:
		return val.Value
	case Integer:
		return val.Value != 0
	case String:
		return val.Value != ""
	default:
		return true
	}
}
