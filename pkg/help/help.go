// Package help holds the Monkey language reference shown by `monkey help`.
package help

import (
	"fmt"
	"sort"
	"strings"
)

// QUICKREF is printed by `monkey help` with no topic.
const QUICKREF = `Monkey quick reference

  let x = 5;                       bind a name (once per scope)
  let add = fn(a, b) { a + b };    function literal, closes over its scope
  add(x, 2) * 3                    call, arithmetic
  if (x > 2) { "big" } else { 0 }  if is an expression
  return x;                        leave the enclosing function

Types: Integer, Boolean, String, Null, Function, Builtin
Falsy: false, null, 0, ""

Commands:
  monkey [repl]                 interactive session
  monkey run <file|-> [--check] evaluate a program
  monkey check <file>           parse and validate
  monkey fmt <file> [--write]   reformat source
  monkey trace <file.jsonl>     summarise a trace
  monkey config                 show effective configuration
  monkey help <topic>           more detail

Topics: syntax, types, builtins, scope, errors, budget, repl, examples
`

// Topics maps topic names to their text.
var Topics = map[string]string{
	"syntax": `Syntax

  program    := statement*
  statement  := "let" IDENT "=" expr ";" | "return" expr? ";" | expr ";"?
  block      := "{" statement* "}"
  expr       := literal | IDENT | prefix | infix | if | fn | call | "(" expr ")"
  if         := "if" "(" expr ")" block ("else" block)?
  fn         := "fn" "(" (IDENT ("," IDENT)*)? ")" block
  call       := expr "(" (expr ("," expr)*)? ")"

Operators, loosest first:
  == !=
  < >
  + -
  * /
  prefix ! -
  call ( )
All binary operators are left-associative.

Strings use double quotes and accept the escapes \n \r \t \" \\.
`,
	"types": `Types

  Integer   64-bit signed, wraps on overflow
  Boolean   true, false
  String    immutable text
  Null      result of let, of if without a taken branch, of puts
  Function  fn literal plus the scope it was created in
  Builtin   host function such as len or puts

Truthiness: false, null, 0 and "" are falsy. Everything else is truthy.

Operators:
  Integer with + - * / < > == !=   the right side must be an Integer
  Boolean with == !=               the right side must be a Boolean
  ! works on any value, - on Integers only
`,
	"builtins": `Builtins

Builtins are looked up after every let binding, so a let of the same
name hides them. Run "monkey help builtins --index" for the full list.

  len("héllo")            5, counts characters
  puts(1, "a")            prints each argument on its own line
  type(x)                 "Integer", "Boolean", ...
  str(42)                 "42"
  concat("a", "b", "c")   "abc"
`,
	"scope": `Scope

Every program or REPL session has one root scope. Each function call
gets a fresh scope whose parent is the scope the function was created
in, not the caller's. if blocks do not create a scope.

A name can be bound once per scope:
  let a = 1; let a = 2;                 error
  let a = 1; let f = fn(a) { a }; f(9)  9, parameters shadow outer names

Bindings never change after they are made.
`,
	"errors": `Errors

Codes:
  E_LEX          unrecognised input
  E_PARSE        malformed syntax
  E_UNBOUND      Unknown identifier: x
  E_DUP_BINDING  Identifier has already been declared: x
  E_TYPE         Expected integer, found: Boolean(true)
  E_UNKNOWN_OP   Unknown operation: Boolean + Boolean
  E_NOT_FN       Expected function, found: Integer(1)
  E_ARITY        Wrong number of arguments: expected (x, y), got 1
  E_DIV_ZERO     Division by zero
  E_FN           a builtin failed
  E_BUDGET       a resource limit was hit
  E_IO           a file could not be read or written
  E_CONFIG       a config file is invalid

Parse errors are collected for the whole input. Evaluation stops at the
first runtime error; bindings made and output written before it stay.

"monkey run" executes statements in order, so a redeclaration or unknown
name is only reported when its statement runs. "monkey run --check" and
"monkey check" report them before anything runs.

Exit codes of "monkey run": 0 ok, 1 I/O or usage, 2 diagnostics,
3 budget exceeded, 4 runtime error.
`,
	"budget": `Budget

Configured under "budget" in .monkey.yml or ~/.monkey/config.yml:

  budget:
    max_depth: 10000   nested calls; 0 means the default, -1 no limit
    max_steps: 0       evaluation steps; 0 means no limit
    time_ms: 0         wall clock per run; 0 means no limit

Expressions nested more than 10000 deep are rejected by the parser.

Exceeding any limit raises E_BUDGET.
`,
	"repl": `REPL

Each line is parsed and evaluated in one persistent session. The value
is printed, or the error, and the session continues.

  :env         list bindings
  :ast <code>  show the fully parenthesised form of <code>
  :help        list commands
  :quit        leave (Ctrl-D works too)

History is kept in the file named by history_file.
`,
	"examples": `Examples

  let fib = fn(n) { if (n < 2) { n } else { fib(n - 1) + fib(n - 2) } };
  fib(15)                                  610

  let newAdder = fn(x) { fn(y) { x + y } };
  let addTwo = newAdder(2);
  addTwo(3)                                5

  let greet = fn(name) { concat("hello ", name) };
  puts(greet("monkey"))
`,
}

// TopicList is the display order of Topics.
var TopicList = []string{"syntax", "types", "builtins", "scope", "errors", "budget", "repl", "examples"}

// MatchTopic resolves an exact topic name or an unambiguous prefix.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}

	var matches []string
	for _, name := range TopicList {
		if q != "" && strings.HasPrefix(name, q) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	default:
		return "", "", fmt.Errorf("ambiguous help topic %q: %s", query, strings.Join(matches, ", "))
	}
}

var builtinDocs = map[string]string{
	"abs":         "abs(n)                 absolute value",
	"concat":      "concat(s...)           join strings",
	"ends_with":   "ends_with(s, suffix)   suffix test",
	"len":         "len(s)                 character count",
	"max":         "max(n...)              largest integer",
	"min":         "min(n...)              smallest integer",
	"puts":        "puts(v...)             print values, one per line",
	"replace":     "replace(s, old, new)   replace every occurrence",
	"starts_with": "starts_with(s, prefix) prefix test",
	"str":         "str(v)                 display form as a String",
	"type":        "type(v)                kind name as a String",
}

// BuiltinIndex lists the given builtin names with a one-line summary each.
func BuiltinIndex(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString("Builtins\n\n")
	for _, name := range sorted {
		doc, ok := builtinDocs[name]
		if !ok {
			doc = name
		}
		b.WriteString("  " + doc + "\n")
	}
	fmt.Fprintf(&b, "\nTotal: %d functions\n", len(sorted))
	return b.String()
}
