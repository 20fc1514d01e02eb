package stdlib

import (
	"fmt"
	"io"

	"github.com/thomasrohde/monkey/pkg/evaluator"
)

// variadic marks builtins that accept any number of arguments.
const variadic = -1

// RegisterDefaults adds all default builtins.
func RegisterDefaults(r *Registry) {
	// Predicates
	r.Register(evaluator.Builtin{Name: "type", Arity: 1, Execute: builtinType})
	r.Register(evaluator.Builtin{Name: "len", Arity: 1, Execute: builtinLen})

	// Output
	r.Register(evaluator.Builtin{Name: "puts", Arity: variadic, Execute: builtinPuts})

	// String ops
	r.Register(evaluator.Builtin{Name: "str", Arity: 1, Execute: builtinStr})
	r.Register(evaluator.Builtin{Name: "concat", Arity: variadic, Execute: builtinConcat})
	r.Register(evaluator.Builtin{Name: "starts_with", Arity: 2, Execute: builtinStartsWith})
	r.Register(evaluator.Builtin{Name: "ends_with", Arity: 2, Execute: builtinEndsWith})
	r.Register(evaluator.Builtin{Name: "replace", Arity: 3, Execute: builtinReplace})

	// Math
	r.Register(evaluator.Builtin{Name: "max", Arity: variadic, Execute: builtinMax})
	r.Register(evaluator.Builtin{Name: "min", Arity: variadic, Execute: builtinMin})
	r.Register(evaluator.Builtin{Name: "abs", Arity: 1, Execute: builtinAbs})
}

// puts(args...) writes each argument's display form on its own line → null
func builtinPuts(out io.Writer, args []evaluator.Value) (evaluator.Value, error) {
	for _, a := range args {
		if _, err := fmt.Fprintln(out, a.Inspect()); err != nil {
			return nil, fmt.Errorf("write failed: %w", err)
		}
	}
	return evaluator.NewNull(), nil
}
