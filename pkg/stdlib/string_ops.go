package stdlib

import (
	"fmt"
	"io"
	"strings"

	"github.com/thomasrohde/monkey/pkg/evaluator"
)

// str(x) → display form of any value
func builtinStr(_ io.Writer, args []evaluator.Value) (evaluator.Value, error) {
	return evaluator.NewString(args[0].Inspect()), nil
}

// concat(s...) → all string arguments joined
func builtinConcat(_ io.Writer, args []evaluator.Value) (evaluator.Value, error) {
	var sb strings.Builder
	for i, a := range args {
		s, ok := a.(evaluator.String)
		if !ok {
			return nil, fmt.Errorf("argument %d must be a String, got %s", i+1, a.Describe())
		}
		sb.WriteString(s.Value)
	}
	return evaluator.NewString(sb.String()), nil
}

// starts_with(s, prefix) → bool
func builtinStartsWith(_ io.Writer, args []evaluator.Value) (evaluator.Value, error) {
	strs, err := stringArgs(args)
	if err != nil {
		return nil, err
	}
	return evaluator.NewBool(strings.HasPrefix(strs[0], strs[1])), nil
}

// ends_with(s, suffix) → bool
func builtinEndsWith(_ io.Writer, args []evaluator.Value) (evaluator.Value, error) {
	strs, err := stringArgs(args)
	if err != nil {
		return nil, err
	}
	return evaluator.NewBool(strings.HasSuffix(strs[0], strs[1])), nil
}

// replace(s, old, new) → s with every old replaced by new
func builtinReplace(_ io.Writer, args []evaluator.Value) (evaluator.Value, error) {
	strs, err := stringArgs(args)
	if err != nil {
		return nil, err
	}
	return evaluator.NewString(strings.ReplaceAll(strs[0], strs[1], strs[2])), nil
}

func stringArgs(args []evaluator.Value) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, ok := a.(evaluator.String)
		if !ok {
			return nil, fmt.Errorf("argument %d must be a String, got %s", i+1, a.Describe())
		}
		out[i] = s.Value
	}
	return out, nil
}
