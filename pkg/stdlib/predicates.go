package stdlib

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/thomasrohde/monkey/pkg/evaluator"
)

// type(x) → kind name as a string
func builtinType(_ io.Writer, args []evaluator.Value) (evaluator.Value, error) {
	return evaluator.NewString(args[0].Kind()), nil
}

// len(s) → number of characters in a string
func builtinLen(_ io.Writer, args []evaluator.Value) (evaluator.Value, error) {
	s, ok := args[0].(evaluator.String)
	if !ok {
		return nil, fmt.Errorf("argument must be a String, got %s", args[0].Describe())
	}
	return evaluator.NewInteger(int64(utf8.RuneCountInString(s.Value))), nil
}
