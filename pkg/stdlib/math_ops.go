package stdlib

import (
	"fmt"
	"io"

	"github.com/thomasrohde/monkey/pkg/evaluator"
)

// max(n...) → largest integer argument
func builtinMax(_ io.Writer, args []evaluator.Value) (evaluator.Value, error) {
	nums, err := integerArgs(args)
	if err != nil {
		return nil, err
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if n > best {
			best = n
		}
	}
	return evaluator.NewInteger(best), nil
}

// min(n...) → smallest integer argument
func builtinMin(_ io.Writer, args []evaluator.Value) (evaluator.Value, error) {
	nums, err := integerArgs(args)
	if err != nil {
		return nil, err
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if n < best {
			best = n
		}
	}
	return evaluator.NewInteger(best), nil
}

// abs(n) → absolute value
func builtinAbs(_ io.Writer, args []evaluator.Value) (evaluator.Value, error) {
	nums, err := integerArgs(args)
	if err != nil {
		return nil, err
	}
	if nums[0] < 0 {
		return evaluator.NewInteger(-nums[0]), nil
	}
	return evaluator.NewInteger(nums[0]), nil
}

func integerArgs(args []evaluator.Value) ([]int64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one argument required")
	}
	out := make([]int64, len(args))
	for i, a := range args {
		n, ok := a.(evaluator.Integer)
		if !ok {
			return nil, fmt.Errorf("argument %d must be an Integer, got %s", i+1, a.Describe())
		}
		out[i] = n.Value
	}
	return out, nil
}
