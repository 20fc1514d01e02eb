package evaluator

// DefaultMaxDepth bounds nested function calls when Budget.MaxDepth is zero.
const DefaultMaxDepth = 10000

// Budget holds the resource limits for a program execution.
// Zero fields are unlimited, except MaxDepth which falls back to
// DefaultMaxDepth. A negative MaxDepth disables the depth limit.
type Budget struct {
	MaxDepth int   `yaml:"max_depth" json:"maxDepth,omitempty"`
	MaxSteps int64 `yaml:"max_steps" json:"maxSteps,omitempty"`
	TimeMs   int64 `yaml:"time_ms" json:"timeMs,omitempty"`
}

// depthLimit returns the effective call depth limit, 0 meaning none.
func (b Budget) depthLimit() int {
	switch {
	case b.MaxDepth < 0:
		return 0
	case b.MaxDepth == 0:
		return DefaultMaxDepth
	default:
		return b.MaxDepth
	}
}

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Steps    int64
	Depth    int
	MaxDepth int
	StartMs  int64
}
