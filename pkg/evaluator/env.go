package evaluator

import (
	"fmt"
	"sort"

	"github.com/thomasrohde/monkey/pkg/diagnostics"
)

// Env is a scoped environment for variable bindings.
// It supports parent-chained lookup for lexical scoping; writes only ever
// touch the environment's own bindings.
type Env struct {
	bindings map[string]Value
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]Value),
		parent:   parent,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Parent returns the enclosing scope, or nil at the root.
func (e *Env) Parent() *Env {
	return e.parent
}

// Lookup finds a variable by name, traversing parent scopes.
func (e *Env) Lookup(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if val, ok := env.bindings[name]; ok {
			return val, true
		}
	}
	return nil, false
}

// Get is Lookup with a runtime error for unknown names.
func (e *Env) Get(name string) (Value, error) {
	if val, ok := e.Lookup(name); ok {
		return val, nil
	}
	return nil, &RuntimeError{
		Code:    diagnostics.EUnbound,
		Message: fmt.Sprintf("Unknown identifier: %s", name),
	}
}

// Set binds a variable in this scope. The first write wins: a name already
// bound in this same scope is an error, while names from parent scopes may
// be shadowed.
func (e *Env) Set(name string, val Value) error {
	if _, exists := e.bindings[name]; exists {
		return &RuntimeError{
			Code:    diagnostics.EDupBinding,
			Message: fmt.Sprintf("Identifier has already been declared: %s", name),
		}
	}
	e.bindings[name] = val
	return nil
}

// Has checks whether a variable is defined in this scope or any parent.
func (e *Env) Has(name string) bool {
	_, ok := e.Lookup(name)
	return ok
}

// Names returns the names bound directly in this scope, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
