// Package stdlib provides the Monkey builtin function registry.
package stdlib

import (
	"sort"

	"github.com/thomasrohde/monkey/pkg/evaluator"
)

// Registry holds registered builtin functions.
type Registry struct {
	fns map[string]*evaluator.Builtin
}

// NewRegistry creates a new empty builtin registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*evaluator.Builtin),
	}
}

// Register adds a builtin to the registry, replacing any previous one with
// the same name.
func (r *Registry) Register(fn evaluator.Builtin) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a builtin by name.
func (r *Registry) Get(name string) *evaluator.Builtin {
	return r.fns[name]
}

// All returns all registered builtins.
func (r *Registry) All() map[string]*evaluator.Builtin {
	return r.fns
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Defaults returns a registry with every default builtin registered.
func Defaults() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
