package object

import "sort"

// Environment is one lexical scope. Lookups walk outward through enclosing
// scopes.
type Environment struct {
	store map[string]Object
	outer *Environment
}

// NewEnvironment creates a global scope.
func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]Object)}
}

// NewEnclosedEnvironment creates a scope nested in outer.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

// Outer returns the enclosing scope, or nil for the global scope.
func (e *Environment) Outer() *Environment { return e.outer }

// Define binds name in this scope, replacing any binding it already has here.
func (e *Environment) Define(name string, val Object) {
	e.store[name] = val
}

// Get looks name up in this scope and then in enclosing ones.
func (e *Environment) Get(name string) (Object, bool) {
	for env := e; env != nil; env = env.outer {
		if obj, ok := env.store[name]; ok {
			return obj, true
		}
	}
	return nil, false
}

// Assign rebinds name in the nearest scope that binds it. It reports false,
// changing nothing, when no scope does.
func (e *Environment) Assign(name string, val Object) bool {
	for env := e; env != nil; env = env.outer {
		if _, ok := env.store[name]; ok {
			env.store[name] = val
			return true
		}
	}
	return false
}

// Names returns every visible name, sorted.
func (e *Environment) Names() []string {
	seen := make(map[string]bool)
	for env := e; env != nil; env = env.outer {
		for name := range env.store {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Local returns the bindings of this scope only.
func (e *Environment) Local() map[string]Object {
	out := make(map[string]Object, len(e.store))
	for k, v := range e.store {
		out[k] = v
	}
	return out
}
