package object

import (
	"sort"
	"sync"
)

// Environment is a chained name→value scope. Reading a name searches
// this scope then its ancestors; assigning a name that exists in an
// ancestor mutates that ancestor's binding; assigning a name bound
// nowhere creates it in the current scope. That write-if-absent rule is
// deliberate shell-like behavior, not an oversight.
type Environment struct {
	bindings map[string]Object
	outer    *Environment

	mu sync.RWMutex
}

func NewEnvironment() *Environment {
	return &Environment{bindings: make(map[string]Object)}
}

// NewEnclosedEnvironment creates a child scope. The parent reference is
// shared for lookup only; the child never mutates the parent's chain.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

func (e *Environment) Get(name string) (Object, bool) {
	e.mu.RLock()
	obj, ok := e.bindings[name]
	e.mu.RUnlock()
	if ok {
		return obj, true
	}
	if e.outer != nil {
		return e.outer.Get(name)
	}
	return nil, false
}

// Assign writes through to the scope that already holds name, falling
// back to a local create when no scope does.
func (e *Environment) Assign(name string, val Object) {
	if e.setIfPresent(name, val) {
		return
	}
	e.SetLocal(name, val)
}

func (e *Environment) setIfPresent(name string, val Object) bool {
	e.mu.Lock()
	if _, ok := e.bindings[name]; ok {
		e.bindings[name] = val
		e.mu.Unlock()
		return true
	}
	e.mu.Unlock()
	if e.outer != nil {
		return e.outer.setIfPresent(name, val)
	}
	return false
}

// SetLocal binds name in this scope regardless of ancestors. Parameter
// and handler-payload binding use this to shadow instead of mutate.
func (e *Environment) SetLocal(name string, val Object) {
	e.mu.Lock()
	e.bindings[name] = val
	e.mu.Unlock()
}

// Names returns the names bound in this scope only, sorted.
func (e *Environment) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies this scope's local bindings (not ancestors).
func (e *Environment) Snapshot() map[string]Object {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]Object, len(e.bindings))
	for name, val := range e.bindings {
		out[name] = val
	}
	return out
}
