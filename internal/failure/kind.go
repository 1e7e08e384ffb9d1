package failure

import (
	"errors"
	"fmt"
	"sync"
)

// Built-in kind names.
const (
	KindError        = "error"
	KindPanic        = "panic"
	KindRuntimeError = "runtime.Error"
)

var (
	// ErrUnknownParent is returned when registering a kind under a parent that does not exist.
	ErrUnknownParent = errors.New("unknown parent kind")
	// ErrKindConflict is returned when a kind is re-registered under a different parent.
	ErrKindConflict = errors.New("kind already registered with a different parent")
)

// Kind is a node in the failure kind hierarchy.
type Kind struct {
	name   string
	parent *Kind
}

// Name returns the kind name.
func (k *Kind) Name() string {
	return k.name
}

// Parent returns the parent kind, or nil for the root.
func (k *Kind) Parent() *Kind {
	return k.parent
}

// IsA reports whether k is other or a descendant of other.
func (k *Kind) IsA(other *Kind) bool {
	if k == nil || other == nil {
		return false
	}
	for cur := k; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// Registry maps kind names to kinds. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	root  *Kind
	kinds map[string]*Kind
}

// NewRegistry returns a registry holding only the root "error" kind.
func NewRegistry() *Registry {
	root := &Kind{name: KindError}
	return &Registry{
		root:  root,
		kinds: map[string]*Kind{KindError: root},
	}
}

// DefaultRegistry returns a registry preloaded with the Go runtime's failure kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range [][2]string{
		{KindPanic, KindError},
		{KindRuntimeError, KindPanic},
		{"runtime.boundsError", KindRuntimeError},
		{"runtime.TypeAssertionError", KindRuntimeError},
		{"runtime.plainError", KindRuntimeError},
		{"runtime.errorString", KindRuntimeError},
		{"context.deadlineExceededError", KindError},
	} {
		if _, err := r.Register(def[0], def[1]); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds name as a child of parent. Registering the same name under
// the same parent again is a no-op.
func (r *Registry) Register(name, parent string) (*Kind, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.kinds[parent]
	if !ok {
		return nil, fmt.Errorf("register %q: %w: %q", name, ErrUnknownParent, parent)
	}
	if existing, ok := r.kinds[name]; ok {
		if existing.parent != p {
			return nil, fmt.Errorf("register %q: %w", name, ErrKindConflict)
		}
		return existing, nil
	}

	k := &Kind{name: name, parent: p}
	r.kinds[name] = k
	return k, nil
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Resolve returns the kind for an event's kind name. Names that were never
// registered resolve to an unregistered direct child of the root kind.
func (r *Registry) Resolve(name string) *Kind {
	if k, ok := r.Lookup(name); ok {
		return k
	}
	return &Kind{name: name, parent: r.root}
}

// Matches reports whether the event kind is-a any of the listed kind names.
// A kind always matches its own name, registered or not. Other listed names
// only match through the registry; unregistered ones never match.
func (r *Registry) Matches(kind string, names []string) bool {
	if len(names) == 0 {
		return false
	}
	k := r.Resolve(kind)
	for _, name := range names {
		if name == kind {
			return true
		}
		listed, ok := r.Lookup(name)
		if !ok {
			continue
		}
		if k.IsA(listed) {
			return true
		}
	}
	return false
}
