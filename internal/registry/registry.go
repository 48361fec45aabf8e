package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/svcgrid/internal/node"
)

// Module is the interface that all built-in modules implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// RegisteredType holds the compiled Go parts of one service type.
type RegisteredType struct {
	Description string
	Properties  []*node.PropertyDescriptor
	New         func() Controller
}

// Registry holds every registered service type for a single application
// instance.
type Registry struct {
	types map[string]*RegisteredType
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{types: make(map[string]*RegisteredType)}
}

// RegisterServiceType registers the Go implementation of a service type.
func (r *Registry) RegisterServiceType(name string, t *RegisteredType) {
	if _, exists := r.types[name]; exists {
		panic(fmt.Sprintf("service type '%s' already registered", name))
	}
	slog.Debug("Registering service type.", "type", name, "properties", len(t.Properties))
	r.types[name] = t
}

// Register runs Register on every module in order.
func (r *Registry) Register(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// Lookup returns the registered type, if any.
func (r *Registry) Lookup(name string) (*RegisteredType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Types returns the names of every registered type, sorted.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
