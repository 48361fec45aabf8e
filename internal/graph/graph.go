package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/svcgrid/internal/node"
)

// ErrDuplicateService is returned when a node is added under an identifier
// that is already registered.
var ErrDuplicateService = errors.New("duplicate service identifier")

// Reference is one reference-typed property of a node that currently holds a
// target identifier.
type Reference struct {
	Property string
	TargetID string
}

// Graph holds every service node of a flow, keyed by identifier and iterated
// in insertion order.
type Graph struct {
	mu    sync.RWMutex
	order []string
	nodes map[string]*node.Node
}

// New creates and returns an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node.Node)}
}

// Add registers a node. Adding a second node under the same identifier fails
// with ErrDuplicateService.
func (g *Graph) Add(n *node.Node) error {
	if n == nil {
		return errors.New("cannot add a nil node")
	}
	if n.ID() == "" {
		return fmt.Errorf("service of type %q has an empty identifier", n.Type())
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[n.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateService, n.ID())
	}
	g.nodes[n.ID()] = n
	g.order = append(g.order, n.ID())
	return nil
}

// Remove deletes a node from the graph. It is a no-op for unknown identifiers.
func (g *Graph) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return
	}
	delete(g.nodes, id)
	for i, existing := range g.order {
		if existing == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Lookup returns the node registered under id, or nil when there is none.
func (g *Graph) Lookup(id string) *node.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []*node.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*node.Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of registered nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// ReferenceOf reports whether the named property of n is reference-typed and,
// if so, the identifier it currently holds. The identifier is empty when the
// property is unset.
func ReferenceOf(n *node.Node, property string) (targetID string, isReference bool) {
	d := n.Descriptor(property)
	if !d.IsReference() {
		return "", false
	}
	v, _ := n.Property(property)
	return v, true
}

// References returns every reference-typed property of n that holds a
// non-empty identifier, in property order.
func References(n *node.Node) []Reference {
	var refs []Reference
	for _, p := range n.Properties() {
		if !p.Descriptor.IsReference() || !p.Set || p.Value == "" {
			continue
		}
		refs = append(refs, Reference{Property: p.Descriptor.Name, TargetID: p.Value})
	}
	return refs
}

// Dependencies resolves the references of n through the graph, skipping
// identifiers that are not registered.
func (g *Graph) Dependencies(n *node.Node) []*node.Node {
	var deps []*node.Node
	for _, ref := range References(n) {
		if target := g.Lookup(ref.TargetID); target != nil {
			deps = append(deps, target)
		}
	}
	return deps
}

// Dependents returns the nodes that currently reference n, in insertion
// order.
func (g *Graph) Dependents(n *node.Node) []*node.Node {
	var out []*node.Node
	for _, candidate := range g.Nodes() {
		for _, ref := range References(candidate) {
			if ref.TargetID == n.ID() {
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}
