package dag

import (
	"context"
	"strings"

	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/node"
)

// Registry is the view of the service registry the resolver needs.
type Registry interface {
	// Nodes returns every node in registry iteration order.
	Nodes() []*node.Node
	// Dependencies returns the registered nodes n currently references,
	// skipping dangling references.
	Dependencies(n *node.Node) []*node.Node
}

// Branch is an ordered list of nodes, dependencies before dependents, built
// to activate its last node.
type Branch []*node.Node

// Root returns the node the branch was built for.
func (b Branch) Root() *node.Node {
	if len(b) == 0 {
		return nil
	}
	return b[len(b)-1]
}

// IDs returns the identifiers of the branch in order.
func (b Branch) IDs() []string {
	ids := make([]string, len(b))
	for i, n := range b {
		ids[i] = n.ID()
	}
	return ids
}

// String renders the branch as "[a, b, c]".
func (b Branch) String() string {
	return "[" + strings.Join(b.IDs(), ", ") + "]"
}

// Resolve returns exactly one branch per node in the registry, in registry
// iteration order.
func Resolve(ctx context.Context, r Registry) []Branch {
	logger := ctxlog.FromContext(ctx)

	nodes := r.Nodes()
	branches := make([]Branch, 0, len(nodes))
	for _, root := range nodes {
		b := newBranchBuilder(r)
		b.visit(root)
		logger.Debug("Resolved enabling order.", "service", root.ID(), "branch", b.ordered.String())
		branches = append(branches, b.ordered)
	}

	logger.Debug("Resolved all branches.", "count", len(branches))
	return branches
}

// branchBuilder holds the state of one root's traversal.
type branchBuilder struct {
	registry Registry
	ordered  Branch
	inBranch map[*node.Node]struct{}
	visited  map[*node.Node]struct{}
}

func newBranchBuilder(r Registry) *branchBuilder {
	return &branchBuilder{
		registry: r,
		inBranch: make(map[*node.Node]struct{}),
		visited:  make(map[*node.Node]struct{}),
	}
}

func (b *branchBuilder) visit(n *node.Node) {
	if _, seen := b.visited[n]; seen {
		return
	}

	for _, target := range b.registry.Dependencies(n) {
		if _, present := b.inBranch[target]; !present {
			b.visited[n] = struct{}{}
			b.visit(target)
		}
	}

	b.add(n)
}

func (b *branchBuilder) add(n *node.Node) {
	if _, present := b.inBranch[n]; present {
		return
	}
	b.inBranch[n] = struct{}{}
	b.ordered = append(b.ordered, n)
}
