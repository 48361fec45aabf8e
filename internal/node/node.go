// Package node defines the service node: a configurable, stateful unit that
// can be enabled or disabled and that may reference other service nodes
// through its properties.
package node

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a service node.
type State int32

const (
	// Disabled is the initial state and the state a node returns to when
	// enabling fails.
	Disabled State = iota
	// Enabling is transient: the provider is bringing the service up.
	Enabling
	// Enabled indicates the service is up and usable by its dependents.
	Enabled
)

// String returns the canonical, upper-case name of the state.
func (s State) String() string {
	switch s {
	case Disabled:
		return "DISABLED"
	case Enabling:
		return "ENABLING"
	case Enabled:
		return "ENABLED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ParseState converts a persisted state name into a State. An empty string
// is treated as Disabled.
func ParseState(s string) (State, error) {
	switch s {
	case "", "DISABLED", "disabled":
		return Disabled, nil
	case "ENABLING", "enabling":
		return Enabling, nil
	case "ENABLED", "enabled":
		return Enabled, nil
	default:
		return Disabled, fmt.Errorf("unknown service state %q", s)
	}
}

// Node is a single service in the registry. Identity and type are fixed at
// creation; name, comments and properties are mutated in place while the
// flow is configured; state is owned by the provider and is safe to read from
// any goroutine.
type Node struct {
	id          string
	serviceType string

	mu           sync.RWMutex
	name         string
	comments     string
	resumeIntent bool
	props        []*property
	impl         any

	state atomic.Int32

	// watchMu guards changed, which is closed and replaced on every
	// state transition.
	watchMu sync.Mutex
	changed chan struct{}
}

// New creates a Disabled node with the given identity and the property
// descriptors declared by its service type.
func New(id, serviceType string, descriptors ...*PropertyDescriptor) *Node {
	n := &Node{
		id:          id,
		serviceType: serviceType,
		name:        id,
		changed:     make(chan struct{}),
	}
	for _, d := range descriptors {
		n.props = append(n.props, &property{descriptor: d})
	}
	return n
}

// ID returns the unique, stable identifier of the node.
func (n *Node) ID() string { return n.id }

// Type returns the service type tag.
func (n *Node) Type() string { return n.serviceType }

// Name returns the display name.
func (n *Node) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

// SetName sets the display name.
func (n *Node) SetName(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.name = name
}

// Comments returns the free-form comments attached to the node.
func (n *Node) Comments() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.comments
}

// SetComments sets the free-form comments.
func (n *Node) SetComments(comments string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.comments = comments
}

// ResumeIntent reports whether the persisted configuration says this service
// should be enabled when the flow is resumed.
func (n *Node) ResumeIntent() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.resumeIntent
}

// SetResumeIntent records the persisted "enable on resume" flag.
func (n *Node) SetResumeIntent(enable bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resumeIntent = enable
}

// Implementation returns the controller instance backing this node.
func (n *Node) Implementation() any {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.impl
}

// SetImplementation attaches the controller instance backing this node.
func (n *Node) SetImplementation(impl any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.impl = impl
}

// State atomically returns the current state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// SetState atomically stores a new state and wakes every waiter.
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
	n.notify()
}

// CompareAndSwapState moves the node from old to new only if it is currently
// in old. It returns true when the transition happened.
func (n *Node) CompareAndSwapState(old, new State) bool {
	if !n.state.CompareAndSwap(int32(old), int32(new)) {
		return false
	}
	n.notify()
	return true
}

// Changed returns a channel that is closed on the next state transition.
// Callers must fetch the channel before reading the state they compare
// against, otherwise a transition can be missed.
func (n *Node) Changed() <-chan struct{} {
	n.watchMu.Lock()
	defer n.watchMu.Unlock()
	return n.changed
}

func (n *Node) notify() {
	n.watchMu.Lock()
	close(n.changed)
	n.changed = make(chan struct{})
	n.watchMu.Unlock()
}

// WaitWhile blocks while the node is in state s. It returns the first state
// observed that differs from s, or the context error.
func (n *Node) WaitWhile(ctx context.Context, s State) (State, error) {
	for {
		ch := n.Changed()
		if current := n.State(); current != s {
			return current, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return n.State(), ctx.Err()
		}
	}
}

// String renders the node for log messages.
func (n *Node) String() string {
	return fmt.Sprintf("%s[id=%s]", n.serviceType, n.id)
}
