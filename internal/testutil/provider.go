package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/svcgrid/internal/node"
)

// FakeProvider enables nodes without running any controller. A successful
// Enable moves the node to Enabling and, after Delay, to Enabled from a
// separate goroutine.
type FakeProvider struct {
	// Delay is how long a node stays in Enabling.
	Delay time.Duration
	// Fail makes Enable return the given error synchronously.
	Fail map[string]error
	// Revert makes the asynchronous enable end in Disabled.
	Revert map[string]bool
	// Hang leaves the node in Enabling forever.
	Hang map[string]bool
	// Panic makes Enable panic.
	Panic map[string]bool

	mu        sync.Mutex
	calls     []string
	settled   []string
	active    int
	maxActive int
}

// Enable implements the provider contract used by the scheduler.
func (p *FakeProvider) Enable(_ context.Context, n *node.Node) error {
	id := n.ID()

	p.mu.Lock()
	p.calls = append(p.calls, id)
	p.mu.Unlock()

	if p.Panic[id] {
		panic("enable exploded for " + id)
	}
	if err := p.Fail[id]; err != nil {
		return err
	}
	if !n.CompareAndSwapState(node.Disabled, node.Enabling) {
		return nil
	}
	if p.Hang[id] {
		return nil
	}

	p.mu.Lock()
	p.active++
	p.maxActive = max(p.maxActive, p.active)
	p.mu.Unlock()

	go func() {
		if p.Delay > 0 {
			time.Sleep(p.Delay)
		}
		p.mu.Lock()
		p.active--
		p.settled = append(p.settled, id)
		p.mu.Unlock()

		if p.Revert[id] {
			n.SetState(node.Disabled)
			return
		}
		n.SetState(node.Enabled)
	}()
	return nil
}

// Calls returns the identifiers Enable was called with, in call order.
func (p *FakeProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Settled returns the identifiers whose asynchronous enable finished, in
// completion order.
func (p *FakeProvider) Settled() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.settled...)
}

// MaxConcurrent returns the highest number of nodes seen in Enabling at the
// same time.
func (p *FakeProvider) MaxConcurrent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxActive
}
