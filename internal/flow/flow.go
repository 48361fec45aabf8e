// Package flow turns a loaded configuration model into live services.
//
// Loading happens in two passes. The first creates every node so that any
// service can be referenced regardless of declaration order. The second
// applies configured properties. When auto-resume is on, the services
// marked ENABLED are then brought up in dependency order.
package flow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/svcgrid/internal/bulletin"
	"github.com/specialistvlad/svcgrid/internal/config"
	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/dag"
	"github.com/specialistvlad/svcgrid/internal/graph"
	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/specialistvlad/svcgrid/internal/scheduler"
)

// Provider creates, enables and disables services.
type Provider interface {
	CreateService(ctx context.Context, serviceType, id string) (*node.Node, error)
	Enable(ctx context.Context, n *node.Node) error
	Disable(ctx context.Context, n *node.Node) error
	Graph() *graph.Graph
}

// Options tunes Load.
type Options struct {
	// AutoResume enables every service whose persisted state is ENABLED.
	AutoResume bool
	// Scheduler is passed through to the activation pass.
	Scheduler scheduler.Options
}

// Load creates and configures every service described by model and,
// with AutoResume, activates them. It returns the created nodes in
// descriptor order.
func Load(ctx context.Context, model *config.Model, provider Provider, sink bulletin.Sink, opts Options) ([]*node.Node, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	nodes := make([]*node.Node, 0, len(model.Services))
	// A failed load leaves the graph as it found it.
	rollback := func() {
		for _, n := range nodes {
			provider.Graph().Remove(n.ID())
		}
	}
	for _, d := range model.Services {
		n, err := provider.CreateService(ctx, d.Type, d.ID)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("failed to create service '%s': %w", d.ID, err)
		}
		if d.Name != "" {
			n.SetName(d.Name)
		}
		n.SetComments(d.Comments)

		nodes = append(nodes, n)

		state, err := node.ParseState(d.State)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("service '%s': %w", d.ID, err)
		}
		n.SetResumeIntent(state == node.Enabled)
	}

	for i, d := range model.Services {
		n := nodes[i]
		for _, p := range d.Properties {
			if p.Value == nil {
				n.RemoveProperty(p.Name)
				continue
			}
			n.SetProperty(p.Name, *p.Value)
		}
	}
	logger.Info("Services created.", "count", len(nodes), "graph_size", provider.Graph().Len(), "duration", time.Since(start))

	if !opts.AutoResume {
		logger.Info("Auto-resume is off, leaving services disabled.")
		return nodes, nil
	}

	branches := dag.Resolve(ctx, provider.Graph())
	scheduler.Activate(ctx, branches, provider, sink, opts.Scheduler)
	return nodes, nil
}

// Unload disables every Enabled service, dependents before the services
// they reference. Errors are collected; every service is still attempted.
func Unload(ctx context.Context, provider Provider) error {
	logger := ctxlog.FromContext(ctx)
	g := provider.Graph()

	var errs []error
	disable := func(n *node.Node) {
		if err := provider.Disable(ctx, n); err != nil {
			logger.Error("Failed to disable service.", "service", n.String(), "error", err)
			errs = append(errs, err)
		}
	}

	pending := g.Nodes()
	slices.Reverse(pending)
	for len(pending) > 0 {
		var blocked []*node.Node
		for _, n := range pending {
			if hasEnabledDependents(g, n) {
				blocked = append(blocked, n)
				continue
			}
			disable(n)
		}
		if len(blocked) == len(pending) {
			// Only cycles or failed disables are left.
			for _, n := range blocked {
				disable(n)
			}
			break
		}
		pending = blocked
	}

	return errors.Join(errs...)
}

func hasEnabledDependents(g *graph.Graph, n *node.Node) bool {
	for _, d := range g.Dependents(n) {
		if d != n && d.State() == node.Enabled {
			return true
		}
	}
	return false
}
