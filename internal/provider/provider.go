package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/svcgrid/internal/bulletin"
	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/graph"
	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/specialistvlad/svcgrid/internal/registry"
)

// DefaultEnableTimeout bounds a single controller Enable call.
const DefaultEnableTimeout = 30 * time.Second

var (
	// ErrUnknownType is returned when a service is created with a type that
	// no module registered.
	ErrUnknownType = errors.New("unknown service type")
	// ErrInvalidConfiguration wraps every synchronous Enable rejection.
	ErrInvalidConfiguration = errors.New("invalid service configuration")
)

// Options tunes a Standard provider.
type Options struct {
	// EnableTimeout bounds each controller Enable call. Zero means
	// DefaultEnableTimeout.
	EnableTimeout time.Duration
}

// Standard is the provider used by the application. It owns the graph its
// services live in.
type Standard struct {
	registry *registry.Registry
	graph    *graph.Graph
	sink     bulletin.Sink
	opts     Options

	wg sync.WaitGroup
}

// New creates a Standard provider over the given type registry and graph.
func New(reg *registry.Registry, g *graph.Graph, sink bulletin.Sink, opts Options) *Standard {
	if sink == nil {
		sink = bulletin.Discard
	}
	if opts.EnableTimeout <= 0 {
		opts.EnableTimeout = DefaultEnableTimeout
	}
	return &Standard{registry: reg, graph: g, sink: sink, opts: opts}
}

// SetSink replaces the bulletin sink. It must be called before any service
// is enabled.
func (p *Standard) SetSink(sink bulletin.Sink) {
	if sink == nil {
		sink = bulletin.Discard
	}
	p.sink = sink
}

// Graph returns the graph services are created in.
func (p *Standard) Graph() *graph.Graph {
	return p.graph
}

// CreateService instantiates a service of the given type and adds it to the
// graph in the Disabled state.
func (p *Standard) CreateService(ctx context.Context, serviceType, id string) (*node.Node, error) {
	t, ok := p.registry.Lookup(serviceType)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' (service '%s')", ErrUnknownType, serviceType, id)
	}

	n := node.New(id, serviceType, t.Properties...)
	n.SetImplementation(t.New())
	if err := p.graph.Add(n); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Created service.", "service", n.String())
	return n, nil
}

// Enable starts enabling n. It is a no-op unless n is Disabled.
func (p *Standard) Enable(ctx context.Context, n *node.Node) error {
	if !n.CompareAndSwapState(node.Disabled, node.Enabling) {
		return nil
	}

	ctrl, err := p.validate(n)
	if err != nil {
		n.SetState(node.Disabled)
		return err
	}

	p.wg.Add(1)
	go p.runEnable(context.WithoutCancel(ctx), n, ctrl)
	return nil
}

// validate checks everything that can be known before the controller runs.
func (p *Standard) validate(n *node.Node) (registry.Controller, error) {
	var problems []error

	for _, prop := range n.Properties() {
		d := prop.Descriptor
		value, hasValue := prop.Value, prop.Set
		if d.Required && (!hasValue || value == "") {
			problems = append(problems, fmt.Errorf("property '%s' is required", d.Name))
			continue
		}
		if !d.IsReference() || value == "" {
			continue
		}

		target := p.graph.Lookup(value)
		switch {
		case target == nil:
			problems = append(problems, fmt.Errorf("property '%s' references unknown service '%s'", d.Name, value))
		case target.Type() != d.ServiceType:
			problems = append(problems, fmt.Errorf("property '%s' references %s, expected a %s", d.Name, target, d.ServiceType))
		case target.State() != node.Enabled:
			problems = append(problems, fmt.Errorf("referenced service %s is %s", target, target.State()))
		}
	}

	ctrl, ok := n.Implementation().(registry.Controller)
	if !ok {
		problems = append(problems, errors.New("no controller attached"))
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, errors.Join(problems...))
	}
	return ctrl, nil
}

// runEnable drives the controller and settles the node's state.
func (p *Standard) runEnable(ctx context.Context, n *node.Node, ctrl registry.Controller) {
	defer p.wg.Done()

	ctx, logger := ctxlog.With(ctx, "service", n.String())
	ctx, cancel := context.WithTimeout(ctx, p.opts.EnableTimeout)
	defer cancel()

	start := time.Now()
	err := p.callEnable(ctx, ctrl, &configContext{node: n, graph: p.graph})
	if err != nil {
		logger.Error("Controller failed to enable.", "error", err, "duration", time.Since(start))
		p.sink.Report(bulletin.CategoryControllerService, bulletin.Error,
			fmt.Sprintf("Failed to enable %s due to %v", n, err))
		n.SetState(node.Disabled)
		return
	}

	logger.Debug("Controller enabled.", "duration", time.Since(start))
	n.SetState(node.Enabled)
}

func (p *Standard) callEnable(ctx context.Context, ctrl registry.Controller, cfg registry.ConfigurationContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("controller panicked: %v", r)
		}
	}()
	return ctrl.Enable(ctx, cfg)
}

// Disable stops an Enabled service. A service that is still Enabling is
// waited for first. Disabling a service that is not Enabled is a no-op.
func (p *Standard) Disable(ctx context.Context, n *node.Node) error {
	state, err := n.WaitWhile(ctx, node.Enabling)
	if err != nil {
		return fmt.Errorf("gave up waiting for %s to finish enabling: %w", n, err)
	}
	if state != node.Enabled {
		return nil
	}

	if ctrl, ok := n.Implementation().(registry.Controller); ok {
		if err := ctrl.Disable(ctx); err != nil {
			return fmt.Errorf("failed to disable %s: %w", n, err)
		}
	}
	n.SetState(node.Disabled)
	ctxlog.FromContext(ctx).Info("Service disabled.", "service", n.String())
	return nil
}

// Wait blocks until every background enable started so far has finished.
func (p *Standard) Wait() {
	p.wg.Wait()
}
