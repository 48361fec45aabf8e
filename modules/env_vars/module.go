// Package env_vars provides a service exposing a snapshot of environment
// variables to other services.
package env_vars

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/specialistvlad/svcgrid/internal/props"
	"github.com/specialistvlad/svcgrid/internal/registry"
)

// TypeName is the service type registered by this module.
const TypeName = "env_vars"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the env_vars service type.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterServiceType(TypeName, &registry.RegisteredType{
		Description: "Environment variables captured when the service is enabled.",
		Properties: []*node.PropertyDescriptor{
			{Name: "prefix", Description: "Only variables starting with this prefix are kept."},
			{Name: "strip_prefix", Description: "Removes the prefix from captured names.", Default: ptr("false")},
		},
		New: func() registry.Controller { return &Controller{environ: os.Environ} },
	})
}

// Controller holds the captured variables.
type Controller struct {
	environ func() []string

	mu   sync.RWMutex
	vars map[string]string
}

// Lookup returns a captured variable.
func (c *Controller) Lookup(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vars[name]
	return v, ok
}

// All returns a copy of every captured variable.
func (c *Controller) All() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.vars))
	for k, v := range c.vars {
		out[k] = v
	}
	return out
}

// Enable takes the snapshot.
func (c *Controller) Enable(ctx context.Context, cfg registry.ConfigurationContext) error {
	prefix := props.String(cfg, "prefix", "")
	strip, err := props.Bool(cfg, "strip_prefix", false)
	if err != nil {
		return err
	}

	environ := c.environ
	if environ == nil {
		environ = os.Environ
	}

	vars := make(map[string]string)
	for _, e := range environ() {
		name, value, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		if strip {
			name = strings.TrimPrefix(name, prefix)
		}
		if name != "" {
			vars[name] = value
		}
	}

	c.mu.Lock()
	c.vars = vars
	c.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Captured environment.", "prefix", prefix, "count", len(vars))
	return nil
}

// Disable drops the snapshot.
func (c *Controller) Disable(context.Context) error {
	c.mu.Lock()
	c.vars = nil
	c.mu.Unlock()
	return nil
}

func ptr(s string) *string { return &s }
