package provider

import (
	"fmt"

	"github.com/specialistvlad/svcgrid/internal/graph"
	"github.com/specialistvlad/svcgrid/internal/node"
)

// configContext is the registry.ConfigurationContext handed to controllers.
type configContext struct {
	node  *node.Node
	graph *graph.Graph
}

func (c *configContext) Property(name string) (string, bool) {
	return c.node.Property(name)
}

func (c *configContext) Service(property string) (any, error) {
	id, isRef := graph.ReferenceOf(c.node, property)
	if !isRef {
		return nil, fmt.Errorf("property '%s' is not a service reference", property)
	}
	if id == "" {
		return nil, nil
	}

	target := c.graph.Lookup(id)
	if target == nil {
		return nil, fmt.Errorf("property '%s' references unknown service '%s'", property, id)
	}
	if target.State() != node.Enabled {
		return nil, fmt.Errorf("referenced service %s is %s", target, target.State())
	}
	return target.Implementation(), nil
}
