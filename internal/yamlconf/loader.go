// Package yamlconf provides the YAML implementation of config.Loader.
//
//	services:
//	  - id: cache
//	    type: redis_client
//	    state: ENABLED
//	    properties:
//	      address: localhost:6379
//	      ssl_context: ~
//
// Property order follows the document. A null value unsets the property.
package yamlconf

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/svcgrid/internal/config"
	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML descriptor loader.
func NewLoader() *Loader {
	return &Loader{}
}

type fileRoot struct {
	Services []serviceEntry `yaml:"services"`
}

type serviceEntry struct {
	ID         string    `yaml:"id"`
	Type       string    `yaml:"type"`
	Name       string    `yaml:"name"`
	State      string    `yaml:"state"`
	Comments   string    `yaml:"comments"`
	Properties yaml.Node `yaml:"properties"`
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, files ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &config.Model{}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read YAML file %s: %w", file, err)
		}

		var root fileRoot
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("failed to parse YAML file %s: %w", file, err)
		}

		for _, entry := range root.Services {
			props, err := properties(&entry.Properties)
			if err != nil {
				return nil, fmt.Errorf("%s: service '%s': %w", file, entry.ID, err)
			}
			model.Services = append(model.Services, &config.ServiceDescriptor{
				ID:         entry.ID,
				Type:       entry.Type,
				Name:       entry.Name,
				State:      entry.State,
				Comments:   entry.Comments,
				Properties: props,
				Source:     file,
			})
		}
		logger.Debug("Loaded YAML file.", "file", file, "services", len(root.Services))
	}

	return model, nil
}

// properties walks the mapping node pairwise so document order survives.
func properties(n *yaml.Node) ([]config.Property, error) {
	switch {
	case n.Kind == 0, n.Tag == "!!null":
		return nil, nil
	case n.Kind != yaml.MappingNode:
		return nil, fmt.Errorf("properties must be a mapping (line %d)", n.Line)
	}

	out := make([]config.Property, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("property '%s' must be a scalar (line %d)", key.Value, value.Line)
		}
		p := config.Property{Name: key.Value}
		if value.Tag != "!!null" {
			v := value.Value
			p.Value = &v
		}
		out = append(out, p)
	}
	return out, nil
}
