package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/svcgrid/internal/ctxlog"
)

// ValidateRegistry checks that every registered type is internally
// consistent and that reference properties name types that exist.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Types() {
		t := r.types[name]
		if t.New == nil {
			errs = append(errs, fmt.Sprintf("service type '%s': no controller constructor", name))
		}

		seen := make(map[string]struct{}, len(t.Properties))
		for _, p := range t.Properties {
			if p == nil || p.Name == "" {
				errs = append(errs, fmt.Sprintf("service type '%s': property with empty name", name))
				continue
			}
			if _, dup := seen[p.Name]; dup {
				errs = append(errs, fmt.Sprintf("service type '%s': property '%s' declared twice", name, p.Name))
			}
			seen[p.Name] = struct{}{}

			if p.IsReference() {
				if _, ok := r.types[p.ServiceType]; !ok {
					errs = append(errs, fmt.Sprintf("service type '%s', property '%s': references unknown service type '%s'", name, p.Name, p.ServiceType))
				}
				if p.Default != nil {
					logger.Warn("Reference property declares a default identifier, which ties the type to a specific flow.", "type", name, "property", p.Name)
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validated.", "types", len(r.types))
	return nil
}
