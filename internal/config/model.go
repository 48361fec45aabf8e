package config

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/svcgrid/internal/node"
)

// Model is the unified, format-agnostic representation of every service
// descriptor loaded from all sources.
type Model struct {
	Services []*ServiceDescriptor
}

// ServiceDescriptor describes one service as written by the user.
type ServiceDescriptor struct {
	ID       string
	Type     string
	Name     string
	Comments string
	// State is the persisted state; "ENABLED" marks the service for
	// automatic resumption on load.
	State      string
	Properties []Property
	// Source names the file the descriptor came from, for error messages.
	Source string
}

// Property is one configured property. A nil Value explicitly unsets it.
type Property struct {
	Name  string
	Value *string
}

// Merge appends the services of other to m.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	m.Services = append(m.Services, other.Services...)
}

// Validate checks the model as a whole: identifiers and types are present,
// identifiers are unique across all sources and states are recognised.
func (m *Model) Validate() error {
	var errs []string
	seen := make(map[string]*ServiceDescriptor, len(m.Services))

	for i, s := range m.Services {
		where := s.Source
		if where == "" {
			where = fmt.Sprintf("service #%d", i)
		}
		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("%s: service of type '%s' has no id", where, s.Type))
			continue
		}
		if s.Type == "" {
			errs = append(errs, fmt.Sprintf("%s: service '%s' has no type", where, s.ID))
		}
		if prev, dup := seen[s.ID]; dup {
			errs = append(errs, fmt.Sprintf("%s: service '%s' already declared in %s", where, s.ID, prev.Source))
			continue
		}
		seen[s.ID] = s

		if _, err := node.ParseState(s.State); err != nil {
			errs = append(errs, fmt.Sprintf("%s: service '%s': %v", where, s.ID, err))
		}
		props := make(map[string]struct{}, len(s.Properties))
		for _, p := range s.Properties {
			if _, dup := props[p.Name]; dup {
				errs = append(errs, fmt.Sprintf("%s: service '%s': property '%s' set twice", where, s.ID, p.Name))
			}
			props[p.Name] = struct{}{}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("service configuration is invalid:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// StringPtr is a convenience for building property values.
func StringPtr(s string) *string {
	return &s
}
