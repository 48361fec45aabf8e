package testutil

import "fmt"

// Config is an in-memory registry.ConfigurationContext for controller tests.
type Config struct {
	Props    map[string]string
	Services map[string]any
}

// Property implements registry.ConfigurationContext.
func (c *Config) Property(name string) (string, bool) {
	v, ok := c.Props[name]
	return v, ok
}

// Service implements registry.ConfigurationContext.
func (c *Config) Service(property string) (any, error) {
	svc, ok := c.Services[property]
	if !ok {
		return nil, nil
	}
	if err, isErr := svc.(error); isErr {
		return nil, fmt.Errorf("property '%s': %w", property, err)
	}
	return svc, nil
}
