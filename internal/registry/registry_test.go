package registry

import (
	"context"
	"testing"

	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopController struct{}

func (noopController) Enable(context.Context, ConfigurationContext) error { return nil }
func (noopController) Disable(context.Context) error                      { return nil }

func newNoop() Controller { return noopController{} }

type moduleFunc func(r *Registry)

func (f moduleFunc) Register(r *Registry) { f(r) }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()
	r.Register(moduleFunc(func(r *Registry) {
		r.RegisterServiceType("zeta", &RegisteredType{New: newNoop})
		r.RegisterServiceType("alpha", &RegisteredType{New: newNoop})
	}))

	_, ok := r.Lookup("alpha")
	assert.True(t, ok)
	_, ok = r.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"alpha", "zeta"}, r.Types())

	assert.PanicsWithValue(t, "service type 'alpha' already registered", func() {
		r.RegisterServiceType("alpha", &RegisteredType{New: newNoop})
	})
}

func TestValidateRegistry(t *testing.T) {
	testCases := []struct {
		name        string
		types       map[string]*RegisteredType
		expectedErr []string
	}{
		{
			name: "valid reference",
			types: map[string]*RegisteredType{
				"tls": {New: newNoop},
				"client": {New: newNoop, Properties: []*node.PropertyDescriptor{
					{Name: "ssl", ServiceType: "tls"},
					{Name: "url", Required: true},
				}},
			},
		},
		{
			name: "unknown reference type",
			types: map[string]*RegisteredType{
				"client": {New: newNoop, Properties: []*node.PropertyDescriptor{{Name: "ssl", ServiceType: "tls"}}},
			},
			expectedErr: []string{"references unknown service type 'tls'"},
		},
		{
			name: "duplicate property and missing constructor",
			types: map[string]*RegisteredType{
				"client": {Properties: []*node.PropertyDescriptor{{Name: "url"}, {Name: "url"}}},
			},
			expectedErr: []string{"no controller constructor", "property 'url' declared twice"},
		},
		{
			name: "empty property name",
			types: map[string]*RegisteredType{
				"client": {New: newNoop, Properties: []*node.PropertyDescriptor{{}}},
			},
			expectedErr: []string{"property with empty name"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := New()
			for name, typ := range tc.types {
				r.RegisterServiceType(name, typ)
			}

			err := r.ValidateRegistry(context.Background())
			if len(tc.expectedErr) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "registry validation failed")
			for _, want := range tc.expectedErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
