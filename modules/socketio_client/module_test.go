package socketio_client

import (
	"context"
	"crypto/tls"
	"testing"

	"github.com/specialistvlad/svcgrid/internal/registry"
	"github.com/specialistvlad/svcgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTLS struct{ cfg *tls.Config }

func (s staticTLS) TLSConfig() *tls.Config { return s.cfg }

func TestRegister(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)
	_, ok := r.Lookup(TypeName)
	assert.True(t, ok)
}

func TestTLSConfig(t *testing.T) {
	cfg, err := tlsConfig(&testutil.Config{})
	require.NoError(t, err)
	assert.Nil(t, cfg)

	want := &tls.Config{}
	cfg, err = tlsConfig(&testutil.Config{Services: map[string]any{"ssl_context": staticTLS{cfg: want}}})
	require.NoError(t, err)
	assert.Same(t, want, cfg)

	_, err = tlsConfig(&testutil.Config{Services: map[string]any{"ssl_context": struct{}{}}})
	assert.Error(t, err)
}

func TestController_EnableRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	errorCases := map[string]map[string]string{
		"missing url":     {},
		"relative url":    {"url": "/socket.io"},
		"unparseable url": {"url": "http://[::1"},
		"bad timeout":     {"url": "http://localhost:1", "connect_timeout": "later"},
		"insecure flag":   {"url": "http://localhost:1", "insecure_skip_verify": "sure"},
	}
	for name, p := range errorCases {
		t.Run(name, func(t *testing.T) {
			c := &Controller{}
			assert.Error(t, c.Enable(ctx, &testutil.Config{Props: p}))
			assert.Nil(t, c.Socket())
		})
	}
	assert.NoError(t, (&Controller{}).Disable(ctx))
}
