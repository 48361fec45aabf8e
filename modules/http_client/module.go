// Package http_client provides a shareable HTTP client service.
package http_client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/specialistvlad/svcgrid/internal/props"
	"github.com/specialistvlad/svcgrid/internal/registry"
	"github.com/specialistvlad/svcgrid/modules/ssl_context"
)

// TypeName is the service type registered by this module.
const TypeName = "http_client"

// Module implements the registry.Module interface. It's the main entrypoint
// for the http_client module.
type Module struct{}

// Register registers the http_client service type.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterServiceType(TypeName, &registry.RegisteredType{
		Description: "Pooled HTTP client.",
		Properties: []*node.PropertyDescriptor{
			{Name: "timeout", Description: "Total request timeout.", Default: ptr("30s")},
			{Name: "max_idle_conns", Description: "Idle connections kept across all hosts.", Default: ptr("100")},
			{Name: "max_idle_conns_per_host", Default: ptr("10")},
			{Name: "health_url", Description: "When set, Enable fails unless a GET to this URL succeeds."},
			{Name: "ssl_context", Description: "TLS settings for HTTPS requests.", ServiceType: "ssl_context"},
		},
		New: func() registry.Controller { return &Controller{} },
	})
}

// Controller owns the client once enabled.
type Controller struct {
	mu     sync.RWMutex
	client *http.Client
}

// Client returns the live client, or nil while disabled.
func (c *Controller) Client() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Enable builds the client and optionally probes health_url.
func (c *Controller) Enable(ctx context.Context, cfg registry.ConfigurationContext) error {
	timeout, err := props.Duration(cfg, "timeout", 30*time.Second)
	if err != nil {
		return err
	}
	maxIdle, err := props.Int(cfg, "max_idle_conns", 100)
	if err != nil {
		return err
	}
	maxIdlePerHost, err := props.Int(cfg, "max_idle_conns_per_host", 10)
	if err != nil {
		return err
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxIdle,
		MaxIdleConnsPerHost: maxIdlePerHost,
		IdleConnTimeout:     90 * time.Second,
	}

	svc, err := cfg.Service("ssl_context")
	if err != nil {
		return err
	}
	if svc != nil {
		tp, ok := svc.(ssl_context.TLSProvider)
		if !ok {
			return fmt.Errorf("ssl_context service of type %T does not provide a TLS configuration", svc)
		}
		transport.TLSClientConfig = tp.TLSConfig()
	}

	client := &http.Client{Timeout: timeout, Transport: transport}

	if healthURL := props.String(cfg, "health_url", ""); healthURL != "" {
		if err := probe(ctx, client, healthURL); err != nil {
			client.CloseIdleConnections()
			return err
		}
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("HTTP client ready.", "timeout", timeout, "tls", transport.TLSClientConfig != nil)
	return nil
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("health check failed: %s returned %s", url, resp.Status)
	}
	return nil
}

// Disable gracefully closes any idle connections.
func (c *Controller) Disable(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.CloseIdleConnections()
		c.client = nil
	}
	return nil
}

func ptr(s string) *string { return &s }
