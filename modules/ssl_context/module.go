// Package ssl_context provides a service that builds a TLS configuration
// other services reference through their ssl_context property.
package ssl_context

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/specialistvlad/svcgrid/internal/props"
	"github.com/specialistvlad/svcgrid/internal/registry"
)

// TypeName is the service type registered by this module.
const TypeName = "ssl_context"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the ssl_context service type.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterServiceType(TypeName, &registry.RegisteredType{
		Description: "TLS settings built from PEM files.",
		Properties: []*node.PropertyDescriptor{
			{Name: "ca_file", Description: "PEM bundle of trusted CAs; the system pool is used when unset."},
			{Name: "cert_file", Description: "PEM client certificate."},
			{Name: "key_file", Description: "PEM private key for cert_file."},
			{Name: "server_name", Description: "Overrides the server name used for verification."},
			{Name: "min_version", Description: "Minimum TLS version, 1.2 or 1.3.", Default: ptr("1.2")},
			{Name: "insecure_skip_verify", Description: "Disables certificate verification.", Default: ptr("false")},
		},
		New: func() registry.Controller { return &Controller{} },
	})
}

// TLSProvider is implemented by services that can be referenced through an
// ssl_context property.
type TLSProvider interface {
	TLSConfig() *tls.Config
}

var _ TLSProvider = (*Controller)(nil)

// Controller holds the TLS configuration once enabled.
type Controller struct {
	mu  sync.RWMutex
	cfg *tls.Config
}

// TLSConfig returns a clone of the configuration, or nil before Enable.
func (c *Controller) TLSConfig() *tls.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cfg == nil {
		return nil
	}
	return c.cfg.Clone()
}

// Enable loads the configured certificate material.
func (c *Controller) Enable(ctx context.Context, cfg registry.ConfigurationContext) error {
	logger := ctxlog.FromContext(ctx)

	tlsCfg := &tls.Config{ServerName: props.String(cfg, "server_name", "")}

	switch v := props.String(cfg, "min_version", "1.2"); v {
	case "1.2":
		tlsCfg.MinVersion = tls.VersionTLS12
	case "1.3":
		tlsCfg.MinVersion = tls.VersionTLS13
	default:
		return fmt.Errorf("property 'min_version': unsupported TLS version %q", v)
	}

	insecure, err := props.Bool(cfg, "insecure_skip_verify", false)
	if err != nil {
		return err
	}
	if insecure {
		logger.Warn("Skipping TLS certificate verification.")
		tlsCfg.InsecureSkipVerify = true
	}

	if caFile := props.String(cfg, "ca_file", ""); caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return fmt.Errorf("no certificates found in CA file %s", caFile)
		}
		tlsCfg.RootCAs = pool
	}

	certFile, keyFile := props.String(cfg, "cert_file", ""), props.String(cfg, "key_file", "")
	switch {
	case certFile != "" && keyFile != "":
		pair, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{pair}
	case certFile != "" || keyFile != "":
		return errors.New("cert_file and key_file must be set together")
	}

	c.mu.Lock()
	c.cfg = tlsCfg
	c.mu.Unlock()
	logger.Debug("TLS context ready.", "client_cert", certFile != "", "custom_ca", tlsCfg.RootCAs != nil)
	return nil
}

// Disable drops the configuration.
func (c *Controller) Disable(context.Context) error {
	c.mu.Lock()
	c.cfg = nil
	c.mu.Unlock()
	return nil
}

func ptr(s string) *string { return &s }
