// Package socketio_client provides a service holding a connected socket.io
// client.
package socketio_client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/specialistvlad/svcgrid/internal/props"
	"github.com/specialistvlad/svcgrid/internal/registry"
	"github.com/specialistvlad/svcgrid/modules/ssl_context"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// TypeName is the service type registered by this module.
const TypeName = "socketio_client"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the socketio_client service type.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterServiceType(TypeName, &registry.RegisteredType{
		Description: "socket.io client connected over WebSocket.",
		Properties: []*node.PropertyDescriptor{
			{Name: "url", Description: "Server URL; its path is used as the socket.io path.", Required: true},
			{Name: "namespace", Default: ptr("/")},
			{Name: "connect_timeout", Default: ptr("15s")},
			{Name: "insecure_skip_verify", Default: ptr("false")},
			{Name: "ssl_context", Description: "TLS settings for wss:// URLs.", ServiceType: "ssl_context"},
		},
		New: func() registry.Controller { return &Controller{} },
	})
}

// Controller owns the socket once enabled.
type Controller struct {
	mu     sync.RWMutex
	socket *socket.Socket
}

// Socket returns the connected socket, or nil while disabled.
func (c *Controller) Socket() *socket.Socket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.socket
}

// Enable connects and waits for the server to accept the namespace.
func (c *Controller) Enable(ctx context.Context, cfg registry.ConfigurationContext) error {
	rawURL, err := props.Required(cfg, "url")
	if err != nil {
		return err
	}
	namespace := props.String(cfg, "namespace", "/")
	timeout, err := props.Duration(cfg, "connect_timeout", 15*time.Second)
	if err != nil {
		return err
	}
	insecure, err := props.Bool(cfg, "insecure_skip_verify", false)
	if err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx).With("url", rawURL, "namespace", namespace)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("URL %q must be absolute", rawURL)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	tlsCfg, err := tlsConfig(cfg)
	if err != nil {
		return err
	}
	if insecure {
		logger.Warn("Skipping TLS certificate verification.")
		if tlsCfg == nil {
			tlsCfg = &tls.Config{}
		}
		tlsCfg.InsecureSkipVerify = true
	}
	if tlsCfg != nil {
		opts.SetTLSClientConfig(tlsCfg)
	}

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})

	logger.Debug("Initiating connection...")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	c.mu.Lock()
	c.socket = io
	c.mu.Unlock()
	logger.Info("Successfully connected.", "sid", io.Id())
	return nil
}

func tlsConfig(cfg registry.ConfigurationContext) (*tls.Config, error) {
	svc, err := cfg.Service("ssl_context")
	if err != nil || svc == nil {
		return nil, err
	}
	tp, ok := svc.(ssl_context.TLSProvider)
	if !ok {
		return nil, fmt.Errorf("ssl_context service of type %T does not provide a TLS configuration", svc)
	}
	return tp.TLSConfig(), nil
}

// Disable disconnects the socket.
func (c *Controller) Disable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.socket == nil {
		return nil
	}
	ctxlog.FromContext(ctx).Info("Disconnecting socket.io client.", "sid", c.socket.Id())
	c.socket.Disconnect()
	c.socket = nil
	return nil
}

func ptr(s string) *string { return &s }
