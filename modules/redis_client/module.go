// Package redis_client provides a Redis connection service.
package redis_client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/specialistvlad/svcgrid/internal/props"
	"github.com/specialistvlad/svcgrid/internal/registry"
	"github.com/specialistvlad/svcgrid/modules/ssl_context"
)

// TypeName is the service type registered by this module.
const TypeName = "redis_client"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the redis_client service type.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterServiceType(TypeName, &registry.RegisteredType{
		Description: "Redis client, verified with PING when enabled.",
		Properties: []*node.PropertyDescriptor{
			{Name: "address", Description: "host:port of the Redis server.", Required: true},
			{Name: "username"},
			{Name: "password"},
			{Name: "db", Description: "Database index.", Default: ptr("0")},
			{Name: "dial_timeout", Default: ptr("5s")},
			{Name: "pool_size", Description: "Connections per CPU when 0.", Default: ptr("0")},
			{Name: "ssl_context", Description: "TLS settings for the connection.", ServiceType: "ssl_context"},
		},
		New: func() registry.Controller { return &Controller{} },
	})
}

// Controller owns the Redis client once enabled.
type Controller struct {
	mu     sync.RWMutex
	client *redis.Client
}

// Client returns the live client, or nil while disabled.
func (c *Controller) Client() *redis.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Enable connects and pings the server.
func (c *Controller) Enable(ctx context.Context, cfg registry.ConfigurationContext) error {
	logger := ctxlog.FromContext(ctx)

	opts, err := options(cfg)
	if err != nil {
		return err
	}

	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	logger.Info("Connected to Redis.", "address", opts.Addr, "db", opts.DB, "tls", opts.TLSConfig != nil)
	return nil
}

func options(cfg registry.ConfigurationContext) (*redis.Options, error) {
	addr, err := props.Required(cfg, "address")
	if err != nil {
		return nil, err
	}
	db, err := props.Int(cfg, "db", 0)
	if err != nil {
		return nil, err
	}
	dialTimeout, err := props.Duration(cfg, "dial_timeout", 5*time.Second)
	if err != nil {
		return nil, err
	}
	poolSize, err := props.Int(cfg, "pool_size", 0)
	if err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Addr:        addr,
		Username:    props.String(cfg, "username", ""),
		Password:    props.String(cfg, "password", ""),
		DB:          db,
		DialTimeout: dialTimeout,
		PoolSize:    poolSize,
		MaxRetries:  -1,
	}

	svc, err := cfg.Service("ssl_context")
	if err != nil {
		return nil, err
	}
	if svc != nil {
		tp, ok := svc.(ssl_context.TLSProvider)
		if !ok {
			return nil, fmt.Errorf("ssl_context service of type %T does not provide a TLS configuration", svc)
		}
		opts.TLSConfig = tp.TLSConfig()
	}
	return opts, nil
}

// Disable closes the client.
func (c *Controller) Disable(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func ptr(s string) *string { return &s }
