// Package kafka_producer provides a Kafka producer service.
package kafka_producer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/specialistvlad/svcgrid/internal/props"
	"github.com/specialistvlad/svcgrid/internal/registry"
)

// TypeName is the service type registered by this module.
const TypeName = "kafka_producer"

const flushTimeout = 5 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kafka_producer service type.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterServiceType(TypeName, &registry.RegisteredType{
		Description: "Kafka producer, verified by fetching cluster metadata when enabled.",
		Properties: []*node.PropertyDescriptor{
			{Name: "bootstrap_servers", Description: "Comma separated host:port list.", Required: true},
			{Name: "client_id", Default: ptr("svcgrid")},
			{Name: "acks", Description: "0, 1 or all.", Default: ptr("all")},
			{Name: "compression", Description: "none, gzip, snappy, lz4 or zstd.", Default: ptr("none")},
			{Name: "metadata_timeout", Description: "How long Enable waits for the cluster.", Default: ptr("10s")},
		},
		New: func() registry.Controller { return &Controller{} },
	})
}

// Controller owns the producer once enabled.
type Controller struct {
	mu       sync.RWMutex
	producer *kafka.Producer
	done     chan struct{}
}

// Producer returns the live producer, or nil while disabled.
func (c *Controller) Producer() *kafka.Producer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.producer
}

// Produce queues a message for asynchronous delivery. Delivery failures are
// logged by the controller.
func (c *Controller) Produce(topic string, key, value []byte) error {
	p := c.Producer()
	if p == nil {
		return fmt.Errorf("%s is not enabled", TypeName)
	}
	return p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}, nil)
}

// configMap translates service properties to librdkafka settings.
func configMap(cfg registry.ConfigurationContext) (*kafka.ConfigMap, time.Duration, error) {
	servers, err := props.Required(cfg, "bootstrap_servers")
	if err != nil {
		return nil, 0, err
	}
	timeout, err := props.Duration(cfg, "metadata_timeout", 10*time.Second)
	if err != nil {
		return nil, 0, err
	}

	acks := props.String(cfg, "acks", "all")
	switch acks {
	case "0", "1", "all":
	default:
		return nil, 0, fmt.Errorf("property 'acks': unsupported value %q", acks)
	}

	compression := props.String(cfg, "compression", "none")
	switch compression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return nil, 0, fmt.Errorf("property 'compression': unsupported codec %q", compression)
	}

	return &kafka.ConfigMap{
		"bootstrap.servers": servers,
		"client.id":         props.String(cfg, "client_id", "svcgrid"),
		"acks":              acks,
		"compression.type":  compression,
	}, timeout, nil
}

// Enable creates the producer and waits for cluster metadata.
func (c *Controller) Enable(ctx context.Context, cfg registry.ConfigurationContext) error {
	logger := ctxlog.FromContext(ctx)

	cm, timeout, err := configMap(cfg)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	producer, err := kafka.NewProducer(cm)
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	md, err := producer.GetMetadata(nil, false, int(timeout.Milliseconds()))
	if err != nil {
		producer.Close()
		return fmt.Errorf("failed to reach Kafka cluster: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range producer.Events() {
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				logger.Error("Kafka delivery failed.", "topic", *m.TopicPartition.Topic, "error", m.TopicPartition.Error)
			}
		}
	}()

	c.mu.Lock()
	c.producer = producer
	c.done = done
	c.mu.Unlock()
	logger.Info("Connected to Kafka.", "brokers", len(md.Brokers), "topics", len(md.Topics))
	return nil
}

// Disable flushes outstanding messages and closes the producer.
func (c *Controller) Disable(ctx context.Context) error {
	c.mu.Lock()
	producer, done := c.producer, c.done
	c.producer, c.done = nil, nil
	c.mu.Unlock()

	if producer == nil {
		return nil
	}
	if remaining := producer.Flush(int(flushTimeout.Milliseconds())); remaining > 0 {
		ctxlog.FromContext(ctx).Warn("Kafka producer closed with undelivered messages.", "remaining", remaining)
	}
	producer.Close()
	<-done
	return nil
}

func ptr(s string) *string { return &s }
