package bulletin

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the socket.io event bulletins are emitted under.
const EventName = "bulletin"

// ForwarderConfig configures a Forwarder.
type ForwarderConfig struct {
	URL                string
	Namespace          string
	Buffer             int
	InsecureSkipVerify bool
}

// Forwarder is a Sink that emits every bulletin to a socket.io endpoint. It
// never blocks the reporter: when its buffer is full the bulletin is dropped
// and counted.
type Forwarder struct {
	events     chan Bulletin
	emit       func(Bulletin)
	disconnect func()
	done       chan struct{}
	dropped    atomic.Int64

	mu     sync.RWMutex
	closed bool
}

func newForwarder(buffer int, emit func(Bulletin), disconnect func()) *Forwarder {
	f := &Forwarder{
		events:     make(chan Bulletin, buffer),
		emit:       emit,
		disconnect: disconnect,
		done:       make(chan struct{}),
	}
	go f.loop()
	return f
}

// NewForwarder connects to cfg.URL in the background and starts forwarding.
func NewForwarder(ctx context.Context, cfg ForwarderConfig) (*Forwarder, error) {
	logger := ctxlog.FromContext(ctx).With("component", "bulletin_forwarder", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bulletin URL: %w", err)
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "/"
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Bulletin forwarder connected", "namespace", cfg.Namespace, "sid", io.Id())
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		logger.Warn("Bulletin forwarder failed to connect", "error", fmt.Sprint(errs...))
	})

	f := newForwarder(cfg.Buffer,
		func(b Bulletin) {
			if err := io.Emit(EventName, payload(b)); err != nil {
				logger.Debug("Failed to emit bulletin", "id", b.ID, "error", err)
			}
		},
		func() { io.Disconnect() },
	)

	io.Connect()
	return f, nil
}

// Report implements Sink.
func (f *Forwarder) Report(category string, severity Severity, message string) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		f.dropped.Add(1)
		return
	}
	select {
	case f.events <- New(category, severity, message):
	default:
		f.dropped.Add(1)
	}
}

// Dropped returns how many bulletins were discarded.
func (f *Forwarder) Dropped() int64 {
	return f.dropped.Load()
}

// Close flushes queued bulletins and disconnects.
func (f *Forwarder) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	close(f.events)
	f.mu.Unlock()

	<-f.done
	f.disconnect()
}

func (f *Forwarder) loop() {
	defer close(f.done)
	for b := range f.events {
		f.emit(b)
	}
}

func payload(b Bulletin) map[string]any {
	return map[string]any{
		"id":        b.ID,
		"timestamp": b.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"category":  b.Category,
		"severity":  string(b.Severity),
		"message":   b.Message,
	}
}
