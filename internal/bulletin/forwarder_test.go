package bulletin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingEmitter records bulletins and holds the forwarding loop until
// release is closed.
type blockingEmitter struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu          sync.Mutex
	emitted     []string
	disconnects int
}

func newBlockingEmitter() *blockingEmitter {
	return &blockingEmitter{started: make(chan struct{}), release: make(chan struct{})}
}

func (e *blockingEmitter) emit(b Bulletin) {
	e.once.Do(func() { close(e.started) })
	<-e.release
	e.mu.Lock()
	e.emitted = append(e.emitted, b.Message)
	e.mu.Unlock()
}

func (e *blockingEmitter) disconnect() {
	e.mu.Lock()
	e.disconnects++
	e.mu.Unlock()
}

func TestForwarder_DropsWhenBufferFull(t *testing.T) {
	e := newBlockingEmitter()
	f := newForwarder(1, e.emit, e.disconnect)

	f.Report(CategoryControllerService, Error, "first")
	select {
	case <-e.started:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarding loop never picked up the first bulletin")
	}

	f.Report(CategoryControllerService, Error, "queued")
	f.Report(CategoryControllerService, Error, "overflow")
	assert.Equal(t, int64(1), f.Dropped())

	close(e.release)
	f.Close()

	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Equal(t, []string{"first", "queued"}, e.emitted, "Close flushes what was queued")
	assert.Equal(t, 1, e.disconnects)
}

func TestForwarder_Close(t *testing.T) {
	e := newBlockingEmitter()
	close(e.release)
	f := newForwarder(4, e.emit, e.disconnect)

	f.Close()
	f.Close()
	f.Report(CategoryControllerService, Warning, "late")

	assert.Equal(t, int64(1), f.Dropped(), "bulletins after Close are dropped")
	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Empty(t, e.emitted)
	assert.Equal(t, 1, e.disconnects, "Close is idempotent")
}

func TestNewForwarder(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		_, err := NewForwarder(context.Background(), ForwarderConfig{URL: "://nope"})
		require.Error(t, err)
	})

	t.Run("unreachable endpoint never blocks reporters", func(t *testing.T) {
		f, err := NewForwarder(context.Background(), ForwarderConfig{URL: "http://127.0.0.1:1", Buffer: 2})
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			f.Report(CategoryControllerService, Error, "unreachable")
		}

		closed := make(chan struct{})
		go func() {
			f.Close()
			close(closed)
		}()
		select {
		case <-closed:
		case <-time.After(5 * time.Second):
			t.Fatal("Close did not return")
		}
		before := f.Dropped()
		f.Report(CategoryControllerService, Error, "after close")
		assert.Equal(t, before+1, f.Dropped())
	})
}
