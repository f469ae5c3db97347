package sse

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fabtrack/internal/core/domain"
)

func TestConn_SendNeverBlocks(t *testing.T) {
	c := NewConn(context.Background(), "user-1", 2)

	require.NoError(t, c.Send([]byte("one")))
	require.NoError(t, c.Send([]byte("two")))

	// buffer full and nobody draining: fail fast instead of blocking
	err := c.Send([]byte("three"))
	assert.ErrorIs(t, err, domain.ErrSlowConsumer)
}

func TestConn_SendAfterClose(t *testing.T) {
	// Repeated because a buffered-send case racing the closed context in
	// one select would only fail intermittently.
	for i := 0; i < 500; i++ {
		c := NewConn(context.Background(), "user-1", 2)
		require.NoError(t, c.Close())

		err := c.Send([]byte("late"))
		require.ErrorIs(t, err, domain.ErrConnectionClosed, "iteration %d", i)
		assert.Empty(t, c.out)
	}
}

func TestConn_CloseIdempotent(t *testing.T) {
	c := NewConn(context.Background(), "user-1", 2)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not signalled after Close")
	}
}

// syncWriter is a ResponseWriter safe to inspect while Serve writes.
type syncWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	flushed bool
}

func (w *syncWriter) Header() http.Header { return http.Header{} }
func (w *syncWriter) WriteHeader(int)     {}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushed = true
}

func (w *syncWriter) snapshot() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String(), w.flushed
}

func TestConn_ServeDrainsFrames(t *testing.T) {
	c := NewConn(context.Background(), "user-1", 8)
	require.NoError(t, c.Send([]byte("event: heartbeat\ndata: {}\n\n")))
	require.NoError(t, c.Send([]byte("event: project-created\ndata: {}\n\n")))

	w := &syncWriter{}
	done := make(chan error, 1)
	go func() { done <- c.Serve(w, w) }()

	assert.Eventually(t, func() bool {
		body, flushed := w.snapshot()
		return flushed &&
			strings.Contains(body, "event: heartbeat\ndata: {}\n\n") &&
			strings.Contains(body, "event: project-created\ndata: {}\n\n")
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, <-done)
}

func TestConn_ServeStopsWhenParentEnds(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	c := NewConn(parent, "user-1", 2)

	rec := httptest.NewRecorder()
	done := make(chan error, 1)
	go func() { done <- c.Serve(rec, rec) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after parent context ended")
	}
}
