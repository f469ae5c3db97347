package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fabtrack/internal/app/registry"
	"fabtrack/internal/core/domain"
)

type mockConn struct {
	userID string

	mu         sync.Mutex
	received   [][]byte
	closed     bool
	sendErr    error
	blockClose chan struct{}
}

func (m *mockConn) UserID() string { return m.userID }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) Close() error {
	if m.blockClose != nil {
		<-m.blockClose
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) frames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.received))
	for i, f := range m.received {
		out[i] = string(f)
	}
	return out
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) (*Hub, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	h := New(testLogger(), reg)
	h.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		h.Shutdown(ctx)
	})
	return h, reg
}

func TestHub_BroadcastExcludesActor(t *testing.T) {
	h, reg := startHub(t)

	actor1 := &mockConn{userID: "actor"}
	actor2 := &mockConn{userID: "actor"}
	other := &mockConn{userID: "other"}
	reg.Register("actor", actor1)
	reg.Register("actor", actor2)
	reg.Register("other", other)

	sent, err := h.Broadcast(domain.EventProjectCreated, map[string]string{"projectId": "p1"}, "actor")
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Empty(t, actor1.frames())
	assert.Empty(t, actor2.frames())
	assert.Len(t, other.frames(), 1)
}

func TestHub_BroadcastDropsFailedConnection(t *testing.T) {
	h, reg := startHub(t)

	healthy := &mockConn{userID: "user-1"}
	broken := &mockConn{userID: "user-2", sendErr: errors.New("write: broken pipe")}
	reg.Register("user-1", healthy)
	reg.Register("user-2", broken)

	sent, err := h.Broadcast(domain.EventProjectUpdated, map[string]string{"projectId": "p1"}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.True(t, broken.isClosed())
	assert.Equal(t, 1, reg.TotalConnections())

	// the dropped connection stays gone on the next broadcast
	sent, err = h.Broadcast(domain.EventProjectUpdated, map[string]string{"projectId": "p1"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestHub_SendToUser(t *testing.T) {
	h, reg := startHub(t)

	c1 := &mockConn{userID: "user-1"}
	c2 := &mockConn{userID: "user-1", sendErr: errors.New("write: broken pipe")}
	c3 := &mockConn{userID: "user-1"}
	other := &mockConn{userID: "user-2"}
	reg.Register("user-1", c1)
	reg.Register("user-1", c2)
	reg.Register("user-1", c3)
	reg.Register("user-2", other)

	delivered, err := h.SendToUser("user-1", domain.EventHeartbeat, nil)
	require.NoError(t, err)

	assert.True(t, delivered)
	assert.Len(t, c1.frames(), 1)
	assert.Len(t, c3.frames(), 1)
	assert.Empty(t, other.frames())
	assert.True(t, c2.isClosed())
	assert.Len(t, reg.UserConnections("user-1"), 2)
}

func TestHub_SendToUserNoConnections(t *testing.T) {
	h, _ := startHub(t)

	delivered, err := h.SendToUser("ghost", domain.EventHeartbeat, nil)
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestHub_UnserializablePayload(t *testing.T) {
	h, reg := startHub(t)
	conn := &mockConn{userID: "user-1"}
	reg.Register("user-1", conn)

	_, err := h.Broadcast(domain.EventProjectCreated, make(chan int), "")
	require.Error(t, err)
	assert.Empty(t, conn.frames())
}

func TestHub_AllConnectionsSeeSameOrder(t *testing.T) {
	h, reg := startHub(t)

	c1 := &mockConn{userID: "user-1"}
	c2 := &mockConn{userID: "user-2"}
	reg.Register("user-1", c1)
	reg.Register("user-2", c2)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, err := h.Broadcast(domain.EventProjectUpdated,
					map[string]string{"projectId": fmt.Sprintf("g%d-%d", g, i)}, "")
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()

	require.Len(t, c1.frames(), 40)
	assert.Equal(t, c1.frames(), c2.frames())
}

func TestHub_BroadcastAfterShutdown(t *testing.T) {
	reg := registry.New()
	h := New(testLogger(), reg)
	h.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.Shutdown(ctx)

	_, err := h.Broadcast(domain.EventProjectCreated, nil, "")
	assert.ErrorIs(t, err, domain.ErrHubStopped)

	_, err = h.SendToUser("user-1", domain.EventHeartbeat, nil)
	assert.ErrorIs(t, err, domain.ErrHubStopped)
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	reg := registry.New()
	h := New(testLogger(), reg)
	h.Start()

	c1 := &mockConn{userID: "user-1"}
	c2 := &mockConn{userID: "user-2"}
	reg.Register("user-1", c1)
	reg.Register("user-2", c2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.Shutdown(ctx)

	assert.True(t, c1.isClosed())
	assert.True(t, c2.isClosed())
	assert.Equal(t, 0, reg.TotalConnections())
}

func TestHub_ShutdownBoundedByContext(t *testing.T) {
	reg := registry.New()
	h := New(testLogger(), reg)
	h.Start()

	hung := &mockConn{userID: "user-1", blockClose: make(chan struct{})}
	defer close(hung.blockClose)
	reg.Register("user-1", hung)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	h.Shutdown(ctx)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, reg.TotalConnections())
}

func TestHeartbeat_Tick(t *testing.T) {
	h, reg := startHub(t)

	c1 := &mockConn{userID: "user-1"}
	c2 := &mockConn{userID: "user-2"}
	reg.Register("user-1", c1)
	reg.Register("user-2", c2)

	hb := NewHeartbeat(h, time.Minute, testLogger())
	hb.tick()

	require.Len(t, c1.frames(), 1)
	frame := c1.frames()[0]
	assert.Contains(t, frame, "event: heartbeat\n")
	assert.Contains(t, frame, `"connections":2`)
	assert.Equal(t, c1.frames(), c2.frames())
}
