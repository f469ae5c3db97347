package sse

import (
	"context"
	"net/http"
	"sync"

	"fabtrack/internal/core/domain"
)

// Conn is one live event-stream connection. Frames are queued on a buffered
// channel and drained by Serve on the handler goroutine, so a hub delivery
// never blocks on a slow reader: when the buffer is full Send fails fast
// and the hub drops the connection.
type Conn struct {
	ctx    context.Context
	cancel context.CancelFunc
	userID string
	out    chan []byte
	once   sync.Once
}

func NewConn(parent context.Context, userID string, buffer int) *Conn {
	ctx, cancel := context.WithCancel(parent)
	return &Conn{
		ctx:    ctx,
		cancel: cancel,
		userID: userID,
		out:    make(chan []byte, buffer),
	}
}

func (c *Conn) UserID() string { return c.userID }

// Send queues an encoded frame. It never blocks. Closure is checked on
// its own first: a combined select would pick at random between a ready
// buffer and a closed context, sometimes queueing to a dead connection.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.ctx.Done():
		return domain.ErrConnectionClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return domain.ErrConnectionClosed
	default:
		return domain.ErrSlowConsumer
	}
}

// Close is idempotent and safe from any goroutine. It wakes Serve, which
// ends the HTTP response and lets the client detect the drop.
func (c *Conn) Close() error {
	c.once.Do(c.cancel)
	return nil
}

// Done reports closure, for callers that tie other work to this connection.
func (c *Conn) Done() <-chan struct{} { return c.ctx.Done() }

// Serve writes queued frames until the connection is closed from either
// side. It runs on the HTTP handler goroutine and returns when done.
func (c *Conn) Serve(w http.ResponseWriter, flusher http.Flusher) error {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return nil
		case data := <-c.out:
			if _, err := w.Write(data); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}
