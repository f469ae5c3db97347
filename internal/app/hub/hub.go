package hub

import (
	"context"
	"log/slog"
	"sync"

	"fabtrack/internal/app/registry"
	"fabtrack/internal/core/domain"
	"fabtrack/pkg/logging"
)

type broadcastReq struct {
	event       string
	frame       []byte
	excludeUser string
	reply       chan int
}

type directReq struct {
	userID string
	event  string
	frame  []byte
	reply  chan int
}

// Hub fans encoded events out to live connections. Request handlers and the
// heartbeat loop submit delivery requests over channels consumed by a single
// run loop, so deliveries to any one connection keep the order the calls
// were issued in and no fine-grained send locking is needed.
//
// Delivery is fire-and-forget: a write failure drops the failed connection
// from the registry and is never retried. Disconnected clients resync by
// refetching after they reconnect.
type Hub struct {
	log *slog.Logger
	reg *registry.Registry

	broadcasts chan broadcastReq
	directs    chan directReq

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(log *slog.Logger, reg *registry.Registry) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:        log,
		reg:        reg,
		broadcasts: make(chan broadcastReq, 64),
		directs:    make(chan directReq, 64),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the run loop. Call once at boot.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.run()
	h.log.Info("hub started")
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.ctx.Done():
			return
		case req := <-h.broadcasts:
			req.reply <- h.deliverAll(req)
		case req := <-h.directs:
			req.reply <- h.deliverUser(req)
		}
	}
}

// Broadcast encodes the event once and pushes it to every connection of
// every user except excludeUser, returning the number of successful writes.
// The only possible error is a non-serializable payload, which is a bug at
// the call site and is surfaced loudly.
func (h *Hub) Broadcast(event string, payload any, excludeUser string) (int, error) {
	frame, err := Encode(event, payload)
	if err != nil {
		return 0, err
	}

	req := broadcastReq{event: event, frame: frame, excludeUser: excludeUser, reply: make(chan int, 1)}
	select {
	case h.broadcasts <- req:
	case <-h.ctx.Done():
		return 0, domain.ErrHubStopped
	}
	select {
	case n := <-req.reply:
		return n, nil
	case <-h.ctx.Done():
		return 0, domain.ErrHubStopped
	}
}

// SendToUser pushes one event to every connection of a single user and
// reports whether at least one write succeeded.
func (h *Hub) SendToUser(userID string, event string, payload any) (bool, error) {
	frame, err := Encode(event, payload)
	if err != nil {
		return false, err
	}

	req := directReq{userID: userID, event: event, frame: frame, reply: make(chan int, 1)}
	select {
	case h.directs <- req:
	case <-h.ctx.Done():
		return false, domain.ErrHubStopped
	}
	select {
	case n := <-req.reply:
		return n > 0, nil
	case <-h.ctx.Done():
		return false, domain.ErrHubStopped
	}
}

func (h *Hub) deliverAll(req broadcastReq) int {
	sent := 0
	for _, e := range h.reg.Snapshot(req.excludeUser) {
		if h.write(e, req.event, req.frame) {
			sent++
		}
	}
	h.log.Debug("broadcast complete",
		logging.Event(req.event),
		slog.Int("delivered", sent),
		slog.String("excluded_user", req.excludeUser),
	)
	return sent
}

func (h *Hub) deliverUser(req directReq) int {
	sent := 0
	for _, e := range h.reg.UserConnections(req.userID) {
		if h.write(e, req.event, req.frame) {
			sent++
		}
	}
	return sent
}

// write pushes one frame to one connection. On failure the connection is
// dropped from the registry and closed; the user entry disappears with its
// last connection, so the registry self-heals during delivery.
func (h *Hub) write(e registry.Entry, event string, frame []byte) bool {
	if err := e.Conn.Send(frame); err != nil {
		h.log.Warn("dropping connection after failed write",
			logging.User(e.UserID),
			logging.Connection(e.ConnID),
			logging.Event(event),
			logging.Err(err),
		)
		h.reg.Unregister(e.UserID, e.ConnID)
		_ = e.Conn.Close()
		return false
	}
	return true
}

// Shutdown stops the run loop and closes every live connection so clients
// notice promptly and reconnect instead of waiting on a dangling socket.
// Closes run concurrently and the wait is bounded by ctx, so one hung
// connection cannot stall process exit.
func (h *Hub) Shutdown(ctx context.Context) {
	h.cancel()
	h.wg.Wait()

	entries := h.reg.Snapshot("")
	var closers sync.WaitGroup
	for _, e := range entries {
		closers.Add(1)
		go func(e registry.Entry) {
			defer closers.Done()
			if err := e.Conn.Close(); err != nil {
				h.log.Warn("close failed during shutdown",
					logging.User(e.UserID),
					logging.Connection(e.ConnID),
					logging.Err(err),
				)
			}
		}(e)
	}

	done := make(chan struct{})
	go func() {
		closers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		h.log.Warn("shutdown wait expired before all connections closed")
	}

	for _, e := range entries {
		h.reg.Unregister(e.UserID, e.ConnID)
	}
	h.log.Info("hub stopped", slog.Int("closed_connections", len(entries)))
}
