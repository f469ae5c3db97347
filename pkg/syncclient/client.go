// Package syncclient consumes the fabtrack event stream and keeps local
// state in step with changes made by other users. It holds one streaming
// connection per client, fans events out to registered handlers, and
// reconnects with backoff when the connection drops.
package syncclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
)

// Handler receives the data portion of one decoded event.
type Handler func(data json.RawMessage)

type envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type Option func(*Client)

func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithReconnectInterval sets the base delay between reconnect attempts.
// Attempt n waits n times this interval.
func WithReconnectInterval(d time.Duration) Option {
	return func(c *Client) { c.reconnectInterval = d }
}

func WithMaxReconnectAttempts(n int) Option {
	return func(c *Client) { c.maxReconnectAttempts = n }
}

// WithDedupWindow sets how long a received frame is remembered for
// duplicate suppression.
func WithDedupWindow(d time.Duration) Option {
	return func(c *Client) { c.dedupWindow = d }
}

// Client is the per-process stream consumer. Zero or one connection is
// live at any time; Connect tears down an existing one first.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *slog.Logger

	reconnectInterval    time.Duration
	maxReconnectAttempts int
	dedupWindow          time.Duration

	mu        sync.Mutex
	listeners map[string]map[string]Handler
	stateFns  []func(bool)
	recent    map[string]time.Time
	token     string
	cancel    context.CancelFunc
	runCtx    context.Context
	manual    bool

	connected atomic.Bool
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:              strings.TrimRight(baseURL, "/"),
		httpc:                &http.Client{},
		log:                  slog.Default(),
		reconnectInterval:    3 * time.Second,
		maxReconnectAttempts: 5,
		dedupWindow:          5 * time.Second,
		listeners:            make(map[string]map[string]Handler),
		recent:               make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the stream with the given credential and starts dispatch.
// It returns once the connection is established or the first attempt
// failed; reconnects after later drops happen in the background.
func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.disconnectLocked()
	}
	c.manual = false
	c.token = token
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.runCtx = runCtx
	c.mu.Unlock()

	body, err := c.dial(runCtx)
	if err != nil {
		cancel()
		return err
	}
	c.setConnected(true)
	go c.run(runCtx, body)
	return nil
}

// Disconnect tears the connection down and suppresses reconnection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manual = true
	c.token = ""
	c.disconnectLocked()
	c.mu.Unlock()
	c.setConnected(false)
}

func (c *Client) disconnectLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// IsConnected reports whether a live stream is currently attached.
func (c *Client) IsConnected() bool { return c.connected.Load() }

// OnConnectionChange registers a callback observing connection state, for
// "realtime sync disconnected" indicators.
func (c *Client) OnConnectionChange(fn func(connected bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateFns = append(c.stateFns, fn)
}

// AddEventListener registers a handler for one event name and returns the
// listener id used to remove it.
func (c *Client) AddEventListener(event string, fn Handler) string {
	id := xid.New().String()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listeners[event] == nil {
		c.listeners[event] = make(map[string]Handler)
	}
	c.listeners[event][id] = fn
	return id
}

// RemoveEventListener drops a previously registered handler. Unknown ids
// are ignored.
func (c *Client) RemoveEventListener(event, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.listeners[event]
	delete(set, id)
	if len(set) == 0 {
		delete(c.listeners, event)
	}
}

func (c *Client) dial(ctx context.Context) (io.ReadCloser, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream handshake failed: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("stream handshake failed: content type %q", ct)
	}
	return resp.Body, nil
}

// run reads the stream and reconnects with backoff after failures until
// explicitly disconnected, the context ends, or attempts are exhausted.
func (c *Client) run(ctx context.Context, body io.ReadCloser) {
	for {
		err := c.readStream(body)
		if !c.current(ctx) {
			// A newer Connect took over; its goroutine owns the
			// connection state now.
			return
		}
		c.setConnected(false)
		if ctx.Err() != nil || c.isManual() {
			return
		}
		if err != nil {
			c.log.Warn("stream dropped", "error", err)
		}

		reconnected := false
		for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
			delay := time.Duration(attempt) * c.reconnectInterval
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			next, err := c.dial(ctx)
			if err != nil {
				c.log.Warn("reconnect failed", "attempt", attempt, "error", err)
				continue
			}
			c.log.Info("stream reconnected", "attempt", attempt)
			body = next
			if !c.current(ctx) {
				body.Close()
				return
			}
			c.setConnected(true)
			reconnected = true
			break
		}
		if !reconnected {
			c.log.Error("giving up on stream after max reconnect attempts",
				"attempts", c.maxReconnectAttempts)
			return
		}
	}
}

// readStream parses frames until the stream ends. Frame layout is
// "event: <name>" and "data: <json>" lines terminated by a blank line;
// comment lines start with a colon.
func (c *Client) readStream(body io.ReadCloser) error {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	var event string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event != "" && data.Len() > 0 {
				c.dispatch(event, []byte(data.String()))
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(line[len("data:"):]))
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		}
	}
	return scanner.Err()
}

func (c *Client) dispatch(event string, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warn("undecodable frame", "event", event, "error", err)
		return
	}
	if c.isDuplicate(event, env) {
		return
	}

	c.mu.Lock()
	set := c.listeners[event]
	handlers := make([]Handler, 0, len(set))
	for _, fn := range set {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	// Unknown event names simply have no handlers.
	for _, fn := range handlers {
		fn(env.Data)
	}
}

// isDuplicate suppresses frames already seen within the dedup window.
// The server sends each event to a connection at most once, but a
// reconnect racing a slow proxy can replay the tail of a stream.
func (c *Client) isDuplicate(event string, env envelope) bool {
	h := fnv.New32a()
	h.Write(env.Data)
	key := fmt.Sprintf("%s|%s|%x", event, env.Timestamp, h.Sum32())

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, seen := range c.recent {
		if now.Sub(seen) > c.dedupWindow {
			delete(c.recent, k)
		}
	}
	if _, ok := c.recent[key]; ok {
		return true
	}
	c.recent[key] = now
	return false
}

// current reports whether ctx still belongs to the latest Connect call.
func (c *Client) current(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runCtx == ctx
}

func (c *Client) isManual() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manual
}

func (c *Client) setConnected(v bool) {
	if c.connected.Swap(v) == v {
		return
	}
	c.mu.Lock()
	fns := make([]func(bool), len(c.stateFns))
	copy(fns, c.stateFns)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}
