package syncclient

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient user-facing message derived from an event.
type Notification struct {
	ID        string
	Level     Level
	Title     string
	Message   string
	Timestamp time.Time
	// Duration > 0 auto-dismisses the notification after that long.
	Duration time.Duration
}

type NotifyOption func(*NotificationCenter)

// WithDedupInterval sets how close together two notifications with the
// same title and message must be to count as duplicates.
func WithDedupInterval(d time.Duration) NotifyOption {
	return func(n *NotificationCenter) { n.window = d }
}

// NotificationCenter holds the active notification list, suppressing
// duplicates and expiring entries whose duration has elapsed.
type NotificationCenter struct {
	mu     sync.Mutex
	items  []Notification
	timers map[string]*time.Timer
	onAdd  []func(Notification)
	window time.Duration
	now    func() time.Time
}

func NewNotificationCenter(opts ...NotifyOption) *NotificationCenter {
	n := &NotificationCenter{
		timers: make(map[string]*time.Timer),
		window: time.Second,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Add inserts a notification unless it duplicates one already showing.
// A duplicate shares an id with an existing entry, or repeats another
// entry's title and message within the dedup window. It reports whether
// the notification was added.
func (n *NotificationCenter) Add(item Notification) bool {
	if item.Timestamp.IsZero() {
		item.Timestamp = n.now()
	}

	n.mu.Lock()
	for _, existing := range n.items {
		if existing.ID == item.ID {
			n.mu.Unlock()
			return false
		}
		if existing.Title == item.Title && existing.Message == item.Message &&
			item.Timestamp.Sub(existing.Timestamp) < n.window {
			n.mu.Unlock()
			return false
		}
	}
	n.items = append(n.items, item)
	if item.Duration > 0 {
		id := item.ID
		n.timers[id] = time.AfterFunc(item.Duration, func() { n.Dismiss(id) })
	}
	fns := make([]func(Notification), len(n.onAdd))
	copy(fns, n.onAdd)
	n.mu.Unlock()

	for _, fn := range fns {
		fn(item)
	}
	return true
}

// Dismiss removes one notification by id. Unknown ids are ignored.
func (n *NotificationCenter) Dismiss(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	for i, item := range n.items {
		if item.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return
		}
	}
}

// Clear removes every notification.
func (n *NotificationCenter) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
	n.items = nil
}

// List returns the active notifications oldest first.
func (n *NotificationCenter) List() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}

// OnAdd registers a callback fired for each accepted notification.
func (n *NotificationCenter) OnAdd(fn func(Notification)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onAdd = append(n.onAdd, fn)
}

const toastDuration = 5 * time.Second

// BindProjectEvents turns project events from the stream into toasts
// describing what another user just did. The returned function detaches
// the listeners.
func (n *NotificationCenter) BindProjectEvents(c *Client) func() {
	type sub struct{ event, id string }
	subs := []sub{
		{"project-created", c.AddEventListener("project-created", func(data json.RawMessage) {
			ev, ok := decodeProjectEvent(data)
			if !ok {
				return
			}
			n.Add(Notification{
				ID:       xid.New().String(),
				Level:    LevelInfo,
				Title:    "New project",
				Message:  fmt.Sprintf("%s created %q", ev.UserName, ev.ProjectName),
				Duration: toastDuration,
			})
		})},
		{"project-status-changed", c.AddEventListener("project-status-changed", func(data json.RawMessage) {
			ev, ok := decodeProjectEvent(data)
			if !ok {
				return
			}
			n.Add(Notification{
				ID:       xid.New().String(),
				Level:    LevelSuccess,
				Title:    "Project status changed",
				Message:  fmt.Sprintf("%s moved %q to %s", ev.UserName, ev.ProjectName, statusText(ev.NewStatus)),
				Duration: toastDuration,
			})
		})},
		{"project-deleted", c.AddEventListener("project-deleted", func(data json.RawMessage) {
			ev, ok := decodeProjectEvent(data)
			if !ok {
				return
			}
			n.Add(Notification{
				ID:       xid.New().String(),
				Level:    LevelWarning,
				Title:    "Project deleted",
				Message:  fmt.Sprintf("%s deleted %q", ev.UserName, ev.ProjectName),
				Duration: toastDuration,
			})
		})},
	}
	return func() {
		for _, sb := range subs {
			c.RemoveEventListener(sb.event, sb.id)
		}
	}
}

func decodeProjectEvent(data json.RawMessage) (projectEventData, bool) {
	var ev projectEventData
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, false
	}
	if ev.ProjectName == "" && len(ev.Project) > 0 {
		var p struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(ev.Project, &p) == nil {
			ev.ProjectName = p.Name
		}
	}
	return ev, true
}

func statusText(status string) string {
	switch status {
	case "pending":
		return "Pending"
	case "in_progress":
		return "In Progress"
	case "completed":
		return "Completed"
	case "cancelled":
		return "Cancelled"
	default:
		return status
	}
}
