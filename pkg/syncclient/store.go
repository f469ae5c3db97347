package syncclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Project is the client-side view of a project record.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	IsPast      bool       `json:"isPast"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// projectPatch mirrors Project with pointer fields so a partial payload
// only overwrites what it carries.
type projectPatch struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	IsPast      *bool      `json:"isPast"`
	UpdatedAt   *time.Time `json:"updatedAt"`
	DueDate     *time.Time `json:"dueDate"`
}

type projectEventData struct {
	Project     json.RawMessage `json:"project"`
	ProjectID   string          `json:"projectId"`
	ProjectName string          `json:"projectName"`
	OldStatus   string          `json:"oldStatus"`
	NewStatus   string          `json:"newStatus"`
	UserID      string          `json:"userId"`
	UserName    string          `json:"userName"`
}

type materialEventData struct {
	ProjectID   string   `json:"projectId"`
	MaterialID  string   `json:"materialId"`
	MaterialIDs []string `json:"materialIds"`
	NewStatus   string   `json:"newStatus"`
	UserID      string   `json:"userId"`
	UserName    string   `json:"userName"`
}

// FetchFunc reloads the project list from the API, used when an event
// only signals that a coarse refresh is needed.
type FetchFunc func(ctx context.Context) ([]Project, error)

type StoreOption func(*ProjectStore)

// WithDebounce sets how long the store waits after a refresh trigger
// before fetching, so bursts collapse into one request.
func WithDebounce(d time.Duration) StoreOption {
	return func(s *ProjectStore) { s.debounce = d }
}

// WithOptimisticTTL bounds how long a local-change marker suppresses the
// echo of the caller's own event.
func WithOptimisticTTL(d time.Duration) StoreOption {
	return func(s *ProjectStore) { s.optimisticTTL = d }
}

func WithStoreLogger(log *slog.Logger) StoreOption {
	return func(s *ProjectStore) { s.log = log }
}

// ProjectStore reconciles a local project list against incoming events:
// inserts on create, merges on update, removes on delete, and refetches
// on material changes that only identify what moved.
type ProjectStore struct {
	mu         sync.Mutex
	projects   map[string]*Project
	order      []string
	optimistic map[string]time.Time

	fetch         FetchFunc
	debounce      time.Duration
	optimisticTTL time.Duration
	refreshTimer  *time.Timer
	log           *slog.Logger

	// onChange fires after every mutation, for UI invalidation.
	onChange []func()
}

func NewProjectStore(fetch FetchFunc, opts ...StoreOption) *ProjectStore {
	s := &ProjectStore{
		projects:      make(map[string]*Project),
		optimistic:    make(map[string]time.Time),
		fetch:         fetch,
		debounce:      time.Second,
		optimisticTTL: 10 * time.Second,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind subscribes the store to a client's event feed. The returned
// function detaches every listener it registered.
func (s *ProjectStore) Bind(c *Client) func() {
	type sub struct{ event, id string }
	subs := []sub{
		{"project-created", c.AddEventListener("project-created", s.handleCreated)},
		{"project-updated", c.AddEventListener("project-updated", s.handleUpdated)},
		{"project-status-changed", c.AddEventListener("project-status-changed", s.handleUpdated)},
		{"project-moved-to-past", c.AddEventListener("project-moved-to-past", s.handleUpdated)},
		{"project-restored-from-past", c.AddEventListener("project-restored-from-past", s.handleUpdated)},
		{"project-deleted", c.AddEventListener("project-deleted", s.handleDeleted)},
		{"material-status-changed", c.AddEventListener("material-status-changed", s.handleMaterialChanged)},
		{"material-batch-status-changed", c.AddEventListener("material-batch-status-changed", s.handleMaterialChanged)},
	}
	return func() {
		for _, sb := range subs {
			c.RemoveEventListener(sb.event, sb.id)
		}
	}
}

// Projects returns the current list in insertion order.
func (s *ProjectStore) Projects() []Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Project, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.projects[id])
	}
	return out
}

func (s *ProjectStore) Get(id string) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return Project{}, false
	}
	return *p, true
}

// Replace swaps the whole list, typically from an initial or refetched
// API load.
func (s *ProjectStore) Replace(list []Project) {
	s.mu.Lock()
	s.projects = make(map[string]*Project, len(list))
	s.order = s.order[:0]
	for i := range list {
		p := list[i]
		s.projects[p.ID] = &p
		s.order = append(s.order, p.ID)
	}
	s.mu.Unlock()
	s.notifyChange()
}

// OnChange registers a callback fired after every store mutation.
func (s *ProjectStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// MarkOptimistic records that this client just applied the change itself,
// so the echoed event does not double-apply or trigger a refetch. The key
// pairs the event name with the entity id, e.g. a material id for
// material-status-changed.
func (s *ProjectStore) MarkOptimistic(event, entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, ts := range s.optimistic {
		if now.Sub(ts) > s.optimisticTTL {
			delete(s.optimistic, k)
		}
	}
	s.optimistic[event+":"+entityID] = now
}

// takeOptimistic consumes a marker if one is live for the key.
func (s *ProjectStore) takeOptimistic(event, entityID string) bool {
	key := event + ":" + entityID
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.optimistic[key]
	if !ok {
		return false
	}
	delete(s.optimistic, key)
	return time.Since(ts) <= s.optimisticTTL
}

func (s *ProjectStore) handleCreated(data json.RawMessage) {
	var ev projectEventData
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn("bad project-created payload", "error", err)
		return
	}
	var p Project
	if err := json.Unmarshal(ev.Project, &p); err != nil || p.ID == "" {
		s.log.Warn("bad project-created payload", "error", err)
		return
	}
	if s.takeOptimistic("project-created", p.ID) {
		return
	}

	s.mu.Lock()
	if _, exists := s.projects[p.ID]; exists {
		// already known, create is idempotent
		s.mu.Unlock()
		return
	}
	s.projects[p.ID] = &p
	s.order = append(s.order, p.ID)
	s.mu.Unlock()
	s.notifyChange()
}

func (s *ProjectStore) handleUpdated(data json.RawMessage) {
	var ev projectEventData
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn("bad project update payload", "error", err)
		return
	}
	id := ev.ProjectID
	var patch projectPatch
	if len(ev.Project) > 0 {
		var full struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Project, &full); err == nil && full.ID != "" {
			id = full.ID
		}
		if err := json.Unmarshal(ev.Project, &patch); err != nil {
			s.log.Warn("bad project update payload", "error", err)
			return
		}
	} else if ev.NewStatus != "" {
		patch.Status = &ev.NewStatus
	}
	if id == "" {
		return
	}
	if s.takeOptimistic("project-updated", id) {
		return
	}

	s.mu.Lock()
	p, ok := s.projects[id]
	if !ok {
		// update for a project this client never loaded
		s.mu.Unlock()
		return
	}
	applyPatch(p, patch)
	s.mu.Unlock()
	s.notifyChange()
}

func applyPatch(p *Project, patch projectPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.IsPast != nil {
		p.IsPast = *patch.IsPast
	}
	if patch.UpdatedAt != nil {
		p.UpdatedAt = *patch.UpdatedAt
	}
	if patch.DueDate != nil {
		p.DueDate = patch.DueDate
	}
}

func (s *ProjectStore) handleDeleted(data json.RawMessage) {
	var ev projectEventData
	if err := json.Unmarshal(data, &ev); err != nil || ev.ProjectID == "" {
		s.log.Warn("bad project-deleted payload", "error", err)
		return
	}
	if s.takeOptimistic("project-deleted", ev.ProjectID) {
		return
	}

	s.mu.Lock()
	if _, ok := s.projects[ev.ProjectID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.projects, ev.ProjectID)
	for i, id := range s.order {
		if id == ev.ProjectID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notifyChange()
}

// handleMaterialChanged schedules a debounced refetch. Material events
// identify what moved but not the resulting project rollup, so the list
// is reloaded rather than patched.
func (s *ProjectStore) handleMaterialChanged(data json.RawMessage) {
	var ev materialEventData
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn("bad material event payload", "error", err)
		return
	}
	if ev.MaterialID != "" && s.takeOptimistic("material-status-changed", ev.MaterialID) {
		return
	}
	s.scheduleRefresh()
}

// scheduleRefresh arms the debounce timer, resetting it if already armed
// so a burst of events produces one fetch after the quiet period.
func (s *ProjectStore) scheduleRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
	}
	s.refreshTimer = time.AfterFunc(s.debounce, s.refresh)
}

func (s *ProjectStore) refresh() {
	if s.fetch == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	list, err := s.fetch(ctx)
	if err != nil {
		s.log.Warn("project refetch failed", "error", err)
		return
	}
	s.Replace(list)
}

func (s *ProjectStore) notifyChange() {
	s.mu.Lock()
	fns := make([]func(), len(s.onChange))
	copy(fns, s.onChange)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
