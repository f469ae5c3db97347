package registry

import (
	"sync"
	"sync/atomic"

	"fabtrack/internal/core/contracts"
	"fabtrack/internal/core/domain"
)

// Entry pairs a live connection with its registry coordinates so the hub
// can unregister exactly the connection whose write failed.
type Entry struct {
	UserID string
	ConnID int64
	Conn   contracts.Connection
}

// Registry holds every live stream connection keyed by user id. A user may
// hold several connections at once (multiple tabs/devices). All mutation
// goes through Register/Unregister so the invariant that no user maps to an
// empty connection set is enforced in one place.
type Registry struct {
	mu     sync.RWMutex
	users  map[string]map[int64]contracts.Connection
	nextID atomic.Int64
}

var _ contracts.Registry = (*Registry)(nil)

func New() *Registry {
	return &Registry{
		users: make(map[string]map[int64]contracts.Connection),
	}
}

// Register inserts the connection into the user's set, creating the set if
// absent, and returns the assigned connection id. Ids are monotonic and
// never reused within a process.
func (r *Registry) Register(userID string, conn contracts.Connection) int64 {
	id := r.nextID.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.users[userID]
	if !ok {
		set = make(map[int64]contracts.Connection)
		r.users[userID] = set
	}
	set[id] = conn
	return id
}

// Unregister removes the connection and drops the user entirely once their
// last connection is gone. Unregistering an unknown id is a no-op, which
// makes double-cleanup races harmless.
func (r *Registry) Unregister(userID string, connID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.users[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, userID)
	}
}

func (r *Registry) TotalConnections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, set := range r.users {
		total += len(set)
	}
	return total
}

// Snapshot returns a stable copy of every connection except those owned by
// excludeUser. The hub iterates the copy so registrations racing with a
// broadcast can never corrupt the walk.
func (r *Registry) Snapshot(excludeUser string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]Entry, 0, len(r.users))
	for userID, set := range r.users {
		if excludeUser != "" && userID == excludeUser {
			continue
		}
		for id, conn := range set {
			entries = append(entries, Entry{UserID: userID, ConnID: id, Conn: conn})
		}
	}
	return entries
}

// UserConnections returns a stable copy of one user's connections.
func (r *Registry) UserConnections(userID string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.users[userID]
	entries := make([]Entry, 0, len(set))
	for id, conn := range set {
		entries = append(entries, Entry{UserID: userID, ConnID: id, Conn: conn})
	}
	return entries
}

func (r *Registry) Status() domain.StreamStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := domain.StreamStatus{
		TotalUsers:      len(r.users),
		UserConnections: make(map[string]int, len(r.users)),
	}
	for userID, set := range r.users {
		status.UserConnections[userID] = len(set)
		status.TotalConnections += len(set)
	}
	return status
}
