package contracts

import (
	"fabtrack/internal/core/domain"
)

// Connection is the minimal surface the registry and hub need to push
// frames to one attached client. Implementations must make Send safe to
// call concurrently and must never block it on a slow reader.
type Connection interface {
	// UserID returns the opaque principal that owns this connection.
	UserID() string
	// Send queues an already-encoded frame for delivery. It fails fast when
	// the connection is closed or its write buffer is full.
	Send(data []byte) error
	// Close tears the connection down. Idempotent.
	Close() error
}

// Broadcaster is what the REST layer sees of the hub. Both calls are
// best-effort: connection write failures are handled internally and must
// never abort the mutation that triggered the event.
type Broadcaster interface {
	// Broadcast pushes one event to every connection of every user except
	// excludeUser, returning the number of successful writes. A non-nil
	// error only ever means the payload could not be encoded.
	Broadcast(event string, payload any, excludeUser string) (int, error)
	// SendToUser pushes one event to every connection of a single user and
	// reports whether at least one write succeeded.
	SendToUser(userID string, event string, payload any) (bool, error)
}

// Registry owns the set of live connections. All mutation is funnelled
// through it so the no-empty-user-set invariant holds in one place.
type Registry interface {
	Register(userID string, conn Connection) int64
	Unregister(userID string, connID int64)
	TotalConnections() int
	Status() domain.StreamStatus
}
