package domain

import (
	"github.com/google/uuid"
)

// Event names carried on the stream. Clients must ignore names they do not
// recognise.
const (
	EventConnected                 = "connected"
	EventHeartbeat                 = "heartbeat"
	EventProjectCreated            = "project-created"
	EventProjectUpdated            = "project-updated"
	EventProjectDeleted            = "project-deleted"
	EventProjectStatusChanged      = "project-status-changed"
	EventProjectMovedToPast        = "project-moved-to-past"
	EventProjectRestoredFromPast   = "project-restored-from-past"
	EventMaterialStatusChanged     = "material-status-changed"
	EventMaterialBatchStatusChange = "material-batch-status-changed"
)

// Envelope is the JSON body of every stream frame. Timestamp is assigned
// once at encode time so all recipients of one broadcast see the same value.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// ConnectedPayload is sent once to a freshly established connection.
type ConnectedPayload struct {
	ConnectionID int64  `json:"clientId"`
	UserID       string `json:"userId"`
}

// HeartbeatPayload is broadcast on every heartbeat tick.
type HeartbeatPayload struct {
	Time        string `json:"time"`
	Connections int    `json:"connections"`
}

// ProjectEventPayload carries project mutations. Deletes only have the id
// and name left, so Project is optional; ProjectID is always set.
type ProjectEventPayload struct {
	Project     *Project      `json:"project,omitempty"`
	ProjectID   uuid.UUID     `json:"projectId"`
	ProjectName string        `json:"projectName,omitempty"`
	OldStatus   ProjectStatus `json:"oldStatus,omitempty"`
	NewStatus   ProjectStatus `json:"newStatus,omitempty"`
	UserID      string        `json:"userId"`
	UserName    string        `json:"userName"`
}

// MaterialEventPayload is deliberately coarse: it names what changed but
// not the full record, so clients refetch instead of applying it in place.
type MaterialEventPayload struct {
	ProjectID   uuid.UUID      `json:"projectId"`
	MaterialID  *uuid.UUID     `json:"materialId,omitempty"`
	MaterialIDs []uuid.UUID    `json:"materialIds,omitempty"`
	NewStatus   MaterialStatus `json:"newStatus"`
	UserID      string         `json:"userId"`
	UserName    string         `json:"userName"`
}
