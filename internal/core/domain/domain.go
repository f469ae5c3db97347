package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated operator of the tracking system. The realtime
// core only ever sees its ID as an opaque principal.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type ProjectStatus string

const (
	ProjectPending    ProjectStatus = "pending"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

// Project is a tracked production job.
type Project struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	Status           ProjectStatus `json:"status"`
	Priority         string        `json:"priority"`
	StartDate        *time.Time    `json:"startDate,omitempty"`
	EndDate          *time.Time    `json:"endDate,omitempty"`
	AssignedWorkerID *uuid.UUID    `json:"assignedWorkerId,omitempty"`
	CreatedBy        uuid.UUID     `json:"createdBy"`
	IsPast           bool          `json:"isPast"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

type MaterialStatus string

const (
	MaterialEmpty      MaterialStatus = "empty"
	MaterialPending    MaterialStatus = "pending"
	MaterialInProgress MaterialStatus = "in_progress"
	MaterialCompleted  MaterialStatus = "completed"
)

// Material is one plate line item belonging to a project.
type Material struct {
	ID            uuid.UUID      `json:"id"`
	ProjectID     uuid.UUID      `json:"projectId"`
	Kind          string         `json:"kind"`
	Thickness     string         `json:"thickness"`
	Status        MaterialStatus `json:"status"`
	StartDate     *time.Time     `json:"startDate,omitempty"`
	CompletedDate *time.Time     `json:"completedDate,omitempty"`
	CompletedBy   *uuid.UUID     `json:"completedBy,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Actor identifies the user performing a mutation. Broadcasts exclude the
// actor so their own optimistic UI update is not duplicated.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// StreamStatus is the observability snapshot of the connection registry.
type StreamStatus struct {
	TotalUsers       int            `json:"totalUsers"`
	TotalConnections int            `json:"totalConnections"`
	UserConnections  map[string]int `json:"userConnections"`
}
