package models

import (
	"time"

	"github.com/google/uuid"
)

// Job status enum. Completed and cancelled are terminal.
const (
	JobStatusPending    = "pending"
	JobStatusAccepted   = "accepted"
	JobStatusInProgress = "in-progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
)

// Job is a client-originated service request assigned to a provider.
// Jobs are created by client intake and mutated only through status
// transitions; they are never deleted.
type Job struct {
	ID            uuid.UUID  `json:"id"`
	ProviderID    uuid.UUID  `json:"provider_id"`
	ClientName    string     `json:"client_name"`
	ClientEmail   string     `json:"client_email"`
	ClientPhone   string     `json:"client_phone,omitempty"`
	ClientImage   *string    `json:"client_image,omitempty"`
	ServiceType   string     `json:"service_type"`
	Description   string     `json:"description,omitempty"`
	Status        string     `json:"status"`
	ScheduledDate time.Time  `json:"scheduled_date"`
	ScheduledTime string     `json:"scheduled_time"`
	Location      string     `json:"location"`
	Budget        int        `json:"budget"`
	ActualCost    *int       `json:"actual_cost,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
