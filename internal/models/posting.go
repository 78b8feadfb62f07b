package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderJob status enum. Completed and cancelled are terminal.
const (
	PostingStatusPending   = "pending"
	PostingStatusActive    = "active"
	PostingStatusCompleted = "completed"
	PostingStatusCancelled = "cancelled"
)

// ProviderJob is a provider-originated listing. Creating one costs
// PostingCost credits; the charge is captured per-posting so a later
// cancellation refunds exactly what was debited.
type ProviderJob struct {
	ID            uuid.UUID  `json:"id"`
	ProviderID    uuid.UUID  `json:"provider_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Price         int        `json:"price"`
	Logo          *string    `json:"logo,omitempty"`
	Status        string     `json:"status"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	ScheduledTime *string    `json:"scheduled_time,omitempty"`
	Location      *string    `json:"location,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	PostingCost   int        `json:"posting_cost"`
	Refunded      bool       `json:"-"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
