package models

import (
	"time"

	"github.com/google/uuid"
)

// PostingCost is the number of credits debited when a provider posts a job.
const PostingCost = 50

// CreditBalance tracks a provider's available and spent credits.
type CreditBalance struct {
	Available   int       `json:"available"`
	Spent       int       `json:"spent"`
	LastUpdated time.Time `json:"last_updated"`
}

// Earnings tracks a provider's accrued earnings. Today is zeroed by the
// daily reset job; Total is never reset.
type Earnings struct {
	Today       int       `json:"today"`
	Total       int       `json:"total"`
	LastUpdated time.Time `json:"last_updated"`
}

// Stats counts terminal job outcomes for a provider.
type Stats struct {
	CompletedJobs int `json:"completed_jobs"`
	CancelledJobs int `json:"cancelled_jobs"`
}

type Provider struct {
	ID           uuid.UUID     `json:"id"`
	Email        string        `json:"email"`
	BusinessName string        `json:"business_name"`
	PasswordHash string        `json:"-"`
	PhoneNumber  string        `json:"phone_number,omitempty"`
	ServiceType  string        `json:"service_type,omitempty"`
	Description  string        `json:"description,omitempty"`
	Location     string        `json:"location,omitempty"`
	Image        *string       `json:"image,omitempty"`
	IsOnline     bool          `json:"is_online"`
	LastActiveAt time.Time     `json:"last_active_at"`
	Credits      CreditBalance `json:"credits"`
	Earnings     Earnings      `json:"earnings"`
	Stats        Stats         `json:"stats"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
