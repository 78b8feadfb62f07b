package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit ledger entry_type enums.
const (
	CreditEntryPostingFee    = "posting_fee"
	CreditEntryPostingRefund = "posting_refund"
)

// CreditEntry is one row of the credit ledger. Entries are append-only:
// a refund is a new row, never an edit of the fee row it reverses.
type CreditEntry struct {
	ID           uuid.UUID  `json:"id"`
	ProviderID   uuid.UUID  `json:"provider_id"`
	PostingID    *uuid.UUID `json:"posting_id,omitempty"`
	EntryType    string     `json:"entry_type"`
	Amount       int        `json:"amount"`
	BalanceAfter int        `json:"balance_after"`
	CreatedAt    time.Time  `json:"created_at"`
}
