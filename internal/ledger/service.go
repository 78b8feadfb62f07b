package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servilocal/backend/internal/models"
)

// ErrInsufficientCredits is returned when a debit would take the available
// balance below zero.
var ErrInsufficientCredits = errors.New("insufficient credits")

// BalanceRepo is the minimal provider-balance interface the ledger needs.
type BalanceRepo interface {
	DebitCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
	RefundCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
}

// EntryRepo records ledger entries inside the caller's transaction.
type EntryRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.CreditEntry) error
}

// Service owns the provider credit balance. Every mutation runs inside the
// caller's transaction and leaves an entry row, so the balance is always
// explainable from the ledger.
type Service struct {
	balances BalanceRepo
	entries  EntryRepo
}

func NewService(balances BalanceRepo, entries EntryRepo) *Service {
	return &Service{balances: balances, entries: entries}
}

// Debit atomically deducts amount from the provider's available credits and
// records a posting_fee entry. Fails with ErrInsufficientCredits when the
// balance is below amount; the conditional UPDATE in the repo means two
// concurrent debits cannot both drain the same credits.
func (s *Service) Debit(ctx context.Context, tx pgx.Tx, providerID, postingID uuid.UUID, amount int) (newBalance int, err error) {
	newBalance, err = s.balances.DebitCredits(ctx, tx, providerID, amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrInsufficientCredits
		}
		return 0, err
	}
	err = s.entries.CreateTx(ctx, tx, &models.CreditEntry{
		ID:           uuid.New(),
		ProviderID:   providerID,
		PostingID:    &postingID,
		EntryType:    models.CreditEntryPostingFee,
		Amount:       amount,
		BalanceAfter: newBalance,
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Refund reverses a posting fee: available += amount, spent -= amount, plus a
// posting_refund entry. Idempotency is enforced by the caller via the
// posting's refunded flag, so a retried cancel never refunds twice.
func (s *Service) Refund(ctx context.Context, tx pgx.Tx, providerID, postingID uuid.UUID, amount int) (newBalance int, err error) {
	newBalance, err = s.balances.RefundCredits(ctx, tx, providerID, amount)
	if err != nil {
		return 0, err
	}
	err = s.entries.CreateTx(ctx, tx, &models.CreditEntry{
		ID:           uuid.New(),
		ProviderID:   providerID,
		PostingID:    &postingID,
		EntryType:    models.CreditEntryPostingRefund,
		Amount:       amount,
		BalanceAfter: newBalance,
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}
