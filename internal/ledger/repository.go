package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servilocal/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateTx inserts a ledger entry inside the given transaction.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, e *models.CreditEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO credit_ledger (id, provider_id, posting_id, entry_type, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, e.ID, e.ProviderID, e.PostingID, e.EntryType, e.Amount, e.BalanceAfter).Scan(&e.CreatedAt)
}

// ListByProviderID returns a provider's ledger entries, newest first.
func (r *Repository) ListByProviderID(ctx context.Context, providerID uuid.UUID) ([]*models.CreditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, posting_id, entry_type, amount, balance_after, created_at
		FROM credit_ledger WHERE provider_id = $1 ORDER BY created_at DESC
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditEntry
	for rows.Next() {
		var e models.CreditEntry
		if err := rows.Scan(&e.ID, &e.ProviderID, &e.PostingID, &e.EntryType, &e.Amount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
