package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servilocal/backend/internal/models"
)

const postingColumns = `id, provider_id, title, description, category, price, logo, status,
	scheduled_date, scheduled_time, location, notes, posting_cost, refunded, completed_at, created_at, updated_at`

type PostingRepo struct {
	pool *pgxpool.Pool
}

func NewPostingRepo(pool *pgxpool.Pool) *PostingRepo {
	return &PostingRepo{pool: pool}
}

func scanPosting(row pgx.Row) (*models.ProviderJob, error) {
	var p models.ProviderJob
	err := row.Scan(
		&p.ID, &p.ProviderID, &p.Title, &p.Description, &p.Category, &p.Price, &p.Logo, &p.Status,
		&p.ScheduledDate, &p.ScheduledTime, &p.Location, &p.Notes, &p.PostingCost, &p.Refunded, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a pending posting inside the caller's transaction, so the
// insert and the credit debit commit together.
func (r *PostingRepo) Create(ctx context.Context, tx pgx.Tx, p *models.ProviderJob) error {
	return tx.QueryRow(ctx, `
		INSERT INTO provider_jobs (id, provider_id, title, description, category, price, logo,
			status, scheduled_date, scheduled_time, location, notes, posting_cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8, $9, $10, $11, $12)
		RETURNING status, refunded, created_at, updated_at
	`, p.ID, p.ProviderID, p.Title, p.Description, p.Category, p.Price, p.Logo,
		p.ScheduledDate, p.ScheduledTime, p.Location, p.Notes, p.PostingCost).Scan(&p.Status, &p.Refunded, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PostingRepo) GetByProvider(ctx context.Context, postingID, providerID uuid.UUID) (*models.ProviderJob, error) {
	return scanPosting(r.pool.QueryRow(ctx, `
		SELECT `+postingColumns+` FROM provider_jobs WHERE id = $1 AND provider_id = $2
	`, postingID, providerID))
}

// GetForUpdate locks the posting row so the cancel path can key its refund
// on the pre-transition status. Call within a transaction.
func (r *PostingRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, postingID, providerID uuid.UUID) (*models.ProviderJob, error) {
	return scanPosting(tx.QueryRow(ctx, `
		SELECT `+postingColumns+` FROM provider_jobs WHERE id = $1 AND provider_id = $2 FOR UPDATE
	`, postingID, providerID))
}

// UpdatePending overwrites the editable fields of a posting that is still
// pending. Any other status leaves zero matching rows.
func (r *PostingRepo) UpdatePending(ctx context.Context, p *models.ProviderJob) (*models.ProviderJob, error) {
	return scanPosting(r.pool.QueryRow(ctx, `
		UPDATE provider_jobs
		SET title = $3, description = $4, category = $5, price = $6, logo = $7,
			scheduled_date = $8, scheduled_time = $9, location = $10, notes = $11, updated_at = now()
		WHERE id = $1 AND provider_id = $2 AND status = 'pending'
		RETURNING `+postingColumns,
		p.ID, p.ProviderID, p.Title, p.Description, p.Category, p.Price, p.Logo,
		p.ScheduledDate, p.ScheduledTime, p.Location, p.Notes))
}

// Cancel transitions pending/active -> cancelled inside the caller's
// transaction. Whether a refund applies is decided from the row read under
// FOR UPDATE, not from this result.
func (r *PostingRepo) Cancel(ctx context.Context, tx pgx.Tx, postingID, providerID uuid.UUID) (*models.ProviderJob, error) {
	return scanPosting(tx.QueryRow(ctx, `
		UPDATE provider_jobs SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND provider_id = $2 AND status IN ('pending', 'active')
		RETURNING `+postingColumns, postingID, providerID))
}

// MarkRefunded flips the idempotency flag that prevents a second refund of
// the same posting.
func (r *PostingRepo) MarkRefunded(ctx context.Context, tx pgx.Tx, postingID uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE provider_jobs SET refunded = true, updated_at = now() WHERE id = $1`, postingID)
	return err
}

func (r *PostingRepo) CountByProviderAndStatus(ctx context.Context, providerID uuid.UUID, status string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM provider_jobs WHERE provider_id = $1 AND status = $2
	`, providerID, status).Scan(&n)
	return n, err
}

func (r *PostingRepo) ListByProviderAndStatus(ctx context.Context, providerID uuid.UUID, status string, page, limit int) ([]*models.ProviderJob, int, error) {
	total, err := r.CountByProviderAndStatus(ctx, providerID, status)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+postingColumns+` FROM provider_jobs
		WHERE provider_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, providerID, status, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.ProviderJob
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}
