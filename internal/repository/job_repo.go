package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servilocal/backend/internal/models"
)

const jobColumns = `id, provider_id, client_name, client_email, client_phone, client_image, service_type, description,
	status, scheduled_date, scheduled_time, location, budget, actual_cost, notes, created_at, updated_at`

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(
		&j.ID, &j.ProviderID, &j.ClientName, &j.ClientEmail, &j.ClientPhone, &j.ClientImage, &j.ServiceType, &j.Description,
		&j.Status, &j.ScheduledDate, &j.ScheduledTime, &j.Location, &j.Budget, &j.ActualCost, &j.Notes, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// GetByProvider fetches a job only if it belongs to the provider. Absence
// and foreign ownership are both pgx.ErrNoRows on purpose.
func (r *JobRepo) GetByProvider(ctx context.Context, jobID, providerID uuid.UUID) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND provider_id = $2
	`, jobID, providerID))
}

// Accept transitions pending -> accepted. The status predicate makes the
// update a conditional write: a concurrent accept that already won leaves
// zero matching rows and this call returns pgx.ErrNoRows.
func (r *JobRepo) Accept(ctx context.Context, jobID, providerID uuid.UUID) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET status = 'accepted', updated_at = now()
		WHERE id = $1 AND provider_id = $2 AND status = 'pending'
		RETURNING `+jobColumns, jobID, providerID))
}

// Complete transitions accepted/in-progress -> completed and records the
// actual cost. Runs inside the caller's transaction so the earnings accrual
// commits or rolls back with it.
func (r *JobRepo) Complete(ctx context.Context, tx pgx.Tx, jobID, providerID uuid.UUID, actualCost *int) (*models.Job, error) {
	return scanJob(tx.QueryRow(ctx, `
		UPDATE jobs SET status = 'completed', actual_cost = $3, updated_at = now()
		WHERE id = $1 AND provider_id = $2 AND status IN ('accepted', 'in-progress')
		RETURNING `+jobColumns, jobID, providerID, actualCost))
}

// Cancel transitions pending/accepted -> cancelled and records the reason.
func (r *JobRepo) Cancel(ctx context.Context, tx pgx.Tx, jobID, providerID uuid.UUID, reason string) (*models.Job, error) {
	return scanJob(tx.QueryRow(ctx, `
		UPDATE jobs SET status = 'cancelled', notes = $3, updated_at = now()
		WHERE id = $1 AND provider_id = $2 AND status IN ('pending', 'accepted')
		RETURNING `+jobColumns, jobID, providerID, reason))
}

func (r *JobRepo) CountByProviderAndStatus(ctx context.Context, providerID uuid.UUID, status string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM jobs WHERE provider_id = $1 AND status = $2
	`, providerID, status).Scan(&n)
	return n, err
}

// ListByProviderAndStatus returns one page (1-indexed) of jobs plus the
// total match count for pagination.
func (r *JobRepo) ListByProviderAndStatus(ctx context.Context, providerID uuid.UUID, status string, page, limit int) ([]*models.Job, int, error) {
	total, err := r.CountByProviderAndStatus(ctx, providerID, status)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE provider_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, providerID, status, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, j)
	}
	return list, total, rows.Err()
}

// EarningsByDate groups a provider's completed jobs by completion date (UTC)
// and sums actual_cost. Computed on read, never stored.
func (r *JobRepo) EarningsByDate(ctx context.Context, providerID uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(updated_at AT TIME ZONE 'UTC', 'YYYY-MM-DD'), sum(actual_cost)::int
		FROM jobs
		WHERE provider_id = $1 AND status = 'completed' AND actual_cost IS NOT NULL
		GROUP BY 1
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var day string
		var sum int
		if err := rows.Scan(&day, &sum); err != nil {
			return nil, err
		}
		out[day] = sum
	}
	return out, rows.Err()
}
