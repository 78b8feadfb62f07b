package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servilocal/backend/internal/models"
)

const providerColumns = `id, email, business_name, password_hash, phone_number, service_type, description, location, image,
	is_online, last_active_at,
	credits_available, credits_spent, credits_updated_at,
	earnings_today, earnings_total, earnings_updated_at,
	completed_jobs, cancelled_jobs, created_at, updated_at`

type ProviderRepo struct {
	pool *pgxpool.Pool
}

func NewProviderRepo(pool *pgxpool.Pool) *ProviderRepo {
	return &ProviderRepo{pool: pool}
}

func (r *ProviderRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func scanProvider(row pgx.Row) (*models.Provider, error) {
	var p models.Provider
	err := row.Scan(
		&p.ID, &p.Email, &p.BusinessName, &p.PasswordHash, &p.PhoneNumber, &p.ServiceType, &p.Description, &p.Location, &p.Image,
		&p.IsOnline, &p.LastActiveAt,
		&p.Credits.Available, &p.Credits.Spent, &p.Credits.LastUpdated,
		&p.Earnings.Today, &p.Earnings.Total, &p.Earnings.LastUpdated,
		&p.Stats.CompletedJobs, &p.Stats.CancelledJobs, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProviderRepo) Create(ctx context.Context, p *models.Provider) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO providers (id, email, business_name, password_hash, phone_number, service_type, description, location, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING is_online, last_active_at, credits_available, credits_spent, credits_updated_at,
			earnings_today, earnings_total, earnings_updated_at, completed_jobs, cancelled_jobs, created_at, updated_at
	`, p.ID, p.Email, p.BusinessName, p.PasswordHash, p.PhoneNumber, p.ServiceType, p.Description, p.Location, p.Image).Scan(
		&p.IsOnline, &p.LastActiveAt, &p.Credits.Available, &p.Credits.Spent, &p.Credits.LastUpdated,
		&p.Earnings.Today, &p.Earnings.Total, &p.Earnings.LastUpdated, &p.Stats.CompletedJobs, &p.Stats.CancelledJobs, &p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *ProviderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id))
}

func (r *ProviderRepo) GetByEmail(ctx context.Context, email string) (*models.Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE email = lower($1)`, email))
}

// GetByIDForUpdate locks the provider row. Call within a transaction.
func (r *ProviderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Provider, error) {
	return scanProvider(tx.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1 FOR UPDATE`, id))
}

func (r *ProviderRepo) List(ctx context.Context) ([]*models.Provider, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+providerColumns+` FROM providers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// DebitCredits atomically deducts amount if credits_available >= amount.
// Returns pgx.ErrNoRows when the balance is too low.
func (r *ProviderRepo) DebitCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE providers
		SET credits_available = credits_available - $1, credits_spent = credits_spent + $1,
			credits_updated_at = now(), updated_at = now()
		WHERE id = $2 AND credits_available >= $1
		RETURNING credits_available
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// RefundCredits returns amount to credits_available and reverses the spent
// counter. Idempotency is the caller's job (the posting's refunded flag).
func (r *ProviderRepo) RefundCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE providers
		SET credits_available = credits_available + $1, credits_spent = credits_spent - $1,
			credits_updated_at = now(), updated_at = now()
		WHERE id = $2
		RETURNING credits_available
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// AccrueEarnings adds amount to both the daily and lifetime counters.
func (r *ProviderRepo) AccrueEarnings(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) error {
	_, err := tx.Exec(ctx, `
		UPDATE providers
		SET earnings_today = earnings_today + $1, earnings_total = earnings_total + $1,
			earnings_updated_at = now(), updated_at = now()
		WHERE id = $2
	`, amount, id)
	return err
}

func (r *ProviderRepo) IncrementCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE providers SET completed_jobs = completed_jobs + 1, updated_at = now() WHERE id = $1`, id)
	return err
}

func (r *ProviderRepo) IncrementCancelled(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE providers SET cancelled_jobs = cancelled_jobs + 1, updated_at = now() WHERE id = $1`, id)
	return err
}

// SetAvailability flips the online flag and refreshes last_active_at.
func (r *ProviderRepo) SetAvailability(ctx context.Context, id uuid.UUID, isOnline bool) (*models.Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `
		UPDATE providers SET is_online = $2, last_active_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING `+providerColumns, id, isOnline))
}

// ResetDailyEarnings zeroes earnings_today for every provider. Lifetime
// totals are untouched. Returns the number of rows reset.
func (r *ProviderRepo) ResetDailyEarnings(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE providers SET earnings_today = 0, earnings_updated_at = now(), updated_at = now()
		WHERE earnings_today <> 0
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
