package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servilocal/backend/internal/ledger"
	"github.com/servilocal/backend/internal/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// JobStore is the job persistence interface the state machine needs. Every
// transition method is an atomic conditional update: the WHERE clause carries
// the expected current status, and a lost race surfaces as pgx.ErrNoRows.
type JobStore interface {
	GetByProvider(ctx context.Context, jobID, providerID uuid.UUID) (*models.Job, error)
	Accept(ctx context.Context, jobID, providerID uuid.UUID) (*models.Job, error)
	Complete(ctx context.Context, tx pgx.Tx, jobID, providerID uuid.UUID, actualCost *int) (*models.Job, error)
	Cancel(ctx context.Context, tx pgx.Tx, jobID, providerID uuid.UUID, reason string) (*models.Job, error)
	ListByProviderAndStatus(ctx context.Context, providerID uuid.UUID, status string, page, limit int) ([]*models.Job, int, error)
}

type PostingStore interface {
	Create(ctx context.Context, tx pgx.Tx, p *models.ProviderJob) error
	GetByProvider(ctx context.Context, postingID, providerID uuid.UUID) (*models.ProviderJob, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, postingID, providerID uuid.UUID) (*models.ProviderJob, error)
	UpdatePending(ctx context.Context, p *models.ProviderJob) (*models.ProviderJob, error)
	Cancel(ctx context.Context, tx pgx.Tx, postingID, providerID uuid.UUID) (*models.ProviderJob, error)
	MarkRefunded(ctx context.Context, tx pgx.Tx, postingID uuid.UUID) error
	ListByProviderAndStatus(ctx context.Context, providerID uuid.UUID, status string, page, limit int) ([]*models.ProviderJob, int, error)
}

type ProviderStore interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Provider, error)
	AccrueEarnings(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) error
	IncrementCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	IncrementCancelled(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// Ledger abstracts the credit debit/refund operations tied to postings.
type Ledger interface {
	Debit(ctx context.Context, tx pgx.Tx, providerID, postingID uuid.UUID, amount int) (newBalance int, err error)
	Refund(ctx context.Context, tx pgx.Tx, providerID, postingID uuid.UUID, amount int) (newBalance int, err error)
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Page describes one page of a paginated listing.
type Page struct {
	Page  int
	Pages int
	Total int
}

// PostJobInput is the payload for posting a provider job.
type PostJobInput struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Price         int        `json:"price"`
	Logo          *string    `json:"logo,omitempty"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	ScheduledTime *string    `json:"scheduled_time,omitempty"`
	Location      *string    `json:"location,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

// UpdatePostingInput carries partial overwrites for a pending posting.
// Nil fields are left as they are.
type UpdatePostingInput struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Category      *string    `json:"category,omitempty"`
	Price         *int       `json:"price,omitempty"`
	Logo          *string    `json:"logo,omitempty"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	ScheduledTime *string    `json:"scheduled_time,omitempty"`
	Location      *string    `json:"location,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

// Service is the job state machine: it enforces which transitions are legal
// and what ledger or earnings side effects they carry.
type Service interface {
	Accept(ctx context.Context, jobID, providerID uuid.UUID) (*models.Job, error)
	Complete(ctx context.Context, jobID, providerID uuid.UUID, actualCost *int) (*models.Job, error)
	Cancel(ctx context.Context, jobID, providerID uuid.UUID, reason string) (*models.Job, error)
	Get(ctx context.Context, jobID, providerID uuid.UUID) (*models.Job, error)
	ListByStatus(ctx context.Context, providerID uuid.UUID, status string, page, limit int) ([]*models.Job, Page, error)

	Post(ctx context.Context, providerID uuid.UUID, in PostJobInput) (*models.ProviderJob, int, error)
	UpdatePosting(ctx context.Context, postingID, providerID uuid.UUID, in UpdatePostingInput) (*models.ProviderJob, error)
	CancelPosting(ctx context.Context, postingID, providerID uuid.UUID) (*models.ProviderJob, error)
	GetPosting(ctx context.Context, postingID, providerID uuid.UUID) (*models.ProviderJob, error)
	ListPostingsByStatus(ctx context.Context, providerID uuid.UUID, status string, page, limit int) ([]*models.ProviderJob, Page, error)
}

// service wraps every economically significant transition and its side
// effect in one transaction.
type service struct {
	db        TxBeginner
	jobs      JobStore
	postings  PostingStore
	providers ProviderStore
	ledger    Ledger
}

func NewService(db TxBeginner, jobs JobStore, postings PostingStore, providers ProviderStore, ledger Ledger) *service {
	return &service{db: db, jobs: jobs, postings: postings, providers: providers, ledger: ledger}
}

var _ Service = (*service)(nil)

// Accept transitions a pending job to accepted. No side effects.
func (s *service) Accept(ctx context.Context, jobID, providerID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.Accept(ctx, jobID, providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// Complete transitions an accepted or in-progress job to completed, accrues
// actualCost into the provider's earnings and bumps completed_jobs, all in
// one transaction. A nil actualCost completes the job with zero earnings.
func (s *service) Complete(ctx context.Context, jobID, providerID uuid.UUID, actualCost *int) (*models.Job, error) {
	if actualCost != nil && *actualCost < 0 {
		return nil, fmt.Errorf("%w: actual_cost must be non-negative", ErrValidation)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	job, err := s.jobs.Complete(ctx, tx, jobID, providerID, actualCost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	earned := 0
	if actualCost != nil {
		earned = *actualCost
	}
	if err := s.providers.AccrueEarnings(ctx, tx, providerID, earned); err != nil {
		return nil, err
	}
	if err := s.providers.IncrementCompleted(ctx, tx, providerID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

// Cancel transitions a pending or accepted job to cancelled, recording the
// free-text reason and bumping cancelled_jobs in the same transaction.
func (s *service) Cancel(ctx context.Context, jobID, providerID uuid.UUID, reason string) (*models.Job, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	job, err := s.jobs.Cancel(ctx, tx, jobID, providerID, reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if err := s.providers.IncrementCancelled(ctx, tx, providerID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *service) Get(ctx context.Context, jobID, providerID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByProvider(ctx, jobID, providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *service) ListByStatus(ctx context.Context, providerID uuid.UUID, status string, page, limit int) ([]*models.Job, Page, error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.jobs.ListByProviderAndStatus(ctx, providerID, status, page, limit)
	if err != nil {
		return nil, Page{}, err
	}
	return items, Page{Page: page, Pages: pageCount(total, limit), Total: total}, nil
}

// Post creates a pending posting and debits the posting fee in one
// transaction. The provider row is locked first so the balance precondition
// and the debit cannot straddle a concurrent post.
func (s *service) Post(ctx context.Context, providerID uuid.UUID, in PostJobInput) (*models.ProviderJob, int, error) {
	if in.Title == "" || in.Description == "" || in.Category == "" {
		return nil, 0, fmt.Errorf("%w: title, description and category are required", ErrValidation)
	}
	if in.Price < 0 {
		return nil, 0, fmt.Errorf("%w: price must be non-negative", ErrValidation)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	provider, err := s.providers.GetByIDForUpdate(ctx, tx, providerID)
	if err != nil {
		return nil, 0, err
	}
	if provider.Credits.Available < models.PostingCost {
		return nil, 0, ledger.ErrInsufficientCredits
	}

	location := in.Location
	if location == nil && provider.Location != "" {
		location = &provider.Location
	}
	posting := &models.ProviderJob{
		ID:            uuid.New(),
		ProviderID:    providerID,
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Price:         in.Price,
		Logo:          in.Logo,
		ScheduledDate: in.ScheduledDate,
		ScheduledTime: in.ScheduledTime,
		Location:      location,
		Notes:         in.Notes,
		PostingCost:   models.PostingCost,
	}
	if err := s.postings.Create(ctx, tx, posting); err != nil {
		return nil, 0, err
	}
	remaining, err := s.ledger.Debit(ctx, tx, providerID, posting.ID, posting.PostingCost)
	if err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return posting, remaining, nil
}

// UpdatePosting overwrites the supplied fields of a posting that is still
// pending. Any other status reports not-found.
func (s *service) UpdatePosting(ctx context.Context, postingID, providerID uuid.UUID, in UpdatePostingInput) (*models.ProviderJob, error) {
	current, err := s.postings.GetByProvider(ctx, postingID, providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostingNotFound
		}
		return nil, err
	}
	applyPostingUpdate(current, in)
	if current.Price < 0 {
		return nil, fmt.Errorf("%w: price must be non-negative", ErrValidation)
	}
	updated, err := s.postings.UpdatePending(ctx, current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostingNotFound
		}
		return nil, err
	}
	return updated, nil
}

func applyPostingUpdate(p *models.ProviderJob, in UpdatePostingInput) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Logo != nil {
		p.Logo = in.Logo
	}
	if in.ScheduledDate != nil {
		p.ScheduledDate = in.ScheduledDate
	}
	if in.ScheduledTime != nil {
		p.ScheduledTime = in.ScheduledTime
	}
	if in.Location != nil {
		p.Location = in.Location
	}
	if in.Notes != nil {
		p.Notes = in.Notes
	}
}

// CancelPosting transitions a pending or active posting to cancelled. The
// refund applies only when the pre-transition status was exactly pending:
// an active posting has already been consumed by going visible. The refund
// reverses the posting's stored cost and is gated on the refunded flag, so
// an at-least-once retry of this operation refunds at most once.
func (s *service) CancelPosting(ctx context.Context, postingID, providerID uuid.UUID) (*models.ProviderJob, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	prior, err := s.postings.GetForUpdate(ctx, tx, postingID, providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostingNotFound
		}
		return nil, err
	}
	cancelled, err := s.postings.Cancel(ctx, tx, postingID, providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostingNotFound
		}
		return nil, err
	}
	if prior.Status == models.PostingStatusPending && !prior.Refunded {
		if _, err := s.ledger.Refund(ctx, tx, providerID, postingID, prior.PostingCost); err != nil {
			return nil, err
		}
		if err := s.postings.MarkRefunded(ctx, tx, postingID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *service) GetPosting(ctx context.Context, postingID, providerID uuid.UUID) (*models.ProviderJob, error) {
	p, err := s.postings.GetByProvider(ctx, postingID, providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostingNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *service) ListPostingsByStatus(ctx context.Context, providerID uuid.UUID, status string, page, limit int) ([]*models.ProviderJob, Page, error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.postings.ListByProviderAndStatus(ctx, providerID, status, page, limit)
	if err != nil {
		return nil, Page{}, err
	}
	return items, Page{Page: page, Pages: pageCount(total, limit), Total: total}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func pageCount(total, limit int) int {
	return (total + limit - 1) / limit
}
