package earnings

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/servilocal/backend/internal/models"
)

// ProviderStore is the provider-side interface the earnings service reads
// from. The accrual write itself happens inside the job-completion
// transaction; this service owns the read and reset paths.
type ProviderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error)
	ResetDailyEarnings(ctx context.Context) (int64, error)
}

// JobStore supplies the per-date breakdown of completed-job earnings.
type JobStore interface {
	EarningsByDate(ctx context.Context, providerID uuid.UUID) (map[string]int, error)
}

// Summary is the provider-facing earnings report. EarningsByDate is grouped
// on read from completed jobs; it is never stored.
type Summary struct {
	EarningsToday  int            `json:"earnings_today"`
	EarningsTotal  int            `json:"earnings_total"`
	CompletedJobs  int            `json:"completed_jobs"`
	EarningsByDate map[string]int `json:"earnings_by_date"`
	LastUpdated    time.Time      `json:"last_updated"`
}

type Service struct {
	providers ProviderStore
	jobs      JobStore
}

func NewService(providers ProviderStore, jobs JobStore) *Service {
	return &Service{providers: providers, jobs: jobs}
}

func (s *Service) Summary(ctx context.Context, providerID uuid.UUID) (*Summary, error) {
	provider, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	byDate, err := s.jobs.EarningsByDate(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		EarningsToday:  provider.Earnings.Today,
		EarningsTotal:  provider.Earnings.Total,
		CompletedJobs:  provider.Stats.CompletedJobs,
		EarningsByDate: byDate,
		LastUpdated:    provider.Earnings.LastUpdated,
	}, nil
}

// ResetDaily zeroes every provider's daily counter. Lifetime totals are
// never reset. Invoked by the scheduled maintenance job.
func (s *Service) ResetDaily(ctx context.Context) (int64, error) {
	return s.providers.ResetDailyEarnings(ctx)
}
