package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/servilocal/backend/internal/ledger"
	"github.com/servilocal/backend/internal/models"
)

// ---------------------------------------------------------------------------
// noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called.
// ---------------------------------------------------------------------------

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockDB struct{}

func (mockDB) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// ---------------------------------------------------------------------------
// In-memory stores emulating the repos' conditional-update semantics: a
// transition whose status predicate fails returns pgx.ErrNoRows, exactly as
// the SQL UPDATE would match zero rows.
// ---------------------------------------------------------------------------

type mockJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
}

func newMockJobStore(jobs ...*models.Job) *mockJobStore {
	m := &mockJobStore{jobs: make(map[uuid.UUID]*models.Job)}
	for _, j := range jobs {
		cp := *j
		m.jobs[j.ID] = &cp
	}
	return m
}

func (m *mockJobStore) owned(jobID, providerID uuid.UUID) *models.Job {
	j, ok := m.jobs[jobID]
	if !ok || j.ProviderID != providerID {
		return nil
	}
	return j
}

func (m *mockJobStore) GetByProvider(_ context.Context, jobID, providerID uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.owned(jobID, providerID)
	if j == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *j
	return &cp, nil
}

func (m *mockJobStore) Accept(_ context.Context, jobID, providerID uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.owned(jobID, providerID)
	if j == nil || j.Status != models.JobStatusPending {
		return nil, pgx.ErrNoRows
	}
	j.Status = models.JobStatusAccepted
	cp := *j
	return &cp, nil
}

func (m *mockJobStore) Complete(_ context.Context, _ pgx.Tx, jobID, providerID uuid.UUID, actualCost *int) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.owned(jobID, providerID)
	if j == nil || (j.Status != models.JobStatusAccepted && j.Status != models.JobStatusInProgress) {
		return nil, pgx.ErrNoRows
	}
	j.Status = models.JobStatusCompleted
	j.ActualCost = actualCost
	cp := *j
	return &cp, nil
}

func (m *mockJobStore) Cancel(_ context.Context, _ pgx.Tx, jobID, providerID uuid.UUID, reason string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.owned(jobID, providerID)
	if j == nil || (j.Status != models.JobStatusPending && j.Status != models.JobStatusAccepted) {
		return nil, pgx.ErrNoRows
	}
	j.Status = models.JobStatusCancelled
	j.Notes = reason
	cp := *j
	return &cp, nil
}

func (m *mockJobStore) ListByProviderAndStatus(_ context.Context, providerID uuid.UUID, status string, page, limit int) ([]*models.Job, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*models.Job
	for _, j := range m.jobs {
		if j.ProviderID == providerID && j.Status == status {
			cp := *j
			matched = append(matched, &cp)
		}
	}
	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

type mockPostingStore struct {
	mu       sync.Mutex
	postings map[uuid.UUID]*models.ProviderJob
}

func newMockPostingStore(postings ...*models.ProviderJob) *mockPostingStore {
	m := &mockPostingStore{postings: make(map[uuid.UUID]*models.ProviderJob)}
	for _, p := range postings {
		cp := *p
		m.postings[p.ID] = &cp
	}
	return m
}

func (m *mockPostingStore) owned(postingID, providerID uuid.UUID) *models.ProviderJob {
	p, ok := m.postings[postingID]
	if !ok || p.ProviderID != providerID {
		return nil
	}
	return p
}

func (m *mockPostingStore) Create(_ context.Context, _ pgx.Tx, p *models.ProviderJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Status = models.PostingStatusPending
	cp := *p
	m.postings[p.ID] = &cp
	return nil
}

func (m *mockPostingStore) GetByProvider(_ context.Context, postingID, providerID uuid.UUID) (*models.ProviderJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.owned(postingID, providerID)
	if p == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockPostingStore) GetForUpdate(ctx context.Context, tx pgx.Tx, postingID, providerID uuid.UUID) (*models.ProviderJob, error) {
	return m.GetByProvider(ctx, postingID, providerID)
}

func (m *mockPostingStore) UpdatePending(_ context.Context, p *models.ProviderJob) (*models.ProviderJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.owned(p.ID, p.ProviderID)
	if stored == nil || stored.Status != models.PostingStatusPending {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	cp.Status = stored.Status
	cp.Refunded = stored.Refunded
	m.postings[p.ID] = &cp
	out := cp
	return &out, nil
}

func (m *mockPostingStore) Cancel(_ context.Context, _ pgx.Tx, postingID, providerID uuid.UUID) (*models.ProviderJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.owned(postingID, providerID)
	if p == nil || (p.Status != models.PostingStatusPending && p.Status != models.PostingStatusActive) {
		return nil, pgx.ErrNoRows
	}
	p.Status = models.PostingStatusCancelled
	cp := *p
	return &cp, nil
}

func (m *mockPostingStore) MarkRefunded(_ context.Context, _ pgx.Tx, postingID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.postings[postingID]; ok {
		p.Refunded = true
	}
	return nil
}

func (m *mockPostingStore) ListByProviderAndStatus(_ context.Context, providerID uuid.UUID, status string, page, limit int) ([]*models.ProviderJob, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*models.ProviderJob
	for _, p := range m.postings {
		if p.ProviderID == providerID && p.Status == status {
			cp := *p
			matched = append(matched, &cp)
		}
	}
	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

type mockProviderStore struct {
	mu        sync.Mutex
	providers map[uuid.UUID]*models.Provider
}

func newMockProviderStore(providers ...*models.Provider) *mockProviderStore {
	m := &mockProviderStore{providers: make(map[uuid.UUID]*models.Provider)}
	for _, p := range providers {
		cp := *p
		m.providers[p.ID] = &cp
	}
	return m
}

func (m *mockProviderStore) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockProviderStore) AccrueEarnings(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.providers[id]
	p.Earnings.Today += amount
	p.Earnings.Total += amount
	return nil
}

func (m *mockProviderStore) IncrementCompleted(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[id].Stats.CompletedJobs++
	return nil
}

func (m *mockProviderStore) IncrementCancelled(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[id].Stats.CancelledJobs++
	return nil
}

// DebitCredits and RefundCredits let the real ledger.Service run against
// this store, so posting tests exercise the actual debit/refund logic.
func (m *mockProviderStore) DebitCredits(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.providers[id]
	if p.Credits.Available < amount {
		return 0, pgx.ErrNoRows
	}
	p.Credits.Available -= amount
	p.Credits.Spent += amount
	return p.Credits.Available, nil
}

func (m *mockProviderStore) RefundCredits(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.providers[id]
	p.Credits.Available += amount
	p.Credits.Spent -= amount
	return p.Credits.Available, nil
}

func (m *mockProviderStore) get(id uuid.UUID) models.Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.providers[id]
}

type mockEntryRepo struct {
	mu      sync.Mutex
	entries []*models.CreditEntry
}

func (m *mockEntryRepo) CreateTx(_ context.Context, _ pgx.Tx, e *models.CreditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

type fixture struct {
	svc       Service
	jobs      *mockJobStore
	postings  *mockPostingStore
	providers *mockProviderStore
	entries   *mockEntryRepo
}

func newFixture(providers []*models.Provider, jobs []*models.Job, postings []*models.ProviderJob) *fixture {
	pStore := newMockProviderStore(providers...)
	jStore := newMockJobStore(jobs...)
	postStore := newMockPostingStore(postings...)
	entries := &mockEntryRepo{}
	ledgerSvc := ledger.NewService(pStore, entries)
	return &fixture{
		svc:       NewService(mockDB{}, jStore, postStore, pStore, ledgerSvc),
		jobs:      jStore,
		postings:  postStore,
		providers: pStore,
		entries:   entries,
	}
}

func provider(id uuid.UUID, credits int) *models.Provider {
	return &models.Provider{ID: id, Credits: models.CreditBalance{Available: credits}}
}

func pendingJob(providerID uuid.UUID) *models.Job {
	return &models.Job{ID: uuid.New(), ProviderID: providerID, Status: models.JobStatusPending, Budget: 150}
}

func intPtr(n int) *int { return &n }

// ---------------------------------------------------------------------------
// Client-job lifecycle
// ---------------------------------------------------------------------------

func TestAccept(t *testing.T) {
	providerID := uuid.New()
	job := pendingJob(providerID)
	f := newFixture([]*models.Provider{provider(providerID, 0)}, []*models.Job{job}, nil)

	ctx := context.Background()
	got, err := f.svc.Accept(ctx, job.ID, providerID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got.Status != models.JobStatusAccepted {
		t.Errorf("status: got %q, want accepted", got.Status)
	}

	// A second accept loses the conditional update and reports not-found.
	if _, err := f.svc.Accept(ctx, job.ID, providerID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("double accept: got %v, want ErrJobNotFound", err)
	}
}

func TestAcceptWrongProvider(t *testing.T) {
	providerID := uuid.New()
	job := pendingJob(providerID)
	f := newFixture([]*models.Provider{provider(providerID, 0)}, []*models.Job{job}, nil)

	// Ownership failure is indistinguishable from absence.
	if _, err := f.svc.Accept(context.Background(), job.ID, uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("foreign accept: got %v, want ErrJobNotFound", err)
	}
}

func TestConcurrentAccept(t *testing.T) {
	providerID := uuid.New()
	job := pendingJob(providerID)
	f := newFixture([]*models.Provider{provider(providerID, 0)}, []*models.Job{job}, nil)

	ctx := context.Background()
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, job.ID, providerID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
		} else if errors.Is(err, ErrJobNotFound) {
			losses++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Errorf("concurrent accept: got %d wins %d losses, want exactly 1 of each", wins, losses)
	}
}

func TestComplete(t *testing.T) {
	providerID := uuid.New()
	job := pendingJob(providerID)
	job.Status = models.JobStatusAccepted
	f := newFixture([]*models.Provider{provider(providerID, 0)}, []*models.Job{job}, nil)

	got, err := f.svc.Complete(context.Background(), job.ID, providerID, intPtr(100))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Status != models.JobStatusCompleted {
		t.Errorf("status: got %q, want completed", got.Status)
	}
	if got.ActualCost == nil || *got.ActualCost != 100 {
		t.Error("actual_cost should be recorded on the job")
	}

	p := f.providers.get(providerID)
	if p.Earnings.Today != 100 || p.Earnings.Total != 100 {
		t.Errorf("earnings: got today=%d total=%d, want 100 and 100", p.Earnings.Today, p.Earnings.Total)
	}
	if p.Stats.CompletedJobs != 1 {
		t.Errorf("completed_jobs: got %d, want 1", p.Stats.CompletedJobs)
	}
}

func TestCompleteFromInProgress(t *testing.T) {
	providerID := uuid.New()
	job := pendingJob(providerID)
	job.Status = models.JobStatusInProgress
	f := newFixture([]*models.Provider{provider(providerID, 0)}, []*models.Job{job}, nil)

	if _, err := f.svc.Complete(context.Background(), job.ID, providerID, intPtr(30)); err != nil {
		t.Fatalf("Complete from in-progress: %v", err)
	}
}

func TestCompleteWithoutActualCost(t *testing.T) {
	providerID := uuid.New()
	job := pendingJob(providerID)
	job.Status = models.JobStatusAccepted
	f := newFixture([]*models.Provider{provider(providerID, 0)}, []*models.Job{job}, nil)

	got, err := f.svc.Complete(context.Background(), job.ID, providerID, nil)
	if err != nil {
		t.Fatalf("Complete without cost: %v", err)
	}
	if got.Status != models.JobStatusCompleted {
		t.Errorf("status: got %q, want completed", got.Status)
	}
	p := f.providers.get(providerID)
	if p.Earnings.Today != 0 || p.Earnings.Total != 0 {
		t.Errorf("missing actual_cost must contribute zero earnings, got today=%d total=%d", p.Earnings.Today, p.Earnings.Total)
	}
	if p.Stats.CompletedJobs != 1 {
		t.Errorf("completed_jobs: got %d, want 1", p.Stats.CompletedJobs)
	}
}

func TestCompleteNegativeCost(t *testing.T) {
	providerID := uuid.New()
	job := pendingJob(providerID)
	job.Status = models.JobStatusAccepted
	f := newFixture([]*models.Provider{provider(providerID, 0)}, []*models.Job{job}, nil)

	if _, err := f.svc.Complete(context.Background(), job.ID, providerID, intPtr(-5)); !errors.Is(err, ErrValidation) {
		t.Errorf("negative cost: got %v, want ErrValidation", err)
	}
}

func TestCompletePendingFails(t *testing.T) {
	providerID := uuid.New()
	job := pendingJob(providerID)
	f := newFixture([]*models.Provider{provider(providerID, 0)}, []*models.Job{job}, nil)

	if _, err := f.svc.Complete(context.Background(), job.ID, providerID, intPtr(10)); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("complete from pending: got %v, want ErrJobNotFound", err)
	}
	p := f.providers.get(providerID)
	if p.Earnings.Total != 0 || p.Stats.CompletedJobs != 0 {
		t.Error("failed complete must leave earnings and stats untouched")
	}
}

func TestCancelJob(t *testing.T) {
	providerID := uuid.New()
	job := pendingJob(providerID)
	f := newFixture([]*models.Provider{provider(providerID, 0)}, []*models.Job{job}, nil)

	got, err := f.svc.Cancel(context.Background(), job.ID, providerID, "client no-show")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != models.JobStatusCancelled {
		t.Errorf("status: got %q, want cancelled", got.Status)
	}
	if got.Notes != "client no-show" {
		t.Errorf("notes: got %q, want the cancel reason", got.Notes)
	}
	if p := f.providers.get(providerID); p.Stats.CancelledJobs != 1 {
		t.Errorf("cancelled_jobs: got %d, want 1", p.Stats.CancelledJobs)
	}
}

// pending -> accept -> cancel is legal (cancel is allowed from accepted);
// the cancelled counter moves once.
func TestAcceptThenCancel(t *testing.T) {
	providerID := uuid.New()
	job := pendingJob(providerID)
	f := newFixture([]*models.Provider{provider(providerID, 0)}, []*models.Job{job}, nil)

	ctx := context.Background()
	if _, err := f.svc.Accept(ctx, job.ID, providerID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	got, err := f.svc.Cancel(ctx, job.ID, providerID, "rescheduled")
	if err != nil {
		t.Fatalf("Cancel after accept: %v", err)
	}
	if got.Status != models.JobStatusCancelled {
		t.Errorf("status: got %q, want cancelled", got.Status)
	}
	if p := f.providers.get(providerID); p.Stats.CancelledJobs != 1 {
		t.Errorf("cancelled_jobs: got %d, want 1", p.Stats.CancelledJobs)
	}

	// Terminal: no further transitions.
	if _, err := f.svc.Cancel(ctx, job.ID, providerID, "again"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("cancel of cancelled job: got %v, want ErrJobNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// Postings + ledger
// ---------------------------------------------------------------------------

func postInput() PostJobInput {
	return PostJobInput{Title: "Gutter cleaning", Description: "Full gutter service", Category: "home", Price: 80}
}

func TestPost(t *testing.T) {
	providerID := uuid.New()
	f := newFixture([]*models.Provider{provider(providerID, 60)}, nil, nil)

	posting, remaining, err := f.svc.Post(context.Background(), providerID, postInput())
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if posting.Status != models.PostingStatusPending {
		t.Errorf("status: got %q, want pending", posting.Status)
	}
	if posting.PostingCost != models.PostingCost {
		t.Errorf("posting_cost: got %d, want %d", posting.PostingCost, models.PostingCost)
	}
	if remaining != 10 {
		t.Errorf("remaining credits: got %d, want 10", remaining)
	}
	p := f.providers.get(providerID)
	if p.Credits.Available != 10 || p.Credits.Spent != 50 {
		t.Errorf("balance after post: got %+v, want {10 50}", p.Credits)
	}
}

func TestPostInsufficientCredits(t *testing.T) {
	providerID := uuid.New()
	f := newFixture([]*models.Provider{provider(providerID, 49)}, nil, nil)

	_, _, err := f.svc.Post(context.Background(), providerID, postInput())
	if !errors.Is(err, ledger.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got: %v", err)
	}
	p := f.providers.get(providerID)
	if p.Credits.Available != 49 || p.Credits.Spent != 0 {
		t.Errorf("failed post must leave balance unchanged, got %+v", p.Credits)
	}
}

func TestPostExactThreshold(t *testing.T) {
	providerID := uuid.New()
	f := newFixture([]*models.Provider{provider(providerID, 50)}, nil, nil)

	_, remaining, err := f.svc.Post(context.Background(), providerID, postInput())
	if err != nil {
		t.Fatalf("Post with exactly 50 credits: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining: got %d, want 0", remaining)
	}
	p := f.providers.get(providerID)
	if p.Credits.Available != 0 || p.Credits.Spent != 50 {
		t.Errorf("balance: got %+v, want {0 50}", p.Credits)
	}
}

func TestPostValidation(t *testing.T) {
	providerID := uuid.New()
	f := newFixture([]*models.Provider{provider(providerID, 100)}, nil, nil)

	in := postInput()
	in.Title = ""
	if _, _, err := f.svc.Post(context.Background(), providerID, in); !errors.Is(err, ErrValidation) {
		t.Errorf("missing title: got %v, want ErrValidation", err)
	}

	in = postInput()
	in.Price = -1
	if _, _, err := f.svc.Post(context.Background(), providerID, in); !errors.Is(err, ErrValidation) {
		t.Errorf("negative price: got %v, want ErrValidation", err)
	}
}

func TestPostDefaultsLocation(t *testing.T) {
	providerID := uuid.New()
	p := provider(providerID, 100)
	p.Location = "Springfield"
	f := newFixture([]*models.Provider{p}, nil, nil)

	posting, _, err := f.svc.Post(context.Background(), providerID, postInput())
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if posting.Location == nil || *posting.Location != "Springfield" {
		t.Error("posting should default to the provider's location")
	}
}

func TestCancelPendingPostingRefunds(t *testing.T) {
	providerID := uuid.New()
	f := newFixture([]*models.Provider{provider(providerID, 60)}, nil, nil)

	ctx := context.Background()
	posting, _, err := f.svc.Post(ctx, providerID, postInput())
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	cancelled, err := f.svc.CancelPosting(ctx, posting.ID, providerID)
	if err != nil {
		t.Fatalf("CancelPosting: %v", err)
	}
	if cancelled.Status != models.PostingStatusCancelled {
		t.Errorf("status: got %q, want cancelled", cancelled.Status)
	}
	p := f.providers.get(providerID)
	if p.Credits.Available != 60 || p.Credits.Spent != 0 {
		t.Errorf("cancel while pending must restore pre-post balance, got %+v", p.Credits)
	}

	// Listing by cancelled status shows exactly that posting.
	items, pg, err := f.svc.ListPostingsByStatus(ctx, providerID, models.PostingStatusCancelled, 1, 10)
	if err != nil {
		t.Fatalf("ListPostingsByStatus: %v", err)
	}
	if len(items) != 1 || pg.Total != 1 || items[0].ID != posting.ID {
		t.Errorf("cancelled listing: got %d items total %d", len(items), pg.Total)
	}
}

func TestCancelActivePostingNoRefund(t *testing.T) {
	providerID := uuid.New()
	active := &models.ProviderJob{
		ID: uuid.New(), ProviderID: providerID,
		Status: models.PostingStatusActive, PostingCost: models.PostingCost,
	}
	f := newFixture([]*models.Provider{provider(providerID, 10)}, nil, []*models.ProviderJob{active})

	cancelled, err := f.svc.CancelPosting(context.Background(), active.ID, providerID)
	if err != nil {
		t.Fatalf("CancelPosting: %v", err)
	}
	if cancelled.Status != models.PostingStatusCancelled {
		t.Errorf("status: got %q, want cancelled", cancelled.Status)
	}
	p := f.providers.get(providerID)
	if p.Credits.Available != 10 || p.Credits.Spent != 0 {
		t.Errorf("cancelling an active posting must not move credits, got %+v", p.Credits)
	}
}

func TestCancelPostingTwice(t *testing.T) {
	providerID := uuid.New()
	f := newFixture([]*models.Provider{provider(providerID, 60)}, nil, nil)

	ctx := context.Background()
	posting, _, err := f.svc.Post(ctx, providerID, postInput())
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if _, err := f.svc.CancelPosting(ctx, posting.ID, providerID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := f.svc.CancelPosting(ctx, posting.ID, providerID); !errors.Is(err, ErrPostingNotFound) {
		t.Errorf("second cancel: got %v, want ErrPostingNotFound", err)
	}
	p := f.providers.get(providerID)
	if p.Credits.Available != 60 {
		t.Errorf("second cancel must not refund again, available: got %d, want 60", p.Credits.Available)
	}
}

// A retried cancel that finds the posting still pending but already marked
// refunded (crash between refund and status flip never happens in one tx,
// but the flag is the safety net for at-least-once delivery) must not
// refund a second time.
func TestCancelPostingRefundIdempotent(t *testing.T) {
	providerID := uuid.New()
	posting := &models.ProviderJob{
		ID: uuid.New(), ProviderID: providerID,
		Status: models.PostingStatusPending, PostingCost: models.PostingCost,
		Refunded: true,
	}
	f := newFixture([]*models.Provider{provider(providerID, 60)}, nil, []*models.ProviderJob{posting})

	if _, err := f.svc.CancelPosting(context.Background(), posting.ID, providerID); err != nil {
		t.Fatalf("CancelPosting: %v", err)
	}
	p := f.providers.get(providerID)
	if p.Credits.Available != 60 {
		t.Errorf("refunded flag must block a second refund, available: got %d, want 60", p.Credits.Available)
	}
}

// Refund reverses the posting's stored cost, not a constant.
func TestRefundUsesStoredPostingCost(t *testing.T) {
	providerID := uuid.New()
	posting := &models.ProviderJob{
		ID: uuid.New(), ProviderID: providerID,
		Status: models.PostingStatusPending, PostingCost: 30,
	}
	f := newFixture([]*models.Provider{provider(providerID, 0)}, nil, []*models.ProviderJob{posting})

	if _, err := f.svc.CancelPosting(context.Background(), posting.ID, providerID); err != nil {
		t.Fatalf("CancelPosting: %v", err)
	}
	p := f.providers.get(providerID)
	if p.Credits.Available != 30 {
		t.Errorf("refund amount: got %d, want the stored cost 30", p.Credits.Available)
	}
}

func TestUpdatePosting(t *testing.T) {
	providerID := uuid.New()
	f := newFixture([]*models.Provider{provider(providerID, 60)}, nil, nil)

	ctx := context.Background()
	posting, _, err := f.svc.Post(ctx, providerID, postInput())
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	newTitle := "Gutter and roof cleaning"
	newPrice := 95
	updated, err := f.svc.UpdatePosting(ctx, posting.ID, providerID, UpdatePostingInput{Title: &newTitle, Price: &newPrice})
	if err != nil {
		t.Fatalf("UpdatePosting: %v", err)
	}
	if updated.Title != newTitle || updated.Price != newPrice {
		t.Errorf("update not applied: got %q/%d", updated.Title, updated.Price)
	}
	if updated.Description != "Full gutter service" {
		t.Error("omitted fields must keep their values")
	}
	if updated.Status != models.PostingStatusPending {
		t.Errorf("status must stay pending, got %q", updated.Status)
	}
}

func TestUpdateNonPendingPosting(t *testing.T) {
	providerID := uuid.New()
	active := &models.ProviderJob{
		ID: uuid.New(), ProviderID: providerID,
		Status: models.PostingStatusActive, PostingCost: models.PostingCost,
	}
	f := newFixture([]*models.Provider{provider(providerID, 0)}, nil, []*models.ProviderJob{active})

	title := "changed"
	_, err := f.svc.UpdatePosting(context.Background(), active.ID, providerID, UpdatePostingInput{Title: &title})
	if !errors.Is(err, ErrPostingNotFound) {
		t.Errorf("update of active posting: got %v, want ErrPostingNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

func TestListPagination(t *testing.T) {
	providerID := uuid.New()
	var seed []*models.Job
	for i := 0; i < 23; i++ {
		seed = append(seed, pendingJob(providerID))
	}
	f := newFixture([]*models.Provider{provider(providerID, 0)}, seed, nil)

	ctx := context.Background()
	items, pg, err := f.svc.ListByStatus(ctx, providerID, models.JobStatusPending, 1, 10)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(items) != 10 || pg.Total != 23 || pg.Pages != 3 || pg.Page != 1 {
		t.Errorf("page 1: got count=%d total=%d pages=%d page=%d", len(items), pg.Total, pg.Pages, pg.Page)
	}

	items, pg, err = f.svc.ListByStatus(ctx, providerID, models.JobStatusPending, 3, 10)
	if err != nil {
		t.Fatalf("ListByStatus page 3: %v", err)
	}
	if len(items) != 3 || pg.Pages != 3 {
		t.Errorf("page 3: got count=%d pages=%d, want 3 and 3", len(items), pg.Pages)
	}

	// Defaults: page < 1 and limit 0 fall back to 1 and 10.
	items, pg, err = f.svc.ListByStatus(ctx, providerID, models.JobStatusPending, 0, 0)
	if err != nil {
		t.Fatalf("ListByStatus defaults: %v", err)
	}
	if len(items) != 10 || pg.Page != 1 {
		t.Errorf("defaults: got count=%d page=%d, want 10 and 1", len(items), pg.Page)
	}
}
