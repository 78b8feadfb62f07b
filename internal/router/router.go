package router

import (
	"net/http"

	"github.com/servilocal/backend/internal/auth"
	"github.com/servilocal/backend/internal/directory"
	"github.com/servilocal/backend/internal/earnings"
	"github.com/servilocal/backend/internal/jobs"
	"github.com/servilocal/backend/internal/middleware"
)

// New returns an http.Handler serving the API under /api/v1. authn is the
// bearer-token middleware; permission gates run after it.
func New(
	authHandler *auth.Handler,
	jobsHandler *jobs.Handler,
	dirHandler *directory.Handler,
	earningsHandler *earnings.Handler,
	authn func(http.Handler) http.Handler,
) http.Handler {
	mux := http.NewServeMux()
	const base = "/api/v1"

	manageJobs := middleware.RequirePermission(middleware.PermManageJobs)
	postJobs := middleware.RequirePermission(middleware.PermPostJobs)
	viewEarnings := middleware.RequirePermission(middleware.PermViewEarnings)
	manageAccount := middleware.RequirePermission(middleware.PermManageAccount)

	protected := func(gate func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
		return authn(gate(h))
	}

	// Public
	mux.HandleFunc("POST "+base+"/providers/signup", authHandler.Signup)
	mux.HandleFunc("POST "+base+"/providers/login", authHandler.Login)
	mux.HandleFunc("GET "+base+"/providers", dirHandler.ListProviders)

	// Client-job lifecycle
	mux.Handle("PATCH "+base+"/jobs/{id}/accept", protected(manageJobs, jobsHandler.AcceptJob))
	mux.Handle("PATCH "+base+"/jobs/{id}/complete", protected(manageJobs, jobsHandler.CompleteJob))
	mux.Handle("PATCH "+base+"/jobs/{id}/cancel", protected(manageJobs, jobsHandler.CancelJob))
	mux.Handle("GET "+base+"/jobs/pending", protected(manageJobs, jobsHandler.ListJobs))
	mux.Handle("GET "+base+"/jobs/{id}", protected(manageJobs, jobsHandler.GetJob))

	// Provider postings
	mux.Handle("POST "+base+"/jobs/post", protected(postJobs, jobsHandler.PostJob))
	mux.Handle("GET "+base+"/jobs/my-posted", protected(postJobs, jobsHandler.ListPostings))
	mux.Handle("GET "+base+"/jobs/my-posted/{id}", protected(postJobs, jobsHandler.GetPosting))
	mux.Handle("PATCH "+base+"/jobs/my-posted/{id}", protected(postJobs, jobsHandler.UpdatePosting))
	mux.Handle("PATCH "+base+"/jobs/my-posted/{id}/cancel", protected(postJobs, jobsHandler.CancelPosting))

	// Earnings and account
	mux.Handle("GET "+base+"/earnings/summary", protected(viewEarnings, earningsHandler.GetSummary))
	mux.Handle("GET "+base+"/dashboard/stats", protected(manageAccount, dirHandler.GetDashboard))
	mux.Handle("PATCH "+base+"/availability", protected(manageAccount, dirHandler.UpdateAvailability))
	mux.Handle("GET "+base+"/credits", protected(manageAccount, dirHandler.GetCredits))

	return mux
}
