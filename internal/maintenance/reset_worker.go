package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

type DailyResetArgs struct{}

func (DailyResetArgs) Kind() string { return "daily_earnings_reset" }

// InsertOpts dedupes the reset per day, so a restart around the schedule
// boundary can't run it twice.
func (DailyResetArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{ByPeriod: 24 * time.Hour},
	}
}

// EarningsResetter is the slice of the earnings service the worker needs.
type EarningsResetter interface {
	ResetDaily(ctx context.Context) (int64, error)
}

// DailyResetWorker zeroes every provider's daily earnings counter. Lifetime
// totals are untouched. The underlying UPDATE is idempotent, so River's
// at-least-once delivery is safe.
type DailyResetWorker struct {
	river.WorkerDefaults[DailyResetArgs]
	earnings EarningsResetter
	log      *slog.Logger
}

func NewDailyResetWorker(earnings EarningsResetter, log *slog.Logger) *DailyResetWorker {
	if log == nil {
		log = slog.Default()
	}
	return &DailyResetWorker{earnings: earnings, log: log}
}

func (w *DailyResetWorker) Work(ctx context.Context, job *river.Job[DailyResetArgs]) error {
	n, err := w.earnings.ResetDaily(ctx)
	if err != nil {
		return err
	}
	w.log.Info("daily earnings reset", "providers_reset", n)
	return nil
}

// MidnightUTC schedules the reset at 00:00 UTC. It satisfies
// river.PeriodicSchedule.
type MidnightUTC struct{}

func (MidnightUTC) Next(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
