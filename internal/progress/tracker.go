package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/powerhit/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrTransient marks storage failures. Callers degrade, they never abort a workout on it.
	ErrTransient   = errors.New("progress storage unavailable")
	ErrInvalidUser = errors.New("invalid user id")
)

//go:generate mockgen -source=tracker.go -destination=repo_mock_test.go -package=progress

type repo interface {
	Upsert(ctx context.Context, c Completion) error
	ListBetween(ctx context.Context, userID int, from, to time.Time) ([]Completion, error)
}

type Tracker struct {
	repo repo
}

func NewTracker(repo repo) *Tracker {
	return &Tracker{
		repo: repo,
	}
}

// RecordCompletion marks date as completed for the user. Recording the same
// date again leaves a single record.
func (t *Tracker) RecordCompletion(ctx context.Context, userID int, date time.Time, summary Summary) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.progress.record")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if userID <= 0 {
		return ErrInvalidUser
	}

	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	span.SetAttributes(attribute.String("completion.date", day.Format(DateLayout)))

	if err := t.repo.Upsert(ctx, Completion{
		UserID:  userID,
		Date:    day,
		Summary: summary,
	}); err != nil {
		if errors.Is(err, ErrInvalidUser) {
			return err
		}
		return fmt.Errorf("%w: record completion: %w", ErrTransient, err)
	}

	log.Debugf("user %d completed the workout of %s", userID, day.Format(DateLayout))
	return nil
}

// LoadMonthProgress returns every completed date in the month starting at monthStart.
func (t *Tracker) LoadMonthProgress(ctx context.Context, userID int, monthStart time.Time) (_ MonthProgress, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.progress.month")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if userID <= 0 {
		return MonthProgress{}, ErrInvalidUser
	}

	y, m, _ := monthStart.Date()
	from := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	span.SetAttributes(attribute.String("progress.month", from.Format(MonthLayout)))

	completions, err := t.repo.ListBetween(ctx, userID, from, to)
	if err != nil {
		return MonthProgress{}, fmt.Errorf("%w: load month progress: %w", ErrTransient, err)
	}

	dates := make([]time.Time, 0, len(completions))
	for _, c := range completions {
		// the store should already filter, but a bad row must not leak into another month
		if c.Date.Before(from) || !c.Date.Before(to) {
			continue
		}
		dates = append(dates, c.Date)
	}

	return MonthProgress{
		Month:       from,
		Dates:       dates,
		DaysInMonth: daysIn(from),
	}, nil
}
