package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/powerhit/internal/telemetry/tracing"
	"github.com/2beens/powerhit/pkg"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Upsert stores the completion. A second completion on the same date
// overwrites the summary of the first one.
func (r *Repo) Upsert(ctx context.Context, c Completion) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", c.UserID))
	span.SetAttributes(attribute.String("completion.date", c.Date.Format(DateLayout)))

	tag, err := r.db.Exec(
		ctx,
		`
			INSERT INTO workout_progress (user_id, completed_date, exercises_completed, total_duration)
			VALUES ($1, $2::date, $3, $4)
			ON CONFLICT (user_id, completed_date) DO UPDATE
			SET exercises_completed = EXCLUDED.exercises_completed,
			    total_duration = EXCLUDED.total_duration
		`,
		c.UserID,
		c.Date.Format(DateLayout),
		c.Summary.ExercisesCompleted,
		c.Summary.TotalDurationSeconds,
	)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return fmt.Errorf("%w: %d", ErrInvalidUser, c.UserID)
		}
		return fmt.Errorf("upsert completion [exec]: %w", err)
	}

	if tag.RowsAffected() != 1 {
		return fmt.Errorf("upsert completion: unexpected rows affected: %d", tag.RowsAffected())
	}

	return nil
}

// ListBetween returns the completions of the user in [from, to).
func (r *Repo) ListBetween(ctx context.Context, userID int, from, to time.Time) (_ []Completion, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
			    completed_date, exercises_completed, total_duration, created_at
			FROM workout_progress
			WHERE user_id = $1
			  AND completed_date >= $2::date
			  AND completed_date < $3::date
			ORDER BY completed_date
		`,
		userID,
		from.Format(DateLayout),
		to.Format(DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("list completions [query]: %w", err)
	}
	defer rows.Close()

	completions := make([]Completion, 0)
	for rows.Next() {
		c := Completion{UserID: userID}
		if err := rows.Scan(
			&c.Date,
			&c.Summary.ExercisesCompleted,
			&c.Summary.TotalDurationSeconds,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("list completions [rows scan]: %w", err)
		}
		completions = append(completions, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list completions [rows error]: %w", err)
	}

	span.SetAttributes(attribute.Int("completions.count", len(completions)))
	return completions, nil
}
