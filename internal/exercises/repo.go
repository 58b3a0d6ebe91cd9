package exercises

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/powerhit/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
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

func (r *Repo) List(ctx context.Context) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
			    id, name, work_seconds, rest_seconds, reps, instructions, image, category, created_at
			FROM exercise
			ORDER BY id
		`,
	)
	if err != nil {
		return nil, fmt.Errorf("exercises [query]: %w", err)
	}
	defer rows.Close()

	exercises := make([]Exercise, 0)
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(
			&e.ID,
			&e.Name,
			&e.WorkSeconds,
			&e.RestSeconds,
			&e.Reps,
			&e.Instructions,
			&e.Image,
			&e.Category,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("exercises [rows scan]: %w", err)
		}
		exercises = append(exercises, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exercises [rows error]: %w", err)
	}

	span.SetAttributes(attribute.Int("exercises.count", len(exercises)))
	return exercises, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", id))

	var e Exercise
	err = r.db.QueryRow(
		ctx,
		`
			SELECT
			    id, name, work_seconds, rest_seconds, reps, instructions, image, category, created_at
			FROM exercise
			WHERE id = $1
		`,
		id,
	).Scan(
		&e.ID,
		&e.Name,
		&e.WorkSeconds,
		&e.RestSeconds,
		&e.Reps,
		&e.Instructions,
		&e.Image,
		&e.Category,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Exercise{}, ErrExerciseNotFound
		}
		return Exercise{}, fmt.Errorf("exercise [query row]: %w", err)
	}

	return e, nil
}
