package interval

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Run summarises one workout run from start to completion.
type Run struct {
	ID                 uuid.UUID `json:"id"`
	Date               time.Time `json:"date"`
	StartedAt          time.Time `json:"startedAt"`
	FinishedAt         time.Time `json:"finishedAt,omitzero"`
	ElapsedSeconds     int       `json:"elapsedSeconds"`
	ExercisesCompleted int       `json:"exercisesCompleted"`
	ExercisesSkipped   int       `json:"exercisesSkipped"`
}

// CompletionRecorder persists a finished run. It is called off the controller
// loop, and its result may arrive after the controller has moved on.
type CompletionRecorder interface {
	RecordCompletion(ctx context.Context, run Run) error
}

type CompletionRecorderFunc func(ctx context.Context, run Run) error

func (f CompletionRecorderFunc) RecordCompletion(ctx context.Context, run Run) error {
	return f(ctx, run)
}
