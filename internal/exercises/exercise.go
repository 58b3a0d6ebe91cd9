package exercises

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrInvalidExercise  = errors.New("invalid exercise")
)

// Exercise is a single catalog entry. Durations are whole seconds.
type Exercise struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	WorkSeconds  int       `json:"workSeconds"`
	RestSeconds  int       `json:"restSeconds"`
	Reps         string    `json:"reps,omitempty"`
	Instructions string    `json:"instructions,omitempty"`
	Image        string    `json:"image,omitempty"`
	Category     string    `json:"category,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (e Exercise) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidExercise)
	}
	if e.WorkSeconds <= 0 {
		return fmt.Errorf("%w [%s]: work duration must be positive, got %d", ErrInvalidExercise, e.ID, e.WorkSeconds)
	}
	if e.RestSeconds < 0 {
		return fmt.Errorf("%w [%s]: rest duration cannot be negative, got %d", ErrInvalidExercise, e.ID, e.RestSeconds)
	}
	return nil
}
