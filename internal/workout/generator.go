package workout

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/2beens/powerhit/internal/exercises"
	"github.com/2beens/powerhit/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

const DefaultSize = 6

// Generate picks the workout for the given date: the catalog is shuffled with
// the date's day-of-year as the only seed, then the first size entries are taken.
// Same catalog contents and same date always give the same ordered list.
// An empty catalog gives an empty list.
func Generate(catalog []exercises.Exercise, date time.Time, size int) []exercises.Exercise {
	if len(catalog) == 0 || size <= 0 {
		return []exercises.Exercise{}
	}

	// canonical order first, so the store's row order does not leak into the plan
	shuffled := slices.Clone(catalog)
	slices.SortFunc(shuffled, func(a, b exercises.Exercise) int {
		return strings.Compare(a.ID, b.ID)
	})

	shuffle(shuffled, newSplitMix64(Seed(date)))

	if size > len(shuffled) {
		size = len(shuffled)
	}
	return shuffled[:size]
}

// Seed is the date's ordinal day of the year, 1 = Jan 1.
func Seed(date time.Time) uint64 {
	return uint64(date.YearDay())
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type catalog interface {
	List(ctx context.Context) ([]exercises.Exercise, error)
}

// Generator builds daily plans from the catalog snapshot.
type Generator struct {
	catalog     catalog
	size        int
	defaultRest int
	location    *time.Location
}

func NewGenerator(catalog catalog, size, defaultRestSeconds int, location *time.Location) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	if location == nil {
		location = time.UTC
	}
	return &Generator{
		catalog:     catalog,
		size:        size,
		defaultRest: defaultRestSeconds,
		location:    location,
	}
}

// Today returns the calendar date of now in the generator's timezone.
func (g *Generator) Today(now time.Time) time.Time {
	return DateOf(now.In(g.location))
}

func (g *Generator) PlanFor(ctx context.Context, date time.Time) (_ Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.generator.plan")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	date = DateOf(date)
	span.SetAttributes(attribute.String("plan.date", date.Format(DateLayout)))

	all, err := g.catalog.List(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("load catalog: %w", err)
	}

	picked := Generate(all, date, g.size)
	for i := range picked {
		if picked[i].RestSeconds == 0 {
			picked[i].RestSeconds = g.defaultRest
		}
	}

	span.SetAttributes(attribute.Int("plan.size", len(picked)))
	return Plan{
		Date:      date,
		Exercises: picked,
	}, nil
}
