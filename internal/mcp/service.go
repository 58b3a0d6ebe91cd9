package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/2beens/powerhit/internal/auth"
	"github.com/2beens/powerhit/internal/exercises"
	"github.com/2beens/powerhit/internal/progress"
	"github.com/2beens/powerhit/internal/workout"
)

var ErrUnknownUser = errors.New("unknown user")

type catalog interface {
	List(ctx context.Context) ([]exercises.Exercise, error)
}

type planner interface {
	PlanFor(ctx context.Context, date time.Time) (workout.Plan, error)
	Today(now time.Time) time.Time
}

type usersRepo interface {
	GetByUsername(ctx context.Context, username string) (auth.User, error)
}

type progressLoader interface {
	LoadMonthProgress(ctx context.Context, userID int, monthStart time.Time) (progress.MonthProgress, error)
}

// contextService is what the tool handlers need, replaced in tests.
type contextService interface {
	GetSchema(ctx context.Context) (string, error)
	ListExercises(ctx context.Context, category string) ([]exercises.Exercise, error)
	GetPlan(ctx context.Context, date *time.Time) (workout.Plan, error)
	GetMonthProgress(ctx context.Context, username string, month time.Time) (progress.MonthProgress, error)
}

type ContextServiceParams struct {
	Schema   SchemaRepo
	Catalog  catalog
	Planner  planner
	Users    usersRepo
	Progress progressLoader
}

// ContextService answers the MCP tools from the same components the HTTP API uses.
type ContextService struct {
	schema   SchemaRepo
	catalog  catalog
	planner  planner
	users    usersRepo
	progress progressLoader
	now      func() time.Time
}

func NewContextService(params ContextServiceParams) *ContextService {
	return &ContextService{
		schema:   params.Schema,
		catalog:  params.Catalog,
		planner:  params.Planner,
		users:    params.Users,
		progress: params.Progress,
		now:      time.Now,
	}
}

// GetSchema returns the exercise and workout_progress tables as markdown.
func (s *ContextService) GetSchema(ctx context.Context) (string, error) {
	cols, err := s.schema.GetColumns(ctx)
	if err != nil {
		return "", err
	}
	return formatSchema(cols), nil
}

func formatSchema(cols []SchemaColumn) string {
	if len(cols) == 0 {
		return "# PowerHit DB Schema\n\nNo powerhit tables found in the database.\n"
	}

	byTable := make(map[string][]SchemaColumn)
	for _, c := range cols {
		byTable[c.TableName] = append(byTable[c.TableName], c)
	}

	tableOrder := make([]string, 0, len(byTable))
	for t := range byTable {
		tableOrder = append(tableOrder, t)
	}
	sort.Strings(tableOrder)

	var b strings.Builder
	b.WriteString("# PowerHit DB Schema\n\n")
	for _, tableName := range tableOrder {
		b.WriteString("## ")
		b.WriteString(tableName)
		b.WriteString("\n\n| Column | Type | Nullable | Default |\n|--------|------|----------|--------|\n")
		for _, c := range byTable[tableName] {
			def := "-"
			if c.ColumnDef != nil && *c.ColumnDef != "" {
				def = *c.ColumnDef
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", c.ColumnName, c.DataType, c.IsNullable, def)
		}
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n\n") + "\n"
}

// ListExercises returns the catalog, optionally only one category.
func (s *ContextService) ListExercises(ctx context.Context, category string) ([]exercises.Exercise, error) {
	all, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return all, nil
	}

	filtered := make([]exercises.Exercise, 0, len(all))
	for _, e := range all {
		if strings.EqualFold(e.Category, category) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// GetPlan returns the plan of date, or of today when date is nil.
func (s *ContextService) GetPlan(ctx context.Context, date *time.Time) (workout.Plan, error) {
	day := s.planner.Today(s.now())
	if date != nil {
		day = *date
	}
	return s.planner.PlanFor(ctx, day)
}

func (s *ContextService) GetMonthProgress(ctx context.Context, username string, month time.Time) (progress.MonthProgress, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return progress.MonthProgress{}, fmt.Errorf("%w: %s", ErrUnknownUser, username)
		}
		return progress.MonthProgress{}, err
	}
	return s.progress.LoadMonthProgress(ctx, user.ID, progress.MonthStart(month))
}
