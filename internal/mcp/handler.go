package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/2beens/powerhit/internal/progress"
	"github.com/2beens/powerhit/internal/workout"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler parses tool input, calls the service and formats the MCP result.
type Handler struct {
	service contextService
	now     func() time.Time
}

func NewHandler(service contextService) *Handler {
	return &Handler{
		service: service,
		now:     time.Now,
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

func (h *Handler) GetSchemaTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		text, err := h.service.GetSchema(ctx)
		if err != nil {
			return errorResult("Error fetching schema: " + err.Error()), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	}
}

type ListExercisesInput struct {
	Category string `json:"category,omitempty" jsonschema:"Filter by category (upper, lower, core, cardio, full)"`
}

func (h *Handler) ListExercisesTool() func(context.Context, *mcp.CallToolRequest, ListExercisesInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ListExercisesInput) (*mcp.CallToolResult, any, error) {
		list, err := h.service.ListExercises(ctx, in.Category)
		if err != nil {
			return errorResult("Error listing exercises: " + err.Error()), nil, nil
		}
		return jsonResult(list), nil, nil
	}
}

type WorkoutInput struct {
	Date string `json:"date,omitempty" jsonschema:"Plan date (YYYY-MM-DD), today when empty"`
}

func (h *Handler) GetWorkoutTool() func(context.Context, *mcp.CallToolRequest, WorkoutInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in WorkoutInput) (*mcp.CallToolResult, any, error) {
		var date *time.Time
		if in.Date != "" {
			parsed, err := time.Parse(workout.DateLayout, in.Date)
			if err != nil {
				return errorResult("Invalid date: use YYYY-MM-DD"), nil, nil
			}
			date = &parsed
		}

		plan, err := h.service.GetPlan(ctx, date)
		if err != nil {
			return errorResult("Error generating workout: " + err.Error()), nil, nil
		}
		return jsonResult(workout.NewPlanResponse(plan)), nil, nil
	}
}

type MonthProgressInput struct {
	Username string `json:"username" jsonschema:"Username whose progress is read"`
	Month    string `json:"month,omitempty" jsonschema:"Month (YYYY-MM), current month when empty"`
}

func (h *Handler) GetMonthProgressTool() func(context.Context, *mcp.CallToolRequest, MonthProgressInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in MonthProgressInput) (*mcp.CallToolResult, any, error) {
		if in.Username == "" {
			return errorResult("Missing username"), nil, nil
		}

		month := h.now().UTC()
		if in.Month != "" {
			parsed, err := time.Parse(progress.MonthLayout, in.Month)
			if err != nil {
				return errorResult("Invalid month: use YYYY-MM"), nil, nil
			}
			month = parsed
		}

		monthProgress, err := h.service.GetMonthProgress(ctx, in.Username, month)
		if err != nil {
			return errorResult("Error loading progress: " + err.Error()), nil, nil
		}
		return jsonResult(progress.NewMonthProgressResponse(monthProgress)), nil, nil
	}
}
