package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server with powerhit tools: schema, exercise catalog,
// the workout of a date and a user's month progress.
func NewServer(service contextService) *mcp.Server {
	h := NewHandler(service)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "powerhit-context",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_powerhit_schema",
		Description: "Returns the DB schema of the exercise and workout_progress tables: columns, types, nullable, default.",
	}, h.GetSchemaTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_exercises",
		Description: "Returns the exercise catalog (id, name, work and rest seconds, reps, instructions). Optional filter: category.",
	}, h.ListExercisesTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_workout",
		Description: "Returns the daily workout for a date (YYYY-MM-DD, today when empty). Every user gets the same workout on the same day.",
	}, h.GetWorkoutTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_month_progress",
		Description: "Returns the completed workout dates of a user for a month (YYYY-MM, current month when empty) and the share of completed days.",
	}, h.GetMonthProgressTool())

	return s
}
