// Package main runs the powerhit MCP server over stdio, for local assistant use.
// It reads the same config and database as the main service.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/2beens/powerhit/internal/auth"
	"github.com/2beens/powerhit/internal/config"
	"github.com/2beens/powerhit/internal/db"
	"github.com/2beens/powerhit/internal/exercises"
	powerhitmcp "github.com/2beens/powerhit/internal/mcp"
	"github.com/2beens/powerhit/internal/progress"
	"github.com/2beens/powerhit/internal/workout"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	// stdout carries the MCP protocol
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	ctx := context.Background()
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("POWERHIT_DB_PASS"),
	})
	if err != nil {
		log.Fatalf("db pool: %s", err)
	}
	defer dbPool.Close()

	catalog := exercises.NewCatalog(exercises.NewRepo(dbPool), cfg.CatalogCacheTTL())
	service := powerhitmcp.NewContextService(powerhitmcp.ContextServiceParams{
		Schema:   powerhitmcp.NewPoolSchemaRepo(dbPool),
		Catalog:  catalog,
		Planner:  workout.NewGenerator(catalog, cfg.WorkoutSize, cfg.DefaultRestSeconds, cfg.Location()),
		Users:    auth.NewUsersRepo(dbPool),
		Progress: progress.NewTracker(progress.NewRepo(dbPool)),
	})

	server := powerhitmcp.NewServer(service)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatal(err)
	}
}
