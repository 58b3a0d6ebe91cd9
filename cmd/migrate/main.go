package main

import (
	"flag"
	"os"

	"github.com/2beens/powerhit/internal/config"
	"github.com/2beens/powerhit/internal/db"
	"github.com/2beens/powerhit/internal/logging"

	log "github.com/sirupsen/logrus"
)

// applies pending db migrations without starting the service
func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	migrationsPath := flag.String("path", "", "migrations dir, overrides the config value")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
	})

	if *migrationsPath != "" {
		cfg.MigrationsPath = *migrationsPath
	}

	dbParams := db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("POWERHIT_DB_PASS"),
	}

	log.Infof("applying migrations from [%s] to [%s:%s/%s]", cfg.MigrationsPath, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)
	if err := db.RunMigrations(dbParams.ConnString(), cfg.MigrationsPath); err != nil {
		log.Fatalf("migrations: %s", err)
	}
	log.Infoln("migrations done")
}
