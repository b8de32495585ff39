package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"log"
	"os"

	"content-analyzer/internal/shared/config"
	"content-analyzer/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	switch cfg.QuestionStore {
	case "postgres":
		opts := db.OptionsFor(db.ProfileMigrate)
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			log.Printf("failed to connect database: %v", err)
			os.Exit(1)
		}
		defer sqlDB.Close()
		if err := db.RunMigrations(ctx, sqlDB, db.Postgres); err != nil {
			log.Printf("failed to run migrations: %v", err)
			os.Exit(1)
		}
	case "sqlite":
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			log.Printf("failed to open sqlite: %v", err)
			os.Exit(1)
		}
		defer sqlDB.Close()
		if err := db.RunMigrations(ctx, sqlDB, db.SQLite); err != nil {
			log.Printf("failed to run migrations: %v", err)
			os.Exit(1)
		}
	default:
		log.Printf("QUESTION_STORE=%s has no database to migrate", cfg.QuestionStore)
		return
	}
	log.Printf("migrations applied (%s)", cfg.QuestionStore)
}
