package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/livequiz/internal/config"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("configs/.env"); err != nil {
			log.Debug().Err(err).Msg("no .env file loaded")
		}
	}

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}

func newRootCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:           "migrator",
		Short:         "Apply livequiz database migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "db/migrations", "directory containing migration files")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), dir, func(ctx context.Context, db *sql.DB, dir string) error {
					if err := goose.UpContext(ctx, db, dir); err != nil {
						return fmt.Errorf("migrate up: %w", err)
					}
					log.Info().Msg("migrations applied successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), dir, func(ctx context.Context, db *sql.DB, dir string) error {
					if err := goose.DownContext(ctx, db, dir); err != nil {
						return fmt.Errorf("migrate down: %w", err)
					}
					log.Info().Msg("migration rolled back successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), dir, func(ctx context.Context, db *sql.DB, dir string) error {
					return goose.StatusContext(ctx, db, dir)
				})
			},
		},
	)
	return cmd
}

func withDB(ctx context.Context, dir string, fn func(ctx context.Context, db *sql.DB, dir string) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if !cfg.Postgres.Enabled() {
		return fmt.Errorf("PG_HOST must be set to run migrations")
	}

	migrationDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve migration directory %s: %w", dir, err)
	}
	if _, err := os.Stat(migrationDir); os.IsNotExist(err) {
		return fmt.Errorf("migration directory %s does not exist", migrationDir)
	}

	db, err := sql.Open("pgx", cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Postgres.Host).
		Int("port", cfg.Postgres.Port).
		Str("database", cfg.Postgres.Database).
		Str("migration_dir", migrationDir).
		Msg("connected to database")

	goose.SetTableName("goose_db_version")
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return fn(ctx, db, migrationDir)
}
