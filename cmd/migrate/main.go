package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsnear/medsnear/internal/pkg/config"
	"github.com/medsnear/medsnear/internal/pkg/logging"
	"github.com/medsnear/medsnear/migrations"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|status>")
		os.Exit(2)
	}

	cfg, err := config.Load("medsnear-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		err = runMigrations(ctx, pool)
	case "status":
		err = printStatus(ctx, pool)
	default:
		err = fmt.Errorf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		slog.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func migrationFiles() ([]string, error) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func ensureVersionTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

func applied(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

// runMigrations applies every pending file in its own transaction.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := ensureVersionTable(ctx, pool); err != nil {
		return fmt.Errorf("version table: %w", err)
	}
	files, err := migrationFiles()
	if err != nil {
		return err
	}
	done, err := applied(ctx, pool)
	if err != nil {
		return fmt.Errorf("read applied versions: %w", err)
	}

	for _, f := range files {
		if done[f] {
			continue
		}

		data, err := fs.ReadFile(migrations.FS, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, string(data)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("exec %s: %w", f, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, f); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}

		slog.Info("migration applied", "file", f)
	}

	slog.Info("all migrations applied", "total", len(files))
	return nil
}

func printStatus(ctx context.Context, pool *pgxpool.Pool) error {
	if err := ensureVersionTable(ctx, pool); err != nil {
		return err
	}
	files, err := migrationFiles()
	if err != nil {
		return err
	}
	done, err := applied(ctx, pool)
	if err != nil {
		return err
	}
	for _, f := range files {
		state := "pending"
		if done[f] {
			state = "applied"
		}
		fmt.Printf("%-8s %s\n", state, f)
	}
	return nil
}
