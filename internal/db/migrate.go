// Package db runs schema migrations and bridges PostgreSQL notifications to
// the live moderation feed.
//
// Migrations are goose-annotated SQL files embedded from
// internal/db/migrations. RunMigrations applies them on start up; several
// instances may start together, goose serialises them on its version table.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver "pgx"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/dbpool"
)

// RunMigrations brings the users, catalogue and moderation tables up to the
// newest version in fsys.
func RunMigrations(ctx context.Context, pool *dbpool.Pool, log *logrus.Logger, fsys fs.FS) error {
	sqlDB, err := sql.Open("pgx", pool.ConnString())
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	current, target, err := provider.GetVersions(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	mlog := log.WithFields(logrus.Fields{"current": current, "target": target})
	if current >= target {
		mlog.Debug("schema up to date")
		return nil
	}

	mlog.Info("migrating schema")

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("migration %s: %w", r.Source.Path, r.Error)
		}

		log.WithFields(logrus.Fields{
			"version":  r.Source.Version,
			"file":     r.Source.Path,
			"duration": r.Duration,
		}).Info("migration applied")
	}

	return nil
}
