package db

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/mediate-project/mediate/internal/db/migrations"
	"github.com/mediate-project/mediate/internal/dbpool"
)

// SchemaVersion is the highest migration version embedded in the binary.
func SchemaVersion() int {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return 0
	}

	var latest int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		if v, err := goose.NumericComponent(e.Name()); err == nil && v > latest {
			latest = v
		}
	}

	return int(latest)
}

// AppliedVersion reads the highest applied version from goose's table.
func AppliedVersion(ctx context.Context, pool *dbpool.Pool) (int, error) {
	var applied int
	err := pool.QueryRow(ctx,
		"SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version WHERE is_applied").Scan(&applied)
	if err != nil {
		return 0, fmt.Errorf("reading applied schema version: %w", err)
	}

	return applied, nil
}

// CheckSchema fails when the database lags behind SchemaVersion, e.g. while
// another instance is still migrating.
func CheckSchema(ctx context.Context, pool *dbpool.Pool) error {
	applied, err := AppliedVersion(ctx, pool)
	if err != nil {
		return err
	}

	if want := SchemaVersion(); applied < want {
		return fmt.Errorf("schema version %d, want %d", applied, want)
	}

	return nil
}
