package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mediate-project/mediate/internal/models"
)

// maxListLimit is a defense-in-depth cap on limit values for list queries.
const maxListLimit = 1000

type entityStore struct {
	tx *pgTx
}

func tableFor(t models.EntityType) (*entityTable, error) {
	tbl, ok := entityTables[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEntityType, t)
	}

	return tbl, nil
}

// lookupErr maps a missing row or a malformed identifier to ErrEntityNotFound.
func lookupErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == codeInvalidText {
		return models.ErrEntityNotFound
	}

	return err
}

// writeErr translates constraint violations raised by entity writes.
func writeErr(err error) error {
	switch pgCode(err) {
	case codeUniqueViolation:
		return models.ErrDuplicateKey
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: referenced entity does not exist (%s)", models.ErrValidation, pgConstraint(err))
	case codeInvalidText:
		return fmt.Errorf("%w: malformed identifier", models.ErrValidation)
	}

	return err
}

func (s *entityStore) get(ctx context.Context, t models.EntityType, id, suffix string) (models.Entity, error) {
	tbl, err := tableFor(t)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + tbl.selectList() + " FROM " + tbl.ident() + " WHERE id = $1" + suffix

	e, err := tbl.scan(s.tx.tx.QueryRow(ctx, query, id))
	if err != nil {
		if mapped := lookupErr(err); errors.Is(mapped, models.ErrEntityNotFound) {
			return nil, mapped
		}

		return nil, fmt.Errorf("getting %s %s: %w", t, id, err)
	}

	return e, nil
}

func (s *entityStore) Get(ctx context.Context, t models.EntityType, id string) (models.Entity, error) {
	return s.get(ctx, t, id, "")
}

func (s *entityStore) Lock(ctx context.Context, t models.EntityType, id string) (models.Entity, error) {
	if s.tx.readOnly {
		return s.get(ctx, t, id, "")
	}

	return s.get(ctx, t, id, " FOR UPDATE")
}

func (s *entityStore) Create(ctx context.Context, e models.Entity) (string, error) {
	if err := s.tx.writable(); err != nil {
		return "", err
	}

	tbl, err := tableFor(e.EntityType())
	if err != nil {
		return "", err
	}

	cols := tbl.columnList()
	args := tbl.values(e)

	if e.EntityID() != "" {
		cols = "id, " + cols
		args = append([]any{e.EntityID()}, args...)
	}

	query := "INSERT INTO " + tbl.ident() + " (" + cols + ") VALUES (" + placeholders(1, len(args)) + ") RETURNING id::text"

	var id string
	if err := s.tx.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting %s: %w", e.EntityType(), writeErr(err))
	}

	e.SetEntityID(id)

	return id, nil
}

// Save upserts e by its identifier.
func (s *entityStore) Save(ctx context.Context, e models.Entity) error {
	if err := s.tx.writable(); err != nil {
		return err
	}

	tbl, err := tableFor(e.EntityType())
	if err != nil {
		return err
	}

	if e.EntityID() == "" {
		return fmt.Errorf("saving %s: missing identifier", e.EntityType())
	}

	sets := make([]string, len(tbl.columns))
	for i, c := range tbl.columns {
		col := pgx.Identifier{c}.Sanitize()
		sets[i] = col + " = EXCLUDED." + col
	}

	args := append([]any{e.EntityID()}, tbl.values(e)...)
	query := "INSERT INTO " + tbl.ident() + " (id, " + tbl.columnList() + ") VALUES (" +
		placeholders(1, len(args)) + ") ON CONFLICT (id) DO UPDATE SET " +
		strings.Join(sets, ", ") + ", updated_at = now()"

	if _, err := s.tx.tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("saving %s %s: %w", e.EntityType(), e.EntityID(), writeErr(err))
	}

	return nil
}

func (s *entityStore) Delete(ctx context.Context, t models.EntityType, id string) error {
	if err := s.tx.writable(); err != nil {
		return err
	}

	tbl, err := tableFor(t)
	if err != nil {
		return err
	}

	tag, err := s.tx.tx.Exec(ctx, "DELETE FROM "+tbl.ident()+" WHERE id = $1", id)
	if err != nil {
		if pgCode(err) == codeInvalidText {
			return models.ErrEntityNotFound
		}

		return fmt.Errorf("deleting %s %s: %w", t, id, err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrEntityNotFound
	}

	return nil
}

func (s *entityStore) List(ctx context.Context, t models.EntityType, limit, offset int) ([]models.Entity, bool, error) {
	tbl, err := tableFor(t)
	if err != nil {
		return nil, false, err
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := "SELECT " + tbl.selectList() + " FROM " + tbl.ident() + " ORDER BY created_at, id LIMIT $1 OFFSET $2"

	rows, err := s.tx.tx.Query(ctx, query, limit+1, offset)
	if err != nil {
		return nil, false, fmt.Errorf("listing %s: %w", t, err)
	}
	defer rows.Close()

	var out []models.Entity
	for rows.Next() {
		e, err := tbl.scan(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scanning %s: %w", t, err)
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating %s: %w", t, err)
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}

	return out, hasMore, nil
}

// placeholders renders "$from, ..., $from+n-1".
func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "$" + strconv.Itoa(from+i)
	}

	return strings.Join(ps, ", ")
}
