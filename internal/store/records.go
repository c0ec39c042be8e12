package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediate-project/mediate/internal/models"
)

// pendingIndex is the partial unique index that allows one pending record per target.
const pendingIndex = "moderation_records_one_pending"

// recordColumns lists the columns selected for moderation record queries.
const recordColumns = `id::text, editor_id::text, created_at, action, target_type,
	target_id::text, payload, master_id::text, state, resolved_at, resolved_by::text, reason`

type recordStore struct {
	tx *pgTx
}

// scanRecord scans a single row selected with recordColumns.
func scanRecord(scan func(dest ...any) error) (*models.ModerationRecord, error) {
	var (
		r       models.ModerationRecord
		payload []byte
	)

	err := scan(
		&r.ID,
		&r.EditorID,
		&r.CreatedAt,
		&r.Action,
		&r.TargetType,
		&r.TargetID,
		&payload,
		&r.MasterID,
		&r.State,
		&r.ResolvedAt,
		&r.ResolvedBy,
		&r.Reason,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		r.Payload = payload
	}

	return &r, nil
}

func jsonParam(b []byte) any {
	if len(b) == 0 {
		return nil
	}

	return string(b)
}

func (s *recordStore) Insert(ctx context.Context, rec *models.ModerationRecord) error {
	if err := s.tx.writable(); err != nil {
		return err
	}

	if rec.State == "" {
		rec.State = models.StatePending
	}

	err := s.tx.tx.QueryRow(ctx, `
		INSERT INTO moderation_records (editor_id, action, target_type, target_id, payload, master_id, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text, created_at`,
		rec.EditorID, rec.Action, rec.TargetType, rec.TargetID, jsonParam(rec.Payload), rec.MasterID, rec.State,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation && pgConstraint(err) == pendingIndex {
			return models.ErrAlreadyUnderModeration
		}

		return fmt.Errorf("inserting moderation record: %w", writeErr(err))
	}

	return nil
}

func (s *recordStore) get(ctx context.Context, id, suffix string) (*models.ModerationRecord, error) {
	row := s.tx.tx.QueryRow(ctx, "SELECT "+recordColumns+" FROM moderation_records WHERE id = $1"+suffix, id)

	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == codeInvalidText {
			return nil, models.ErrRecordNotFound
		}

		return nil, fmt.Errorf("getting moderation record %s: %w", id, err)
	}

	return rec, nil
}

func (s *recordStore) Get(ctx context.Context, id string) (*models.ModerationRecord, error) {
	return s.get(ctx, id, "")
}

func (s *recordStore) GetForUpdate(ctx context.Context, id string) (*models.ModerationRecord, error) {
	if s.tx.readOnly {
		return s.get(ctx, id, "")
	}

	return s.get(ctx, id, " FOR UPDATE")
}

func (s *recordStore) Pending(ctx context.Context, t models.EntityType, targetID string) (*models.ModerationRecord, error) {
	row := s.tx.tx.QueryRow(ctx, "SELECT "+recordColumns+` FROM moderation_records
		WHERE target_type = $1 AND target_id = $2 AND state = 'pending'`, t, targetID)

	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == codeInvalidText {
			return nil, nil //nolint:nilnil // nil record means the target is free.
		}

		return nil, fmt.Errorf("checking pending record for %s %s: %w", t, targetID, err)
	}

	return rec, nil
}

func (s *recordStore) PendingTargets(ctx context.Context, t models.EntityType, ids []string) (map[string]string, error) {
	out := make(map[string]string)

	parsed := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			parsed = append(parsed, u)
		}
	}

	if len(parsed) == 0 {
		return out, nil
	}

	rows, err := s.tx.tx.Query(ctx, `
		SELECT target_id::text, id::text FROM moderation_records
		WHERE target_type = $1 AND target_id = ANY($2::uuid[]) AND state = 'pending'`,
		t, parsed,
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending targets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var target, id string
		if err := rows.Scan(&target, &id); err != nil {
			return nil, fmt.Errorf("scanning pending target: %w", err)
		}
		out[target] = id
	}

	return out, rows.Err()
}

func (s *recordStore) Dependents(ctx context.Context, masterID string) ([]*models.ModerationRecord, error) {
	rows, err := s.tx.tx.Query(ctx, "SELECT "+recordColumns+` FROM moderation_records
		WHERE master_id = $1 AND state = 'pending'
		ORDER BY created_at, id FOR UPDATE`, masterID)
	if err != nil {
		return nil, fmt.Errorf("querying dependents of %s: %w", masterID, err)
	}
	defer rows.Close()

	var out []*models.ModerationRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning dependent record: %w", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// Resolve writes the decision only while the stored record is still pending.
func (s *recordStore) Resolve(ctx context.Context, rec *models.ModerationRecord) error {
	if err := s.tx.writable(); err != nil {
		return err
	}

	if !rec.State.IsDecision() {
		return fmt.Errorf("resolving record %s: %w", rec.ID, models.ErrInvalidDecision)
	}

	tag, err := s.tx.tx.Exec(ctx, `
		UPDATE moderation_records
		SET state = $2, resolved_at = $3, resolved_by = $4, reason = $5, target_id = $6
		WHERE id = $1 AND state = 'pending'`,
		rec.ID, rec.State, rec.ResolvedAt, rec.ResolvedBy, rec.Reason, rec.TargetID,
	)
	if err != nil {
		return fmt.Errorf("resolving record %s: %w", rec.ID, writeErr(err))
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := s.get(ctx, rec.ID, ""); err != nil {
		return err
	}

	return models.ErrAlreadyResolved
}

// buildModerationFilter builds WHERE clause and args from ModerationQueryOpts.
func buildModerationFilter(opts models.ModerationQueryOpts) (where string, args []any, nextArg int) {
	var conditions []string
	argIdx := 1

	add := func(cond string, v any) {
		conditions = append(conditions, cond+" $"+strconv.Itoa(argIdx))
		args = append(args, v)
		argIdx++
	}

	if opts.State != "" {
		add("state =", opts.State)
	}
	if opts.Action != "" {
		add("action =", opts.Action)
	}
	if opts.TargetType != "" {
		add("target_type =", opts.TargetType)
	}
	if opts.TargetID != "" {
		add("target_id::text =", opts.TargetID)
	}
	if opts.EditorID != "" {
		add("editor_id::text =", opts.EditorID)
	}
	if opts.ResolvedBy != "" {
		add("resolved_by::text =", opts.ResolvedBy)
	}
	if opts.Since != nil {
		add("created_at >=", *opts.Since)
	}
	if opts.Until != nil {
		add("created_at <", *opts.Until)
	}

	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return where, args, argIdx
}

// List returns matching records newest first, plus a has-more flag.
func (s *recordStore) List(ctx context.Context, opts models.ModerationQueryOpts) ([]models.ModerationRecord, bool, error) {
	where, args, argIdx := buildModerationFilter(opts)

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := fmt.Sprintf(
		"SELECT %s FROM moderation_records %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		recordColumns, where, argIdx, argIdx+1,
	)
	args = append(args, limit+1, opts.Offset)

	rows, err := s.tx.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("querying moderation records: %w", err)
	}
	defer rows.Close()

	out := []models.ModerationRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, false, fmt.Errorf("scanning moderation record: %w", err)
		}
		out = append(out, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating moderation records: %w", err)
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}

	return out, hasMore, nil
}

func (s *recordStore) Stats(ctx context.Context) (*models.ModerationStats, error) {
	stats := &models.ModerationStats{
		ByState:       make(map[models.ModerationState]int),
		PendingByType: make(map[models.EntityType]int),
	}

	rows, err := s.tx.tx.Query(ctx, `
		SELECT state, target_type, count(*) FROM moderation_records GROUP BY state, target_type`)
	if err != nil {
		return nil, fmt.Errorf("querying moderation stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			state models.ModerationState
			typ   models.EntityType
			n     int
		)
		if err := rows.Scan(&state, &typ, &n); err != nil {
			return nil, fmt.Errorf("scanning moderation stats: %w", err)
		}

		stats.Total += n
		stats.ByState[state] += n
		if state == models.StatePending {
			stats.PendingByType[typ] += n
		}
	}

	return stats, rows.Err()
}
