package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/models"
)

var _ domain.TxRunner = (*UnitOfWork)(nil)

// UnitOfWork runs domain transactions on PostgreSQL.
type UnitOfWork struct {
	Base
}

// NewUnitOfWork creates a UnitOfWork.
func NewUnitOfWork(base Base) *UnitOfWork {
	return &UnitOfWork{Base: base}
}

// InTx runs fn in a read-write transaction, committing when fn returns nil.
func (u *UnitOfWork) InTx(ctx context.Context, fn domain.TxFunc) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := u.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// InReadTx runs fn in a read-only transaction.
func (u *UnitOfWork) InReadTx(ctx context.Context, fn domain.TxFunc) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := u.beginReadTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only, nothing to keep.

	if err := fn(ctx, &pgTx{tx: tx, readOnly: true}); err != nil {
		return err
	}

	return nil
}

type pgTx struct {
	tx       pgx.Tx
	readOnly bool
}

func (t *pgTx) Entities() domain.EntityStore { return &entityStore{tx: t} }
func (t *pgTx) Records() domain.RecordStore  { return &recordStore{tx: t} }

func (t *pgTx) writable() error {
	if t.readOnly {
		return models.ErrReadOnly
	}

	return nil
}
