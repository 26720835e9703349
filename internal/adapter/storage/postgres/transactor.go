package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ledgerTxOptions is used for every unit of work. Balance changes rely on
// SELECT ... FOR UPDATE row locks, so read committed is sufficient.
var ledgerTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// Transactor implements ports.DBTransactor. Services pass the returned
// pgx.Tx to the repository methods that must share one unit of work.
type Transactor struct {
	pool Pool
}

func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, ledgerTxOptions)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}
