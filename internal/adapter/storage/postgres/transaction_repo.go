package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const transactionColumns = `id, reference, kind, status, amount, wallet_id, counterpart_number, ` +
	`external_reference, related_reference, settled_amount, created_at, updated_at, settled_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query, transactionArgs(t)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert transaction: %w", ports.ErrDuplicate)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// CreateTransferPair inserts both legs of a transfer in one statement so
// neither can exist without the other.
func (r *TransactionRepo) CreateTransferPair(ctx context.Context, tx pgx.Tx, out, in *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13),
		       ($14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	args := append(transactionArgs(out), transactionArgs(in)...)
	_, err := tx.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert transfer pair: %w", ports.ErrDuplicate)
		}
		return fmt.Errorf("insert transfer pair: %w", err)
	}
	return nil
}

// GetByReference fetches a transaction by its own reference.
func (r *TransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, reference))
}

// GetByExternalReference fetches a deposit by the reference the processor knows it by.
func (r *TransactionRepo) GetByExternalReference(ctx context.Context, externalReference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_reference = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, externalReference))
}

// TransitionStatus moves a transaction from one status to another. The WHERE
// clause re-checks from after acquiring the row lock, so of two concurrent
// callers exactly one sees a changed row.
func (r *TransactionRepo) TransitionStatus(
	ctx context.Context,
	tx pgx.Tx,
	id uuid.UUID,
	from, to domain.TransactionStatus,
	settled *ports.Settlement,
) (bool, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if settled != nil {
		query := `UPDATE transactions
			SET status = $1, settled_amount = $2, settled_at = $3, updated_at = NOW()
			WHERE id = $4 AND status = $5`
		tag, err = tx.Exec(ctx, query, to, settled.Amount, settled.At, id, from)
	} else {
		query := `UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
		tag, err = tx.Exec(ctx, query, to, id, from)
	}
	if err != nil {
		return false, fmt.Errorf("transition transaction status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByWallet fetches a wallet's transactions, newest first, with the total count.
func (r *TransactionRepo) ListByWallet(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE wallet_id = $1`, params.WalletID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, params.WalletID, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0, params.PageSize)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

func transactionArgs(t *domain.Transaction) []any {
	return []any{
		t.ID, t.Reference, t.Kind, t.Status, t.Amount, t.WalletID, t.CounterpartNumber,
		t.ExternalReference, t.RelatedReference, t.SettledAmount, t.CreatedAt, t.UpdatedAt, t.SettledAt,
	}
}

// scanTransaction is a helper to scan a single row into a Transaction.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.Reference, &t.Kind, &t.Status, &t.Amount, &t.WalletID, &t.CounterpartNumber,
		&t.ExternalReference, &t.RelatedReference, &t.SettledAmount, &t.CreatedAt, &t.UpdatedAt, &t.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
