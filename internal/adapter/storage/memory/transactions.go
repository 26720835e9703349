package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	s *Store
}

// NewTransactionRepo creates a memory-backed TransactionRepo.
func NewTransactionRepo(s *Store) *TransactionRepo {
	return &TransactionRepo{s: s}
}

// Create buffers a ledger row insert.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return err
	}
	if err := r.insert(ctx, mt, t); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// CreateTransferPair buffers both legs of a transfer.
func (r *TransactionRepo) CreateTransferPair(ctx context.Context, tx pgx.Tx, out, in *domain.Transaction) error {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return err
	}
	if out.Reference == in.Reference {
		return fmt.Errorf("insert transfer pair: %w", ports.ErrDuplicate)
	}
	if err := r.insert(ctx, mt, out); err != nil {
		return fmt.Errorf("insert transfer pair: %w", err)
	}
	if err := r.insert(ctx, mt, in); err != nil {
		return fmt.Errorf("insert transfer pair: %w", err)
	}
	return nil
}

func (r *TransactionRepo) insert(ctx context.Context, mt *memTx, t *domain.Transaction) error {
	if err := mt.lock(ctx, "transactions:reference:"+t.Reference); err != nil {
		return err
	}
	if t.ExternalReference != nil {
		if err := mt.lock(ctx, "transactions:external:"+*t.ExternalReference); err != nil {
			return err
		}
	}

	r.s.mu.RLock()
	_, idTaken := r.s.txns[t.ID]
	_, refTaken := r.s.txnsByRef[t.Reference]
	extTaken := false
	if t.ExternalReference != nil {
		_, extTaken = r.s.txnsByExtRef[*t.ExternalReference]
	}
	r.s.mu.RUnlock()
	if idTaken || refTaken || extTaken {
		return ports.ErrDuplicate
	}

	row := *t
	mt.onCommit(func(s *Store) {
		s.txns[row.ID] = row
		s.txnsByRef[row.Reference] = row.ID
		if row.ExternalReference != nil {
			s.txnsByExtRef[*row.ExternalReference] = row.ID
		}
		s.txnsByWallet[row.WalletID] = append(s.txnsByWallet[row.WalletID], row.ID)
	})
	return nil
}

// GetByReference returns the committed row with the given reference or nil.
func (r *TransactionRepo) GetByReference(_ context.Context, reference string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.txnsByRef[reference]
	if !ok {
		return nil, nil
	}
	t := r.s.txns[id]
	return &t, nil
}

// GetByExternalReference returns the committed row with the given processor
// reference or nil.
func (r *TransactionRepo) GetByExternalReference(_ context.Context, externalReference string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.txnsByExtRef[externalReference]
	if !ok {
		return nil, nil
	}
	t := r.s.txns[id]
	return &t, nil
}

// TransitionStatus locks the row and moves it from one status to another only
// if it still holds from. A concurrent caller waits for the lock and then sees
// the status the winner committed.
func (r *TransactionRepo) TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus, settled *ports.Settlement) (bool, error) {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return false, err
	}
	if err := mt.lock(ctx, "transactions:"+id.String()); err != nil {
		return false, fmt.Errorf("transition transaction status: %w", err)
	}

	status, ok := mt.statuses[id]
	if !ok {
		r.s.mu.RLock()
		row, exists := r.s.txns[id]
		r.s.mu.RUnlock()
		if !exists {
			return false, nil
		}
		status = row.Status
	}
	if status != from {
		return false, nil
	}

	mt.statuses[id] = to
	var s ports.Settlement
	if settled != nil {
		s = *settled
	}
	mt.onCommit(func(st *Store) {
		row := st.txns[id]
		row.Status = to
		row.UpdatedAt = time.Now().UTC()
		if settled != nil {
			amount, at := s.Amount, s.At
			row.SettledAmount = &amount
			row.SettledAt = &at
		}
		st.txns[id] = row
	})
	return true, nil
}

// ListByWallet returns one page of the wallet's committed rows, newest first,
// and the wallet's total row count.
func (r *TransactionRepo) ListByWallet(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.s.mu.RLock()
	ids := r.s.txnsByWallet[params.WalletID]
	rows := make([]domain.Transaction, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, r.s.txns[id])
	}
	r.s.mu.RUnlock()

	slices.SortFunc(rows, func(a, b domain.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(b.ID[:], a.ID[:])
	})

	total := int64(len(rows))
	offset := (params.Page - 1) * params.PageSize
	if offset < 0 || offset >= len(rows) {
		return []domain.Transaction{}, total, nil
	}
	end := min(offset+params.PageSize, len(rows))
	return rows[offset:end], total, nil
}
