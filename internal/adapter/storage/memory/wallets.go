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
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	s *Store
}

// NewWalletRepo creates a memory-backed WalletRepo.
func NewWalletRepo(s *Store) *WalletRepo {
	return &WalletRepo{s: s}
}

// Create buffers a wallet insert. Owner and number are unique.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return err
	}
	if err := mt.lock(ctx, "wallets:owner:"+wallet.OwnerID.String()); err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	if err := mt.lock(ctx, "wallets:number:"+wallet.Number); err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}

	r.s.mu.RLock()
	_, idTaken := r.s.wallets[wallet.ID]
	_, ownerTaken := r.s.walletsByOwner[wallet.OwnerID]
	_, numberTaken := r.s.walletsByNumber[wallet.Number]
	r.s.mu.RUnlock()
	if idTaken || ownerTaken || numberTaken {
		return fmt.Errorf("insert wallet: %w", ports.ErrDuplicate)
	}
	for _, pending := range mt.wallets {
		if pending.ID == wallet.ID || pending.OwnerID == wallet.OwnerID || pending.Number == wallet.Number {
			return fmt.Errorf("insert wallet: %w", ports.ErrDuplicate)
		}
	}

	if mt.wallets == nil {
		mt.wallets = make(map[uuid.UUID]domain.Wallet)
	}
	w := *wallet
	mt.wallets[w.ID] = w
	mt.onCommit(func(s *Store) {
		s.wallets[w.ID] = w
		s.walletsByOwner[w.OwnerID] = w.ID
		s.walletsByNumber[w.Number] = w.ID
	})
	return nil
}

// GetByID returns the committed wallet or nil.
func (r *WalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// GetByOwnerID returns the owner's committed wallet or nil.
func (r *WalletRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	id, ok := r.s.walletsByOwner[ownerID]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// GetByNumber returns the committed wallet with the given number or nil.
func (r *WalletRepo) GetByNumber(ctx context.Context, number string) (*domain.Wallet, error) {
	r.s.mu.RLock()
	id, ok := r.s.walletsByNumber[number]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// LockForUpdate locks the wallets in ascending id order and returns their
// balances as seen by tx. Missing ids are skipped.
func (r *WalletRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) ([]domain.Wallet, error) {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return nil, err
	}

	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	sorted = slices.Compact(sorted)

	wallets := make([]domain.Wallet, 0, len(sorted))
	for _, id := range sorted {
		if err := mt.lock(ctx, walletRowKey(id)); err != nil {
			return nil, fmt.Errorf("lock wallet %s: %w", id, err)
		}
		if w, ok := r.visible(mt, id); ok {
			wallets = append(wallets, w)
		}
	}
	return wallets, nil
}

// AdjustBalance adds delta to the wallet balance within tx. A change that would
// leave the balance negative fails with ports.ErrBalanceConstraint.
func (r *WalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta decimal.Decimal) error {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return err
	}
	if err := mt.lock(ctx, walletRowKey(walletID)); err != nil {
		return fmt.Errorf("adjust wallet balance: %w", err)
	}

	w, ok := r.visible(mt, walletID)
	if !ok {
		return fmt.Errorf("adjust wallet balance: wallet not found: %s", walletID)
	}
	if w.Balance.Add(delta).IsNegative() {
		return fmt.Errorf("adjust wallet balance: %w", ports.ErrBalanceConstraint)
	}

	mt.deltas[walletID] = mt.deltas[walletID].Add(delta)
	mt.onCommit(func(s *Store) {
		cur := s.wallets[walletID]
		cur.Balance = cur.Balance.Add(delta)
		cur.UpdatedAt = time.Now().UTC()
		s.wallets[walletID] = cur
	})
	return nil
}

// visible returns the wallet as tx sees it: committed or inserted by tx, with
// tx's own balance changes applied.
func (r *WalletRepo) visible(mt *memTx, id uuid.UUID) (domain.Wallet, bool) {
	r.s.mu.RLock()
	w, ok := r.s.wallets[id]
	r.s.mu.RUnlock()
	if !ok {
		w, ok = mt.wallets[id]
	}
	if !ok {
		return domain.Wallet{}, false
	}
	w.Balance = w.Balance.Add(mt.deltas[id])
	return w, true
}

func walletRowKey(id uuid.UUID) string {
	return "wallets:" + id.String()
}
