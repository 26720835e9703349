package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWallet(t *testing.T, s *Store, balance string) *domain.Wallet {
	t.Helper()
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), ProviderSubject: uuid.NewString(), Email: uuid.NewString() + "@example.com", IsActive: true}
	number, err := domain.GenerateWalletNumber()
	require.NoError(t, err)
	wallet := &domain.Wallet{ID: uuid.New(), OwnerID: user.ID, Number: number, Balance: decimal.RequireFromString(balance)}

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, NewUserRepo(s).Create(ctx, tx, user))
	require.NoError(t, NewWalletRepo(s).Create(ctx, tx, wallet))
	require.NoError(t, tx.Commit(ctx))
	return wallet
}

func TestStore_CommitAppliesBufferedWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := seedWallet(t, s, "10.00")
	repo := NewWalletRepo(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.AdjustBalance(ctx, tx, w.ID, decimal.RequireFromString("5.50")))

	// Not visible outside tx before commit
	got, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", got.Balance.String())

	require.NoError(t, tx.Commit(ctx))
	got, err = repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "15.5", got.Balance.String())

	assert.ErrorIs(t, tx.Commit(ctx), pgx.ErrTxClosed)
	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)
}

func TestStore_RollbackDiscards(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := seedWallet(t, s, "10.00")
	repo := NewWalletRepo(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.AdjustBalance(ctx, tx, w.ID, decimal.RequireFromString("-10")))
	require.NoError(t, tx.Rollback(ctx))

	got, err := repo.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", got.Balance.String())
}

func TestWalletRepo_AdjustBalance_NeverNegative(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := seedWallet(t, s, "10.00")
	repo := NewWalletRepo(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	require.NoError(t, repo.AdjustBalance(ctx, tx, w.ID, decimal.RequireFromString("-6")))
	// The second debit sees the first one
	err = repo.AdjustBalance(ctx, tx, w.ID, decimal.RequireFromString("-6"))
	assert.ErrorIs(t, err, ports.ErrBalanceConstraint)

	locked, err := repo.LockForUpdate(ctx, tx, w.ID)
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.Equal(t, "4", locked[0].Balance.String())
}

func TestWalletRepo_UniqueNumber(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := seedWallet(t, s, "0")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	err = NewWalletRepo(s).Create(ctx, tx, &domain.Wallet{ID: uuid.New(), OwnerID: uuid.New(), Number: w.Number})
	assert.ErrorIs(t, err, ports.ErrDuplicate)
}

func TestWalletRepo_LockForUpdate_SkipsMissing(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := seedWallet(t, s, "1")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	locked, err := NewWalletRepo(s).LockForUpdate(ctx, tx, uuid.New(), w.ID, w.ID)
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.Equal(t, w.ID, locked[0].ID)
}

func TestLocks_WaiterBlocksUntilRelease(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := seedWallet(t, s, "1")
	repo := NewWalletRepo(s)

	first, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.LockForUpdate(ctx, first, w.ID)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, _ := s.Begin(ctx)
		_, _ = repo.LockForUpdate(ctx, second, w.ID)
		close(acquired)
		_ = second.Rollback(ctx)
	}()

	select {
	case <-acquired:
		t.Fatal("second transaction acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Commit(ctx))
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not released on commit")
	}
}

func TestLocks_WaitHonoursContext(t *testing.T) {
	s := NewStore()
	w := seedWallet(t, s, "1")
	repo := NewWalletRepo(s)

	first, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer first.Rollback(context.Background()) //nolint:errcheck
	_, err = repo.LockForUpdate(context.Background(), first, w.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	second, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.LockForUpdate(ctx, second, w.ID)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestUserRepo_CreateAndLookup(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := NewUserRepo(s)
	user := &domain.User{ID: uuid.New(), ProviderSubject: "sub-1", Email: "a@example.com", IsActive: true}

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, user))
	require.NoError(t, tx.Commit(ctx))

	got, err := repo.GetByProviderSubject(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)

	missing, err := repo.GetByID(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, missing)

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck
	err = repo.Create(ctx, tx, &domain.User{ID: uuid.New(), ProviderSubject: "sub-1"})
	assert.ErrorIs(t, err, ports.ErrDuplicate)
}

func TestUserRepo_UniqueEmail(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := NewUserRepo(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, &domain.User{ID: uuid.New(), ProviderSubject: "sub-1", Email: "a@example.com"}))
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck
	err = repo.Create(ctx, tx, &domain.User{ID: uuid.New(), ProviderSubject: "sub-2", Email: "a@example.com"})
	assert.ErrorIs(t, err, ports.ErrDuplicate)
}

func TestTransactionRepo_TransitionStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := seedWallet(t, s, "0")
	repo := NewTransactionRepo(s)
	ref := "DEP_00000000000000AA"
	txn := &domain.Transaction{
		ID: uuid.New(), Reference: ref, Kind: domain.TransactionKindDeposit,
		Status: domain.TransactionStatusPending, Amount: decimal.NewFromInt(5),
		WalletID: w.ID, ExternalReference: &ref, CreatedAt: time.Now(),
	}

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, txn))
	require.NoError(t, tx.Commit(ctx))

	at := time.Now().UTC()
	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	won, err := repo.TransitionStatus(ctx, tx, txn.ID, domain.TransactionStatusPending, domain.TransactionStatusSuccess,
		&ports.Settlement{Amount: decimal.NewFromInt(4), At: at})
	require.NoError(t, err)
	assert.True(t, won)

	// Same tx sees its own transition
	again, err := repo.TransitionStatus(ctx, tx, txn.ID, domain.TransactionStatusPending, domain.TransactionStatusFailed, nil)
	require.NoError(t, err)
	assert.False(t, again)
	require.NoError(t, tx.Commit(ctx))

	got, err := repo.GetByExternalReference(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusSuccess, got.Status)
	require.NotNil(t, got.SettledAmount)
	assert.Equal(t, "4", got.SettledAmount.String())
	assert.Equal(t, at, *got.SettledAt)

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck
	won, err = repo.TransitionStatus(ctx, tx, uuid.New(), domain.TransactionStatusPending, domain.TransactionStatusFailed, nil)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestTransactionRepo_ListByWallet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := seedWallet(t, s, "0")
	repo := NewTransactionRepo(s)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	for i := range 5 {
		ref, err := domain.NewDepositReference()
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, tx, &domain.Transaction{
			ID: uuid.New(), Reference: ref, Kind: domain.TransactionKindDeposit,
			Status: domain.TransactionStatusPending, Amount: decimal.NewFromInt(int64(i + 1)),
			WalletID: w.ID, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, tx.Commit(ctx))

	page, total, err := repo.ListByWallet(ctx, ports.TransactionListParams{WalletID: w.ID, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, "5", page[0].Amount.String())
	assert.Equal(t, "4", page[1].Amount.String())

	page, _, err = repo.ListByWallet(ctx, ports.TransactionListParams{WalletID: w.ID, Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "1", page[0].Amount.String())

	page, _, err = repo.ListByWallet(ctx, ports.TransactionListParams{WalletID: w.ID, Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestAPIKeyRepo_TouchLastUsedIsMonotonic(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := seedWallet(t, s, "0")
	repo := NewAPIKeyRepo(s)
	key := &domain.APIKey{ID: uuid.New(), OwnerID: w.OwnerID, KeyHash: "h", IsActive: true, ExpiresAt: time.Now().Add(time.Hour)}

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.LockOwner(ctx, tx, w.OwnerID))
	require.NoError(t, repo.Create(ctx, tx, key))
	require.NoError(t, tx.Commit(ctx))

	later := time.Now().UTC()
	earlier := later.Add(-time.Minute)
	require.NoError(t, repo.TouchLastUsed(ctx, key.ID, later))
	require.NoError(t, repo.TouchLastUsed(ctx, key.ID, earlier))

	got, err := repo.GetByHash(ctx, "h")
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.Equal(t, later, *got.LastUsedAt)

	require.NoError(t, repo.Deactivate(ctx, key.ID))
	assert.Error(t, repo.Deactivate(ctx, uuid.New()))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck
	n, err := repo.CountEffective(ctx, tx, w.OwnerID, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAPIKeyRepo_LockOwner_Missing(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	assert.ErrorContains(t, NewAPIKeyRepo(s).LockOwner(ctx, tx, uuid.New()), "owner not found")
}

func TestAuditRepo_ByOwner(t *testing.T) {
	s := NewStore()
	repo := NewAuditRepo(s)
	owner := uuid.New()

	require.NoError(t, repo.Create(context.Background(), &domain.AuditLog{ID: uuid.New(), OwnerID: &owner, Action: domain.AuditActionSignIn}))
	require.NoError(t, repo.Create(context.Background(), &domain.AuditLog{ID: uuid.New(), Action: domain.AuditActionSignIn}))

	entries := repo.ByOwner(owner)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditActionSignIn, entries[0].Action)
}

func TestForeignTransactionRejected(t *testing.T) {
	a, b := NewStore(), NewStore()
	ctx := context.Background()

	tx, err := a.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = NewWalletRepo(b).LockForUpdate(ctx, tx, uuid.New())
	assert.Error(t, err)
}

func TestUsageThrottle(t *testing.T) {
	th := NewUsageThrottle()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := th.Allow(ctx, "k", time.Minute)
	assert.True(t, ok)
	ok, _ = th.Allow(ctx, "k", time.Minute)
	assert.False(t, ok)
	ok, _ = th.Allow(ctx, "other", time.Minute)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, _ = th.Allow(ctx, "k", time.Minute)
	assert.True(t, ok)

	ok, _ = th.Allow(ctx, "k", 0)
	assert.True(t, ok)
}
