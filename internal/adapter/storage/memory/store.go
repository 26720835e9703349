// Package memory is an in-process storage backend implementing the
// repository ports. Writes made inside a transaction are buffered and applied
// atomically on Commit; row locks are held until the transaction ends, so the
// locking behaviour the services rely on matches the PostgreSQL backend.
package memory

import (
	"context"
	"errors"
	"sync"

	"wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

// Store holds every table of the memory backend.
type Store struct {
	mu sync.RWMutex

	users          map[uuid.UUID]domain.User
	usersBySubject map[string]uuid.UUID

	wallets         map[uuid.UUID]domain.Wallet
	walletsByOwner  map[uuid.UUID]uuid.UUID
	walletsByNumber map[string]uuid.UUID

	txns         map[uuid.UUID]domain.Transaction
	txnsByRef    map[string]uuid.UUID
	txnsByExtRef map[string]uuid.UUID
	txnsByWallet map[uuid.UUID][]uuid.UUID

	keys       map[uuid.UUID]domain.APIKey
	keysByHash map[string]uuid.UUID

	audit []domain.AuditLog

	locks *lockTable
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:           make(map[uuid.UUID]domain.User),
		usersBySubject:  make(map[string]uuid.UUID),
		wallets:         make(map[uuid.UUID]domain.Wallet),
		walletsByOwner:  make(map[uuid.UUID]uuid.UUID),
		walletsByNumber: make(map[string]uuid.UUID),
		txns:            make(map[uuid.UUID]domain.Transaction),
		txnsByRef:       make(map[string]uuid.UUID),
		txnsByExtRef:    make(map[string]uuid.UUID),
		txnsByWallet:    make(map[uuid.UUID][]uuid.UUID),
		keys:            make(map[uuid.UUID]domain.APIKey),
		keysByHash:      make(map[string]uuid.UUID),
		locks:           newLockTable(),
	}
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(_ context.Context) (pgx.Tx, error) {
	return &memTx{
		store:    s,
		deltas:   make(map[uuid.UUID]decimal.Decimal),
		statuses: make(map[uuid.UUID]domain.TransactionStatus),
	}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Name returns the dependency name.
func (s *Store) Name() string {
	return "memory"
}

// memTx is a buffered transaction. The embedded pgx.Tx is nil; only Commit
// and Rollback are meaningful.
type memTx struct {
	pgx.Tx

	store *Store
	ops   []func(s *Store)
	held  []string
	done  bool

	// Uncommitted state visible to this transaction only.
	deltas   map[uuid.UUID]decimal.Decimal
	statuses map[uuid.UUID]domain.TransactionStatus
	users    map[uuid.UUID]bool
	wallets  map[uuid.UUID]domain.Wallet
}

func (tx *memTx) Commit(_ context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true

	tx.store.mu.Lock()
	for _, op := range tx.ops {
		op(tx.store)
	}
	tx.store.mu.Unlock()

	tx.store.locks.release(tx)
	return nil
}

func (tx *memTx) Rollback(_ context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	tx.ops = nil
	tx.store.locks.release(tx)
	return nil
}

// onCommit queues op to run under the store lock when tx commits.
func (tx *memTx) onCommit(op func(s *Store)) {
	tx.ops = append(tx.ops, op)
}

// lock takes the named row lock for the rest of the transaction.
func (tx *memTx) lock(ctx context.Context, key string) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	return tx.store.locks.acquire(ctx, tx, key)
}

func (s *Store) txFrom(tx pgx.Tx) (*memTx, error) {
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s {
		return nil, errForeignTx
	}
	if mt.done {
		return nil, pgx.ErrTxClosed
	}
	return mt, nil
}

// lockTable implements re-entrant row locks owned by a transaction.
type lockTable struct {
	mu   sync.Mutex
	rows map[string]*rowLock
}

type rowLock struct {
	owner *memTx
	freed chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{rows: make(map[string]*rowLock)}
}

func (l *lockTable) acquire(ctx context.Context, tx *memTx, key string) error {
	for {
		l.mu.Lock()
		cur, ok := l.rows[key]
		if !ok {
			l.rows[key] = &rowLock{owner: tx, freed: make(chan struct{})}
			tx.held = append(tx.held, key)
			l.mu.Unlock()
			return nil
		}
		if cur.owner == tx {
			l.mu.Unlock()
			return nil
		}
		wait := cur.freed
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *lockTable) release(tx *memTx) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, key := range tx.held {
		if cur, ok := l.rows[key]; ok && cur.owner == tx {
			delete(l.rows, key)
			close(cur.freed)
		}
	}
	tx.held = nil
}
