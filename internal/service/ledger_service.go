package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	userRepo   ports.UserRepository
	transactor ports.DBTransactor
	gateway    ports.PaymentGateway
	events     ports.EventPublisher
	log        zerolog.Logger
	now        func() time.Time
}

// NewLedgerService creates a new LedgerServiceImpl. events may be nil.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	userRepo ports.UserRepository,
	transactor ports.DBTransactor,
	gateway ports.PaymentGateway,
	events ports.EventPublisher,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		userRepo:   userRepo,
		transactor: transactor,
		gateway:    gateway,
		events:     events,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// GetWalletByOwner returns the wallet owned by ownerID.
func (s *LedgerServiceImpl) GetWalletByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet by owner: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}
	return wallet, nil
}

// GetBalance returns the wallet with its current balance and number.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}
	return wallet, nil
}

// InitializeDeposit records a Pending deposit and asks the payment gateway for a
// checkout URL. The balance is untouched until the deposit is confirmed.
func (s *LedgerServiceImpl) InitializeDeposit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*ports.DepositInit, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, apperror.ErrInvalidAmount(err.Error())
	}

	wallet, err := s.GetBalance(ctx, walletID)
	if err != nil {
		return nil, err
	}

	owner, err := s.userRepo.GetByID(ctx, wallet.OwnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet owner: %w", err))
	}
	if owner == nil {
		return nil, apperror.ErrNotFound("User")
	}

	reference, err := domain.NewDepositReference()
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	now := s.now()
	txn := &domain.Transaction{
		ID:                uuid.New(),
		Reference:         reference,
		Kind:              domain.TransactionKindDeposit,
		Status:            domain.TransactionStatusPending,
		Amount:            amount,
		WalletID:          wallet.ID,
		ExternalReference: &reference,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create deposit: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	checkout, err := s.gateway.InitializeTransaction(ctx, ports.CheckoutRequest{
		Email:     owner.Email,
		Amount:    amount,
		Reference: reference,
	})
	if err != nil {
		s.abandonDeposit(ctx, txn)
		return nil, apperror.ErrPaymentUnavailable(err)
	}

	s.log.Info().
		Str("reference", reference).
		Str("wallet_id", wallet.ID.String()).
		Str("amount", amount.StringFixed(2)).
		Msg("deposit initialized successfully")

	return &ports.DepositInit{
		Reference:        reference,
		AuthorizationURL: checkout.AuthorizationURL,
		AccessCode:       checkout.AccessCode,
	}, nil
}

// abandonDeposit fails a deposit whose checkout could never be created.
func (s *LedgerServiceImpl) abandonDeposit(ctx context.Context, txn *domain.Transaction) {
	ctx = context.WithoutCancel(ctx)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", txn.Reference).Msg("failed to mark deposit as failed")
		return
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := s.txRepo.TransitionStatus(ctx, dbTx, txn.ID, domain.TransactionStatusPending, domain.TransactionStatusFailed, nil); err != nil {
		s.log.Warn().Err(err).Str("reference", txn.Reference).Msg("failed to mark deposit as failed")
		return
	}
	if err := dbTx.Commit(ctx); err != nil {
		s.log.Warn().Err(err).Str("reference", txn.Reference).Msg("failed to mark deposit as failed")
	}
}

// GetDepositStatus returns a read-only snapshot of a deposit owned by walletID.
func (s *LedgerServiceImpl) GetDepositStatus(ctx context.Context, walletID uuid.UUID, reference string) (*ports.DepositStatus, error) {
	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil || !txn.IsDeposit() {
		return nil, apperror.ErrNotFound("Deposit")
	}
	if txn.WalletID != walletID {
		return nil, apperror.ErrNotOwner("Deposit")
	}

	status := &ports.DepositStatus{
		Reference: txn.Reference,
		Status:    txn.Status,
		Amount:    txn.Amount,
		Currency:  domain.DepositCurrency,
	}
	if txn.Status == domain.TransactionStatusSuccess {
		status.PaidAt = txn.SettledAt
		if txn.SettledAmount != nil {
			status.Amount = *txn.SettledAmount
		}
	}
	return status, nil
}

// CreditOnConfirmation applies a processor confirmation at most once per
// reference. Only the caller whose Pending->Success transition changes the row
// credits the wallet; replays and losers of a race are no-ops.
func (s *LedgerServiceImpl) CreditOnConfirmation(ctx context.Context, c ports.Confirmation) error {
	txn, err := s.txRepo.GetByExternalReference(ctx, c.ExternalReference)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		s.log.Warn().Str("reference", c.ExternalReference).Msg("confirmation for unknown reference ignored")
		return nil
	}
	if txn.Status != domain.TransactionStatusPending {
		s.log.Debug().
			Str("reference", c.ExternalReference).
			Str("status", string(txn.Status)).
			Msg("confirmation for settled deposit ignored")
		return nil
	}
	if c.Success && !c.Amount.IsPositive() {
		return apperror.ErrInvalidAmount("confirmed amount must be greater than zero")
	}

	now := s.now()
	to := domain.TransactionStatusFailed
	var settled *ports.Settlement
	if c.Success {
		to = domain.TransactionStatusSuccess
		settled = &ports.Settlement{Amount: c.Amount, At: now}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	won, err := s.txRepo.TransitionStatus(ctx, dbTx, txn.ID, domain.TransactionStatusPending, to, settled)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("transition deposit: %w", err))
	}
	if !won {
		return nil
	}

	if c.Success {
		if err := s.walletRepo.AdjustBalance(ctx, dbTx, txn.WalletID, c.Amount); err != nil {
			return apperror.InternalError(fmt.Errorf("credit wallet: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if !c.Success {
		s.log.Info().Str("reference", txn.Reference).Msg("deposit marked as failed")
		return nil
	}

	if !c.Amount.Equal(txn.Amount) {
		s.log.Warn().
			Str("reference", txn.Reference).
			Str("requested", txn.Amount.StringFixed(2)).
			Str("confirmed", c.Amount.StringFixed(2)).
			Msg("confirmed amount differs from requested amount")
	}

	s.publish(ctx, domain.SubjectDepositCredited, domain.DepositCredited{
		Reference:  txn.Reference,
		WalletID:   txn.WalletID,
		Amount:     c.Amount,
		Currency:   domain.DepositCurrency,
		CreditedAt: now,
	})

	s.log.Info().
		Str("reference", txn.Reference).
		Str("wallet_id", txn.WalletID.String()).
		Str("amount", c.Amount.StringFixed(2)).
		Msg("deposit credited successfully")

	return nil
}

// Transfer moves amount from the sender's wallet to the wallet numbered
// recipientNumber. Both balance changes and both ledger rows commit together.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, senderWalletID uuid.UUID, recipientNumber string, amount decimal.Decimal) (*ports.TransferResult, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, apperror.ErrInvalidAmount(err.Error())
	}

	sender, err := s.GetBalance(ctx, senderWalletID)
	if err != nil {
		return nil, err
	}
	if !sender.CanDebit(amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	recipient, err := s.walletRepo.GetByNumber(ctx, recipientNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get recipient wallet: %w", err))
	}
	if recipient == nil {
		return nil, apperror.ErrNotFound("Recipient wallet")
	}
	if recipient.ID == sender.ID {
		return nil, apperror.ErrSelfTransfer()
	}

	reference, err := domain.NewTransferReference()
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Both rows are locked in id order regardless of direction.
	locked, err := s.walletRepo.LockForUpdate(ctx, dbTx, sender.ID, recipient.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallets: %w", err))
	}
	lockedSender := findWallet(locked, sender.ID)
	if lockedSender == nil || findWallet(locked, recipient.ID) == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}

	// The balance may have moved since the unlocked read above.
	if !lockedSender.CanDebit(amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := s.walletRepo.AdjustBalance(ctx, dbTx, sender.ID, amount.Neg()); err != nil {
		if errors.Is(err, ports.ErrBalanceConstraint) {
			return nil, apperror.ErrInsufficientFunds()
		}
		return nil, apperror.InternalError(fmt.Errorf("debit sender: %w", err))
	}
	if err := s.walletRepo.AdjustBalance(ctx, dbTx, recipient.ID, amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit recipient: %w", err))
	}

	out, in := transferLegs(reference, amount, sender, recipient, s.now())
	if err := s.txRepo.CreateTransferPair(ctx, dbTx, out, in); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transfer transactions: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.publish(ctx, domain.SubjectTransferCompleted, domain.TransferCompleted{
		Reference:       reference,
		SenderWalletID:  sender.ID,
		RecipientWallet: recipient.ID,
		Amount:          amount,
		CompletedAt:     out.CreatedAt,
	})

	s.log.Info().
		Str("reference", reference).
		Str("sender_wallet_id", sender.ID.String()).
		Str("recipient_wallet_id", recipient.ID.String()).
		Str("amount", amount.StringFixed(2)).
		Msg("transfer processed successfully")

	return &ports.TransferResult{
		Reference:       reference,
		Amount:          amount,
		RecipientNumber: recipient.Number,
		SenderBalance:   lockedSender.Balance.Sub(amount),
	}, nil
}

// ListTransactions returns the wallet's history, newest first.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	txns, total, err := s.txRepo.ListByWallet(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

func (s *LedgerServiceImpl) publish(ctx context.Context, subject string, event any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, subject, event); err != nil {
		s.log.Warn().Err(err).Str("subject", subject).Msg("failed to publish ledger event")
	}
}

// transferLegs builds the sender and recipient rows of a transfer. Each leg
// names the other in RelatedReference.
func transferLegs(reference string, amount decimal.Decimal, sender, recipient *domain.Wallet, now time.Time) (*domain.Transaction, *domain.Transaction) {
	inReference := reference + domain.TransferInSuffix
	senderNumber := sender.Number
	recipientNumber := recipient.Number
	outRelated := inReference
	inRelated := reference

	out := &domain.Transaction{
		ID:                uuid.New(),
		Reference:         reference,
		Kind:              domain.TransactionKindTransfer,
		Status:            domain.TransactionStatusSuccess,
		Amount:            amount,
		WalletID:          sender.ID,
		CounterpartNumber: &recipientNumber,
		RelatedReference:  &outRelated,
		CreatedAt:         now,
		UpdatedAt:         now,
		SettledAt:         &now,
	}
	in := &domain.Transaction{
		ID:                uuid.New(),
		Reference:         inReference,
		Kind:              domain.TransactionKindTransfer,
		Status:            domain.TransactionStatusSuccess,
		Amount:            amount,
		WalletID:          recipient.ID,
		CounterpartNumber: &senderNumber,
		RelatedReference:  &inRelated,
		CreatedAt:         now,
		UpdatedAt:         now,
		SettledAt:         &now,
	}
	return out, in
}

func findWallet(wallets []domain.Wallet, id uuid.UUID) *domain.Wallet {
	for i := range wallets {
		if wallets[i].ID == id {
			return &wallets[i]
		}
	}
	return nil
}
