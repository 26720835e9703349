package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const walletNumberAttempts = 5

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	transactor ports.DBTransactor
	tokenSvc   ports.TokenService
	log        zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	tokenSvc ports.TokenService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		transactor: transactor,
		tokenSvc:   tokenSvc,
		log:        log,
	}
}

// SignIn finds or creates the user behind a verified external identity and
// issues a session token. A first sign-in creates the user and its wallet in
// one database transaction.
func (s *AuthServiceImpl) SignIn(ctx context.Context, identity domain.ExternalIdentity) (*ports.SignInResult, error) {
	if identity.Subject == "" || identity.Email == "" {
		return nil, apperror.Validation("identity provider returned an incomplete profile")
	}

	user, err := s.userRepo.GetByProviderSubject(ctx, identity.Subject)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}

	created := false
	var wallet *domain.Wallet
	if user == nil {
		user, wallet, err = s.register(ctx, identity)
		if errors.Is(err, ports.ErrDuplicate) {
			// A concurrent first sign-in won; use its user.
			user, err = s.userRepo.GetByProviderSubject(ctx, identity.Subject)
			if err == nil && user == nil {
				// The subject is new, so the email belongs to another account.
				return nil, apperror.ErrEmailInUse()
			}
		} else {
			created = err == nil
		}
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("register user: %w", err))
		}
	}

	if !user.IsActive {
		return nil, apperror.ErrUserInactive()
	}

	if wallet == nil {
		wallet, err = s.walletRepo.GetByOwnerID(ctx, user.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
		}
		if wallet == nil {
			return nil, apperror.ErrNotFound("Wallet")
		}
	}

	token, expiresAt, err := s.tokenSvc.Generate(user.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().
		Str("user_id", user.ID.String()).
		Bool("created", created).
		Msg("sign-in processed successfully")

	return &ports.SignInResult{
		User:      *user,
		Wallet:    *wallet,
		Token:     token,
		ExpiresAt: expiresAt,
		Created:   created,
	}, nil
}

// register creates a user and wallet, retrying with a fresh wallet number
// when a number collides.
func (s *AuthServiceImpl) register(ctx context.Context, identity domain.ExternalIdentity) (*domain.User, *domain.Wallet, error) {
	now := time.Now().UTC()
	user := &domain.User{
		ID:              uuid.New(),
		ProviderSubject: identity.Subject,
		Email:           strings.ToLower(identity.Email),
		Name:            optional(identity.Name),
		PictureURL:      optional(identity.PictureURL),
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var lastErr error
	for attempt := 0; attempt < walletNumberAttempts; attempt++ {
		wallet, err := s.createUserWithWallet(ctx, user, now)
		if err == nil {
			return user, wallet, nil
		}
		if !errors.Is(err, errWalletNumberTaken) {
			return nil, nil, err
		}
		lastErr = err
		s.log.Debug().Int("attempt", attempt+1).Msg("wallet number collision, retrying")
	}
	return nil, nil, fmt.Errorf("allocate wallet number: %w", lastErr)
}

var errWalletNumberTaken = errors.New("wallet number taken")

func (s *AuthServiceImpl) createUserWithWallet(ctx context.Context, user *domain.User, now time.Time) (*domain.Wallet, error) {
	number, err := domain.GenerateWalletNumber()
	if err != nil {
		return nil, err
	}

	existing, err := s.walletRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("check wallet number: %w", err)
	}
	if existing != nil {
		return nil, errWalletNumberTaken
	}

	wallet := &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   user.ID,
		Number:    number,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.userRepo.Create(ctx, dbTx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, errWalletNumberTaken
		}
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return wallet, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
