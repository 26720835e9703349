package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type apiKeyTestDeps struct {
	svc        *APIKeyServiceImpl
	keyRepo    *mocks.MockAPIKeyRepository
	transactor *mocks.MockDBTransactor
	hasher     *BlakeSecretHasher
	ctrl       *gomock.Controller
	now        time.Time
}

func setupAPIKeyService(t *testing.T) *apiKeyTestDeps {
	ctrl := gomock.NewController(t)
	hasher, err := NewBlakeSecretHasher("pepper")
	require.NoError(t, err)
	d := &apiKeyTestDeps{
		keyRepo:    mocks.NewMockAPIKeyRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		hasher:     hasher,
		ctrl:       ctrl,
		now:        time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC),
	}
	d.svc = NewAPIKeyService(d.keyRepo, d.transactor, hasher, zerolog.Nop())
	d.svc.now = func() time.Time { return d.now }
	return d
}

func (d *apiKeyTestDeps) expectIssue(ctx context.Context, owner uuid.UUID, effective int) *mockTx {
	tx := &mockTx{}
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.keyRepo.EXPECT().LockOwner(ctx, tx, owner).Return(nil)
	d.keyRepo.EXPECT().CountEffective(ctx, tx, owner, d.now).Return(effective, nil)
	return tx
}

// ==================== Create ====================

func TestAPIKeyService_Create_Success(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	tx := d.expectIssue(ctx, owner, 4)
	var stored *domain.APIKey
	d.keyRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, k *domain.APIKey) error {
			stored = k
			return nil
		},
	)

	issued, err := d.svc.Create(ctx, ports.CreateKeyRequest{
		OwnerID:     owner,
		Name:        "  billing  ",
		Permissions: []string{"read", "DEPOSIT", "read"},
		Expiry:      "1D",
	})
	require.NoError(t, err)
	assert.True(t, tx.committed)

	assert.Regexp(t, `^sk_[0-9a-f]{48}$`, issued.Secret)
	assert.Equal(t, "billing", issued.Key.Name)
	assert.True(t, strings.HasPrefix(issued.Secret, issued.Key.Prefix))
	assert.Len(t, issued.Key.Prefix, 11)
	assert.Equal(t, d.now.Add(24*time.Hour), issued.Key.ExpiresAt)
	assert.Equal(t, []string{"read", "deposit"}, issued.Key.Permissions.Strings())
	assert.True(t, issued.Key.IsActive)

	require.NotNil(t, stored)
	assert.Equal(t, d.hasher.Digest(issued.Secret), stored.KeyHash)
	assert.NotContains(t, stored.KeyHash, issued.Secret)
}

func TestAPIKeyService_Create_LimitReached(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	tx := d.expectIssue(ctx, owner, domain.MaxActiveKeys)
	// No Create

	_, err := d.svc.Create(ctx, ports.CreateKeyRequest{OwnerID: owner, Name: "sixth", Permissions: []string{"read"}, Expiry: "1H"})
	assertAppError(t, err, "KEY_005")
	assert.False(t, tx.committed)
}

func TestAPIKeyService_Create_ValidationErrors(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()

	tests := []struct {
		name string
		req  ports.CreateKeyRequest
	}{
		{"empty name", ports.CreateKeyRequest{OwnerID: owner, Name: " ", Permissions: []string{"read"}, Expiry: "1D"}},
		{"long name", ports.CreateKeyRequest{OwnerID: owner, Name: strings.Repeat("k", 101), Permissions: []string{"read"}, Expiry: "1D"}},
		{"no permissions", ports.CreateKeyRequest{OwnerID: owner, Name: "k", Expiry: "1D"}},
		{"unknown permission", ports.CreateKeyRequest{OwnerID: owner, Name: "k", Permissions: []string{"read", "admin"}, Expiry: "1D"}},
		{"bad expiry unit", ports.CreateKeyRequest{OwnerID: owner, Name: "k", Permissions: []string{"read"}, Expiry: "1W"}},
		{"zero expiry", ports.CreateKeyRequest{OwnerID: owner, Name: "k", Permissions: []string{"read"}, Expiry: "0D"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.svc.Create(ctx, tt.req)
			assertAppError(t, err, "SYS_002")
		})
	}
}

func TestAPIKeyService_Create_StoreError(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	tx := d.expectIssue(ctx, owner, 0)
	d.keyRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(fmt.Errorf("insert failed"))

	_, err := d.svc.Create(ctx, ports.CreateKeyRequest{OwnerID: owner, Name: "k", Permissions: []string{"read"}, Expiry: "1M"})
	assertAppError(t, err, "SYS_001")
	assert.True(t, tx.rolledBack)
}

// ==================== Rollover ====================

func TestAPIKeyService_Rollover_Success(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	old := &domain.APIKey{
		ID:          uuid.New(),
		OwnerID:     owner,
		Name:        "ci",
		Permissions: domain.NewPermissionSet(domain.PermissionTransfer),
		IsActive:    true,
		ExpiresAt:   d.now.Add(-time.Minute),
	}
	d.keyRepo.EXPECT().GetByID(ctx, old.ID).Return(old, nil)
	tx := d.expectIssue(ctx, owner, 2)
	d.keyRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	// Old key is not deactivated

	issued, err := d.svc.Rollover(ctx, owner, old.ID, "1Y")
	require.NoError(t, err)
	assert.Equal(t, "ci (rolled over)", issued.Key.Name)
	assert.Equal(t, old.Permissions, issued.Key.Permissions)
	assert.Equal(t, d.now.Add(365*24*time.Hour), issued.Key.ExpiresAt)
	assert.NotEqual(t, old.ID, issued.Key.ID)
}

func TestAPIKeyService_Rollover_NameFitsLimit(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	old := &domain.APIKey{
		ID:          uuid.New(),
		OwnerID:     owner,
		Name:        strings.Repeat("k", maxKeyNameLen),
		Permissions: domain.FullPermissions,
		ExpiresAt:   d.now.Add(-time.Minute),
	}
	d.keyRepo.EXPECT().GetByID(ctx, old.ID).Return(old, nil)
	tx := d.expectIssue(ctx, owner, 0)
	d.keyRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	issued, err := d.svc.Rollover(ctx, owner, old.ID, "1D")
	require.NoError(t, err)
	assert.Len(t, issued.Key.Name, maxKeyNameLen)
	assert.True(t, strings.HasSuffix(issued.Key.Name, domain.RolloverSuffix))
}

func TestRolloverName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "ci", "ci (rolled over)"},
		{"already rolled over", "ci (rolled over)", "ci (rolled over)"},
		{"rolled over twice", "ci (rolled over) (rolled over)", "ci (rolled over)"},
		{"long", strings.Repeat("a", 100), strings.Repeat("a", 86) + " (rolled over)"},
		{"multibyte", strings.Repeat("é", 50), strings.Repeat("é", 43) + " (rolled over)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rolloverName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), maxKeyNameLen)
		})
	}
}

func TestAPIKeyService_Rollover_NotExpired(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	old := &domain.APIKey{ID: uuid.New(), OwnerID: owner, IsActive: true, ExpiresAt: d.now.Add(time.Second)}
	d.keyRepo.EXPECT().GetByID(ctx, old.ID).Return(old, nil)

	_, err := d.svc.Rollover(ctx, owner, old.ID, "1D")
	assertAppError(t, err, "KEY_006")
}

func TestAPIKeyService_Rollover_ExpiresExactlyNow(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	old := &domain.APIKey{ID: uuid.New(), OwnerID: owner, Name: "edge", Permissions: domain.FullPermissions, ExpiresAt: d.now}
	d.keyRepo.EXPECT().GetByID(ctx, old.ID).Return(old, nil)
	tx := d.expectIssue(ctx, owner, 0)
	d.keyRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	_, err := d.svc.Rollover(ctx, owner, old.ID, "2H")
	require.NoError(t, err)
}

func TestAPIKeyService_Rollover_Ownership(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	missing := uuid.New()
	d.keyRepo.EXPECT().GetByID(ctx, missing).Return(nil, nil)
	_, err := d.svc.Rollover(ctx, uuid.New(), missing, "1D")
	assertAppError(t, err, "WAL_003")

	foreign := &domain.APIKey{ID: uuid.New(), OwnerID: uuid.New(), ExpiresAt: d.now.Add(-time.Hour)}
	d.keyRepo.EXPECT().GetByID(ctx, foreign.ID).Return(foreign, nil)
	_, err = d.svc.Rollover(ctx, uuid.New(), foreign.ID, "1D")
	assertAppError(t, err, "KEY_007")
}

func TestAPIKeyService_Rollover_LimitStillApplies(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	old := &domain.APIKey{ID: uuid.New(), OwnerID: owner, Permissions: domain.FullPermissions, ExpiresAt: d.now.Add(-time.Hour)}
	d.keyRepo.EXPECT().GetByID(ctx, old.ID).Return(old, nil)
	d.expectIssue(ctx, owner, 5)

	_, err := d.svc.Rollover(ctx, owner, old.ID, "1D")
	assertAppError(t, err, "KEY_005")
}

// ==================== Revoke / List ====================

func TestAPIKeyService_Revoke(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	key := &domain.APIKey{ID: uuid.New(), OwnerID: owner, IsActive: true}
	d.keyRepo.EXPECT().GetByID(ctx, key.ID).Return(key, nil)
	d.keyRepo.EXPECT().Deactivate(ctx, key.ID).Return(nil)

	require.NoError(t, d.svc.Revoke(ctx, owner, key.ID))
}

func TestAPIKeyService_Revoke_AlreadyInactive(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	key := &domain.APIKey{ID: uuid.New(), OwnerID: owner, IsActive: false}
	d.keyRepo.EXPECT().GetByID(ctx, key.ID).Return(key, nil)
	// No Deactivate

	require.NoError(t, d.svc.Revoke(ctx, owner, key.ID))
}

func TestAPIKeyService_Revoke_NotOwner(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	key := &domain.APIKey{ID: uuid.New(), OwnerID: uuid.New(), IsActive: true}
	d.keyRepo.EXPECT().GetByID(ctx, key.ID).Return(key, nil)

	err := d.svc.Revoke(ctx, uuid.New(), key.ID)
	assertAppError(t, err, "KEY_007")
}

func TestAPIKeyService_List(t *testing.T) {
	d := setupAPIKeyService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	d.keyRepo.EXPECT().ListByOwner(ctx, owner).Return([]domain.APIKey{{Name: "b"}, {Name: "a"}}, nil)

	keys, err := d.svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
