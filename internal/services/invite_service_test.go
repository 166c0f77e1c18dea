package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/phonegate/internal/database/testutil"
	"github.com/charlesng35/phonegate/internal/models"
	apperrors "github.com/charlesng35/phonegate/pkg/errors"
)

func newInviteFixtures(t *testing.T) (*gorm.DB, *InviteService, *AccountService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	invites, err := NewInviteService(db)
	require.NoError(t, err)

	accounts, err := NewAccountService(db, invites)
	require.NoError(t, err)

	return db, invites, accounts
}

func TestMintForCreatesUniqueKeyPerAccount(t *testing.T) {
	db, invites, accounts := newInviteFixtures(t)

	a, err := accounts.GetOrCreate(context.Background(), "+15551230000", "")
	require.NoError(t, err)
	b, err := accounts.GetOrCreate(context.Background(), "+15551230001", "")
	require.NoError(t, err)

	require.NotNil(t, a.InviteKey)
	require.NotNil(t, b.InviteKey)
	require.NotEqual(t, a.InviteKey.Key, b.InviteKey.Key)

	var count int64
	require.NoError(t, db.Model(&models.InviteKey{}).Count(&count).Error)
	require.EqualValues(t, 2, count)

	// A second mint for the same account violates the one-key invariant.
	_, err = invites.MintFor(nil, a.ID)
	require.Error(t, err)
}

func TestRedeemSuccess(t *testing.T) {
	_, invites, accounts := newInviteFixtures(t)

	a, err := accounts.GetOrCreate(context.Background(), "+15551230000", "")
	require.NoError(t, err)
	b, err := accounts.GetOrCreate(context.Background(), "+15551230001", "")
	require.NoError(t, err)

	key, err := invites.Redeem(context.Background(), b, a.InviteKey.Key)
	require.NoError(t, err)
	require.Equal(t, a.InviteKey.ID, key.ID)

	reloaded, err := accounts.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.InviteID)
	require.Equal(t, a.InviteKey.ID, *reloaded.InviteID)
}

func TestRedeemRejectsOwnKey(t *testing.T) {
	_, invites, accounts := newInviteFixtures(t)

	a, err := accounts.GetOrCreate(context.Background(), "+15551230000", "")
	require.NoError(t, err)

	_, err = invites.Redeem(context.Background(), a, a.InviteKey.Key)
	require.ErrorIs(t, err, apperrors.ErrInviteSelfRedemption)
}

func TestRedeemRejectsOwnKeyWhenNotPreloaded(t *testing.T) {
	_, invites, accounts := newInviteFixtures(t)

	a, err := accounts.GetOrCreate(context.Background(), "+15551230000", "")
	require.NoError(t, err)

	// Simulate a handler that loaded the account without associations.
	bare := &models.Account{ID: a.ID}

	_, err = invites.Redeem(context.Background(), bare, a.InviteKey.Key)
	require.ErrorIs(t, err, apperrors.ErrInviteSelfRedemption)
}

func TestRedeemRejectsUnknownKey(t *testing.T) {
	_, invites, accounts := newInviteFixtures(t)

	a, err := accounts.GetOrCreate(context.Background(), "+15551230000", "")
	require.NoError(t, err)

	_, err = invites.Redeem(context.Background(), a, "ZZZZZZ")
	require.ErrorIs(t, err, apperrors.ErrInviteKeyNotFound)
}

func TestRedeemIsSingleShot(t *testing.T) {
	_, invites, accounts := newInviteFixtures(t)

	a, err := accounts.GetOrCreate(context.Background(), "+15551230000", "")
	require.NoError(t, err)
	b, err := accounts.GetOrCreate(context.Background(), "+15551230001", "")
	require.NoError(t, err)
	c, err := accounts.GetOrCreate(context.Background(), "+15551230002", "")
	require.NoError(t, err)

	_, err = invites.Redeem(context.Background(), b, a.InviteKey.Key)
	require.NoError(t, err)

	// A second attempt fails even with a different valid key, and the
	// already-redeemed check wins over key lookup for unknown values.
	_, err = invites.Redeem(context.Background(), b, c.InviteKey.Key)
	require.ErrorIs(t, err, apperrors.ErrInviteAlreadyRedeemed)

	_, err = invites.Redeem(context.Background(), b, "ZZZZZZ")
	require.ErrorIs(t, err, apperrors.ErrInviteAlreadyRedeemed)
}

func TestRedeemConditionalWriteGuardsRaces(t *testing.T) {
	_, invites, accounts := newInviteFixtures(t)

	a, err := accounts.GetOrCreate(context.Background(), "+15551230000", "")
	require.NoError(t, err)
	b, err := accounts.GetOrCreate(context.Background(), "+15551230001", "")
	require.NoError(t, err)
	c, err := accounts.GetOrCreate(context.Background(), "+15551230002", "")
	require.NoError(t, err)

	// Two redemption attempts race with the same stale view of account b.
	stale := &models.Account{ID: b.ID, InviteKey: b.InviteKey}

	_, err = invites.Redeem(context.Background(), b, a.InviteKey.Key)
	require.NoError(t, err)

	_, err = invites.Redeem(context.Background(), stale, c.InviteKey.Key)
	require.ErrorIs(t, err, apperrors.ErrInviteAlreadyRedeemed)
}
