package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/phonegate/internal/database/testutil"
	"github.com/charlesng35/phonegate/internal/models"
	"github.com/charlesng35/phonegate/internal/services"
)

func TestCleanerRunOncePurgesStaleTokens(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	now := time.Now()
	clock := func() time.Time { return now }

	tokens, err := services.NewPhoneTokenService(db, services.WithPhoneTokenClock(clock))
	require.NoError(t, err)

	stale := &models.PhoneToken{PhoneNumber: "+15551230001", OTP: "111111", Used: true, CreatedAt: now.Add(-48 * time.Hour)}
	fresh := &models.PhoneToken{PhoneNumber: "+15551230002", OTP: "222222", CreatedAt: now.Add(-time.Minute)}
	require.NoError(t, db.Create(stale).Error)
	require.NoError(t, db.Create(fresh).Error)

	cleaner := NewCleaner(tokens, WithRetention(24*time.Hour))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.PhoneToken{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var remaining models.PhoneToken
	require.NoError(t, db.First(&remaining).Error)
	require.Equal(t, "+15551230002", remaining.PhoneNumber)
}

func TestCleanerStartStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	tokens, err := services.NewPhoneTokenService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(tokens, WithSchedule("@every 1h"))
	require.NoError(t, cleaner.Start())

	ctx := cleaner.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}

func TestCleanerWithoutServiceIsNoop(t *testing.T) {
	cleaner := NewCleaner(nil)
	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
}
