package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	testutil "github.com/dmfesta/tradeacademy/internal/database/testutil"
	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/internal/services"
)

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	current := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	tokens, err := services.NewTokenService(db,
		services.WithTokenClock(func() time.Time { return current }),
		services.WithTokenHardExpiry(time.Hour),
	)
	require.NoError(t, err)

	stale, err := tokens.Issue(context.Background(), "admin-1", 3)
	require.NoError(t, err)

	// Issue a second token after moving past the first one's window.
	current = current.Add(2 * time.Hour)
	fresh, err := tokens.Issue(context.Background(), "admin-1", 3)
	require.NoError(t, err)

	c := NewCleaner(tokens, WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))))
	require.NoError(t, c.RunOnce(context.Background()))

	var swept models.AccessToken
	require.NoError(t, db.First(&swept, "id = ?", stale.ID).Error)
	require.Equal(t, models.TokenStatusExpired, swept.Status)

	var kept models.AccessToken
	require.NoError(t, db.First(&kept, "id = ?", fresh.ID).Error)
	require.Equal(t, models.TokenStatusActive, kept.Status)
}

func TestCleanerStartStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	tokens, err := services.NewTokenService(db)
	require.NoError(t, err)

	c := NewCleaner(tokens, WithTokenSchedule("@every 1h"))
	require.NoError(t, c.Start())
	<-c.Stop().Done()
}

func TestCleanerWithoutTokenService(t *testing.T) {
	c := NewCleaner(nil)
	require.NoError(t, c.Start())
	require.NoError(t, c.RunOnce(context.Background()))
	<-c.Stop().Done()
}
