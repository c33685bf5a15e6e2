package snapshots

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/foliotrack/internal/database"
	"github.com/foliotrack/foliotrack/internal/domain"
)

func testRepo(t *testing.T, name string) *Repository {
	t.Helper()
	db, err := database.OpenMemory(name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db.Conn(), zerolog.Nop())
}

func snapOn(view domain.View, day string, nav float64) domain.PortfolioSnapshot {
	date, _ := time.Parse("2006-01-02", day)
	return domain.PortfolioSnapshot{
		View:           view,
		Date:           date,
		NAV:            nav,
		PortfolioValue: nav * 100,
		TotalPayin:     10000,
		ShareCount:     100,
	}
}

func TestUpsertOverwritesSameDay(t *testing.T) {
	repo := testRepo(t, "snaps_upsert")

	require.NoError(t, repo.Upsert(snapOn(domain.ViewOverall, "2026-01-05", 101)))
	require.NoError(t, repo.Upsert(snapOn(domain.ViewOverall, "2026-01-05", 102.5)))

	history, err := repo.History(domain.ViewOverall, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.InDelta(t, 102.5, history[0].NAV, 1e-9)
}

func TestUpsertKeepsViewsAndAccountsApart(t *testing.T) {
	repo := testRepo(t, "snaps_keys")

	require.NoError(t, repo.Upsert(snapOn(domain.ViewOverall, "2026-01-05", 100)))
	require.NoError(t, repo.Upsert(snapOn(domain.ViewSwing, "2026-01-05", 110)))

	acc := snapOn("", "2026-01-05", 120)
	acc.AccountID = "ACC1"
	require.NoError(t, repo.Upsert(acc))

	overall, err := repo.History(domain.ViewOverall, 0)
	require.NoError(t, err)
	require.Len(t, overall, 1)
	assert.InDelta(t, 100, overall[0].NAV, 1e-9)

	accHistory, err := repo.AccountHistory("ACC1")
	require.NoError(t, err)
	require.Len(t, accHistory, 1)
	assert.InDelta(t, 120, accHistory[0].NAV, 1e-9)
}

func TestLatestAndHistoryOrder(t *testing.T) {
	repo := testRepo(t, "snaps_order")

	// Inserted out of date order
	require.NoError(t, repo.Upsert(snapOn(domain.ViewOverall, "2026-01-07", 103)))
	require.NoError(t, repo.Upsert(snapOn(domain.ViewOverall, "2026-01-05", 101)))
	require.NoError(t, repo.Upsert(snapOn(domain.ViewOverall, "2026-01-06", 102)))

	latest, err := repo.Latest(domain.ViewOverall)
	require.NoError(t, err)
	assert.InDelta(t, 103, latest.NAV, 1e-9)

	history, err := repo.History(domain.ViewOverall, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].Date.Before(history[1].Date))
	assert.True(t, history[1].Date.Before(history[2].Date))

	// Limit keeps the most recent N, oldest first
	recent, err := repo.History(domain.ViewOverall, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.InDelta(t, 102, recent[0].NAV, 1e-9)
	assert.InDelta(t, 103, recent[1].NAV, 1e-9)
}

func TestLatestMissingView(t *testing.T) {
	repo := testRepo(t, "snaps_missing")
	_, err := repo.Latest(domain.ViewSwing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNullableFieldsRoundTrip(t *testing.T) {
	repo := testRepo(t, "snaps_nulls")

	withXIRR := snapOn(domain.ViewOverall, "2026-01-05", 100)
	xirr := 12.5
	withXIRR.XIRR = &xirr
	require.NoError(t, repo.Upsert(withXIRR))

	require.NoError(t, repo.Upsert(snapOn(domain.ViewOverall, "2026-01-06", 101)))

	history, err := repo.History(domain.ViewOverall, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[0].XIRR)
	assert.InDelta(t, 12.5, *history[0].XIRR, 1e-9)
	// nil survives the round trip, it is never coerced to zero
	assert.Nil(t, history[1].XIRR)
}
