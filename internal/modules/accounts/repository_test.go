package accounts

import (
	"testing"

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

func TestUpsertAndGet(t *testing.T) {
	repo := testRepo(t, "accounts_upsert")

	require.NoError(t, repo.Upsert(domain.AccountDetail{
		AccountID: "ACC1",
		UserName:  "alice",
		Strategy:  domain.StrategySwing,
	}))

	got, err := repo.GetByID("ACC1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserName)
	assert.Equal(t, domain.StrategySwing, got.Strategy)
	assert.Equal(t, "TRADING_ONLY", got.Type)

	// Second upsert reclassifies in place, no duplicate row
	require.NoError(t, repo.Upsert(domain.AccountDetail{
		AccountID: "ACC1",
		UserName:  "alice",
		Strategy:  domain.StrategyLongTerm,
	}))

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StrategyLongTerm, all[0].Strategy)
}

func TestUpsertRejectsInvalid(t *testing.T) {
	repo := testRepo(t, "accounts_invalid")

	err := repo.Upsert(domain.AccountDetail{AccountID: " ", Strategy: domain.StrategySwing})
	assert.Error(t, err)

	err = repo.Upsert(domain.AccountDetail{AccountID: "ACC1", Strategy: "INTRADAY"})
	assert.Error(t, err)
}

func TestClassification(t *testing.T) {
	repo := testRepo(t, "accounts_class")

	require.NoError(t, repo.Upsert(domain.AccountDetail{AccountID: "ACC1", Strategy: domain.StrategySwing}))
	require.NoError(t, repo.Upsert(domain.AccountDetail{AccountID: "ACC2", Strategy: domain.StrategyLongTerm}))

	class, err := repo.Classification()
	require.NoError(t, err)
	assert.Equal(t, domain.Classification{
		"ACC1": domain.StrategySwing,
		"ACC2": domain.StrategyLongTerm,
	}, class)
}

func TestGetMissing(t *testing.T) {
	repo := testRepo(t, "accounts_missing")
	_, err := repo.GetByID("NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := testRepo(t, "accounts_delete")

	require.NoError(t, repo.Upsert(domain.AccountDetail{AccountID: "ACC1", Strategy: domain.StrategySwing}))
	require.NoError(t, repo.Delete("ACC1"))
	assert.ErrorIs(t, repo.Delete("ACC1"), ErrNotFound)
}
