package repositories

import (
	"context"
	"testing"

	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGame(id string, createdAt int64) *types.Game {
	return &types.Game{
		ID:            id,
		TotalRounds:   5,
		Status:        types.GameStatusWaiting,
		TimeRemaining: 900,
		CreatedAt:     createdAt,
	}
}

// exerciseRepository runs the same scenario against every implementation.
func exerciseRepository(t *testing.T, repo Repository) {
	ctx := context.Background()

	_, err := repo.LatestGame(ctx)
	assert.True(t, IsNotFound(err), "expected not found, got %v", err)

	_, err = repo.QueryGameData(ctx, "missing", QueryScope{})
	assert.True(t, IsNotFound(err), "expected not found, got %v", err)

	require.NoError(t, repo.CreateGame(ctx, testGame("game-1", 1)))
	require.NoError(t, repo.CreateGame(ctx, testGame("game-2", 2)))

	latest, err := repo.LatestGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, "game-2", latest.ID)

	production := []types.ProductionFact{
		{Country: types.CountryUSA, Product: types.ProductSteel, Quantity: 60},
		{Country: types.CountryChina, Product: types.ProductSteel, Quantity: 40},
	}
	demand := []types.DemandFact{
		{Country: types.CountryGermany, Product: types.ProductSteel, Quantity: 50},
		{Country: types.CountryIndia, Product: types.ProductSteel, Quantity: 30},
		{Country: types.CountryJapan, Product: types.ProductSteel, Quantity: 20},
	}
	require.NoError(t, repo.InsertProduction(ctx, "game-2", production))
	require.NoError(t, repo.InsertDemand(ctx, "game-2", demand))

	records := []types.TariffRecord{
		{
			TariffKey:   types.TariffKey{Round: 1, Product: types.ProductSteel, FromCountry: types.CountryUSA, ToCountry: types.CountryChina},
			Rate:        0.1,
			SubmittedBy: "p1",
			Timestamp:   10,
			Sequence:    1,
		},
		{
			TariffKey:   types.TariffKey{Round: 1, Product: types.ProductSteel, FromCountry: types.CountryUSA, ToCountry: types.CountryChina},
			Rate:        0.2,
			SubmittedBy: "p1",
			Timestamp:   11,
			Sequence:    2,
		},
	}
	require.NoError(t, repo.InsertTariffRecords(ctx, "game-2", records))
	// re-inserting a stored sequence is a no-op
	require.NoError(t, repo.InsertTariffRecords(ctx, "game-2", records[:1]))

	started := testGame("game-2", 2)
	started.Status = types.GameStatusActive
	started.CurrentRound = 1
	require.NoError(t, repo.UpdateGame(ctx, started))
	assert.True(t, IsNotFound(repo.UpdateGame(ctx, testGame("missing", 3))))

	data, err := repo.QueryGameData(ctx, "game-2", QueryScope{})
	require.NoError(t, err)
	assert.Equal(t, types.GameStatusActive, data.Game.Status)
	assert.Equal(t, 1, data.Game.CurrentRound)
	assert.ElementsMatch(t, production, data.Production)
	assert.ElementsMatch(t, demand, data.Demand)
	require.Len(t, data.TariffRates, 2)
	assert.Equal(t, uint64(1), data.TariffRates[0].Sequence)
	assert.Equal(t, records[1], data.TariffRates[1])

	scoped, err := repo.QueryGameData(ctx, "game-2", QueryScope{Country: types.CountryIndia})
	require.NoError(t, err)
	assert.Equal(t, []types.DemandFact{demand[1]}, scoped.Demand)
	assert.Len(t, scoped.Production, 2)
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	defer repo.Close(context.Background())
	exerciseRepository(t, repo)
}

func TestSQLiteRepository(t *testing.T) {
	repo, err := NewSQLiteRepository(context.Background(), ":memory:", "../../migrations/sqlite")
	require.NoError(t, err)
	defer repo.Close(context.Background())
	exerciseRepository(t, repo)
}

func TestNewSQLiteRepository_MissingMigrations(t *testing.T) {
	_, err := NewSQLiteRepository(context.Background(), ":memory:", t.TempDir()+"/missing")
	assert.Error(t, err)
}
