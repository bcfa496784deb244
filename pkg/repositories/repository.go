package repositories

import (
	"context"

	"github.com/cbodonnell/econempire/pkg/game/types"
)

// QueryScope limits what QueryGameData returns. An empty Country returns the
// demand of every country; otherwise only that country's demand is returned.
type QueryScope struct {
	Country types.Country
}

type Repository interface {
	Close(ctx context.Context) error
	CreateGame(ctx context.Context, game *types.Game) error
	// UpdateGame writes the lifecycle fields of an existing game
	UpdateGame(ctx context.Context, game *types.Game) error
	InsertProduction(ctx context.Context, gameID string, facts []types.ProductionFact) error
	InsertDemand(ctx context.Context, gameID string, facts []types.DemandFact) error
	// InsertTariffRecords appends records. Re-inserting a sequence already stored is a no-op.
	InsertTariffRecords(ctx context.Context, gameID string, records []types.TariffRecord) error
	QueryGameData(ctx context.Context, gameID string, scope QueryScope) (*types.GameData, error)
	// LatestGame returns the most recently created game
	LatestGame(ctx context.Context) (*types.Game, error)
}
