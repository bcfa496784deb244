package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cbodonnell/econempire/pkg/game/types"
)

type memoryGame struct {
	game       types.Game
	production []types.ProductionFact
	demand     []types.DemandFact
	tariffs    map[uint64]types.TariffRecord
}

// MemoryRepository keeps games in process memory. It is used for tests and
// for running a server without a database.
type MemoryRepository struct {
	lock  sync.RWMutex
	games map[string]*memoryGame
	order []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		games: make(map[string]*memoryGame),
	}
}

func (r *MemoryRepository) Close(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) CreateGame(ctx context.Context, game *types.Game) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.games[game.ID]; ok {
		return nil
	}
	r.games[game.ID] = &memoryGame{
		game:    *game,
		tariffs: make(map[uint64]types.TariffRecord),
	}
	r.order = append(r.order, game.ID)
	return nil
}

func (r *MemoryRepository) UpdateGame(ctx context.Context, game *types.Game) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	g, ok := r.games[game.ID]
	if !ok {
		return &ErrNotFound{}
	}
	g.game.Status = game.Status
	g.game.CurrentRound = game.CurrentRound
	g.game.TimeRemaining = game.TimeRemaining
	return nil
}

func (r *MemoryRepository) InsertProduction(ctx context.Context, gameID string, facts []types.ProductionFact) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	g, ok := r.games[gameID]
	if !ok {
		return &ErrNotFound{}
	}
	g.production = append([]types.ProductionFact(nil), facts...)
	return nil
}

func (r *MemoryRepository) InsertDemand(ctx context.Context, gameID string, facts []types.DemandFact) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	g, ok := r.games[gameID]
	if !ok {
		return &ErrNotFound{}
	}
	g.demand = append([]types.DemandFact(nil), facts...)
	return nil
}

func (r *MemoryRepository) InsertTariffRecords(ctx context.Context, gameID string, records []types.TariffRecord) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	g, ok := r.games[gameID]
	if !ok {
		return &ErrNotFound{}
	}
	for _, rec := range records {
		if _, ok := g.tariffs[rec.Sequence]; ok {
			continue
		}
		g.tariffs[rec.Sequence] = rec
	}
	return nil
}

func (r *MemoryRepository) QueryGameData(ctx context.Context, gameID string, scope QueryScope) (*types.GameData, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	g, ok := r.games[gameID]
	if !ok {
		return nil, &ErrNotFound{}
	}

	game := g.game
	data := &types.GameData{
		Game:        &game,
		Production:  append([]types.ProductionFact{}, g.production...),
		Demand:      []types.DemandFact{},
		TariffRates: make([]types.TariffRecord, 0, len(g.tariffs)),
	}
	for _, d := range g.demand {
		if scope.Country == "" || d.Country == scope.Country {
			data.Demand = append(data.Demand, d)
		}
	}
	for _, rec := range g.tariffs {
		data.TariffRates = append(data.TariffRates, rec)
	}
	sort.Slice(data.TariffRates, func(i, j int) bool {
		return data.TariffRates[i].Sequence < data.TariffRates[j].Sequence
	})
	return data, nil
}

func (r *MemoryRepository) LatestGame(ctx context.Context) (*types.Game, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if len(r.order) == 0 {
		return nil, &ErrNotFound{}
	}
	g, ok := r.games[r.order[len(r.order)-1]]
	if !ok {
		return nil, fmt.Errorf("game index is inconsistent")
	}
	game := g.game
	return &game, nil
}
