package game

import (
	"testing"

	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func activeGame(t *testing.T) *types.Game {
	g, err := NewGame("g1", 5, 0)
	require.NoError(t, err)
	g, err = Start(g)
	require.NoError(t, err)
	return &g
}

func usaPlayer() *types.Player {
	return &types.Player{ID: "p1", Role: types.RolePlayer, Country: types.CountryUSA}
}

func steelToChina(rate float64) []types.TariffChange {
	return []types.TariffChange{{Product: types.ProductSteel, ToCountry: types.CountryChina, Rate: rate}}
}

func TestLedger_LastWriteWins(t *testing.T) {
	l := NewLedger()
	g := activeGame(t)

	first, err := l.Stage(g, usaPlayer(), 1, types.CountryUSA, steelToChina(7), 1)
	require.NoError(t, err)
	l.Commit(first)

	second, err := l.Stage(g, usaPlayer(), 1, types.CountryUSA, steelToChina(5), 2)
	require.NoError(t, err)
	l.Commit(second)

	key := types.TariffKey{Round: 1, Product: types.ProductSteel, FromCountry: types.CountryUSA, ToCountry: types.CountryChina}
	rate, ok := l.Rate(key)
	require.True(t, ok)
	assert.Equal(t, 5.0, rate.Rate)
	assert.Equal(t, uint64(2), rate.Sequence)
	assert.Len(t, l.Current(), 1)

	history := l.History()
	require.Len(t, history, 2)
	assert.Equal(t, 7.0, history[0].Rate)
	assert.Equal(t, 5.0, history[1].Rate)
}

func TestLedger_StaleRecordDoesNotOverwrite(t *testing.T) {
	l := NewLedger()
	g := activeGame(t)

	first, err := l.Stage(g, usaPlayer(), 1, types.CountryUSA, steelToChina(7), 1)
	require.NoError(t, err)
	second, err := l.Stage(g, usaPlayer(), 1, types.CountryUSA, steelToChina(5), 2)
	require.NoError(t, err)
	// both were staged against the same sequence
	assert.Equal(t, first[0].Sequence, second[0].Sequence)

	second[0].Sequence = 2
	l.Commit(second)
	l.Commit(first)

	key := second[0].TariffKey
	rate, _ := l.Rate(key)
	assert.Equal(t, 5.0, rate.Rate)
	assert.Len(t, l.History(), 1)
}

func TestLedger_Stage(t *testing.T) {
	ended := activeGame(t)
	ended.Status = types.GameStatusEnded

	tests := []struct {
		name    string
		game    *types.Game
		player  *types.Player
		round   int
		from    types.Country
		changes []types.TariffChange
		check   func(error) bool
	}{
		{
			name:    "other country",
			game:    activeGame(t),
			player:  usaPlayer(),
			round:   1,
			from:    types.CountryChina,
			changes: []types.TariffChange{{Product: types.ProductSteel, ToCountry: types.CountryUSA, Rate: 1}},
			check:   IsAuthorization,
		},
		{
			name:    "operator",
			game:    activeGame(t),
			player:  &types.Player{ID: "op", Role: types.RoleOperator},
			round:   1,
			from:    types.CountryUSA,
			changes: steelToChina(1),
			check:   IsAuthorization,
		},
		{
			name:    "no game",
			player:  usaPlayer(),
			round:   1,
			from:    types.CountryUSA,
			changes: steelToChina(1),
			check:   IsNoGame,
		},
		{
			name:    "ended game",
			game:    ended,
			player:  usaPlayer(),
			round:   1,
			from:    types.CountryUSA,
			changes: steelToChina(1),
			check:   IsInvalidTransition,
		},
		{
			name:    "past round",
			game:    activeGame(t),
			player:  usaPlayer(),
			round:   2,
			from:    types.CountryUSA,
			changes: steelToChina(1),
			check:   IsInvalidTransition,
		},
		{
			name:   "empty",
			game:   activeGame(t),
			player: usaPlayer(),
			round:  1,
			from:   types.CountryUSA,
			check:  IsInvalidCommand,
		},
		{
			name:    "own country",
			game:    activeGame(t),
			player:  usaPlayer(),
			round:   1,
			from:    types.CountryUSA,
			changes: []types.TariffChange{{Product: types.ProductSteel, ToCountry: types.CountryUSA, Rate: 1}},
			check:   IsInvalidCommand,
		},
		{
			name:    "unknown product",
			game:    activeGame(t),
			player:  usaPlayer(),
			round:   1,
			from:    types.CountryUSA,
			changes: []types.TariffChange{{Product: "Wool", ToCountry: types.CountryChina, Rate: 1}},
			check:   IsInvalidCommand,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger()
			records, err := l.Stage(tt.game, tt.player, tt.round, tt.from, tt.changes, 0)
			assert.Nil(t, records)
			assert.True(t, tt.check(err), "unexpected error %v", err)
			assert.Equal(t, uint64(0), l.LastSequence())
		})
	}
}

func TestLedger_Restore(t *testing.T) {
	l := NewLedger()
	g := activeGame(t)
	var all []types.TariffRecord
	for _, rate := range []float64{1, 2, 3} {
		records, err := l.Stage(g, usaPlayer(), 1, types.CountryUSA, steelToChina(rate), 0)
		require.NoError(t, err)
		l.Commit(records)
		all = append(all, records...)
	}

	// reverse the order the repository returns them in
	reversed := []types.TariffRecord{all[2], all[1], all[0]}
	restored := NewLedger()
	restored.Restore(reversed)

	assert.Equal(t, l.Current(), restored.Current())
	assert.Equal(t, l.History(), restored.History())
	assert.Equal(t, uint64(3), restored.LastSequence())
}

func TestLedger_SequencesIncrease(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := NewLedger()
		g := activeGame(t)
		products := rapid.SliceOfN(rapid.SampledFrom(types.Products), 1, 20).Draw(rt, "products")

		for _, product := range products {
			changes := []types.TariffChange{{Product: product, ToCountry: types.CountryGermany, Rate: 1}}
			records, err := l.Stage(g, usaPlayer(), 1, types.CountryUSA, changes, 0)
			if err != nil {
				rt.Fatalf("stage: %v", err)
			}
			l.Commit(records)
		}

		history := l.History()
		if len(history) != len(products) {
			rt.Fatalf("history has %d entries, want %d", len(history), len(products))
		}
		for i := 1; i < len(history); i++ {
			if history[i].Sequence != history[i-1].Sequence+1 {
				rt.Fatalf("sequence gap at %d", i)
			}
		}
		for _, r := range l.Current() {
			for _, h := range history {
				if h.Product == r.Product && h.Sequence > r.Sequence {
					rt.Fatalf("current rate for %s is not the latest write", r.Product)
				}
			}
		}
	})
}
