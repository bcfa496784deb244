package game

import (
	"github.com/cbodonnell/econempire/pkg/game/constants"
	"github.com/cbodonnell/econempire/pkg/game/types"
)

func invalidTransition(action string, g types.Game) *ErrInvalidTransition {
	return &ErrInvalidTransition{
		Action:       action,
		Status:       g.Status,
		CurrentRound: g.CurrentRound,
		TotalRounds:  g.TotalRounds,
	}
}

// NewGame returns a waiting game with the given number of rounds.
func NewGame(id string, totalRounds int, createdAt int64) (types.Game, error) {
	if totalRounds == 0 {
		totalRounds = constants.DefaultTotalRounds
	}
	if totalRounds < 1 || totalRounds > constants.MaxTotalRounds {
		return types.Game{}, &ErrInvalidCommand{Reason: "total rounds must be between 1 and 50"}
	}
	return types.Game{
		ID:            id,
		TotalRounds:   totalRounds,
		Status:        types.GameStatusWaiting,
		TimeRemaining: constants.RoundDurationSeconds,
		CreatedAt:     createdAt,
	}, nil
}

// Start moves a waiting game to round 1.
func Start(g types.Game) (types.Game, error) {
	if g.Status != types.GameStatusWaiting {
		return g, invalidTransition("start", g)
	}
	g.Status = types.GameStatusActive
	g.CurrentRound = 1
	g.TimeRemaining = constants.RoundDurationSeconds
	return g, nil
}

// AdvanceRound moves an active game to the next round. A positive fromRound
// must match the current round, so a repeated advance is rejected instead of
// skipping a round.
func AdvanceRound(g types.Game, fromRound int) (types.Game, error) {
	if g.Status != types.GameStatusActive {
		return g, invalidTransition("advance", g)
	}
	if fromRound > 0 && fromRound != g.CurrentRound {
		return g, invalidTransition("advance", g)
	}
	if g.CurrentRound >= g.TotalRounds {
		return g, &ErrRoundLimitExceeded{TotalRounds: g.TotalRounds}
	}
	g.CurrentRound++
	g.TimeRemaining = constants.RoundDurationSeconds
	return g, nil
}

// End moves a game to its terminal state. Ending an ended game is a no-op.
func End(g types.Game) (types.Game, error) {
	g.Status = types.GameStatusEnded
	return g, nil
}

// Tick decrements the round timer of an active game, stopping at zero.
func Tick(g types.Game, seconds int) types.Game {
	if g.Status != types.GameStatusActive {
		return g
	}
	g.TimeRemaining -= seconds
	if g.TimeRemaining < 0 {
		g.TimeRemaining = 0
	}
	return g
}
