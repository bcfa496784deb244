package game

import (
	"context"
	"fmt"

	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/messages"
	"github.com/cbodonnell/econempire/pkg/repositories"
)

// viewer returns the registry view of the identity, falling back to the
// identity itself for callers that never opened a connection.
func (s *Session) viewer(identity types.Identity) *types.Player {
	if p, ok := s.registry.Player(identity.PlayerID); ok {
		return p
	}
	p := &types.Player{
		ID:   identity.PlayerID,
		Name: identity.Name,
		Role: identity.Role,
	}
	if p.Role == types.RolePlayer {
		p.Country = identity.Country
	}
	return p
}

// CreateGame creates a new game on behalf of an operator.
func (s *Session) CreateGame(ctx context.Context, identity types.Identity, totalRounds int) (*types.Game, error) {
	v, err := s.do(ctx, func(ctx context.Context) (interface{}, error) {
		return s.createGame(ctx, identity, totalRounds)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Game), nil
}

// UpdateGameState starts, advances or ends the current game on behalf of an operator.
func (s *Session) UpdateGameState(ctx context.Context, identity types.Identity, action messages.GameAction, fromRound int) (*types.Game, error) {
	if action == messages.GameActionCreate {
		return nil, &ErrInvalidCommand{Reason: "use CreateGame to create a game"}
	}
	v, err := s.do(ctx, func(ctx context.Context) (interface{}, error) {
		return s.transition(ctx, identity, action, fromRound)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Game), nil
}

// CurrentGame returns the snapshot of the current game as the identity sees it.
func (s *Session) CurrentGame(ctx context.Context, identity types.Identity) (*messages.Snapshot, error) {
	v, err := s.do(ctx, func(ctx context.Context) (interface{}, error) {
		if s.game == nil {
			return nil, &ErrNoGame{}
		}
		return s.snapshotFor(s.viewer(identity)), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*messages.Snapshot), nil
}

// GameData reads a game's persisted record. Demand is limited to the
// caller's country unless the caller is an operator.
func (s *Session) GameData(ctx context.Context, identity types.Identity, gameID string) (*types.GameData, error) {
	v, err := s.do(ctx, func(ctx context.Context) (interface{}, error) {
		return s.viewer(identity), nil
	})
	if err != nil {
		return nil, err
	}
	viewer := v.(*types.Player)

	scope := repositories.QueryScope{}
	if viewer.Role != types.RoleOperator {
		scope.Country = viewer.Country
	}
	data, err := s.repository.QueryGameData(ctx, gameID, scope)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, err
		}
		return nil, &ErrTransientPersistence{Op: fmt.Sprintf("query game %s", gameID), Err: err}
	}
	if viewer.Role != types.RoleOperator && viewer.Country == "" {
		data.Demand = []types.DemandFact{}
	}
	return data, nil
}
