package game

import (
	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/messages"
)

// demandVisibleTo filters demand down to what the viewer may see. Operators
// see every country, players only their own, and players without a country
// see nothing.
func demandVisibleTo(demand []types.DemandFact, viewer *types.Player) []types.DemandFact {
	visible := []types.DemandFact{}
	for _, d := range demand {
		if viewer.Role == types.RoleOperator || (viewer.Country != "" && d.Country == viewer.Country) {
			visible = append(visible, d)
		}
	}
	return visible
}

func messagesVisibleTo(chat []types.ChatMessage, viewer *types.Player) []types.ChatMessage {
	visible := []types.ChatMessage{}
	for i := range chat {
		if chat[i].VisibleTo(viewer) {
			visible = append(visible, chat[i])
		}
	}
	return visible
}

func (s *Session) onlineUsers() *messages.OnlineUsers {
	users := []messages.UserStatus{}
	for _, p := range s.registry.OnlinePlayers() {
		users = append(users, messages.UserStatusFromPlayer(p))
	}
	return &messages.OnlineUsers{Users: users}
}

// snapshotFor builds the full state a viewer needs to rebuild its projection.
func (s *Session) snapshotFor(viewer *types.Player) *messages.Snapshot {
	snapshot := &messages.Snapshot{
		Production:    []types.ProductionFact{},
		Demand:        []types.DemandFact{},
		TariffRates:   s.ledger.Current(),
		TariffHistory: s.ledger.History(),
		Messages:      messagesVisibleTo(s.chat, viewer),
		OnlineUsers:   s.onlineUsers().Users,
		LastSequence:  s.ledger.LastSequence(),
	}
	if s.game == nil {
		return snapshot
	}

	snapshot.GameID = s.game.ID
	snapshot.Status = s.game.Status
	snapshot.CurrentRound = s.game.CurrentRound
	snapshot.TimeRemaining = s.game.TimeRemaining
	snapshot.TotalRounds = s.game.TotalRounds
	snapshot.Production = append(snapshot.Production, s.production...)
	snapshot.Demand = demandVisibleTo(s.demand, viewer)
	return snapshot
}

func (s *Session) gameDataFor(viewer *types.Player) *messages.GameDataUpdated {
	data := &messages.GameDataUpdated{
		Production:  append([]types.ProductionFact{}, s.production...),
		Demand:      demandVisibleTo(s.demand, viewer),
		TariffRates: s.ledger.Current(),
	}
	if s.game != nil {
		data.GameID = s.game.ID
	}
	return data
}
