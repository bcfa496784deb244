package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/messages"
)

// Projection is a client's local copy of the game. Every event can be
// applied more than once and stale events are ignored, so a snapshot
// followed by replayed broadcasts converges on the server state.
type Projection struct {
	lock sync.RWMutex

	gameID        string
	status        types.GameStatus
	currentRound  int
	timeRemaining int
	totalRounds   int

	production []types.ProductionFact
	demand     []types.DemandFact

	rates        map[types.TariffKey]types.TariffRecord
	history      map[uint64]types.TariffHistoryEntry
	lastSequence uint64

	chat    []types.ChatMessage
	chatIDs map[string]bool

	users map[string]messages.UserStatus
}

// View is an immutable copy of a projection.
type View struct {
	GameID        string
	Status        types.GameStatus
	CurrentRound  int
	TimeRemaining int
	TotalRounds   int
	Production    []types.ProductionFact
	Demand        []types.DemandFact
	TariffRates   []types.TariffRecord
	TariffHistory []types.TariffHistoryEntry
	Messages      []types.ChatMessage
	Users         []messages.UserStatus
	LastSequence  uint64
}

func NewProjection() *Projection {
	p := &Projection{}
	p.resetGame("")
	p.users = make(map[string]messages.UserStatus)
	return p
}

func (p *Projection) resetGame(gameID string) {
	p.gameID = gameID
	p.status = ""
	p.currentRound = 0
	p.timeRemaining = 0
	p.totalRounds = 0
	p.production = nil
	p.demand = nil
	p.rates = make(map[types.TariffKey]types.TariffRecord)
	p.history = make(map[uint64]types.TariffHistoryEntry)
	p.lastSequence = 0
	p.chat = nil
	p.chatIDs = make(map[string]bool)
}

// Apply decodes a server message and applies it. Messages that do not
// change the game state are ignored.
func (p *Projection) Apply(msg *messages.Message) error {
	switch msg.Type {
	case messages.MessageTypeServerSnapshot:
		s := &messages.Snapshot{}
		if err := messages.DecodePayload(msg, s); err != nil {
			return fmt.Errorf("failed to decode snapshot: %v", err)
		}
		p.ApplySnapshot(s)
	case messages.MessageTypeServerGameStateChanged:
		g := &messages.GameStateChanged{}
		if err := messages.DecodePayload(msg, g); err != nil {
			return fmt.Errorf("failed to decode game state: %v", err)
		}
		p.ApplyGameState(g)
	case messages.MessageTypeServerRoundTimer:
		t := &messages.RoundTimerUpdated{}
		if err := messages.DecodePayload(msg, t); err != nil {
			return fmt.Errorf("failed to decode round timer: %v", err)
		}
		p.ApplyTimer(t)
	case messages.MessageTypeServerTariffUpdated:
		r := types.TariffRecord{}
		if err := messages.DecodePayload(msg, &r); err != nil {
			return fmt.Errorf("failed to decode tariff record: %v", err)
		}
		p.ApplyTariff(r)
	case messages.MessageTypeServerNewMessage:
		m := types.ChatMessage{}
		if err := messages.DecodePayload(msg, &m); err != nil {
			return fmt.Errorf("failed to decode chat message: %v", err)
		}
		p.ApplyChat(m)
	case messages.MessageTypeServerGameDataUpdated:
		d := &messages.GameDataUpdated{}
		if err := messages.DecodePayload(msg, d); err != nil {
			return fmt.Errorf("failed to decode game data: %v", err)
		}
		p.ApplyGameData(d)
	case messages.MessageTypeServerUserStatusUpdate:
		u := messages.UserStatus{}
		if err := messages.DecodePayload(msg, &u); err != nil {
			return fmt.Errorf("failed to decode user status: %v", err)
		}
		p.ApplyUserStatus(u)
	case messages.MessageTypeServerOnlineUsers:
		o := &messages.OnlineUsers{}
		if err := messages.DecodePayload(msg, o); err != nil {
			return fmt.Errorf("failed to decode online users: %v", err)
		}
		p.ApplyOnlineUsers(o)
	case messages.MessageTypeCountryAssigned:
		c := &messages.CountryAssigned{}
		if err := messages.DecodePayload(msg, c); err != nil {
			return fmt.Errorf("failed to decode country assignment: %v", err)
		}
		p.ApplyCountryAssigned(c)
	}
	return nil
}

// ApplySnapshot replaces the projection.
func (p *Projection) ApplySnapshot(s *messages.Snapshot) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.resetGame(s.GameID)
	p.status = s.Status
	p.currentRound = s.CurrentRound
	p.timeRemaining = s.TimeRemaining
	p.totalRounds = s.TotalRounds
	p.production = append([]types.ProductionFact(nil), s.Production...)
	p.demand = append([]types.DemandFact(nil), s.Demand...)
	for _, r := range s.TariffRates {
		p.applyTariff(r)
	}
	for _, h := range s.TariffHistory {
		p.history[h.Sequence] = h
	}
	if s.LastSequence > p.lastSequence {
		p.lastSequence = s.LastSequence
	}
	for _, m := range s.Messages {
		p.applyChat(m)
	}
	p.users = make(map[string]messages.UserStatus, len(s.OnlineUsers))
	for _, u := range s.OnlineUsers {
		p.users[u.UserID] = u
	}
}

// ApplyGameState applies a lifecycle change unless it is older than what
// the projection already holds. A different game ID starts a new game.
func (p *Projection) ApplyGameState(g *messages.GameStateChanged) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if g.GameID != p.gameID {
		users := p.users
		p.resetGame(g.GameID)
		p.users = users
	} else if isStale(p.status, p.currentRound, g.Status, g.CurrentRound) {
		return
	} else if g.Status == p.status && g.CurrentRound == p.currentRound {
		// the timer only resets on a round change, so a repeat of the
		// current state never winds it back up
		p.timeRemaining = min(p.timeRemaining, g.TimeRemaining)
		p.totalRounds = g.TotalRounds
		return
	}
	p.status = g.Status
	p.currentRound = g.CurrentRound
	p.timeRemaining = g.TimeRemaining
	p.totalRounds = g.TotalRounds
}

func isStale(status types.GameStatus, round int, nextStatus types.GameStatus, nextRound int) bool {
	if nextStatus.Rank() != status.Rank() {
		return nextStatus.Rank() < status.Rank()
	}
	return nextRound < round
}

// ApplyTimer applies a timer update for the current round. The timer only
// counts down within a round.
func (p *Projection) ApplyTimer(t *messages.RoundTimerUpdated) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if t.GameID != p.gameID || t.CurrentRound != p.currentRound {
		return
	}
	if t.TimeRemaining < p.timeRemaining {
		p.timeRemaining = t.TimeRemaining
	}
}

func (p *Projection) ApplyTariff(r types.TariffRecord) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.applyTariff(r)
}

func (p *Projection) applyTariff(r types.TariffRecord) {
	if existing, ok := p.rates[r.TariffKey]; !ok || existing.Sequence < r.Sequence {
		p.rates[r.TariffKey] = r
	}
	if _, ok := p.history[r.Sequence]; !ok {
		p.history[r.Sequence] = r.HistoryEntry()
	}
	if r.Sequence > p.lastSequence {
		p.lastSequence = r.Sequence
	}
}

func (p *Projection) ApplyChat(m types.ChatMessage) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.applyChat(m)
}

func (p *Projection) applyChat(m types.ChatMessage) {
	if p.chatIDs[m.ID] {
		return
	}
	p.chatIDs[m.ID] = true
	p.chat = append(p.chat, m)
}

// ApplyGameData replaces the baseline of the current game.
func (p *Projection) ApplyGameData(d *messages.GameDataUpdated) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if d.GameID != p.gameID {
		return
	}
	p.production = append([]types.ProductionFact(nil), d.Production...)
	p.demand = append([]types.DemandFact(nil), d.Demand...)
	for _, r := range d.TariffRates {
		p.applyTariff(r)
	}
}

func (p *Projection) ApplyUserStatus(u messages.UserStatus) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !u.IsOnline {
		delete(p.users, u.UserID)
		return
	}
	p.users[u.UserID] = u
}

func (p *Projection) ApplyOnlineUsers(o *messages.OnlineUsers) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.users = make(map[string]messages.UserStatus, len(o.Users))
	for _, u := range o.Users {
		p.users[u.UserID] = u
	}
}

func (p *Projection) ApplyCountryAssigned(c *messages.CountryAssigned) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if u, ok := p.users[c.UserID]; ok {
		u.Country = c.Country
		p.users[c.UserID] = u
	}
}

// View returns a copy of the projection with deterministic ordering.
func (p *Projection) View() View {
	p.lock.RLock()
	defer p.lock.RUnlock()

	v := View{
		GameID:        p.gameID,
		Status:        p.status,
		CurrentRound:  p.currentRound,
		TimeRemaining: p.timeRemaining,
		TotalRounds:   p.totalRounds,
		Production:    append([]types.ProductionFact(nil), p.production...),
		Demand:        append([]types.DemandFact(nil), p.demand...),
		Messages:      append([]types.ChatMessage(nil), p.chat...),
		LastSequence:  p.lastSequence,
	}
	for _, r := range p.rates {
		v.TariffRates = append(v.TariffRates, r)
	}
	sort.Slice(v.TariffRates, func(i, j int) bool { return v.TariffRates[i].Sequence < v.TariffRates[j].Sequence })
	for _, h := range p.history {
		v.TariffHistory = append(v.TariffHistory, h)
	}
	sort.Slice(v.TariffHistory, func(i, j int) bool { return v.TariffHistory[i].Sequence < v.TariffHistory[j].Sequence })
	for _, u := range p.users {
		v.Users = append(v.Users, u)
	}
	sort.Slice(v.Users, func(i, j int) bool { return v.Users[i].UserID < v.Users[j].UserID })
	return v
}

// Rate returns the current rate for a key and whether one was set.
func (p *Projection) Rate(key types.TariffKey) (float64, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	r, ok := p.rates[key]
	return r.Rate, ok
}
