package game

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/cbodonnell/econempire/pkg/game/types"
)

// Registry tracks players, their connections and the countries they hold.
// It is owned by the session loop and is not safe for concurrent use.
type Registry struct {
	players map[string]*types.Player
	// clients maps a connection to the player that logged in on it
	clients map[uint32]string
	// connections counts open connections per player
	connections map[string]int
	// preferred holds the country claim an identity arrived with
	preferred    map[string]types.Country
	rng          *rand.Rand
	releaseAfter time.Duration
}

// NewRegistry creates a registry that picks countries with rng. A positive
// releaseAfter frees the country of a player that stays offline that long.
func NewRegistry(rng *rand.Rand, releaseAfter time.Duration) *Registry {
	return &Registry{
		players:      make(map[string]*types.Player),
		clients:      make(map[uint32]string),
		connections:  make(map[string]int),
		preferred:    make(map[string]types.Country),
		rng:          rng,
		releaseAfter: releaseAfter,
	}
}

// Connect records a connection for the identity. It reports whether the
// player went from offline to online.
func (r *Registry) Connect(clientID uint32, identity types.Identity) (*types.Player, bool) {
	player, ok := r.players[identity.PlayerID]
	if !ok {
		player = &types.Player{
			ID: identity.PlayerID,
		}
		r.players[identity.PlayerID] = player
	}
	player.Name = identity.Name
	player.Role = identity.Role
	if player.Role == types.RoleOperator {
		player.Country = ""
	}
	if identity.Country.Valid() {
		r.preferred[identity.PlayerID] = identity.Country
	}

	if _, ok := r.clients[clientID]; ok {
		// client IDs are unique per connection, so this is a repeated event
		return player.Copy(), false
	}
	r.clients[clientID] = identity.PlayerID
	r.connections[identity.PlayerID]++

	cameOnline := !player.Online
	player.Online = true
	player.OfflineSince = 0
	return player.Copy(), cameOnline
}

// Disconnect removes a connection. It reports whether the player went offline.
func (r *Registry) Disconnect(clientID uint32, now time.Time) (*types.Player, bool) {
	playerID, ok := r.clients[clientID]
	if !ok {
		return nil, false
	}
	delete(r.clients, clientID)

	r.connections[playerID]--
	player := r.players[playerID]
	if r.connections[playerID] > 0 {
		return player.Copy(), false
	}
	delete(r.connections, playerID)
	player.Online = false
	player.OfflineSince = now.UnixMilli()
	return player.Copy(), true
}

// Assign returns the country held by the player, assigning a free one at
// random if it holds none. It returns false when the player is unknown, is an
// operator, or no country is free.
func (r *Registry) Assign(playerID string) (types.Country, bool) {
	player, ok := r.players[playerID]
	if !ok || player.Role != types.RolePlayer {
		return "", false
	}
	if player.Country != "" {
		return player.Country, true
	}

	free := r.FreeCountries()
	if len(free) == 0 {
		return "", false
	}

	country := free[r.rng.IntN(len(free))]
	if preferred, ok := r.preferred[playerID]; ok {
		for _, c := range free {
			if c == preferred {
				country = preferred
				break
			}
		}
	}
	player.Country = country
	return country, true
}

// FreeCountries returns the countries no player holds, in stable order.
func (r *Registry) FreeCountries() []types.Country {
	held := make(map[types.Country]bool, len(r.players))
	for _, p := range r.players {
		if p.Country != "" {
			held[p.Country] = true
		}
	}
	free := make([]types.Country, 0, len(types.Countries))
	for _, c := range types.Countries {
		if !held[c] {
			free = append(free, c)
		}
	}
	return free
}

// Sweep forgets players that have been offline longer than the release
// window and returns them. It does nothing when releases are disabled.
func (r *Registry) Sweep(now time.Time) []*types.Player {
	if r.releaseAfter <= 0 {
		return nil
	}
	cutoff := now.Add(-r.releaseAfter).UnixMilli()
	var released []*types.Player
	for id, p := range r.players {
		if p.Online || p.OfflineSince > cutoff {
			continue
		}
		released = append(released, p.Copy())
		delete(r.players, id)
		delete(r.preferred, id)
	}
	sort.Slice(released, func(i, j int) bool { return released[i].ID < released[j].ID })
	return released
}

// Unassigned returns the IDs of online players waiting for a country.
func (r *Registry) Unassigned() []string {
	var ids []string
	for id, p := range r.players {
		if p.Online && p.Role == types.RolePlayer && p.Country == "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Player(playerID string) (*types.Player, bool) {
	p, ok := r.players[playerID]
	if !ok {
		return nil, false
	}
	return p.Copy(), true
}

func (r *Registry) PlayerByClient(clientID uint32) (*types.Player, bool) {
	playerID, ok := r.clients[clientID]
	if !ok {
		return nil, false
	}
	return r.Player(playerID)
}

// PlayerIDsByCountry returns the players holding the country.
func (r *Registry) PlayerIDsByCountry(country types.Country) []string {
	var ids []string
	for id, p := range r.players {
		if p.Country == country {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Players returns a copy of every known player ordered by ID.
func (r *Registry) Players() []*types.Player {
	players := make([]*types.Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p.Copy())
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// OnlinePlayers returns a copy of every online player ordered by ID.
func (r *Registry) OnlinePlayers() []*types.Player {
	var players []*types.Player
	for _, p := range r.Players() {
		if p.Online {
			players = append(players, p)
		}
	}
	return players
}
