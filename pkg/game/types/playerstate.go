package types

// Role is the part a connected user plays in the game.
type Role string

const (
	RoleOperator Role = "operator"
	RolePlayer   Role = "player"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOperator || r == RolePlayer
}

type Player struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Role    Role    `json:"role"`
	Country Country `json:"country,omitempty"`
	Online  bool    `json:"isOnline"`
	// OfflineSince is the unix millisecond timestamp of the last disconnect
	OfflineSince int64 `json:"-"`
}

// Copy returns a copy of the player.
func (p *Player) Copy() *Player {
	c := *p
	return &c
}

// Identity is what the identity provider vouches for on login.
type Identity struct {
	PlayerID string
	Name     string
	Role     Role
	// Country is an optional pre-assigned country claim
	Country Country
}
