package types

// GameStatus is the lifecycle status of a game.
type GameStatus string

const (
	GameStatusWaiting GameStatus = "waiting"
	GameStatusActive  GameStatus = "active"
	GameStatusEnded   GameStatus = "ended"
)

// Rank orders statuses along the only allowed path waiting -> active -> ended.
func (s GameStatus) Rank() int {
	switch s {
	case GameStatusWaiting:
		return 1
	case GameStatusActive:
		return 2
	case GameStatusEnded:
		return 3
	default:
		return 0
	}
}

type Game struct {
	// ID is the identifier assigned when the operator created the game
	ID string `json:"id"`
	// TotalRounds is the number of rounds the game will run for
	TotalRounds int `json:"totalRounds"`
	// CurrentRound is 0 until the game starts
	CurrentRound int `json:"currentRound"`
	// Status is one of waiting, active or ended
	Status GameStatus `json:"status"`
	// TimeRemaining is the number of seconds left in the current round
	TimeRemaining int `json:"timeRemaining"`
	// CreatedAt is the unix millisecond timestamp of creation
	CreatedAt int64 `json:"createdAt"`
}

// IsEnded reports whether the game reached its terminal state.
func (g *Game) IsEnded() bool {
	return g.Status == GameStatusEnded
}

// GameData is the full persisted record of a game.
type GameData struct {
	Game        *Game            `json:"game"`
	Production  []ProductionFact `json:"production"`
	Demand      []DemandFact     `json:"demand"`
	TariffRates []TariffRecord   `json:"tariffRates"`
}
