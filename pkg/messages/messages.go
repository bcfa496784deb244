package messages

import (
	"encoding/json"

	"github.com/cbodonnell/econempire/pkg/game/types"
)

const (
	// MessageBufferSize represents the maximum size of a message read from a client
	MessageBufferSize = 64 * 1024
)

type MessageType string

// Client to server message types
const (
	MessageTypeClientLogin           MessageType = "login"
	MessageTypeClientGameStateUpdate MessageType = "gameStateUpdate"
	MessageTypeClientTariffUpdate    MessageType = "tariffUpdate"
	MessageTypeClientSendMessage     MessageType = "sendMessage"
)

// Server to client message types
const (
	MessageTypeServerLoginSuccess     MessageType = "loginSuccess"
	MessageTypeServerLoginFailure     MessageType = "loginFailure"
	MessageTypeServerAck              MessageType = "ack"
	MessageTypeServerSnapshot         MessageType = "snapshot"
	MessageTypeServerOnlineUsers      MessageType = "onlineUsers"
	MessageTypeServerUserStatusUpdate MessageType = "userStatusUpdate"
	MessageTypeServerGameStateChanged MessageType = "gameStateChanged"
	MessageTypeServerRoundTimer       MessageType = "roundTimerUpdated"
	MessageTypeServerTariffUpdated    MessageType = "tariffUpdated"
	MessageTypeServerNewMessage       MessageType = "newMessage"
	MessageTypeServerGameDataUpdated  MessageType = "gameDataUpdated"
)

// Message types used in both directions. From a client both are a request
// to be assigned a country; from the server requestCountryAssignment tells
// a player none was free and countryAssigned announces a decision.
const (
	MessageTypeRequestCountryAssignment MessageType = "requestCountryAssignment"
	MessageTypeCountryAssigned          MessageType = "countryAssigned"
)

// Message represents a generic message for serialization/deserialization
type Message struct {
	// ClientID is set by the server on messages read from a connection and is never trusted from the wire
	ClientID  uint32          `json:"-"`
	Type      MessageType     `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type ClientLogin struct {
	Token string `json:"token"`
}

type ServerLoginSuccess struct {
	ClientID uint32        `json:"clientId"`
	PlayerID string        `json:"playerId"`
	Name     string        `json:"name"`
	Role     types.Role    `json:"role"`
	Country  types.Country `json:"country,omitempty"`
}

type ServerLoginFailure struct {
	Reason string `json:"reason"`
}

// GameAction is the lifecycle action requested by a gameStateUpdate command.
type GameAction string

const (
	GameActionCreate  GameAction = "create"
	GameActionStart   GameAction = "start"
	GameActionAdvance GameAction = "advance"
	GameActionEnd     GameAction = "end"
)

type ClientGameStateUpdate struct {
	Action GameAction `json:"action"`
	// FromRound is the round the sender believes is current; used to drop duplicate advances
	FromRound int `json:"fromRound,omitempty"`
	// TotalRounds is only read by the create action
	TotalRounds int `json:"totalRounds,omitempty"`
}

type ClientTariffUpdate struct {
	Round       int                  `json:"roundNumber"`
	FromCountry types.Country        `json:"fromCountry"`
	Changes     []types.TariffChange `json:"changes"`
}

type ClientSendMessage struct {
	Content          string                `json:"content"`
	MessageType      types.ChatMessageType `json:"messageType"`
	RecipientCountry types.Country         `json:"recipientCountry,omitempty"`
}

type ClientCountryAssignment struct {
	UserID  string        `json:"userId,omitempty"`
	Country types.Country `json:"country,omitempty"`
}

type ErrorPayload struct {
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	Status       types.GameStatus `json:"status,omitempty"`
	CurrentRound int              `json:"currentRound,omitempty"`
	TotalRounds  int              `json:"totalRounds,omitempty"`
}

type ServerAck struct {
	OK      bool                 `json:"ok"`
	Error   *ErrorPayload        `json:"error,omitempty"`
	Game    *GameStateChanged    `json:"game,omitempty"`
	Records []types.TariffRecord `json:"records,omitempty"`
	Country types.Country        `json:"country,omitempty"`
}

type UserStatus struct {
	UserID   string        `json:"userId"`
	Name     string        `json:"name"`
	Role     types.Role    `json:"role"`
	Country  types.Country `json:"country,omitempty"`
	IsOnline bool          `json:"isOnline"`
}

type OnlineUsers struct {
	Users []UserStatus `json:"users"`
}

type CountryAssigned struct {
	UserID  string        `json:"userId"`
	Country types.Country `json:"country"`
}

type RequestCountryAssignment struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

type GameStateChanged struct {
	GameID        string           `json:"gameId"`
	Status        types.GameStatus `json:"status"`
	CurrentRound  int              `json:"currentRound"`
	TimeRemaining int              `json:"timeRemaining"`
	TotalRounds   int              `json:"totalRounds"`
	IsEnded       bool             `json:"isEnded"`
}

type RoundTimerUpdated struct {
	GameID        string `json:"gameId"`
	CurrentRound  int    `json:"currentRound"`
	TimeRemaining int    `json:"timeRemaining"`
}

type GameDataUpdated struct {
	GameID      string                 `json:"gameId"`
	Production  []types.ProductionFact `json:"production"`
	Demand      []types.DemandFact     `json:"demand"`
	TariffRates []types.TariffRecord   `json:"tariffRates"`
}

// Snapshot is the full state a client replaces its projection with on (re)connect.
type Snapshot struct {
	GameID        string                     `json:"gameId"`
	Status        types.GameStatus           `json:"status"`
	CurrentRound  int                        `json:"currentRound"`
	TimeRemaining int                        `json:"timeRemaining"`
	TotalRounds   int                        `json:"totalRounds"`
	Production    []types.ProductionFact     `json:"production"`
	Demand        []types.DemandFact         `json:"demand"`
	TariffRates   []types.TariffRecord       `json:"tariffRates"`
	TariffHistory []types.TariffHistoryEntry `json:"tariffHistory"`
	Messages      []types.ChatMessage        `json:"messages"`
	OnlineUsers   []UserStatus               `json:"onlineUsers"`
	LastSequence  uint64                     `json:"lastSequence"`
}

// UserStatusFromPlayer converts a registry player into its wire form.
func UserStatusFromPlayer(p *types.Player) UserStatus {
	return UserStatus{
		UserID:   p.ID,
		Name:     p.Name,
		Role:     p.Role,
		Country:  p.Country,
		IsOnline: p.Online,
	}
}

// GameStateChangedFromGame converts a game into its wire form.
func GameStateChangedFromGame(g *types.Game) *GameStateChanged {
	return &GameStateChanged{
		GameID:        g.ID,
		Status:        g.Status,
		CurrentRound:  g.CurrentRound,
		TimeRemaining: g.TimeRemaining,
		TotalRounds:   g.TotalRounds,
		IsEnded:       g.IsEnded(),
	}
}
