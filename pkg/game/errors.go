package game

import (
	"errors"
	"fmt"

	"github.com/cbodonnell/econempire/pkg/game/types"
)

// Error codes sent to clients in ack and HTTP error payloads.
const (
	CodeAuthorization      = "authorization"
	CodeInvalidTransition  = "invalid_transition"
	CodeRoundLimitExceeded = "round_limit_exceeded"
	CodePersistence        = "persistence"
	CodeInvalidCommand     = "invalid_command"
	CodeNoGame             = "no_game"
	CodeNotConnected       = "not_connected"
	CodeInternal           = "internal"
)

// coded is implemented by every error the session reports back to a client.
type coded interface {
	Code() string
}

// ErrorCode returns the wire code of err, or CodeInternal.
func ErrorCode(err error) string {
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

type ErrAuthorization struct {
	PlayerID string
	Reason   string
}

func (e *ErrAuthorization) Error() string {
	return fmt.Sprintf("player %s is not authorized: %s", e.PlayerID, e.Reason)
}

func (e *ErrAuthorization) Code() string { return CodeAuthorization }

func IsAuthorization(err error) bool {
	var e *ErrAuthorization
	return errors.As(err, &e)
}

// ErrInvalidTransition carries the current lifecycle state so the caller can resync.
type ErrInvalidTransition struct {
	Action       string
	Status       types.GameStatus
	CurrentRound int
	TotalRounds  int
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s game in status %s at round %d of %d", e.Action, e.Status, e.CurrentRound, e.TotalRounds)
}

func (e *ErrInvalidTransition) Code() string { return CodeInvalidTransition }

func IsInvalidTransition(err error) bool {
	var e *ErrInvalidTransition
	return errors.As(err, &e)
}

type ErrRoundLimitExceeded struct {
	TotalRounds int
}

func (e *ErrRoundLimitExceeded) Error() string {
	return fmt.Sprintf("round limit of %d reached, must end game instead", e.TotalRounds)
}

func (e *ErrRoundLimitExceeded) Code() string { return CodeRoundLimitExceeded }

func IsRoundLimitExceeded(err error) bool {
	var e *ErrRoundLimitExceeded
	return errors.As(err, &e)
}

// ErrTransientPersistence is returned when a write could not be persisted.
// No in-memory state has changed when it is returned.
type ErrTransientPersistence struct {
	Op  string
	Err error
}

func (e *ErrTransientPersistence) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Op, e.Err)
}

func (e *ErrTransientPersistence) Unwrap() error { return e.Err }

func (e *ErrTransientPersistence) Code() string { return CodePersistence }

func IsTransientPersistence(err error) bool {
	var e *ErrTransientPersistence
	return errors.As(err, &e)
}

type ErrInvalidCommand struct {
	Reason string
}

func (e *ErrInvalidCommand) Error() string {
	return fmt.Sprintf("invalid command: %s", e.Reason)
}

func (e *ErrInvalidCommand) Code() string { return CodeInvalidCommand }

func IsInvalidCommand(err error) bool {
	var e *ErrInvalidCommand
	return errors.As(err, &e)
}

type ErrNoGame struct{}

func (e *ErrNoGame) Error() string {
	return "no game has been created"
}

func (e *ErrNoGame) Code() string { return CodeNoGame }

func IsNoGame(err error) bool {
	var e *ErrNoGame
	return errors.As(err, &e)
}

type ErrNotConnected struct {
	ClientID uint32
}

func (e *ErrNotConnected) Error() string {
	return fmt.Sprintf("client %d is not connected to the session", e.ClientID)
}

func (e *ErrNotConnected) Code() string { return CodeNotConnected }
