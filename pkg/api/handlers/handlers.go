package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cbodonnell/econempire/pkg/api/middleware"
	"github.com/cbodonnell/econempire/pkg/game"
	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/cbodonnell/econempire/pkg/messages"
	"github.com/cbodonnell/econempire/pkg/repositories"
	"github.com/gorilla/mux"
)

// GameService is the part of the game session the HTTP API drives.
type GameService interface {
	CreateGame(ctx context.Context, identity types.Identity, totalRounds int) (*types.Game, error)
	UpdateGameState(ctx context.Context, identity types.Identity, action messages.GameAction, fromRound int) (*types.Game, error)
	CurrentGame(ctx context.Context, identity types.Identity) (*messages.Snapshot, error)
	GameData(ctx context.Context, identity types.Identity, gameID string) (*types.GameData, error)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type LoginResponse struct {
	User messages.UserStatus `json:"user"`
}

type CreateGameRequest struct {
	TotalRounds int `json:"totalRounds"`
}

type GameActionRequest struct {
	FromRound int `json:"fromRound"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}

// writeError maps a game error onto an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	code := game.ErrorCode(err)
	status := http.StatusInternalServerError
	switch {
	case repositories.IsNotFound(err):
		code = "not_found"
		status = http.StatusNotFound
	case code == game.CodeAuthorization:
		status = http.StatusForbidden
	case code == game.CodeInvalidTransition, code == game.CodeRoundLimitExceeded:
		status = http.StatusConflict
	case code == game.CodeInvalidCommand:
		status = http.StatusBadRequest
	case code == game.CodeNoGame:
		status = http.StatusNotFound
	case code == game.CodePersistence:
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		log.Error("request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func identityOrFail(w http.ResponseWriter, r *http.Request) (types.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		log.Error("failed to get identity from context")
		http.Error(w, "Failed to get identity from context", http.StatusInternalServerError)
	}
	return identity, ok
}

// decodeBody decodes an optional JSON body into v.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return &game.ErrInvalidCommand{Reason: "malformed request body"}
}

func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// HandleLogin returns the profile of the verified caller.
func HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityOrFail(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{
			User: messages.UserStatus{
				UserID:  identity.PlayerID,
				Name:    identity.Name,
				Role:    identity.Role,
				Country: identity.Country,
			},
		})
	}
}

func HandleCreateGame(service GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityOrFail(w, r)
		if !ok {
			return
		}
		req := CreateGameRequest{}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}

		g, err := service.CreateGame(r.Context(), identity, req.TotalRounds)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, messages.GameStateChangedFromGame(g))
	}
}

func HandleCurrentGame(service GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityOrFail(w, r)
		if !ok {
			return
		}
		snapshot, err := service.CurrentGame(r.Context(), identity)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

func HandleGetGame(service GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityOrFail(w, r)
		if !ok {
			return
		}
		data, err := service.GameData(r.Context(), identity, mux.Vars(r)["gameID"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

// HandleGameAction starts, advances or ends the current game. The action is
// taken from the route.
func HandleGameAction(service GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityOrFail(w, r)
		if !ok {
			return
		}
		req := GameActionRequest{}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}

		action := messages.GameAction(mux.Vars(r)["action"])
		g, err := service.UpdateGameState(r.Context(), identity, action, req.FromRound)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messages.GameStateChangedFromGame(g))
	}
}
