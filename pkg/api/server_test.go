package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cbodonnell/econempire/pkg/api/handlers"
	authproviders "github.com/cbodonnell/econempire/pkg/auth/providers"
	"github.com/cbodonnell/econempire/pkg/game"
	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/messages"
	"github.com/cbodonnell/econempire/pkg/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGameService struct {
	err        error
	identity   types.Identity
	action     messages.GameAction
	fromRound  int
	rounds     int
	gameID     string
	game       *types.Game
	snapshot   *messages.Snapshot
	gameData   *types.GameData
	callsCount int
}

func (f *fakeGameService) CreateGame(ctx context.Context, identity types.Identity, totalRounds int) (*types.Game, error) {
	f.callsCount++
	f.identity = identity
	f.rounds = totalRounds
	return f.game, f.err
}

func (f *fakeGameService) UpdateGameState(ctx context.Context, identity types.Identity, action messages.GameAction, fromRound int) (*types.Game, error) {
	f.callsCount++
	f.identity = identity
	f.action = action
	f.fromRound = fromRound
	return f.game, f.err
}

func (f *fakeGameService) CurrentGame(ctx context.Context, identity types.Identity) (*messages.Snapshot, error) {
	f.callsCount++
	f.identity = identity
	return f.snapshot, f.err
}

func (f *fakeGameService) GameData(ctx context.Context, identity types.Identity, gameID string) (*types.GameData, error) {
	f.callsCount++
	f.identity = identity
	f.gameID = gameID
	return f.gameData, f.err
}

type apiHarness struct {
	server  *httptest.Server
	service *fakeGameService
	tokens  *authproviders.JWTAuthProvider
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	tokens := authproviders.NewJWTAuthProvider("test-secret", "econempire")
	service := &fakeGameService{
		game: &types.Game{ID: "g1", TotalRounds: 5, Status: types.GameStatusWaiting, TimeRemaining: 900},
	}
	server := httptest.NewServer(NewRouter(NewAPIServerOptions{
		AuthProvider: tokens,
		GameService:  service,
		AllowOrigin:  "https://play.example.com",
	}))
	t.Cleanup(server.Close)
	return &apiHarness{server: server, service: service, tokens: tokens}
}

func (h *apiHarness) do(t *testing.T, method, path string, identity *types.Identity, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	if identity != nil {
		token, err := h.tokens.IssueToken(*identity, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

var (
	operatorIdentity = types.Identity{PlayerID: "op", Name: "Olga", Role: types.RoleOperator}
	playerIdentity   = types.Identity{PlayerID: "p1", Name: "Pat", Role: types.RolePlayer, Country: types.CountryJapan}
)

func TestHealthz(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.do(t, http.MethodGet, "/games/current", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, h.server.URL+"/games/current", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, h.service.callsCount)
}

func TestPreflight(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.do(t, http.MethodOptions, "/games", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://play.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestLogin(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.do(t, http.MethodPost, "/auth/login", &playerIdentity, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := handlers.LoginResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "p1", body.User.UserID)
	assert.Equal(t, types.RolePlayer, body.User.Role)
	assert.Equal(t, types.CountryJapan, body.User.Country)
}

func TestCreateGame(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.do(t, http.MethodPost, "/games", &operatorIdentity, handlers.CreateGameRequest{TotalRounds: 7})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := messages.GameStateChanged{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "g1", body.GameID)
	assert.Equal(t, 7, h.service.rounds)
	assert.Equal(t, types.RoleOperator, h.service.identity.Role)
}

func TestGameAction(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.do(t, http.MethodPost, "/games/current/advance", &operatorIdentity, handlers.GameActionRequest{FromRound: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, messages.GameActionAdvance, h.service.action)
	assert.Equal(t, 2, h.service.fromRound)

	resp = h.do(t, http.MethodPost, "/games/current/start", &operatorIdentity, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, messages.GameActionStart, h.service.action)

	resp = h.do(t, http.MethodPost, "/games/current/create", &operatorIdentity, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetGame(t *testing.T) {
	h := newAPIHarness(t)
	h.service.gameData = &types.GameData{Game: h.service.game}

	resp := h.do(t, http.MethodGet, "/games/g1", &playerIdentity, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "g1", h.service.gameID)
	assert.Equal(t, "p1", h.service.identity.PlayerID)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "authorization", err: &game.ErrAuthorization{PlayerID: "p1"}, wantStatus: http.StatusForbidden, wantCode: game.CodeAuthorization},
		{name: "transition", err: &game.ErrInvalidTransition{Action: "start"}, wantStatus: http.StatusConflict, wantCode: game.CodeInvalidTransition},
		{name: "round limit", err: &game.ErrRoundLimitExceeded{TotalRounds: 5}, wantStatus: http.StatusConflict, wantCode: game.CodeRoundLimitExceeded},
		{name: "invalid", err: &game.ErrInvalidCommand{Reason: "bad"}, wantStatus: http.StatusBadRequest, wantCode: game.CodeInvalidCommand},
		{name: "no game", err: &game.ErrNoGame{}, wantStatus: http.StatusNotFound, wantCode: game.CodeNoGame},
		{name: "not found", err: &repositories.ErrNotFound{}, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "persistence", err: &game.ErrTransientPersistence{Op: "update game", Err: context.DeadlineExceeded}, wantStatus: http.StatusServiceUnavailable, wantCode: game.CodePersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAPIHarness(t)
			h.service.err = tt.err

			resp := h.do(t, http.MethodGet, "/games/current", &operatorIdentity, nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := map[string]string{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMalformedBody(t *testing.T) {
	h := newAPIHarness(t)
	token, err := h.tokens.IssueToken(operatorIdentity, time.Minute)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/games", bytes.NewBufferString("{"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, h.service.callsCount)
}
