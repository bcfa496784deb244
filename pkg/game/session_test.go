package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cbodonnell/econempire/pkg/game/constants"
	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/messages"
	"github.com/cbodonnell/econempire/pkg/queue"
	"github.com/cbodonnell/econempire/pkg/repositories"
	"github.com/cbodonnell/econempire/pkg/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mocks "github.com/cbodonnell/econempire/mocks/github.com/cbodonnell/econempire/pkg/repositories"
)

var testNow = time.UnixMilli(1_000_000)

var operator = types.Identity{PlayerID: "op", Name: "Operator", Role: types.RoleOperator}

type sessionHarness struct {
	session     *Session
	clientQueue *queue.InMemoryQueue
	eventQueue  *queue.InMemoryQueue
	out         chan workers.ServerMessage
	requests    int
}

func newHarness(t *testing.T, repo repositories.Repository, releaseAfter time.Duration) *sessionHarness {
	t.Helper()
	h := &sessionHarness{
		clientQueue: queue.NewInMemoryQueue(),
		eventQueue:  queue.NewInMemoryQueue(),
		out:         make(chan workers.ServerMessage, 4096),
	}
	h.session = NewSession(NewSessionOptions{
		ClientMessageQueue:  h.clientQueue,
		ServerEventQueue:    h.eventQueue,
		Repository:          repo,
		ServerMessageChan:   h.out,
		GameLoopInterval:    time.Millisecond,
		CountryReleaseAfter: releaseAfter,
		Seed:                42,
		Now:                 func() time.Time { return testNow },
	})
	return h
}

func (h *sessionHarness) connect(t *testing.T, clientID uint32, identity types.Identity) []workers.ServerMessage {
	t.Helper()
	require.NoError(t, h.eventQueue.Enqueue(&types.ConnectPlayerEvent{ClientID: clientID, Identity: identity}))
	h.session.processServerEvents(context.Background())
	return h.drain()
}

func (h *sessionHarness) disconnect(t *testing.T, clientID uint32) []workers.ServerMessage {
	t.Helper()
	require.NoError(t, h.eventQueue.Enqueue(&types.DisconnectPlayerEvent{ClientID: clientID}))
	h.session.processServerEvents(context.Background())
	return h.drain()
}

// send processes one client message and returns its ack and everything else emitted.
func (h *sessionHarness) send(t *testing.T, clientID uint32, msgType messages.MessageType, payload interface{}) (*messages.ServerAck, []workers.ServerMessage) {
	t.Helper()
	h.requests++
	requestID := fmt.Sprintf("req-%d", h.requests)
	msg, err := messages.NewMessage(msgType, requestID, payload)
	require.NoError(t, err)
	msg.ClientID = clientID
	require.NoError(t, h.clientQueue.Enqueue(msg))
	h.session.processClientMessages(context.Background())

	var ack *messages.ServerAck
	var rest []workers.ServerMessage
	for _, m := range h.drain() {
		if m.Type == messages.MessageTypeServerAck {
			require.Nil(t, ack, "more than one ack")
			assert.Equal(t, requestID, m.RequestID)
			assert.Equal(t, workers.AudienceClients(clientID), m.Audience)
			ack = m.Message.(*messages.ServerAck)
			continue
		}
		rest = append(rest, m)
	}
	require.NotNil(t, ack, "no ack for %s", msgType)
	return ack, rest
}

func (h *sessionHarness) action(t *testing.T, clientID uint32, update messages.ClientGameStateUpdate) (*messages.ServerAck, []workers.ServerMessage) {
	t.Helper()
	return h.send(t, clientID, messages.MessageTypeClientGameStateUpdate, update)
}

func (h *sessionHarness) drain() []workers.ServerMessage {
	var out []workers.ServerMessage
	for {
		select {
		case m := <-h.out:
			out = append(out, m)
		default:
			return out
		}
	}
}

func ofType(msgs []workers.ServerMessage, t messages.MessageType) []workers.ServerMessage {
	var out []workers.ServerMessage
	for _, m := range msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func typesOf(msgs []workers.ServerMessage) []messages.MessageType {
	var out []messages.MessageType
	for _, m := range msgs {
		out = append(out, m.Type)
	}
	return out
}

func requireOK(t *testing.T, ack *messages.ServerAck) {
	t.Helper()
	require.True(t, ack.OK, "unexpected error: %+v", ack.Error)
}

func requireCode(t *testing.T, ack *messages.ServerAck, code string) {
	t.Helper()
	require.False(t, ack.OK)
	require.NotNil(t, ack.Error)
	require.Equal(t, code, ack.Error.Code)
}

// startedGame connects an operator on client 1 and runs create and start.
func (h *sessionHarness) startedGame(t *testing.T) {
	t.Helper()
	h.connect(t, 1, operator)
	ack, _ := h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionCreate, TotalRounds: 5})
	requireOK(t, ack)
	ack, _ = h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionStart})
	requireOK(t, ack)
}

func TestSession_ConnectAssignsCountries(t *testing.T) {
	h := newHarness(t, repositories.NewMemoryRepository(), 0)

	countries := map[types.Country]bool{}
	for i := 1; i <= 5; i++ {
		out := h.connect(t, uint32(i), playerIdentity(fmt.Sprintf("p%d", i)))
		assert.Equal(t, []messages.MessageType{
			messages.MessageTypeServerUserStatusUpdate,
			messages.MessageTypeCountryAssigned,
			messages.MessageTypeServerSnapshot,
			messages.MessageTypeServerOnlineUsers,
		}, typesOf(out))

		assigned := out[1].Message.(*messages.CountryAssigned)
		assert.False(t, countries[assigned.Country], "country %s assigned twice", assigned.Country)
		countries[assigned.Country] = true

		assert.Equal(t, workers.AudienceClients(uint32(i)), out[2].Audience)
		users := out[3].Message.(*messages.OnlineUsers).Users
		assert.Len(t, users, i)
	}

	out := h.connect(t, 6, playerIdentity("p6"))
	assert.Equal(t, []messages.MessageType{
		messages.MessageTypeServerUserStatusUpdate,
		messages.MessageTypeRequestCountryAssignment,
		messages.MessageTypeServerSnapshot,
		messages.MessageTypeServerOnlineUsers,
	}, typesOf(out))
	assert.Equal(t, workers.AudienceClients(6), out[1].Audience)

	ack, rest := h.send(t, 6, messages.MessageTypeRequestCountryAssignment, messages.ClientCountryAssignment{})
	requireOK(t, ack)
	assert.Empty(t, ack.Country)
	assert.Equal(t, []messages.MessageType{messages.MessageTypeRequestCountryAssignment}, typesOf(rest))
}

func TestSession_OperatorGetsNoCountry(t *testing.T) {
	h := newHarness(t, repositories.NewMemoryRepository(), 0)

	out := h.connect(t, 1, operator)
	assert.Equal(t, []messages.MessageType{
		messages.MessageTypeServerUserStatusUpdate,
		messages.MessageTypeServerSnapshot,
		messages.MessageTypeServerOnlineUsers,
	}, typesOf(out))
}

func TestSession_ConcurrentConnectsGetUniqueCountries(t *testing.T) {
	h := newHarness(t, repositories.NewMemoryRepository(), 0)

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, h.eventQueue.Enqueue(&types.ConnectPlayerEvent{
				ClientID: uint32(i),
				Identity: playerIdentity(fmt.Sprintf("p%d", i)),
			}))
		}(i)
	}
	wg.Wait()
	h.session.processServerEvents(context.Background())

	assigned := ofType(h.drain(), messages.MessageTypeCountryAssigned)
	require.Len(t, assigned, len(types.Countries))
	seen := map[types.Country]bool{}
	for _, m := range assigned {
		c := m.Message.(*messages.CountryAssigned).Country
		assert.False(t, seen[c])
		seen[c] = true
	}
	assert.Len(t, h.session.registry.Unassigned(), 3)
}

func TestSession_GameLifecycle(t *testing.T) {
	repo := repositories.NewMemoryRepository()
	h := newHarness(t, repo, 0)
	h.connect(t, 1, operator)
	out := h.connect(t, 2, playerIdentity("p1"))
	country := out[1].Message.(*messages.CountryAssigned).Country

	ack, _ := h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionStart})
	requireCode(t, ack, CodeNoGame)

	ack, _ = h.action(t, 2, messages.ClientGameStateUpdate{Action: messages.GameActionCreate})
	requireCode(t, ack, CodeAuthorization)

	ack, rest := h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionCreate, TotalRounds: 5})
	requireOK(t, ack)
	require.NotNil(t, ack.Game)
	assert.Equal(t, types.GameStatusWaiting, ack.Game.Status)
	assert.Equal(t, 5, ack.Game.TotalRounds)
	assert.Len(t, ofType(rest, messages.MessageTypeServerGameStateChanged), 1)

	data := ofType(rest, messages.MessageTypeServerGameDataUpdated)
	require.Len(t, data, 2)
	for _, m := range data {
		update := m.Message.(*messages.GameDataUpdated)
		if m.Audience.PlayerIDs[0] == "p1" {
			for _, d := range update.Demand {
				assert.Equal(t, country, d.Country)
			}
		} else {
			assert.NotEmpty(t, update.Demand)
		}
	}

	ack, _ = h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionCreate})
	requireCode(t, ack, CodeInvalidTransition)

	ack, _ = h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionStart})
	requireOK(t, ack)
	assert.Equal(t, 1, ack.Game.CurrentRound)

	for round := 1; round < 5; round++ {
		ack, _ = h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionAdvance, FromRound: round})
		requireOK(t, ack)
		assert.Equal(t, round+1, ack.Game.CurrentRound)
	}

	ack, _ = h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionAdvance, FromRound: 4})
	requireCode(t, ack, CodeInvalidTransition)
	assert.Equal(t, 5, ack.Error.CurrentRound)
	assert.Equal(t, types.GameStatusActive, ack.Error.Status)

	ack, _ = h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionAdvance, FromRound: 5})
	requireCode(t, ack, CodeRoundLimitExceeded)

	ack, rest = h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionEnd})
	requireOK(t, ack)
	assert.True(t, ack.Game.IsEnded)
	assert.Len(t, ofType(rest, messages.MessageTypeServerGameStateChanged), 1)

	ack, rest = h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionEnd})
	requireOK(t, ack)
	assert.Empty(t, rest, "ending an ended game changes nothing")

	stored, err := repo.LatestGame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.GameStatusEnded, stored.Status)
	assert.Equal(t, 5, stored.CurrentRound)
}

func TestSession_CreateFailsToPersist(t *testing.T) {
	repo := mocks.NewRepository(t)
	repo.EXPECT().CreateGame(mock.Anything, mock.Anything).Return(errors.New("database is down")).Once()

	h := newHarness(t, repo, 0)
	h.connect(t, 1, operator)

	ack, rest := h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionCreate})
	requireCode(t, ack, CodePersistence)
	assert.Empty(t, rest)
	assert.Nil(t, h.session.game)
}

func TestSession_TransitionFailsToPersist(t *testing.T) {
	repo := mocks.NewRepository(t)
	repo.EXPECT().CreateGame(mock.Anything, mock.Anything).Return(nil).Once()
	repo.EXPECT().InsertProduction(mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	repo.EXPECT().InsertDemand(mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	repo.EXPECT().UpdateGame(mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()

	h := newHarness(t, repo, 0)
	h.connect(t, 1, operator)
	ack, _ := h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionCreate})
	requireOK(t, ack)

	ack, rest := h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionStart})
	requireCode(t, ack, CodePersistence)
	assert.Empty(t, rest)
	assert.Equal(t, types.GameStatusWaiting, h.session.game.Status)
}

func TestSession_Tariffs(t *testing.T) {
	repo := repositories.NewMemoryRepository()
	h := newHarness(t, repo, 0)
	h.startedGame(t)

	out := h.connect(t, 2, playerIdentity("p1"))
	country := out[1].Message.(*messages.CountryAssigned).Country
	other := types.CountryUSA
	if country == other {
		other = types.CountryChina
	}

	update := messages.ClientTariffUpdate{
		Round:       1,
		FromCountry: country,
		Changes: []types.TariffChange{
			{Product: types.ProductSteel, ToCountry: other, Rate: 7},
			{Product: types.ProductOil, ToCountry: other, Rate: 3},
		},
	}
	ack, rest := h.send(t, 2, messages.MessageTypeClientTariffUpdate, update)
	requireOK(t, ack)
	require.Len(t, ack.Records, 2)
	assert.Equal(t, uint64(1), ack.Records[0].Sequence)
	assert.Equal(t, uint64(2), ack.Records[1].Sequence)
	assert.Len(t, ofType(rest, messages.MessageTypeServerTariffUpdated), 2)

	// the operator cannot set tariffs for a country
	ack, _ = h.send(t, 1, messages.MessageTypeClientTariffUpdate, update)
	requireCode(t, ack, CodeAuthorization)

	update.FromCountry = other
	ack, _ = h.send(t, 2, messages.MessageTypeClientTariffUpdate, update)
	requireCode(t, ack, CodeAuthorization)

	update.FromCountry = country
	update.Round = 2
	ack, _ = h.send(t, 2, messages.MessageTypeClientTariffUpdate, update)
	requireCode(t, ack, CodeInvalidTransition)

	data, err := repo.QueryGameData(context.Background(), h.session.game.ID, repositories.QueryScope{})
	require.NoError(t, err)
	assert.Len(t, data.TariffRates, 2)
	assert.Equal(t, uint64(2), h.session.ledger.LastSequence())
}

func TestSession_TariffPersistenceFailureConsumesNoSequence(t *testing.T) {
	repo := mocks.NewRepository(t)
	repo.EXPECT().CreateGame(mock.Anything, mock.Anything).Return(nil)
	repo.EXPECT().InsertProduction(mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.EXPECT().InsertDemand(mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.EXPECT().UpdateGame(mock.Anything, mock.Anything).Return(nil)
	repo.EXPECT().InsertTariffRecords(mock.Anything, mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()
	repo.EXPECT().InsertTariffRecords(mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	h := newHarness(t, repo, 0)
	h.startedGame(t)
	out := h.connect(t, 2, playerIdentity("p1"))
	country := out[1].Message.(*messages.CountryAssigned).Country
	other := types.CountryUSA
	if country == other {
		other = types.CountryChina
	}
	update := messages.ClientTariffUpdate{
		Round:       1,
		FromCountry: country,
		Changes:     []types.TariffChange{{Product: types.ProductGrain, ToCountry: other, Rate: 10}},
	}

	ack, rest := h.send(t, 2, messages.MessageTypeClientTariffUpdate, update)
	requireCode(t, ack, CodePersistence)
	assert.Empty(t, rest)
	assert.Equal(t, uint64(0), h.session.ledger.LastSequence())

	ack, _ = h.send(t, 2, messages.MessageTypeClientTariffUpdate, update)
	requireOK(t, ack)
	assert.Equal(t, uint64(1), ack.Records[0].Sequence)
}

func TestSession_Chat(t *testing.T) {
	h := newHarness(t, repositories.NewMemoryRepository(), 0)
	a := h.connect(t, 1, playerIdentity("a"))[1].Message.(*messages.CountryAssigned).Country
	b := h.connect(t, 2, playerIdentity("b"))[1].Message.(*messages.CountryAssigned).Country
	h.connect(t, 3, playerIdentity("c"))

	tests := []struct {
		name         string
		send         messages.ClientSendMessage
		wantCode     string
		wantAudience workers.Audience
	}{
		{
			name:         "group",
			send:         messages.ClientSendMessage{Content: "hello", MessageType: types.ChatMessageTypeGroup},
			wantAudience: workers.AudienceAll(),
		},
		{
			name:         "private",
			send:         messages.ClientSendMessage{Content: "psst", MessageType: types.ChatMessageTypePrivate, RecipientCountry: b},
			wantAudience: workers.AudiencePlayers("a", "b"),
		},
		{
			name:     "empty",
			send:     messages.ClientSendMessage{Content: "   ", MessageType: types.ChatMessageTypeGroup},
			wantCode: CodeInvalidCommand,
		},
		{
			name:     "too long",
			send:     messages.ClientSendMessage{Content: string(make([]byte, constants.MaxChatMessageLength+1)), MessageType: types.ChatMessageTypeGroup},
			wantCode: CodeInvalidCommand,
		},
		{
			name:     "unknown recipient",
			send:     messages.ClientSendMessage{Content: "hi", MessageType: types.ChatMessageTypePrivate, RecipientCountry: "Atlantis"},
			wantCode: CodeInvalidCommand,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack, rest := h.send(t, 1, messages.MessageTypeClientSendMessage, tt.send)
			if tt.wantCode != "" {
				requireCode(t, ack, tt.wantCode)
				assert.Empty(t, rest)
				return
			}
			requireOK(t, ack)
			require.Len(t, rest, 1)
			assert.Equal(t, messages.MessageTypeServerNewMessage, rest[0].Type)
			assert.Equal(t, tt.wantAudience, rest[0].Audience)
			msg := rest[0].Message.(types.ChatMessage)
			assert.Equal(t, a, msg.SenderCountry)
			assert.NotEmpty(t, msg.ID)
		})
	}

	// a third country does not see the private message on reconnect
	h.disconnect(t, 3)
	out := h.connect(t, 4, playerIdentity("c"))
	snapshot := ofType(out, messages.MessageTypeServerSnapshot)[0].Message.(*messages.Snapshot)
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, types.ChatMessageTypeGroup, snapshot.Messages[0].MessageType)
}

func TestSession_NotConnected(t *testing.T) {
	h := newHarness(t, repositories.NewMemoryRepository(), 0)
	ack, rest := h.send(t, 99, messages.MessageTypeClientSendMessage, messages.ClientSendMessage{Content: "hi"})
	requireCode(t, ack, CodeNotConnected)
	assert.Empty(t, rest)
}

func TestSession_InvalidPayload(t *testing.T) {
	h := newHarness(t, repositories.NewMemoryRepository(), 0)
	h.connect(t, 1, operator)

	ack, _ := h.send(t, 1, messages.MessageTypeClientGameStateUpdate, nil)
	requireCode(t, ack, CodeInvalidCommand)

	ack, _ = h.send(t, 1, "dance", map[string]string{})
	requireCode(t, ack, CodeInvalidCommand)
}

func TestSession_ReconnectKeepsCountryAndState(t *testing.T) {
	h := newHarness(t, repositories.NewMemoryRepository(), 0)
	h.startedGame(t)

	out := h.connect(t, 2, playerIdentity("p1"))
	country := out[1].Message.(*messages.CountryAssigned).Country
	other := types.CountryUSA
	if country == other {
		other = types.CountryChina
	}
	ack, _ := h.send(t, 2, messages.MessageTypeClientTariffUpdate, messages.ClientTariffUpdate{
		Round:       1,
		FromCountry: country,
		Changes:     []types.TariffChange{{Product: types.ProductSteel, ToCountry: other, Rate: 12}},
	})
	requireOK(t, ack)

	out = h.disconnect(t, 2)
	require.Len(t, out, 1)
	status := out[0].Message.(*messages.UserStatus)
	assert.False(t, status.IsOnline)

	out = h.connect(t, 3, playerIdentity("p1"))
	assert.Empty(t, ofType(out, messages.MessageTypeCountryAssigned))
	snapshot := ofType(out, messages.MessageTypeServerSnapshot)[0].Message.(*messages.Snapshot)
	assert.Equal(t, types.GameStatusActive, snapshot.Status)
	assert.Equal(t, uint64(1), snapshot.LastSequence)
	require.Len(t, snapshot.TariffRates, 1)
	assert.Equal(t, 12.0, snapshot.TariffRates[0].Rate)
	for _, d := range snapshot.Demand {
		assert.Equal(t, country, d.Country)
	}

	player, ok := h.session.registry.Player("p1")
	require.True(t, ok)
	assert.Equal(t, country, player.Country)
}

func TestSession_Timer(t *testing.T) {
	h := newHarness(t, repositories.NewMemoryRepository(), 0)
	ctx := context.Background()

	h.session.advanceTimer(ctx, testNow)
	h.startedGame(t)

	h.session.advanceTimer(ctx, testNow.Add(2500*time.Millisecond))
	out := h.drain()
	require.Len(t, out, 1)
	timer := out[0].Message.(*messages.RoundTimerUpdated)
	assert.Equal(t, constants.RoundDurationSeconds-2, timer.TimeRemaining)

	h.session.advanceTimer(ctx, testNow.Add(2900*time.Millisecond))
	assert.Empty(t, h.drain())

	h.session.advanceTimer(ctx, testNow.Add(3000*time.Millisecond))
	out = h.drain()
	require.Len(t, out, 1)
	assert.Equal(t, constants.RoundDurationSeconds-3, out[0].Message.(*messages.RoundTimerUpdated).TimeRemaining)

	ack, _ := h.action(t, 1, messages.ClientGameStateUpdate{Action: messages.GameActionAdvance, FromRound: 1})
	requireOK(t, ack)
	assert.Equal(t, constants.RoundDurationSeconds, h.session.game.TimeRemaining)
}

func TestSession_SweepReleasesCountry(t *testing.T) {
	h := newHarness(t, repositories.NewMemoryRepository(), time.Minute)
	for i := 1; i <= 6; i++ {
		h.connect(t, uint32(i), playerIdentity(fmt.Sprintf("p%d", i)))
	}
	require.Equal(t, []string{"p6"}, h.session.registry.Unassigned())

	released, _ := h.session.registry.Player("p1")
	h.disconnect(t, 1)

	h.session.sweepPresence(context.Background(), testNow.Add(30*time.Second))
	assert.Empty(t, h.drain())

	h.session.sweepPresence(context.Background(), testNow.Add(2*time.Minute))
	out := h.drain()
	assigned := ofType(out, messages.MessageTypeCountryAssigned)
	require.Len(t, assigned, 1)
	assert.Equal(t, &messages.CountryAssigned{UserID: "p6", Country: released.Country}, assigned[0].Message)
	assert.Len(t, ofType(out, messages.MessageTypeServerOnlineUsers), 1)
}

func TestSession_API(t *testing.T) {
	repo := repositories.NewMemoryRepository()
	h := newHarness(t, repo, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.session.Start(ctx) }()

	_, err := h.session.CurrentGame(ctx, operator)
	assert.True(t, IsNoGame(err))

	player := types.Identity{PlayerID: "web", Role: types.RolePlayer}
	_, err = h.session.CreateGame(ctx, player, 3)
	assert.True(t, IsAuthorization(err))

	game, err := h.session.CreateGame(ctx, operator, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, game.TotalRounds)

	game, err = h.session.UpdateGameState(ctx, operator, messages.GameActionStart, 0)
	require.NoError(t, err)
	assert.Equal(t, types.GameStatusActive, game.Status)

	snapshot, err := h.session.CurrentGame(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, game.ID, snapshot.GameID)
	assert.NotEmpty(t, snapshot.Demand)

	data, err := h.session.GameData(ctx, player, game.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, data.Production)
	assert.Empty(t, data.Demand, "a player without a country sees no demand")

	data, err = h.session.GameData(ctx, operator, game.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, data.Demand)

	_, err = h.session.GameData(ctx, operator, "missing")
	assert.True(t, repositories.IsNotFound(err))

	cancel()
	assert.NoError(t, <-done)
}

func TestSession_Recover(t *testing.T) {
	repo := repositories.NewMemoryRepository()
	ctx := context.Background()

	game, err := NewGame("g1", 5, 1)
	require.NoError(t, err)
	game, err = Start(game)
	require.NoError(t, err)
	require.NoError(t, repo.CreateGame(ctx, &game))
	require.NoError(t, repo.InsertTariffRecords(ctx, "g1", []types.TariffRecord{
		{TariffKey: types.TariffKey{Round: 1, Product: types.ProductOil, FromCountry: types.CountryUSA, ToCountry: types.CountryJapan}, Rate: 4, Sequence: 2},
		{TariffKey: types.TariffKey{Round: 1, Product: types.ProductOil, FromCountry: types.CountryUSA, ToCountry: types.CountryJapan}, Rate: 9, Sequence: 1},
	}))

	h := newHarness(t, repo, 0)
	require.NoError(t, h.session.recoverGame(ctx))
	require.NotNil(t, h.session.game)
	assert.Equal(t, types.GameStatusActive, h.session.game.Status)
	assert.Equal(t, uint64(2), h.session.ledger.LastSequence())
	current := h.session.ledger.Current()
	require.Len(t, current, 1)
	assert.Equal(t, 4.0, current[0].Rate)
}

func TestSession_RecoverSkipsEndedGame(t *testing.T) {
	repo := repositories.NewMemoryRepository()
	ctx := context.Background()

	game, err := NewGame("g1", 5, 1)
	require.NoError(t, err)
	game, err = End(game)
	require.NoError(t, err)
	require.NoError(t, repo.CreateGame(ctx, &game))

	h := newHarness(t, repo, 0)
	require.NoError(t, h.session.recoverGame(ctx))
	assert.Nil(t, h.session.game)
	assert.Equal(t, uint64(0), h.session.ledger.LastSequence())
}

func TestSession_RecoverFails(t *testing.T) {
	repo := mocks.NewRepository(t)
	repo.EXPECT().LatestGame(mock.Anything).Return(nil, errors.New("connection refused")).Once()

	h := newHarness(t, repo, 0)
	err := h.session.Start(context.Background())
	assert.Error(t, err)
}
