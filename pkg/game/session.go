package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cbodonnell/econempire/pkg/game/constants"
	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/cbodonnell/econempire/pkg/messages"
	"github.com/cbodonnell/econempire/pkg/queue"
	"github.com/cbodonnell/econempire/pkg/repositories"
	"github.com/cbodonnell/econempire/pkg/workers"
	"github.com/google/uuid"
)

// Session is the single owner of a game. Its loop is the only code that
// reads or writes the game, the player registry, the tariff ledger and the
// chat log; everything else reaches it through queues.
type Session struct {
	clientMessageQueue queue.Queue
	serverEventQueue   queue.Queue
	repository         repositories.Repository
	serverMessageChan  chan<- workers.ServerMessage
	gameLoopInterval   time.Duration
	rng                *rand.Rand
	now                func() time.Time

	registry   *Registry
	ledger     *Ledger
	game       *types.Game
	production []types.ProductionFact
	demand     []types.DemandFact
	chat       []types.ChatMessage

	lastTick time.Time
	elapsed  time.Duration
}

// NewSessionOptions contains options for creating a new Session.
type NewSessionOptions struct {
	ClientMessageQueue queue.Queue
	ServerEventQueue   queue.Queue
	Repository         repositories.Repository
	ServerMessageChan  chan<- workers.ServerMessage
	GameLoopInterval   time.Duration
	// CountryReleaseAfter frees the country of a player offline that long. Zero never frees it.
	CountryReleaseAfter time.Duration
	// Seed drives country assignment and baseline generation. Zero seeds from the clock.
	Seed uint64
	Now  func() time.Time
}

func NewSession(opts NewSessionOptions) *Session {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Session{
		clientMessageQueue: opts.ClientMessageQueue,
		serverEventQueue:   opts.ServerEventQueue,
		repository:         opts.Repository,
		serverMessageChan:  opts.ServerMessageChan,
		gameLoopInterval:   opts.GameLoopInterval,
		rng:                rng,
		now:                now,
		registry:           NewRegistry(rng, opts.CountryReleaseAfter),
		ledger:             NewLedger(),
	}
}

// sessionRequest runs fn on the game loop and sends back its result.
type sessionRequest struct {
	fn    func(ctx context.Context) (interface{}, error)
	reply chan sessionResult
}

type sessionResult struct {
	value interface{}
	err   error
}

// Start recovers the latest unfinished game and runs the game loop until ctx is done.
func (s *Session) Start(ctx context.Context) error {
	if err := s.recoverGame(ctx); err != nil {
		return fmt.Errorf("failed to recover game state: %v", err)
	}

	ticker := time.NewTicker(s.gameLoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			s.gameTick(ctx, t)
		}
	}
}

func (s *Session) recoverGame(ctx context.Context) error {
	game, err := s.repository.LatestGame(ctx)
	if err != nil {
		if repositories.IsNotFound(err) {
			log.Info("No game to recover")
			return nil
		}
		return err
	}
	if game.IsEnded() {
		log.Info("Latest game %s has ended, starting without a game", game.ID)
		return nil
	}

	data, err := s.repository.QueryGameData(ctx, game.ID, repositories.QueryScope{})
	if err != nil {
		return err
	}

	s.game = data.Game
	s.production = data.Production
	s.demand = data.Demand
	s.ledger.Restore(data.TariffRates)
	log.Info("Recovered game %s in status %s at round %d with %d tariff records", s.game.ID, s.game.Status, s.game.CurrentRound, len(data.TariffRates))
	return nil
}

// gameTick runs one iteration of the game loop.
func (s *Session) gameTick(ctx context.Context, t time.Time) {
	s.processServerEvents(ctx)
	s.processClientMessages(ctx)
	s.advanceTimer(ctx, t)
	s.sweepPresence(ctx, t)
}

// do runs fn on the game loop and waits for its result.
func (s *Session) do(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	req := &sessionRequest{
		fn:    fn,
		reply: make(chan sessionResult, 1),
	}
	if err := s.serverEventQueue.Enqueue(req); err != nil {
		return nil, fmt.Errorf("failed to enqueue request: %v", err)
	}

	select {
	case res := <-req.reply:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// processServerEvents processes connection events and requests from
// outside the game loop in arrival order.
func (s *Session) processServerEvents(ctx context.Context) {
	for _, item := range s.serverEventQueue.ReadAllMessages() {
		switch event := item.(type) {
		case *types.ConnectPlayerEvent:
			s.handleConnect(ctx, event)
		case *types.DisconnectPlayerEvent:
			s.handleDisconnect(ctx, event)
		case *sessionRequest:
			value, err := event.fn(ctx)
			event.reply <- sessionResult{value: value, err: err}
		default:
			log.Error("Unhandled server event type: %T", event)
		}
	}
}

func (s *Session) handleConnect(ctx context.Context, event *types.ConnectPlayerEvent) {
	player, cameOnline := s.registry.Connect(event.ClientID, event.Identity)
	log.Debug("Player %s connected on client %d", player.ID, event.ClientID)

	hadCountry := player.Country != ""
	_, assigned := s.registry.Assign(player.ID)
	player, _ = s.registry.Player(player.ID)

	if cameOnline || (assigned && !hadCountry) {
		s.broadcastUserStatus(ctx, player)
	}
	if assigned && !hadCountry {
		s.broadcastCountryAssigned(ctx, player)
	}
	if player.Role == types.RolePlayer && !assigned {
		s.emit(ctx, workers.ServerMessage{
			Type: messages.MessageTypeRequestCountryAssignment,
			Message: &messages.RequestCountryAssignment{
				UserID: player.ID,
				Reason: "no countries available",
			},
			Audience: workers.AudienceClients(event.ClientID),
		})
	}

	s.emit(ctx, workers.ServerMessage{
		Type:     messages.MessageTypeServerSnapshot,
		Message:  s.snapshotFor(player),
		Audience: workers.AudienceClients(event.ClientID),
	})
	s.emit(ctx, workers.ServerMessage{
		Type:     messages.MessageTypeServerOnlineUsers,
		Message:  s.onlineUsers(),
		Audience: workers.AudienceClients(event.ClientID),
	})
}

func (s *Session) handleDisconnect(ctx context.Context, event *types.DisconnectPlayerEvent) {
	player, wentOffline := s.registry.Disconnect(event.ClientID, s.now())
	if player == nil {
		return
	}
	log.Debug("Player %s disconnected from client %d", player.ID, event.ClientID)
	if wentOffline {
		s.broadcastUserStatus(ctx, player)
	}
}

// processClientMessages processes all pending client messages in the queue
// and updates the game state accordingly.
func (s *Session) processClientMessages(ctx context.Context) {
	for _, item := range s.clientMessageQueue.ReadAllMessages() {
		message, ok := item.(*messages.Message)
		if !ok {
			log.Error("Failed to cast message to messages.Message")
			continue
		}

		player, ok := s.registry.PlayerByClient(message.ClientID)
		if !ok {
			s.ack(ctx, message, nil, &ErrNotConnected{ClientID: message.ClientID})
			continue
		}

		ack, err := s.handleClientMessage(ctx, player, message)
		if err != nil {
			if IsAuthorization(err) {
				log.Warn("Rejected %s from player %s: %v", message.Type, player.ID, err)
			} else {
				log.Debug("Rejected %s from player %s: %v", message.Type, player.ID, err)
			}
		}
		s.ack(ctx, message, ack, err)
	}
}

func (s *Session) handleClientMessage(ctx context.Context, player *types.Player, message *messages.Message) (*messages.ServerAck, error) {
	identity := types.Identity{
		PlayerID: player.ID,
		Name:     player.Name,
		Role:     player.Role,
		Country:  player.Country,
	}

	switch message.Type {
	case messages.MessageTypeClientGameStateUpdate:
		update := &messages.ClientGameStateUpdate{}
		if err := messages.DecodePayload(message, update); err != nil {
			return nil, &ErrInvalidCommand{Reason: err.Error()}
		}
		var game *types.Game
		var err error
		if update.Action == messages.GameActionCreate {
			game, err = s.createGame(ctx, identity, update.TotalRounds)
		} else {
			game, err = s.transition(ctx, identity, update.Action, update.FromRound)
		}
		if err != nil {
			return nil, err
		}
		return &messages.ServerAck{Game: messages.GameStateChangedFromGame(game)}, nil

	case messages.MessageTypeClientTariffUpdate:
		update := &messages.ClientTariffUpdate{}
		if err := messages.DecodePayload(message, update); err != nil {
			return nil, &ErrInvalidCommand{Reason: err.Error()}
		}
		records, err := s.submitTariffs(ctx, player, update)
		if err != nil {
			return nil, err
		}
		return &messages.ServerAck{Records: records}, nil

	case messages.MessageTypeClientSendMessage:
		send := &messages.ClientSendMessage{}
		if err := messages.DecodePayload(message, send); err != nil {
			return nil, &ErrInvalidCommand{Reason: err.Error()}
		}
		if _, err := s.sendChat(ctx, player, send); err != nil {
			return nil, err
		}
		return &messages.ServerAck{}, nil

	case messages.MessageTypeRequestCountryAssignment, messages.MessageTypeCountryAssigned:
		// any country proposed by the client is ignored
		country := s.requestCountry(ctx, player)
		return &messages.ServerAck{Country: country}, nil

	default:
		return nil, &ErrInvalidCommand{Reason: fmt.Sprintf("unknown message type %q", message.Type)}
	}
}

// createGame replaces an ended (or missing) game with a new waiting one.
func (s *Session) createGame(ctx context.Context, actor types.Identity, totalRounds int) (*types.Game, error) {
	if actor.Role != types.RoleOperator {
		return nil, &ErrAuthorization{PlayerID: actor.PlayerID, Reason: "only operators can create games"}
	}
	if s.game != nil && !s.game.IsEnded() {
		return nil, invalidTransition("create", *s.game)
	}

	game, err := NewGame(uuid.NewString(), totalRounds, s.now().UnixMilli())
	if err != nil {
		return nil, err
	}
	production, demand := GenerateBaseline(s.rng)

	if err := s.repository.CreateGame(ctx, &game); err != nil {
		return nil, &ErrTransientPersistence{Op: "create game", Err: err}
	}
	if err := s.repository.InsertProduction(ctx, game.ID, production); err != nil {
		return nil, &ErrTransientPersistence{Op: "insert production", Err: err}
	}
	if err := s.repository.InsertDemand(ctx, game.ID, demand); err != nil {
		return nil, &ErrTransientPersistence{Op: "insert demand", Err: err}
	}

	s.game = &game
	s.production = production
	s.demand = demand
	s.ledger = NewLedger()
	s.chat = nil
	s.elapsed = 0
	log.Info("Game %s created with %d rounds", game.ID, game.TotalRounds)

	s.broadcastGameState(ctx)
	s.sendGameData(ctx)

	created := game
	return &created, nil
}

// transition applies a lifecycle action, persisting it before the
// in-memory game changes.
func (s *Session) transition(ctx context.Context, actor types.Identity, action messages.GameAction, fromRound int) (*types.Game, error) {
	if actor.Role != types.RoleOperator {
		return nil, &ErrAuthorization{PlayerID: actor.PlayerID, Reason: "only operators can change the game state"}
	}
	if s.game == nil {
		return nil, &ErrNoGame{}
	}

	var next types.Game
	var err error
	switch action {
	case messages.GameActionStart:
		next, err = Start(*s.game)
	case messages.GameActionAdvance:
		next, err = AdvanceRound(*s.game, fromRound)
	case messages.GameActionEnd:
		if s.game.IsEnded() {
			current := *s.game
			return &current, nil
		}
		next, err = End(*s.game)
	default:
		return nil, &ErrInvalidCommand{Reason: fmt.Sprintf("unknown game action %q", action)}
	}
	if err != nil {
		return nil, err
	}

	if err := s.repository.UpdateGame(ctx, &next); err != nil {
		return nil, &ErrTransientPersistence{Op: "update game", Err: err}
	}

	s.game = &next
	s.elapsed = 0
	log.Info("Game %s %s: status %s, round %d of %d", next.ID, action, next.Status, next.CurrentRound, next.TotalRounds)
	s.broadcastGameState(ctx)

	result := next
	return &result, nil
}

func (s *Session) submitTariffs(ctx context.Context, player *types.Player, update *messages.ClientTariffUpdate) ([]types.TariffRecord, error) {
	records, err := s.ledger.Stage(s.game, player, update.Round, update.FromCountry, update.Changes, s.now().UnixMilli())
	if err != nil {
		return nil, err
	}

	if err := s.repository.InsertTariffRecords(ctx, s.game.ID, records); err != nil {
		return nil, &ErrTransientPersistence{Op: "insert tariff records", Err: err}
	}
	s.ledger.Commit(records)

	for i := range records {
		s.emit(ctx, workers.ServerMessage{
			Type:     messages.MessageTypeServerTariffUpdated,
			Message:  records[i],
			Audience: workers.AudienceAll(),
		})
	}
	return records, nil
}

func (s *Session) sendChat(ctx context.Context, player *types.Player, send *messages.ClientSendMessage) (*types.ChatMessage, error) {
	content := strings.TrimSpace(send.Content)
	if content == "" {
		return nil, &ErrInvalidCommand{Reason: "message is empty"}
	}
	if len(content) > constants.MaxChatMessageLength {
		return nil, &ErrInvalidCommand{Reason: fmt.Sprintf("message is longer than %d bytes", constants.MaxChatMessageLength)}
	}

	msg := types.ChatMessage{
		ID:            uuid.NewString(),
		SenderID:      player.ID,
		SenderName:    player.Name,
		SenderCountry: player.Country,
		Content:       content,
		MessageType:   send.MessageType,
		Timestamp:     s.now().UnixMilli(),
	}

	audience := workers.AudienceAll()
	switch send.MessageType {
	case types.ChatMessageTypeGroup, "":
		msg.MessageType = types.ChatMessageTypeGroup
	case types.ChatMessageTypePrivate:
		if !send.RecipientCountry.Valid() {
			return nil, &ErrInvalidCommand{Reason: fmt.Sprintf("unknown recipient country %q", send.RecipientCountry)}
		}
		msg.RecipientCountry = send.RecipientCountry
		recipients := append([]string{player.ID}, s.registry.PlayerIDsByCountry(send.RecipientCountry)...)
		audience = workers.AudiencePlayers(recipients...)
	default:
		return nil, &ErrInvalidCommand{Reason: fmt.Sprintf("unknown message type %q", send.MessageType)}
	}

	s.chat = append(s.chat, msg)
	s.emit(ctx, workers.ServerMessage{
		Type:     messages.MessageTypeServerNewMessage,
		Message:  msg,
		Audience: audience,
	})
	return &msg, nil
}

// requestCountry assigns a country to the player if one is free. When none
// is, the player is told so and may ask again later.
func (s *Session) requestCountry(ctx context.Context, player *types.Player) types.Country {
	hadCountry := player.Country != ""
	country, ok := s.registry.Assign(player.ID)
	if ok && !hadCountry {
		assigned, _ := s.registry.Player(player.ID)
		s.broadcastUserStatus(ctx, assigned)
		s.broadcastCountryAssigned(ctx, assigned)
	}
	if !ok && player.Role == types.RolePlayer {
		s.emit(ctx, workers.ServerMessage{
			Type: messages.MessageTypeRequestCountryAssignment,
			Message: &messages.RequestCountryAssignment{
				UserID: player.ID,
				Reason: "no countries available",
			},
			Audience: workers.AudiencePlayers(player.ID),
		})
	}
	return country
}

// advanceTimer decrements the round timer once per elapsed second.
func (s *Session) advanceTimer(ctx context.Context, t time.Time) {
	if s.lastTick.IsZero() {
		s.lastTick = t
		return
	}
	delta := t.Sub(s.lastTick)
	s.lastTick = t

	if s.game == nil || s.game.Status != types.GameStatusActive || s.game.TimeRemaining == 0 {
		s.elapsed = 0
		return
	}

	s.elapsed += delta
	seconds := int(s.elapsed / time.Second)
	if seconds == 0 {
		return
	}
	s.elapsed -= time.Duration(seconds) * time.Second

	next := Tick(*s.game, seconds)
	s.game = &next
	s.emit(ctx, workers.ServerMessage{
		Type: messages.MessageTypeServerRoundTimer,
		Message: &messages.RoundTimerUpdated{
			GameID:        next.ID,
			CurrentRound:  next.CurrentRound,
			TimeRemaining: next.TimeRemaining,
		},
		Audience: workers.AudienceAll(),
	})
}

// sweepPresence releases the countries of players gone longer than the
// release window and offers them to players still waiting.
func (s *Session) sweepPresence(ctx context.Context, t time.Time) {
	released := s.registry.Sweep(t)
	if len(released) == 0 {
		return
	}
	for _, p := range released {
		log.Info("Released country %s held by offline player %s", p.Country, p.ID)
	}

	for _, id := range s.registry.Unassigned() {
		if _, ok := s.registry.Assign(id); !ok {
			break
		}
		player, _ := s.registry.Player(id)
		s.broadcastUserStatus(ctx, player)
		s.broadcastCountryAssigned(ctx, player)
	}
	s.emit(ctx, workers.ServerMessage{
		Type:     messages.MessageTypeServerOnlineUsers,
		Message:  s.onlineUsers(),
		Audience: workers.AudienceAll(),
	})
}

// emit hands a message to the fan-out worker.
func (s *Session) emit(ctx context.Context, msg workers.ServerMessage) {
	select {
	case s.serverMessageChan <- msg:
	case <-ctx.Done():
	}
}

func (s *Session) ack(ctx context.Context, message *messages.Message, ack *messages.ServerAck, err error) {
	if err != nil {
		ack = &messages.ServerAck{
			OK:    false,
			Error: errorPayload(err),
		}
	} else {
		if ack == nil {
			ack = &messages.ServerAck{}
		}
		ack.OK = true
	}
	s.emit(ctx, workers.ServerMessage{
		Type:      messages.MessageTypeServerAck,
		RequestID: message.RequestID,
		Message:   ack,
		Audience:  workers.AudienceClients(message.ClientID),
	})
}

func errorPayload(err error) *messages.ErrorPayload {
	payload := &messages.ErrorPayload{
		Code:    ErrorCode(err),
		Message: err.Error(),
	}
	if e, ok := err.(*ErrInvalidTransition); ok {
		payload.Status = e.Status
		payload.CurrentRound = e.CurrentRound
		payload.TotalRounds = e.TotalRounds
	}
	return payload
}

func (s *Session) broadcastGameState(ctx context.Context) {
	s.emit(ctx, workers.ServerMessage{
		Type:     messages.MessageTypeServerGameStateChanged,
		Message:  messages.GameStateChangedFromGame(s.game),
		Audience: workers.AudienceAll(),
	})
}

func (s *Session) broadcastUserStatus(ctx context.Context, player *types.Player) {
	status := messages.UserStatusFromPlayer(player)
	s.emit(ctx, workers.ServerMessage{
		Type:     messages.MessageTypeServerUserStatusUpdate,
		Message:  &status,
		Audience: workers.AudienceAll(),
	})
}

func (s *Session) broadcastCountryAssigned(ctx context.Context, player *types.Player) {
	s.emit(ctx, workers.ServerMessage{
		Type: messages.MessageTypeCountryAssigned,
		Message: &messages.CountryAssigned{
			UserID:  player.ID,
			Country: player.Country,
		},
		Audience: workers.AudienceAll(),
	})
}

// sendGameData sends every online player the baseline it is allowed to see.
func (s *Session) sendGameData(ctx context.Context) {
	for _, player := range s.registry.OnlinePlayers() {
		s.emit(ctx, workers.ServerMessage{
			Type:     messages.MessageTypeServerGameDataUpdated,
			Message:  s.gameDataFor(player),
			Audience: workers.AudiencePlayers(player.ID),
		})
	}
}
