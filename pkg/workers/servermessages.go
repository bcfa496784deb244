package workers

import (
	"context"
	"fmt"

	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/cbodonnell/econempire/pkg/messages"
)

const (
	// ServerMessageChannelSize represents the size of the server message channel
	ServerMessageChannelSize = 1024
)

// Audience selects the connections a server message is delivered to.
type Audience struct {
	All       bool
	ClientIDs []uint32
	PlayerIDs []string
}

func AudienceAll() Audience {
	return Audience{All: true}
}

func AudienceClients(clientIDs ...uint32) Audience {
	return Audience{ClientIDs: clientIDs}
}

func AudiencePlayers(playerIDs ...string) Audience {
	return Audience{PlayerIDs: playerIDs}
}

// ServerMessage is an event produced by the game session for delivery to clients.
type ServerMessage struct {
	Type      messages.MessageType
	RequestID string
	Message   interface{}
	Audience  Audience
}

// Broadcaster hands serialized messages to client connections.
type Broadcaster interface {
	SendToAll(msg *messages.Message)
	SendToClients(clientIDs []uint32, msg *messages.Message)
	SendToPlayers(playerIDs []string, msg *messages.Message)
}

type ServerMessageWorker struct {
	broadcaster       Broadcaster
	serverMessageChan <-chan ServerMessage
}

type NewServerMessageWorkerOptions struct {
	Broadcaster       Broadcaster
	ServerMessageChan <-chan ServerMessage
}

// NewServerMessageWorker creates a new ServerMessageWorker.
// The worker serializes messages from the game loop and fans them out
// to the connections of their audience.
func NewServerMessageWorker(opts NewServerMessageWorkerOptions) *ServerMessageWorker {
	return &ServerMessageWorker{
		broadcaster:       opts.Broadcaster,
		serverMessageChan: opts.ServerMessageChan,
	}
}

func (w *ServerMessageWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.serverMessageChan:
			if err := w.handleServerMessage(msg); err != nil {
				log.Error("Failed to handle server message %s: %v", msg.Type, err)
			}
		}
	}
}

func (w *ServerMessageWorker) handleServerMessage(sm ServerMessage) error {
	msg, err := messages.NewMessage(sm.Type, sm.RequestID, sm.Message)
	if err != nil {
		return fmt.Errorf("failed to build message: %v", err)
	}

	switch {
	case sm.Audience.All:
		w.broadcaster.SendToAll(msg)
	case len(sm.Audience.ClientIDs) > 0 || len(sm.Audience.PlayerIDs) > 0:
		if len(sm.Audience.ClientIDs) > 0 {
			w.broadcaster.SendToClients(sm.Audience.ClientIDs, msg)
		}
		if len(sm.Audience.PlayerIDs) > 0 {
			w.broadcaster.SendToPlayers(sm.Audience.PlayerIDs, msg)
		}
	default:
		log.Trace("Dropping %s message with no audience", sm.Type)
	}

	return nil
}
