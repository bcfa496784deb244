package workers

import (
	"context"

	gametypes "github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/cbodonnell/econempire/pkg/network"
	"github.com/cbodonnell/econempire/pkg/queue"
)

// ClientCloser closes the connection of a client.
type ClientCloser interface {
	CloseClient(clientID uint32)
}

type ConnectionEventWorker struct {
	connectionEventChan <-chan network.ConnectionEvent
	serverEventQueue    queue.Queue
	clientCloser        ClientCloser
}

type NewConnectionEventWorkerOptions struct {
	ConnectionEventChan <-chan network.ConnectionEvent
	ServerEventQueue    queue.Queue
	// ClientCloser drops clients whose connect event could not be queued
	ClientCloser ClientCloser
}

// NewConnectionEventWorker creates a new ConnectionEventWorker.
// The worker processes client events like connect and disconnect
// and writes server events to a queue for the game loop to process.
func NewConnectionEventWorker(opts NewConnectionEventWorkerOptions) *ConnectionEventWorker {
	return &ConnectionEventWorker{
		connectionEventChan: opts.ConnectionEventChan,
		serverEventQueue:    opts.ServerEventQueue,
		clientCloser:        opts.ClientCloser,
	}
}

func (w *ConnectionEventWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.connectionEventChan:
			switch event.Type {
			case network.ConnectionEventTypeConnect:
				w.handleClientConnect(event)
			case network.ConnectionEventTypeDisconnect:
				w.handleClientDisconnect(event)
			default:
				log.Error("Unknown client event type: %v", event.Type)
			}
		}
	}
}

func (w *ConnectionEventWorker) handleClientConnect(event network.ConnectionEvent) {
	data, ok := event.Data.(network.ClientConnectData)
	if !ok {
		log.Error("Failed to cast client connect data")
		return
	}

	if err := w.serverEventQueue.Enqueue(&gametypes.ConnectPlayerEvent{
		ClientID: event.ClientID,
		Identity: data.Identity,
	}); err != nil {
		// the session would never see this client, so drop it and let it reconnect
		log.Error("Failed to enqueue connect player event for client %d, closing it: %v", event.ClientID, err)
		if w.clientCloser != nil {
			w.clientCloser.CloseClient(event.ClientID)
		}
	}
}

func (w *ConnectionEventWorker) handleClientDisconnect(event network.ConnectionEvent) {
	if err := w.serverEventQueue.Enqueue(&gametypes.DisconnectPlayerEvent{
		ClientID: event.ClientID,
	}); err != nil {
		log.Error("Failed to enqueue disconnect player event: %v", err)
	}
}
