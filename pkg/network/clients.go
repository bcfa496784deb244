package network

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/log"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

const (
	// ClientIDMaxRetries represents the maximum number of retries when generating a unique ID
	ClientIDMaxRetries = 1024
	// ConnectionEventChannelSize represents the size of the connection event channel
	ConnectionEventChannelSize = 1024
	// ClientSendQueueSize represents the default number of messages buffered per client
	ClientSendQueueSize = 256
)

// Client represents an authenticated connection
type Client struct {
	ID       uint32
	Identity types.Identity
	conn     *websocket.Conn
	// send is drained by the connection's writer goroutine
	send    chan []byte
	limiter *rate.Limiter
	cancel  context.CancelFunc
	logger  *log.Logger
}

// NewClient creates a client for conn. cancel tears the connection down.
func NewClient(conn *websocket.Conn, identity types.Identity, sendQueueSize int, limiter *rate.Limiter, cancel context.CancelFunc) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = ClientSendQueueSize
	}
	return &Client{
		Identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
		limiter:  limiter,
		cancel:   cancel,
		logger:   log.With("playerID", identity.PlayerID),
	}
}

// enqueue queues b for the writer without blocking. It returns false when
// the send queue is full.
func (c *Client) enqueue(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close cancels the client's connection context.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// ConnectionEvent represents an event that happened to a client
type ConnectionEvent struct {
	ClientID uint32
	Type     ConnectionEventType
	Data     interface{}
}

// ConnectionEventType represents the type of a connection event
type ConnectionEventType int

const (
	ConnectionEventTypeConnect ConnectionEventType = iota
	ConnectionEventTypeDisconnect
)

type ClientConnectData struct {
	Identity types.Identity
}

// ClientManager manages connected clients
type ClientManager struct {
	clients             map[uint32]*Client
	clientsLock         sync.RWMutex
	connectionEventChan chan ConnectionEvent
}

// NewClientManager creates a new ClientManager
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:             make(map[uint32]*Client),
		connectionEventChan: make(chan ConnectionEvent, ConnectionEventChannelSize),
	}
}

// GetConnectionEventChan returns a one-way channel for receiving connection events
func (cm *ClientManager) GetConnectionEventChan() <-chan ConnectionEvent {
	return cm.connectionEventChan
}

// GetClients returns a slice of all connected clients.
func (cm *ClientManager) GetClients() []*Client {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	clients := make([]*Client, 0, len(cm.clients))
	for _, client := range cm.clients {
		clients = append(clients, client)
	}
	return clients
}

// GetClient returns the client with the given ID
func (cm *ClientManager) GetClient(clientID uint32) (*Client, error) {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	client, ok := cm.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client %d not found", clientID)
	}
	return client, nil
}

// GetClientsForPlayers returns every connection of the given players.
func (cm *ClientManager) GetClientsForPlayers(playerIDs []string) []*Client {
	want := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		want[id] = true
	}

	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	var clients []*Client
	for _, client := range cm.clients {
		if want[client.Identity.PlayerID] {
			clients = append(clients, client)
		}
	}
	return clients
}

// ConnectClient registers a client and returns its new ID. greet runs with
// the ID assigned and before the connect event is emitted, so anything it
// queues reaches the client ahead of messages caused by the event.
func (cm *ClientManager) ConnectClient(client *Client, greet func(c *Client)) (uint32, error) {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()

	clientID, err := cm.generateUniqueID(ClientIDMaxRetries)
	if err != nil {
		return 0, fmt.Errorf("failed to generate a unique ID: %v", err)
	}
	client.ID = clientID
	client.logger = client.logger.With("clientID", clientID)
	cm.clients[clientID] = client

	if greet != nil {
		greet(client)
	}

	cm.connectionEventChan <- ConnectionEvent{
		ClientID: clientID,
		Type:     ConnectionEventTypeConnect,
		Data: ClientConnectData{
			Identity: client.Identity,
		},
	}

	return clientID, nil
}

// DisconnectClient removes a client from the manager
func (cm *ClientManager) DisconnectClient(clientID uint32) {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()

	client, ok := cm.clients[clientID]
	if !ok {
		return
	}

	cm.connectionEventChan <- ConnectionEvent{
		ClientID: client.ID,
		Type:     ConnectionEventTypeDisconnect,
	}

	delete(cm.clients, clientID)
}

// CloseClient tears down the connection of a client. The disconnect event
// follows once its connection handler returns.
func (cm *ClientManager) CloseClient(clientID uint32) {
	cm.clientsLock.RLock()
	client, ok := cm.clients[clientID]
	cm.clientsLock.RUnlock()
	if ok {
		client.Close()
	}
}

func (cm *ClientManager) Exists(clientID uint32) bool {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	_, ok := cm.clients[clientID]
	return ok
}

// generateUniqueID generates a unique client ID with a maximum number of retries
// it reads from the clients, so it needs to be locked before calling
func (cm *ClientManager) generateUniqueID(maxRetries int) (uint32, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		id := rand.Uint32()
		if id == 0 {
			continue
		}
		if _, ok := cm.clients[id]; !ok {
			return id, nil
		}
	}

	return 0, fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}
