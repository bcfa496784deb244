package network

import (
	"context"
	"fmt"
	"net/http"
	"time"

	authproviders "github.com/cbodonnell/econempire/pkg/auth/providers"
	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/cbodonnell/econempire/pkg/messages"
	"github.com/cbodonnell/econempire/pkg/queue"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

const (
	DefaultLoginTimeout      = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultHeartbeatTimeout  = 5 * time.Second
)

// Error codes the network layer answers with before a command reaches the game loop.
const (
	CodeRateLimited    = "rate_limited"
	CodeOverloaded     = "overloaded"
	CodeInvalidMessage = "invalid_message"
)

type NetworkManager struct {
	AuthProvider  authproviders.AuthProvider
	ClientManager *ClientManager
	MessageQueue  queue.Queue
	WSServer      *WSServer

	loginTimeout      time.Duration
	writeTimeout      time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	rateLimit         rate.Limit
	rateBurst         int
	sendQueueSize     int
}

type NewNetworkManagerOptions struct {
	AuthProvider      authproviders.AuthProvider
	ClientManager     *ClientManager
	MessageQueue      queue.Queue
	WSPort            int
	WSServerTLS       *TLSConfig
	OriginPatterns    []string
	LoginTimeout      time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	// CommandRateLimit is the sustained number of commands per second a connection may send
	CommandRateLimit float64
	CommandBurst     int
	SendQueueSize    int
}

func NewNetworkManager(options NewNetworkManagerOptions) *NetworkManager {
	n := &NetworkManager{
		AuthProvider:  options.AuthProvider,
		ClientManager: options.ClientManager,
		MessageQueue:  options.MessageQueue,
		WSServer: NewWSServer(NewWSServerOptions{
			Port:           options.WSPort,
			TLS:            options.WSServerTLS,
			OriginPatterns: options.OriginPatterns,
		}),
		loginTimeout:      options.LoginTimeout,
		writeTimeout:      DefaultWriteTimeout,
		heartbeatInterval: options.HeartbeatInterval,
		heartbeatTimeout:  options.HeartbeatTimeout,
		rateLimit:         rate.Limit(options.CommandRateLimit),
		rateBurst:         options.CommandBurst,
		sendQueueSize:     options.SendQueueSize,
	}
	if n.loginTimeout <= 0 {
		n.loginTimeout = DefaultLoginTimeout
	}
	if n.heartbeatInterval <= 0 {
		n.heartbeatInterval = DefaultHeartbeatInterval
	}
	if n.heartbeatTimeout <= 0 {
		n.heartbeatTimeout = DefaultHeartbeatTimeout
	}
	if n.rateLimit <= 0 {
		n.rateLimit = rate.Inf
	}
	return n
}

// Start serves WebSocket connections until ctx is done.
func (n *NetworkManager) Start(ctx context.Context) error {
	return n.WSServer.Start(ctx, n.handleConnection)
}

// Handler returns the WebSocket handler without starting a listener.
func (n *NetworkManager) Handler(ctx context.Context) http.Handler {
	return n.WSServer.Handler(ctx, n.handleConnection)
}

// handleConnection authenticates a connection and serves it until it closes.
func (n *NetworkManager) handleConnection(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(messages.MessageBufferSize)

	identity, err := n.login(ctx, conn)
	if err != nil {
		log.Warn("Client login failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := rate.NewLimiter(n.rateLimit, n.rateBurst)
	client := NewClient(conn, *identity, n.sendQueueSize, limiter, cancel)
	clientID, err := n.ClientManager.ConnectClient(client, n.queueLoginSuccess)
	if err != nil {
		log.Error("Failed to connect client: %v", err)
		return
	}
	client.logger.Info("Client connected")
	defer func() {
		n.ClientManager.DisconnectClient(clientID)
		client.logger.Info("Client disconnected")
	}()

	go n.writeLoop(ctx, client)
	go n.heartbeat(ctx, client)
	n.readLoop(ctx, client)
}

// login waits for the first message, which must be a login carrying a token
// the identity provider accepts.
func (n *NetworkManager) login(ctx context.Context, conn *websocket.Conn) (*types.Identity, error) {
	loginCtx, cancel := context.WithTimeout(ctx, n.loginTimeout)
	defer cancel()

	message, err := ReadMessageFromWS(loginCtx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read login message: %v", err)
	}
	if message.Type != messages.MessageTypeClientLogin {
		n.rejectLogin(ctx, conn, message.RequestID, "first message must be a login")
		return nil, fmt.Errorf("expected login message, got %s", message.Type)
	}

	clientLogin := &messages.ClientLogin{}
	if err := messages.DecodePayload(message, clientLogin); err != nil {
		n.rejectLogin(ctx, conn, message.RequestID, "malformed login")
		return nil, err
	}

	claims, err := n.AuthProvider.VerifyToken(ctx, clientLogin.Token)
	if err != nil {
		n.rejectLogin(ctx, conn, message.RequestID, "invalid token")
		return nil, err
	}

	identity := claims.Identity()
	return &identity, nil
}

func (n *NetworkManager) rejectLogin(ctx context.Context, conn *websocket.Conn, requestID string, reason string) {
	msg, err := messages.NewMessage(messages.MessageTypeServerLoginFailure, requestID, &messages.ServerLoginFailure{
		Reason: reason,
	})
	if err != nil {
		log.Error("Failed to build login failure: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, n.writeTimeout)
	defer cancel()
	if err := WriteMessageToWS(writeCtx, conn, msg); err != nil {
		log.Debug("Failed to send login failure: %v", err)
	}
	conn.Close(websocket.StatusPolicyViolation, reason)
}

func (n *NetworkManager) queueLoginSuccess(client *Client) {
	msg, err := messages.NewMessage(messages.MessageTypeServerLoginSuccess, "", &messages.ServerLoginSuccess{
		ClientID: client.ID,
		PlayerID: client.Identity.PlayerID,
		Name:     client.Identity.Name,
		Role:     client.Identity.Role,
		Country:  client.Identity.Country,
	})
	if err != nil {
		log.Error("Failed to build login success: %v", err)
		return
	}
	n.deliver(client, msg)
}

func (n *NetworkManager) readLoop(ctx context.Context, client *Client) {
	for {
		message, err := ReadMessageFromWS(ctx, client.conn)
		if err != nil {
			if IsInvalidMessage(err) {
				client.logger.Warn("Client sent an invalid message: %v", err)
				n.nack(client, "", CodeInvalidMessage, err.Error())
				continue
			}
			if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
				client.logger.Debug("Error reading from client: %v", err)
			}
			return
		}

		if !client.limiter.Allow() {
			n.nack(client, message.RequestID, CodeRateLimited, "too many commands")
			continue
		}

		if message.Type == messages.MessageTypeClientLogin {
			client.logger.Warn("Client sent a second login message")
			continue
		}

		message.ClientID = client.ID
		if err := n.MessageQueue.Enqueue(message); err != nil {
			client.logger.Error("Failed to enqueue message from client: %v", err)
			n.nack(client, message.RequestID, CodeOverloaded, "server is busy, retry later")
		}
	}
}

func (n *NetworkManager) writeLoop(ctx context.Context, client *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-client.send:
			writeCtx, cancel := context.WithTimeout(ctx, n.writeTimeout)
			err := client.conn.Write(writeCtx, websocket.MessageText, b)
			cancel()
			if err != nil {
				client.logger.Debug("Failed to write to client: %v", err)
				client.Close()
				return
			}
		}
	}
}

// heartbeat pings the client and drops the connection when a pong does not
// arrive within the heartbeat timeout.
func (n *NetworkManager) heartbeat(ctx context.Context, client *Client) {
	ticker := time.NewTicker(n.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, n.heartbeatTimeout)
			err := client.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					client.logger.Info("Client missed heartbeat: %v", err)
				}
				client.Close()
				return
			}
		}
	}
}

func (n *NetworkManager) nack(client *Client, requestID string, code string, reason string) {
	msg, err := messages.NewMessage(messages.MessageTypeServerAck, requestID, &messages.ServerAck{
		OK: false,
		Error: &messages.ErrorPayload{
			Code:    code,
			Message: reason,
		},
	})
	if err != nil {
		log.Error("Failed to build ack: %v", err)
		return
	}
	n.deliver(client, msg)
}

// deliver queues msg for client. A client whose queue is full is
// disconnected and expected to resync on reconnect.
func (n *NetworkManager) deliver(client *Client, msg *messages.Message) {
	b, err := messages.SerializeMessage(msg)
	if err != nil {
		log.Error("Failed to serialize %s message: %v", msg.Type, err)
		return
	}
	n.deliverBytes(client, b)
}

func (n *NetworkManager) deliverBytes(client *Client, b []byte) {
	if !client.enqueue(b) {
		client.logger.Warn("Send queue full, disconnecting")
		client.Close()
	}
}

func (n *NetworkManager) SendToAll(msg *messages.Message) {
	b, err := messages.SerializeMessage(msg)
	if err != nil {
		log.Error("Failed to serialize %s message: %v", msg.Type, err)
		return
	}
	for _, client := range n.ClientManager.GetClients() {
		n.deliverBytes(client, b)
	}
}

func (n *NetworkManager) SendToClients(clientIDs []uint32, msg *messages.Message) {
	b, err := messages.SerializeMessage(msg)
	if err != nil {
		log.Error("Failed to serialize %s message: %v", msg.Type, err)
		return
	}
	for _, id := range clientIDs {
		client, err := n.ClientManager.GetClient(id)
		if err != nil {
			log.Debug("Skipping %s for client %d: %v", msg.Type, id, err)
			continue
		}
		n.deliverBytes(client, b)
	}
}

func (n *NetworkManager) SendToPlayers(playerIDs []string, msg *messages.Message) {
	b, err := messages.SerializeMessage(msg)
	if err != nil {
		log.Error("Failed to serialize %s message: %v", msg.Type, err)
		return
	}
	for _, client := range n.ClientManager.GetClientsForPlayers(playerIDs) {
		n.deliverBytes(client, b)
	}
}
