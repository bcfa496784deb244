package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cbodonnell/econempire/pkg/client/state"
	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/cbodonnell/econempire/pkg/messages"
	"github.com/cbodonnell/econempire/pkg/network"
	"github.com/cenkalti/backoff/v5"
	"nhooyr.io/websocket"
)

const (
	DefaultServerURL      = "ws://localhost:8888"
	DefaultMaxTries       = 8
	DefaultInitialBackoff = 250 * time.Millisecond
	DefaultLoginTimeout   = 10 * time.Second
	// EventChannelSize is the number of server messages buffered for the consumer
	EventChannelSize = 256
)

// ConnectionState is the state of the connection to the server.
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateConnected
	StateReconnecting
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ErrLoginFailed is returned when the server rejects the login token.
// It is never retried.
type ErrLoginFailed struct {
	Reason string
}

func (e *ErrLoginFailed) Error() string {
	return fmt.Sprintf("server login failure: %s", e.Reason)
}

func IsLoginFailed(err error) bool {
	var e *ErrLoginFailed
	return errors.As(err, &e)
}

var ErrNotConnected = errors.New("not connected to server")

// ErrNotSynced is returned by Send between a login and the snapshot that
// follows it. Commands sent in that window would be rejected by the server.
var ErrNotSynced = errors.New("waiting for the server snapshot")

// NetworkManager keeps a connection to the game server, reconnecting with
// exponential backoff, and applies every server message to a projection.
type NetworkManager struct {
	serverURL      string
	token          string
	maxTries       uint
	initialBackoff time.Duration
	loginTimeout   time.Duration

	projection *state.Projection
	events     chan *messages.Message

	connLock sync.RWMutex
	conn     *websocket.Conn
	login    *messages.ServerLoginSuccess
	// synced is set once the snapshot for the current connection is applied
	synced bool

	stateLock sync.RWMutex
	state     ConnectionState
	onState   func(ConnectionState)

	requestCounter uint64
}

type NewNetworkManagerOptions struct {
	ServerURL      string
	Token          string
	MaxTries       uint
	InitialBackoff time.Duration
	LoginTimeout   time.Duration
	Projection     *state.Projection
	// OnStateChange is called from the connection goroutine on every state change.
	OnStateChange func(ConnectionState)
}

func NewNetworkManager(opts NewNetworkManagerOptions) *NetworkManager {
	m := &NetworkManager{
		serverURL:      opts.ServerURL,
		token:          opts.Token,
		maxTries:       opts.MaxTries,
		initialBackoff: opts.InitialBackoff,
		loginTimeout:   opts.LoginTimeout,
		projection:     opts.Projection,
		events:         make(chan *messages.Message, EventChannelSize),
		onState:        opts.OnStateChange,
	}
	if m.serverURL == "" {
		m.serverURL = DefaultServerURL
	}
	if m.maxTries == 0 {
		m.maxTries = DefaultMaxTries
	}
	if m.initialBackoff <= 0 {
		m.initialBackoff = DefaultInitialBackoff
	}
	if m.loginTimeout <= 0 {
		m.loginTimeout = DefaultLoginTimeout
	}
	if m.projection == nil {
		m.projection = state.NewProjection()
	}
	return m
}

func (m *NetworkManager) Projection() *state.Projection {
	return m.projection
}

// Events returns every message received from the server after it was
// applied to the projection. Messages are dropped if the consumer falls behind.
func (m *NetworkManager) Events() <-chan *messages.Message {
	return m.events
}

func (m *NetworkManager) State() ConnectionState {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	return m.state
}

func (m *NetworkManager) setState(s ConnectionState) {
	m.stateLock.Lock()
	changed := m.state != s
	m.state = s
	m.stateLock.Unlock()
	if changed {
		log.Debug("Connection state changed to %s", s)
		if m.onState != nil {
			m.onState(s)
		}
	}
}

// LoginInfo returns the result of the last successful login.
func (m *NetworkManager) LoginInfo() (*messages.ServerLoginSuccess, bool) {
	m.connLock.RLock()
	defer m.connLock.RUnlock()
	return m.login, m.login != nil
}

// Start connects to the server and keeps the connection alive until ctx is
// done or reconnecting gives up. It returns nil when ctx is done.
func (m *NetworkManager) Start(ctx context.Context) error {
	defer close(m.events)
	m.setState(StateConnecting)

	for {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = m.initialBackoff

		conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
			return m.connect(ctx)
		},
			backoff.WithBackOff(b),
			backoff.WithMaxTries(m.maxTries),
			backoff.WithNotify(func(err error, next time.Duration) {
				log.Warn("Failed to connect to %s, retrying in %s: %v", m.serverURL, next, err)
			}),
		)
		if err != nil {
			m.setState(StateDisconnected)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to connect to server: %w", err)
		}

		m.setState(StateConnected)
		err = m.readLoop(ctx, conn)

		m.connLock.Lock()
		m.conn = nil
		m.synced = false
		m.connLock.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")

		if ctx.Err() != nil {
			m.setState(StateDisconnected)
			return nil
		}
		log.Warn("Lost connection to server: %v", err)
		m.setState(StateReconnecting)
	}
}

// connect dials the server and logs in. Login rejections are permanent.
func (m *NetworkManager) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, m.serverURL, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(messages.MessageBufferSize)

	loginCtx, cancel := context.WithTimeout(ctx, m.loginTimeout)
	defer cancel()

	login, err := messages.NewMessage(messages.MessageTypeClientLogin, "", &messages.ClientLogin{Token: m.token})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, backoff.Permanent(err)
	}
	if err := network.WriteMessageToWS(loginCtx, conn, login); err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, err
	}

	msg, err := network.ReadMessageFromWS(loginCtx, conn)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, err
	}
	switch msg.Type {
	case messages.MessageTypeServerLoginSuccess:
		success := &messages.ServerLoginSuccess{}
		if err := messages.DecodePayload(msg, success); err != nil {
			conn.Close(websocket.StatusProtocolError, "")
			return nil, err
		}
		log.Info("Logged in as %s with client ID %d", success.PlayerID, success.ClientID)

		m.connLock.Lock()
		m.conn = conn
		m.login = success
		m.synced = false
		m.connLock.Unlock()
		return conn, nil
	case messages.MessageTypeServerLoginFailure:
		failure := &messages.ServerLoginFailure{}
		_ = messages.DecodePayload(msg, failure)
		conn.Close(websocket.StatusNormalClosure, "")
		return nil, backoff.Permanent(&ErrLoginFailed{Reason: failure.Reason})
	default:
		conn.Close(websocket.StatusProtocolError, "")
		return nil, fmt.Errorf("expected login response, got %s", msg.Type)
	}
}

// readLoop is the single consumer of server messages for a connection.
func (m *NetworkManager) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		msg, err := network.ReadMessageFromWS(ctx, conn)
		if err != nil {
			if network.IsInvalidMessage(err) {
				log.Error("Dropping message from server: %v", err)
				continue
			}
			return err
		}
		log.Trace("Received message from server of type %s", msg.Type)

		if err := m.projection.Apply(msg); err != nil {
			log.Error("Failed to apply %s: %v", msg.Type, err)
		} else if msg.Type == messages.MessageTypeServerSnapshot {
			m.connLock.Lock()
			m.synced = true
			m.connLock.Unlock()
		}

		select {
		case m.events <- msg:
		default:
			log.Warn("Event consumer is behind, dropped %s", msg.Type)
		}
	}
}

// Synced reports whether the projection holds the snapshot of the current
// connection.
func (m *NetworkManager) Synced() bool {
	m.connLock.RLock()
	defer m.connLock.RUnlock()
	return m.conn != nil && m.synced
}

// Send sends a command to the server and returns the request ID the ack
// will carry. It fails with ErrNotSynced until the server snapshot for the
// current connection has been applied.
func (m *NetworkManager) Send(ctx context.Context, t messages.MessageType, payload interface{}) (string, error) {
	m.connLock.RLock()
	conn, synced := m.conn, m.synced
	m.connLock.RUnlock()
	if conn == nil {
		return "", ErrNotConnected
	}
	if !synced {
		return "", ErrNotSynced
	}

	requestID := fmt.Sprintf("c%d", atomic.AddUint64(&m.requestCounter, 1))
	msg, err := messages.NewMessage(t, requestID, payload)
	if err != nil {
		return "", err
	}
	if err := network.WriteMessageToWS(ctx, conn, msg); err != nil {
		return "", fmt.Errorf("failed to send %s: %v", t, err)
	}
	return requestID, nil
}
