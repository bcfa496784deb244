package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/cbodonnell/econempire/pkg/messages"
	"nhooyr.io/websocket"
)

// WSServer represents a WebSocket server.
type WSServer struct {
	port           int
	tls            *TLSConfig
	originPatterns []string
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewWSServerOptions struct {
	Port int
	TLS  *TLSConfig
	// OriginPatterns lists the allowed origin hosts; "*" allows any origin
	OriginPatterns []string
}

// NewWSServer creates a new WebSocket server.
func NewWSServer(opts NewWSServerOptions) *WSServer {
	return &WSServer{
		port:           opts.Port,
		tls:            opts.TLS,
		originPatterns: opts.OriginPatterns,
	}
}

// ConnectionHandler serves one accepted connection until it closes.
type ConnectionHandler func(ctx context.Context, conn *websocket.Conn)

// Handler returns the HTTP handler that upgrades requests and serves them
// with handler. Connections live until ctx is done or the peer goes away.
func (s *WSServer) Handler(ctx context.Context, handler ConnectionHandler) http.Handler {
	acceptOptions := &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	}
	for _, p := range s.originPatterns {
		if p == "*" {
			acceptOptions.InsecureSkipVerify = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, acceptOptions)
		if err != nil {
			log.Error("Failed to upgrade to WebSocket: %v", err)
			return
		}
		log.Debug("New WebSocket connection from %s", r.RemoteAddr)
		handler(ctx, conn)
	})
}

// Start starts the WebSocket server and blocks until ctx is done.
func (s *WSServer) Start(ctx context.Context, handler ConnectionHandler) error {
	addr := fmt.Sprintf(":%d", s.port)
	server := &http.Server{Addr: addr, Handler: s.Handler(ctx, handler)}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	var listenAndServe func() error
	if s.tls != nil {
		log.Info("WebSocket server listening on %s with TLS", addr)
		listenAndServe = func() error {
			return server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("WebSocket server listening on %s", addr)
		listenAndServe = server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("WebSocket server closed")
			return nil
		}
		return fmt.Errorf("websocket server error: %v", err)
	}
	return nil
}

// WriteMessageToWS writes a Message to a WebSocket connection
func WriteMessageToWS(ctx context.Context, conn *websocket.Conn, msg *messages.Message) error {
	b, err := messages.SerializeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		return fmt.Errorf("failed to write message to WebSocket connection: %v", err)
	}

	return nil
}

// ErrInvalidMessage is returned by ReadMessageFromWS when a frame was read
// but could not be decoded. The connection is still usable.
type ErrInvalidMessage struct {
	Err error
}

func (e *ErrInvalidMessage) Error() string {
	return fmt.Sprintf("invalid message: %v", e.Err)
}

func (e *ErrInvalidMessage) Unwrap() error { return e.Err }

func IsInvalidMessage(err error) bool {
	var e *ErrInvalidMessage
	return errors.As(err, &e)
}

// ReadMessageFromWS reads a Message from a WebSocket connection
func ReadMessageFromWS(ctx context.Context, conn *websocket.Conn) (*messages.Message, error) {
	_, b, err := conn.Read(ctx)
	if err != nil {
		return nil, err
	}

	msg, err := messages.DeserializeMessage(b)
	if err != nil {
		return nil, &ErrInvalidMessage{Err: err}
	}

	return msg, nil
}
