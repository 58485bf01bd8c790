package websocket

import (
	"context"
	"net/http"

	"gridguardian-backend/internal/auth"
	"gridguardian-backend/internal/domain/graph"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StateFunc returns the graph state a new client starts from.
type StateFunc func(ctx context.Context) graph.State

// ServerConfig holds websocket server configuration.
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string
	MaxConnections  int
}

// DefaultServerConfig returns the default websocket server configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		AllowedOrigins:  []string{"*"},
		MaxConnections:  1000,
	}
}

// Server upgrades HTTP requests and attaches the connections to the hub.
type Server struct {
	hub       *Hub
	upgrader  websocket.Upgrader
	validator *auth.Validator
	state     StateFunc
	maxConns  int
	logger    *zap.Logger
}

// NewServer creates a Server. A nil validator disables authentication.
func NewServer(hub *Hub, validator *auth.Validator, state StateFunc, config *ServerConfig, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     checkOrigin(config.AllowedOrigins),
		},
		validator: validator,
		state:     state,
		maxConns:  config.MaxConnections,
		logger:    logger,
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket upgrades the request, sends the current graph state and
// then every state the hub broadcasts.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	var subject string
	if s.validator != nil {
		claims, err := s.validator.Validate(auth.TokenFromRequest(r))
		if err != nil {
			s.logger.Warn("WebSocket authentication failed",
				zap.Error(err),
				zap.String("remoteAddr", r.RemoteAddr),
			)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		subject = claims.Subject
	}

	if s.maxConns > 0 && s.hub.ClientCount() >= s.maxConns {
		s.logger.Warn("Connection limit exceeded", zap.Int("limit", s.maxConns))
		http.Error(w, "Connection limit exceeded", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(subject, s.hub, conn, s.logger)

	ctx := r.Context()
	initial := func() [][]byte {
		established, _ := EncodeMessage(MessageConnectionEstablished, map[string]string{
			"connectionId": client.ID(),
		})
		state, err := EncodeMessage(MessageGraphState, s.state(ctx))
		if err != nil {
			s.logger.Error("Failed to encode initial state", zap.Error(err))
			return [][]byte{established}
		}
		return [][]byte{established, state}
	}

	if !client.Start(initial) {
		return
	}

	s.logger.Info("New WebSocket connection established",
		zap.String("connectionID", client.ID()),
		zap.String("remoteAddr", r.RemoteAddr),
	)
}
