package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/NomadCrew/oweather-bot/config"
	"github.com/NomadCrew/oweather-bot/internal/command"
	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/NomadCrew/oweather-bot/services"
	"github.com/NomadCrew/oweather-bot/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Message types.
const (
	MessageTypeCommand = "command"
	MessageTypePing    = "ping"
	MessageTypePong    = "pong"
	MessageTypeReply   = "reply"
	MessageTypeError   = "error"
)

// Dispatcher is implemented by *command.Dispatcher.
type Dispatcher interface {
	Match(message string) (command.Spec, []string, bool)
	Handle(ctx context.Context, sender, message string, reply command.Replier) (bool, error)
}

// JobSubmitter is implemented by *services.CommandWorkerPool.
type JobSubmitter interface {
	Submit(job services.Job) bool
}

// ClientMessage represents a message from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message to the client.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Handler upgrades requests to chat connections.
type Handler struct {
	log            *zap.SugaredLogger
	hub            *Hub
	dispatcher     Dispatcher
	pool           JobSubmitter
	pingInterval   time.Duration
	writeTimeout   time.Duration
	readLimit      int64
	allowedOrigins []string
	isDevelopment  bool
}

// NewHandler creates a new WebSocket handler. Commands run on pool.
func NewHandler(hub *Hub, dispatcher Dispatcher, pool JobSubmitter, serverCfg *config.ServerConfig, cfg ...HubConfig) *Handler {
	hubCfg := DefaultHubConfig()
	if len(cfg) > 0 {
		hubCfg = cfg[0]
	}
	return &Handler{
		log:            logger.GetLogger().Named("websocket_handler"),
		hub:            hub,
		dispatcher:     dispatcher,
		pool:           pool,
		pingInterval:   hubCfg.PingInterval,
		writeTimeout:   hubCfg.WriteTimeout,
		readLimit:      hubCfg.ReadLimit,
		allowedOrigins: serverCfg.AllowedOrigins,
		isDevelopment:  serverCfg.Environment == config.EnvDevelopment,
	}
}

// getAcceptOptions allows any origin in development and the configured
// origins otherwise.
func (h *Handler) getAcceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}

	if h.isDevelopment || containsWildcard(h.allowedOrigins) {
		opts.InsecureSkipVerify = true
	} else {
		// OriginPatterns match the host part only.
		for _, origin := range h.allowedOrigins {
			if i := strings.Index(origin, "://"); i >= 0 {
				origin = origin[i+3:]
			}
			opts.OriginPatterns = append(opts.OriginPatterns, origin)
		}
	}

	return opts
}

// HandleWebSocket handles GET /v1/ws.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	h.ServeHTTP(c.Writer, c.Request)
}

// ServeHTTP upgrades the request and runs the connection until either side
// closes it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.getAcceptOptions())
	if err != nil {
		h.log.Warnw("Failed to accept WebSocket connection", "error", err)
		return
	}
	conn.SetReadLimit(h.readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	connection := h.hub.Register(conn)
	defer h.hub.Unregister(connection.ID)

	h.log.Infow("WebSocket connection established",
		"connectionID", connection.ID,
		"remote_addr", r.RemoteAddr)

	errCh := make(chan error, 3)
	go func() { errCh <- h.readLoop(ctx, conn, connection) }()
	go func() { errCh <- h.writeLoop(ctx, conn, connection) }()
	go func() { errCh <- h.pingLoop(ctx, conn) }()

	err = <-errCh
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
		websocket.CloseStatus(err) != websocket.StatusGoingAway && ctx.Err() == nil {
		h.log.Warnw("WebSocket connection error",
			"connectionID", connection.ID,
			"error", err)
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, connection *Connection) error {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		h.handleClientMessage(connection, msg)
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, connection *Connection) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-connection.SendChannel():
			if !ok {
				return nil
			}

			writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := wsjson.Write(writeCtx, conn, msg)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Handler) handleClientMessage(connection *Connection, msg ClientMessage) {
	switch msg.Type {
	case MessageTypePing:
		connection.send(ServerMessage{Type: MessageTypePong})

	case MessageTypeCommand:
		var req types.CommandRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil || req.Message == "" {
			connection.send(ServerMessage{Type: MessageTypeError, Error: "Invalid command: message required"})
			return
		}
		if req.Sender == "" {
			req.Sender = connection.ID
		}
		h.submitCommand(connection, req)

	default:
		h.log.Debugw("Unknown message type from client",
			"connectionID", connection.ID,
			"type", msg.Type)
		connection.send(ServerMessage{Type: MessageTypeError, Error: "Unknown message type: " + msg.Type})
	}
}

// submitCommand runs req on the worker pool. The reply is sent to the
// connection if it is still open.
func (h *Handler) submitCommand(connection *Connection, req types.CommandRequest) {
	spec, _, ok := h.dispatcher.Match(req.Message)
	if !ok {
		connection.send(ServerMessage{Type: MessageTypeError, Error: "No command matches: " + req.Message})
		return
	}

	connID := connection.ID
	job := services.Job{
		Name: "ws:" + spec.Name,
		Execute: func(ctx context.Context) error {
			reply := command.ReplierFunc(func(_ context.Context, text string) error {
				if !h.hub.Send(connID, ServerMessage{
					Type:    MessageTypeReply,
					Payload: types.CommandReply{Command: spec.Name, Text: text},
				}) {
					h.log.Debugw("Dropped reply for closed connection",
						"connectionID", connID,
						"command", spec.Name)
				}
				return nil
			})

			_, err := h.dispatcher.Handle(ctx, req.Sender, req.Message, reply)
			if err != nil {
				h.hub.Send(connID, ServerMessage{Type: MessageTypeError, Error: "Command failed"})
			}
			return err
		},
	}

	if !h.pool.Submit(job) {
		connection.send(ServerMessage{Type: MessageTypeError, Error: "The bot is busy, try again later"})
	}
}

// GetHub returns the hub for testing or advanced usage.
func (h *Handler) GetHub() *Hub {
	return h.hub
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
