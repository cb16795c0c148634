package websocket

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NomadCrew/oweather-bot/config"
	"github.com/NomadCrew/oweather-bot/internal/command"
	"github.com/NomadCrew/oweather-bot/internal/text"
	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/NomadCrew/oweather-bot/services"
	"github.com/NomadCrew/oweather-bot/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func init() {
	logger.IsTest = true
}

// rejectingPool never accepts a job.
type rejectingPool struct{}

func (rejectingPool) Submit(services.Job) bool { return false }

func newTestDispatcher(t *testing.T) *command.Dispatcher {
	t.Helper()

	specs, err := command.DefaultSpecs()
	require.NoError(t, err)
	d, err := command.NewDispatcher(specs, text.Plain{}, "Weatherbot")
	require.NoError(t, err)

	require.NoError(t, d.Register(command.CommandOWeather, func(ctx context.Context, req command.Request, reply command.Replier) error {
		return reply.Reply(ctx, "Sunny in "+req.Args[0]+" for "+req.Sender)
	}))
	require.NoError(t, d.Register(command.CommandForecast, func(ctx context.Context, req command.Request, reply command.Replier) error {
		return errors.New("formatter exploded")
	}))
	return d
}

func startServer(t *testing.T, pool JobSubmitter) (*Handler, *websocket.Conn) {
	t.Helper()

	cfg := DefaultHubConfig()
	cfg.PingInterval = time.Hour
	h := NewHandler(NewHub(cfg), newTestDispatcher(t), pool,
		&config.ServerConfig{Environment: config.EnvDevelopment}, cfg)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	return h, conn
}

func startPool(t *testing.T) *services.CommandWorkerPool {
	t.Helper()

	pool := services.NewCommandWorkerPool(config.WorkerPoolConfig{
		MaxWorkers:        2,
		QueueSize:         8,
		JobTimeoutSeconds: 5,
	})
	pool.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})
	return pool
}

type serverFrame struct {
	Type    string              `json:"type"`
	Payload *types.CommandReply `json:"payload,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg interface{}) serverFrame {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, wsjson.Write(ctx, conn, msg))
	var frame serverFrame
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	return frame
}

func commandFrame(sender, message string) map[string]interface{} {
	return map[string]interface{}{
		"type":    MessageTypeCommand,
		"payload": map[string]string{"sender": sender, "message": message},
	}
}

func TestHandler_CommandReply(t *testing.T) {
	_, conn := startServer(t, startPool(t))

	frame := roundTrip(t, conn, commandFrame("Alice", "oweather Berlin"))

	assert.Equal(t, MessageTypeReply, frame.Type)
	require.NotNil(t, frame.Payload)
	assert.Equal(t, "oweather", frame.Payload.Command)
	assert.Equal(t, "Sunny in Berlin for Alice", frame.Payload.Text)
}

func TestHandler_SenderDefaultsToConnection(t *testing.T) {
	h, conn := startServer(t, startPool(t))

	frame := roundTrip(t, conn, commandFrame("", "oweather Oslo"))

	require.NotNil(t, frame.Payload)
	assert.True(t, strings.HasPrefix(frame.Payload.Text, "Sunny in Oslo for "))
	assert.NotEqual(t, "Sunny in Oslo for ", frame.Payload.Text)
	assert.Equal(t, 1, h.GetHub().GetConnectionCount())
}

func TestHandler_Errors(t *testing.T) {
	_, conn := startServer(t, startPool(t))

	tests := []struct {
		name          string
		msg           interface{}
		expectedError string
	}{
		{"unmatched", commandFrame("Alice", "hello"), "No command matches: hello"},
		{"empty message", commandFrame("Alice", ""), "Invalid command: message required"},
		{"unknown type", map[string]string{"type": "subscribe"}, "Unknown message type: subscribe"},
		{"handler error", commandFrame("Alice", "forecast Oslo"), "Command failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := roundTrip(t, conn, tt.msg)
			assert.Equal(t, MessageTypeError, frame.Type)
			assert.Equal(t, tt.expectedError, frame.Error)
		})
	}
}

func TestHandler_Ping(t *testing.T) {
	_, conn := startServer(t, startPool(t))

	frame := roundTrip(t, conn, map[string]string{"type": MessageTypePing})
	assert.Equal(t, MessageTypePong, frame.Type)
}

func TestHandler_PoolFull(t *testing.T) {
	_, conn := startServer(t, rejectingPool{})

	frame := roundTrip(t, conn, commandFrame("Alice", "oweather Berlin"))
	assert.Equal(t, MessageTypeError, frame.Type)
	assert.Equal(t, "The bot is busy, try again later", frame.Error)
}

func TestHub_SendAfterUnregister(t *testing.T) {
	hub := NewHub()
	conn := hub.Register(nil)

	assert.True(t, hub.Send(conn.ID, ServerMessage{Type: MessageTypePong}))
	assert.Equal(t, 1, hub.GetConnectionCount())

	hub.Unregister(conn.ID)
	assert.True(t, conn.IsClosed())
	assert.False(t, hub.Send(conn.ID, ServerMessage{Type: MessageTypePong}))
	assert.False(t, conn.send(ServerMessage{Type: MessageTypePong}))
	assert.Equal(t, 0, hub.GetConnectionCount())
}

func TestHub_Shutdown(t *testing.T) {
	hub := NewHub()
	a := hub.Register(nil)
	b := hub.Register(nil)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.True(t, a.IsClosed())
	assert.True(t, b.IsClosed())
	assert.Equal(t, 0, hub.GetConnectionCount())
}

func TestHandler_AcceptOptions(t *testing.T) {
	h := NewHandler(NewHub(), nil, rejectingPool{}, &config.ServerConfig{
		Environment:    config.EnvProduction,
		AllowedOrigins: []string{"https://ops.example.com", "http://localhost:3000"},
	})
	opts := h.getAcceptOptions()
	assert.False(t, opts.InsecureSkipVerify)
	assert.Equal(t, []string{"ops.example.com", "localhost:3000"}, opts.OriginPatterns)
}
