package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/NomadCrew/oweather-bot/internal/command"
	"github.com/NomadCrew/oweather-bot/internal/text"
	"github.com/NomadCrew/oweather-bot/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommandRouter(t *testing.T) *gin.Engine {
	t.Helper()

	specs, err := command.DefaultSpecs()
	require.NoError(t, err)
	d, err := command.NewDispatcher(specs, text.AOML{}, "Weatherbot")
	require.NoError(t, err)

	require.NoError(t, d.Register(command.CommandOWeather, func(ctx context.Context, req command.Request, reply command.Replier) error {
		return reply.Reply(ctx, "Weather for "+req.Args[0]+" from "+req.Sender)
	}))
	require.NoError(t, d.Register(command.CommandForecast, func(ctx context.Context, req command.Request, reply command.Replier) error {
		return errors.New("reply channel closed")
	}))

	r := newTestRouter()
	r.POST("/v1/commands", NewCommandHandler(d).HandleCommand)
	return r
}

func TestCommandHandler_Reply(t *testing.T) {
	r := newCommandRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/commands", types.CommandRequest{
		Sender:  "Alice",
		Message: "oweather Berlin,DE",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var reply types.CommandReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "oweather", reply.Command)
	assert.Equal(t, "Weather for Berlin,DE from Alice", reply.Text)
}

func TestCommandHandler_Help(t *testing.T) {
	r := newCommandRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/commands", types.CommandRequest{
		Sender:  "Alice",
		Message: "help oweather",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var reply types.CommandReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "help", reply.Command)
	assert.Contains(t, reply.Text, "Help (oweather)")
	assert.Contains(t, reply.Text, "/tell Weatherbot oweather")
}

func TestCommandHandler_Errors(t *testing.T) {
	r := newCommandRouter(t)

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "unmatched message",
			body:           types.CommandRequest{Sender: "Alice", Message: "hello there"},
			expectedStatus: http.StatusNotFound,
			expectedType:   "NOT_FOUND",
		},
		{
			name:           "missing sender",
			body:           map[string]string{"message": "oweather Berlin"},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "VALIDATION_ERROR",
		},
		{
			name:           "handler failure",
			body:           types.CommandRequest{Sender: "Alice", Message: "forecast Oslo"},
			expectedStatus: http.StatusInternalServerError,
			expectedType:   "SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/v1/commands", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedType, body["type"])
		})
	}
}
