package handlers

import (
	"net/http"

	apperrors "github.com/NomadCrew/oweather-bot/errors"
	"github.com/NomadCrew/oweather-bot/internal/command"
	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/NomadCrew/oweather-bot/types"
	"github.com/gin-gonic/gin"
)

// CommandHandler runs chat commands submitted over HTTP.
type CommandHandler struct {
	dispatcher CommandDispatcher
}

func NewCommandHandler(dispatcher CommandDispatcher) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher}
}

// HandleCommand handles POST /v1/commands. Bot-level failures such as a
// missing API key are a normal reply with status 200.
func (h *CommandHandler) HandleCommand(c *gin.Context) {
	var req types.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	spec, _, ok := h.dispatcher.Match(req.Message)
	if !ok {
		_ = c.Error(apperrors.New(apperrors.NotFoundError, "No command matches the message", req.Message))
		return
	}

	var reply command.BufferReplier
	handled, err := h.dispatcher.Handle(c.Request.Context(), req.Sender, req.Message, &reply)
	if err != nil {
		logger.GetLogger().Errorw("Command failed",
			"command", spec.Name,
			"sender", req.Sender,
			"request_id", c.GetString("request_id"),
			"error", err)
		_ = c.Error(apperrors.InternalServerError("Command failed"))
		return
	}
	if !handled {
		_ = c.Error(apperrors.New(apperrors.NotFoundError, "No command matches the message", req.Message))
		return
	}

	c.JSON(http.StatusOK, types.CommandReply{
		Command: spec.Name,
		Text:    reply.Text(),
	})
}
