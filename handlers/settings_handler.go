package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/NomadCrew/oweather-bot/errors"
	"github.com/NomadCrew/oweather-bot/internal/settings"
	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/NomadCrew/oweather-bot/middleware"
	"github.com/NomadCrew/oweather-bot/types"
	"github.com/gin-gonic/gin"
)

// SettingsHandler exposes bot settings to operators. Routes sit behind
// middleware.AuthMiddleware.
type SettingsHandler struct {
	manager SettingsManager
}

func NewSettingsHandler(manager SettingsManager) *SettingsHandler {
	return &SettingsHandler{manager: manager}
}

type settingResponse struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
	AccessLevel string `json:"access_level"`
}

type updateSettingRequest struct {
	Value *string `json:"value" binding:"required"`
}

// ListSettings handles GET /v1/settings.
func (h *SettingsHandler) ListSettings(c *gin.Context) {
	defs := h.manager.Definitions()
	out := make([]settingResponse, 0, len(defs))
	for _, def := range defs {
		value, err := h.manager.Get(c.Request.Context(), def.Name)
		if err != nil {
			_ = c.Error(apperrors.NewStorageError(err))
			return
		}
		out = append(out, h.response(def, value))
	}
	c.JSON(http.StatusOK, out)
}

// GetSetting handles GET /v1/settings/:name.
func (h *SettingsHandler) GetSetting(c *gin.Context) {
	name := c.Param("name")
	def, ok := h.manager.Definition(name)
	if !ok {
		_ = c.Error(apperrors.NotFound("Setting", name))
		return
	}

	value, err := h.manager.Get(c.Request.Context(), name)
	if err != nil {
		_ = c.Error(apperrors.NewStorageError(err))
		return
	}
	c.JSON(http.StatusOK, h.response(def, value))
}

// UpdateSetting handles PUT /v1/settings/:name. The caller's access level
// must reach the setting's.
func (h *SettingsHandler) UpdateSetting(c *gin.Context) {
	name := c.Param("name")
	def, ok := h.manager.Definition(name)
	if !ok {
		_ = c.Error(apperrors.NotFound("Setting", name))
		return
	}

	level := middleware.GetAccessLevel(c)
	if !level.Allows(def.AccessLevel) {
		_ = c.Error(apperrors.Forbidden("Insufficient access level",
			"setting "+name+" requires "+string(def.AccessLevel)))
		return
	}

	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	err := h.manager.Set(c.Request.Context(), name, *req.Value)
	switch {
	case errors.Is(err, settings.ErrInvalidValue):
		_ = c.Error(apperrors.ValidationFailed("Invalid setting value", err.Error()))
		return
	case errors.Is(err, settings.ErrUnknownSetting):
		_ = c.Error(apperrors.NotFound("Setting", name))
		return
	case err != nil:
		_ = c.Error(apperrors.NewStorageError(err))
		return
	}

	logger.GetLogger().Infow("Setting changed over API",
		"name", name,
		"subject", c.GetString(middleware.SubjectKey),
		"access_level", level)

	c.JSON(http.StatusOK, types.SettingValue{
		Name:  name,
		Value: h.manager.Display(def, *req.Value),
	})
}

func (h *SettingsHandler) response(def settings.Definition, value string) settingResponse {
	return settingResponse{
		Name:        def.Name,
		Value:       h.manager.Display(def, value),
		Description: def.Description,
		AccessLevel: string(def.AccessLevel),
	}
}
