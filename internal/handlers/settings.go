package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/joywood/internal/services"
)

// SettingsHandler exposes application settings.
type SettingsHandler struct {
	settings *services.SettingsService
}

// NewSettingsHandler constructs SettingsHandler.
func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// List returns every setting.
func (h *SettingsHandler) List(c *fiber.Ctx) error {
	all, err := h.settings.All(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, all)
}

type settingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Save creates or replaces a setting.
func (h *SettingsHandler) Save(c *fiber.Ctx) error {
	var req settingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.settings.Set(c.UserContext(), req.Key, req.Value); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "setting saved"})
}
