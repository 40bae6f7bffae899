package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/example/joywood/internal/services"
)

// InventoryHandler manages magnet and bonus stock.
type InventoryHandler struct {
	guard *services.InventoryGuard
}

// NewInventoryHandler constructs InventoryHandler.
func NewInventoryHandler(guard *services.InventoryGuard) *InventoryHandler {
	return &InventoryHandler{guard: guard}
}

// List returns stock per breed.
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	items, err := h.guard.ListInventory(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, items)
}

type upsertInventoryRequest struct {
	Items []services.InventoryItem `json:"items"`
}

// Upsert sets stock for several breeds at once.
func (h *InventoryHandler) Upsert(c *fiber.Ctx) error {
	var req upsertInventoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.guard.UpsertInventory(c.UserContext(), req.Items)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"updated": updated})
}

type breedActiveRequest struct {
	Active *bool `json:"active"`
}

// SetActive enables or withdraws a breed.
func (h *InventoryHandler) SetActive(c *fiber.Ctx) error {
	breed, err := url.PathUnescape(c.Params("breed"))
	if err != nil || breed == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid breed")
	}

	var req breedActiveRequest
	if err := c.BodyParser(&req); err != nil || req.Active == nil {
		return fiber.NewError(fiber.StatusBadRequest, "active is required")
	}

	if err := h.guard.SetBreedActive(c.UserContext(), breed, *req.Active); err != nil {
		return err
	}
	return ok(c, fiber.Map{"breed": breed, "active": *req.Active})
}

// ListBonusStock returns stock per bonus reward.
func (h *InventoryHandler) ListBonusStock(c *fiber.Ctx) error {
	stock, err := h.guard.ListBonusStock(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, stock)
}

type bonusStockRequest struct {
	Reward string `json:"reward"`
	Stock  int    `json:"stock"`
}

// SetBonusStock overwrites the stock of a bonus reward.
func (h *InventoryHandler) SetBonusStock(c *fiber.Ctx) error {
	var req bonusStockRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.guard.SetBonusStock(c.UserContext(), req.Reward, req.Stock); err != nil {
		return err
	}
	return ok(c, fiber.Map{"reward": req.Reward, "stock": req.Stock})
}
