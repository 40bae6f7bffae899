package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/example/joywood/internal/services"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	ledger   *services.Ledger
	telegram *services.TelegramService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(ledger *services.Ledger, telegram *services.TelegramService) *OrderHandler {
	return &OrderHandler{ledger: ledger, telegram: telegram}
}

type createOrderRequest struct {
	OrderCode string          `json:"order_code"`
	Channel   string          `json:"channel"`
	Amount    decimal.Decimal `json:"amount"`
}

// CreateOrder adds an order to a known client.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	clientID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.ledger.CreateOrder(c.UserContext(), services.CreateOrderInput{
		ClientID:  clientID,
		OrderCode: req.OrderCode,
		Channel:   req.Channel,
		Amount:    req.Amount,
		Actor:     actorOf(c),
	})
	if err != nil {
		return err
	}
	return created(c, result)
}

// CreateOrderByCode adds an order identified by its external code.
func (h *OrderHandler) CreateOrderByCode(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.ledger.CreateOrderByCode(c.UserContext(), services.CreateOrderByCodeInput{
		OrderCode: req.OrderCode,
		Channel:   req.Channel,
		Amount:    req.Amount,
		Actor:     actorOf(c),
	})
	if err != nil {
		return err
	}

	if result.IsNew && h.telegram != nil {
		go h.notifyNewClient(*result)
	}

	return created(c, result)
}

func (h *OrderHandler) notifyNewClient(result services.OrderResult) {
	code := ""
	if result.Order.OrderCode != nil {
		code = *result.Order.OrderCode
	}

	if err := h.telegram.NotifyNewClient(services.NewClientNotification{
		ClientName:   result.Client.Name,
		OrderCode:    code,
		Amount:       result.Order.Amount,
		WelcomeBreed: result.WelcomeBreed,
		Actor:        result.Order.CreatedBy,
	}); err != nil {
		log.Printf("[Order] new client notification for order %s failed: %v", result.Order.ID, err)
	}
}

type updateOrderRequest struct {
	Amount    *decimal.Decimal `json:"amount"`
	OrderCode *string          `json:"order_code"`
	Comment   *string          `json:"comment"`
}

// UpdateOrder changes amount, code or comment of an order.
func (h *OrderHandler) UpdateOrder(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req updateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.ledger.UpdateOrder(c.UserContext(), id, services.UpdateOrderInput{
		Amount:    req.Amount,
		OrderCode: req.OrderCode,
		Comment:   req.Comment,
	})
	if err != nil {
		return err
	}
	return ok(c, order)
}

// SaveMagnetComment stores a note about the magnet packed with an order.
func (h *OrderHandler) SaveMagnetComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.ledger.SaveMagnetComment(c.UserContext(), id, req.Comment); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "comment saved"})
}

// DeleteOrder removes an order with its magnets and bonuses.
func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	result, err := h.ledger.DeleteOrder(c.UserContext(), id,
		c.QueryBool("return_magnets", false),
		c.QueryBool("return_bonuses", false),
	)
	if err != nil {
		return err
	}
	return ok(c, result)
}

// RemoveMagnet deletes a magnet and returns it to stock.
func (h *OrderHandler) RemoveMagnet(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	magnet, err := h.ledger.RemoveMagnet(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"id": magnet.ID, "breed": magnet.Breed})
}
