package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/joywood/internal/models"
	"github.com/example/joywood/internal/services"
)

// ClientHandler manages clients, their magnets and bonuses.
type ClientHandler struct {
	ledger   *services.Ledger
	telegram *services.TelegramService
}

// NewClientHandler constructs ClientHandler.
func NewClientHandler(ledger *services.Ledger, telegram *services.TelegramService) *ClientHandler {
	return &ClientHandler{ledger: ledger, telegram: telegram}
}

type addClientRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Channel       string `json:"channel"`
	OzonOrderCode string `json:"ozon_order_code"`
}

// AddClient creates a client from the manager panel.
func (h *ClientHandler) AddClient(c *fiber.Ctx) error {
	var req addClientRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	client, err := h.ledger.AddClient(c.UserContext(), services.AddClientInput{
		Name:          req.Name,
		Phone:         req.Phone,
		Channel:       req.Channel,
		OzonOrderCode: req.OzonOrderCode,
		Actor:         actorOf(c),
	})
	if err != nil {
		return err
	}
	return created(c, client)
}

type updateClientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UpdateClient changes a client's name or phone.
func (h *ClientHandler) UpdateClient(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req updateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	client, err := h.ledger.UpdateClient(c.UserContext(), id, req.Name, req.Phone)
	if err != nil {
		return err
	}
	return ok(c, client)
}

type commentRequest struct {
	Comment string `json:"comment"`
}

// UpdateComment replaces the manager comment of a client.
func (h *ClientHandler) UpdateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.ledger.UpdateClientComment(c.UserContext(), id, req.Comment); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "comment saved"})
}

// DeleteClient removes a client with all their data.
func (h *ClientHandler) DeleteClient(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.ledger.DeleteClientCascade(c.UserContext(), id); err != nil {
		return err
	}
	log.Printf("[Client] %s deleted client %s", actorOf(c), id)
	return c.JSON(fiber.Map{"success": true, "message": "client deleted"})
}

// ListMagnets returns a client's magnets.
func (h *ClientHandler) ListMagnets(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	magnets, err := h.ledger.ListMagnets(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, magnets)
}

type issueMagnetRequest struct {
	Breed    string `json:"breed"`
	Stars    int    `json:"stars"`
	Category string `json:"category"`
}

// IssueMagnet hands a magnet to a client.
func (h *ClientHandler) IssueMagnet(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req issueMagnetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	issued, err := h.ledger.IssueMagnet(c.UserContext(), services.IssueMagnetInput{
		ClientID: id,
		Breed:    req.Breed,
		Stars:    req.Stars,
		Category: req.Category,
	})
	if err != nil {
		return err
	}

	if issued.StockAfter == 0 && h.telegram != nil {
		go func(breed string) {
			if err := h.telegram.NotifyStockDepleted(breed); err != nil {
				log.Printf("[Magnet] stock notification for %s failed: %v", breed, err)
			}
		}(issued.Breed)
	}

	return created(c, issued)
}

// ListBonuses returns a client's granted bonuses.
func (h *ClientHandler) ListBonuses(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	bonuses, err := h.ledger.ListBonuses(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, bonuses)
}

type grantBonusRequest struct {
	MilestoneCount int    `json:"milestone_count"`
	MilestoneType  string `json:"milestone_type"`
	Reward         string `json:"reward"`
	OrderID        string `json:"order_id"`
}

// GrantBonus hands out a milestone reward.
func (h *ClientHandler) GrantBonus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req grantBonusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	in := services.GrantBonusInput{
		ClientID:       id,
		MilestoneCount: req.MilestoneCount,
		MilestoneType:  models.MilestoneType(req.MilestoneType),
		Reward:         req.Reward,
	}
	if req.OrderID != "" {
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order_id")
		}
		in.OrderID = &orderID
	}

	bonus, err := h.ledger.GrantBonus(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, bonus)
}

// Milestones lists reached milestones that were not granted yet.
func (h *ClientHandler) Milestones(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	pending, err := h.ledger.EvaluatePendingMilestones(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, pending)
}
