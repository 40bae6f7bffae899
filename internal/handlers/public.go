package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/joywood/internal/services"
)

// PublicHandler serves the client-facing promotion endpoints.
type PublicHandler struct {
	ledger        *services.Ledger
	registrations *services.RegistrationService
	collections   *services.CollectionService
	consents      *services.ConsentService
}

// NewPublicHandler constructs PublicHandler.
func NewPublicHandler(ledger *services.Ledger, registrations *services.RegistrationService, collections *services.CollectionService, consents *services.ConsentService) *PublicHandler {
	return &PublicHandler{ledger: ledger, registrations: registrations, collections: collections, consents: consents}
}

type registerRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	OzonOrderCode string `json:"ozon_order_code"`
}

// Register links a client's contact data to the promotion.
func (h *PublicHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := h.registrations.Register(c.UserContext(), services.RegisterInput{
		Name:          req.Name,
		Phone:         req.Phone,
		OzonOrderCode: req.OzonOrderCode,
	})
	if err != nil {
		return err
	}
	return ok(c, res)
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

// Collection returns the client's collection looked up by phone.
func (h *PublicHandler) Collection(c *fiber.Ctx) error {
	var req phoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	view, err := h.collections.Collection(c.UserContext(), req.Phone)
	if err != nil {
		return err
	}
	return ok(c, view)
}

type scanRequest struct {
	Phone string `json:"phone"`
	Breed string `json:"breed"`
}

// Scan reveals a magnet the client received.
func (h *PublicHandler) Scan(c *fiber.Ctx) error {
	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := h.ledger.Scan(c.UserContext(), req.Phone, req.Breed)
	if err != nil {
		return err
	}
	return ok(c, res)
}

type consentRequest struct {
	Phone         string `json:"phone"`
	PolicyVersion string `json:"policy_version"`
}

// SaveConsent records acceptance of the privacy policy.
func (h *PublicHandler) SaveConsent(c *fiber.Ctx) error {
	var req consentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.consents.Save(c.UserContext(), services.ConsentInput{
		Phone:         req.Phone,
		PolicyVersion: req.PolicyVersion,
		IPAddress:     c.IP(),
		UserAgent:     c.Get(fiber.HeaderUserAgent),
	}); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "consent saved"})
}
