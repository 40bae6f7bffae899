package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/joywood/internal/services"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindNotFound:     fiber.StatusNotFound,
	services.KindConflict:     fiber.StatusConflict,
	services.KindOutOfStock:   fiber.StatusBadRequest,
	services.KindInvalidInput: fiber.StatusBadRequest,
}

var statusCode = map[int]string{
	fiber.StatusBadRequest:       "bad_request",
	fiber.StatusUnauthorized:     "unauthorized",
	fiber.StatusForbidden:        "forbidden",
	fiber.StatusNotFound:         "not_found",
	fiber.StatusMethodNotAllowed: "method_not_allowed",
	fiber.StatusConflict:         "conflict",
}

// ErrorHandler renders ledger and fiber errors as the JSON error envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "internal"
	message := "Internal Server Error"

	if le, ok := services.AsLedgerError(err); ok {
		status = kindStatus[le.Kind]
		code = string(le.Kind)
		message = le.Error()
	} else if e, ok := err.(*fiber.Error); ok {
		status = e.Code
		message = e.Message
		if name, ok := statusCode[e.Code]; ok {
			code = name
		} else {
			code = "error"
		}
	} else {
		log.Printf("[HTTP] %s %s failed: %v", c.Method(), c.Path(), err)
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}
