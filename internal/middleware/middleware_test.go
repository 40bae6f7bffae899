package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/joywood/internal/config"
	"github.com/example/joywood/internal/services"
	"github.com/example/joywood/internal/utils"
)

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestApp() *fiber.App {
	cfg := &config.Config{JWTSecret: "test-secret"}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})

	app.Get("/conflict", func(c *fiber.Ctx) error {
		return &services.LedgerError{Kind: services.KindConflict, Message: "already issued"}
	})
	app.Get("/stock", func(c *fiber.Ctx) error {
		return &services.LedgerError{Kind: services.KindOutOfStock, Message: "no stock"}
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("db down")
	})
	app.Get("/me", AuthMiddleware(cfg), func(c *fiber.Ctx) error {
		actor, ok := GetActor(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		return c.SendString(actor)
	})
	return app
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{path: "/conflict", status: http.StatusConflict, code: "conflict"},
		{path: "/stock", status: http.StatusBadRequest, code: "out_of_stock"},
		{path: "/boom", status: http.StatusInternalServerError, code: "internal"},
		{path: "/missing", status: http.StatusNotFound, code: "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			body := decodeError(t, resp)
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	app := newTestApp()

	token, err := utils.GenerateToken("test-secret", "olga", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	forged, err := utils.GenerateToken("other-secret", "olga", time.Hour)
	require.NoError(t, err)
	for _, header := range []string{"", "Bearer " + forged, "Token " + token} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, header)
		assert.Equal(t, "unauthorized", decodeError(t, resp).Error.Code)
	}
}
