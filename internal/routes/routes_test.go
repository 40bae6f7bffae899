package routes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/joywood/internal/config"
	"github.com/example/joywood/internal/database/dbtest"
	"github.com/example/joywood/internal/middleware"
	"github.com/example/joywood/internal/models"
	"github.com/example/joywood/internal/routes"
	"github.com/example/joywood/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t     *testing.T
	app   *fiber.App
	db    *gorm.DB
	token string
}

func newServer(t *testing.T) *testServer {
	t.Helper()

	db := dbtest.New(t)
	cfg := &config.Config{
		JWTSecret:       "test-secret",
		WelcomeBreed:    "Падук",
		WelcomeStars:    2,
		WelcomeCategory: "Особенный",
		RatingTTL:       time.Minute,
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	routes.Register(app, db, cfg)

	token, err := utils.GenerateToken(cfg.JWTSecret, "manager", time.Hour)
	require.NoError(t, err)
	return &testServer{t: t, app: app, db: db, token: token}
}

func (s *testServer) do(method, path string, body any, auth bool) (int, envelope) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestManagerRoutesRequireToken(t *testing.T) {
	s := newServer(t)

	status, env := s.do(http.MethodPost, "/api/orders", map[string]any{"order_code": "555-1"}, false)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, "unauthorized", env.Error.Code)
}

func TestOrderToScanFlow(t *testing.T) {
	s := newServer(t)

	status, _ := s.do(http.MethodPut, "/api/inventory", map[string]any{"items": []map[string]any{
		{"breed": "Падук", "stars": 2, "category": "Особенный", "stock": 3},
		{"breed": "Дуб", "stars": 1, "category": "Обычный", "stock": 2},
	}}, true)
	require.Equal(t, http.StatusOK, status)

	status, env := s.do(http.MethodPost, "/api/orders", map[string]any{"order_code": "555-1", "amount": 1200}, true)
	require.Equal(t, http.StatusCreated, status)
	order := decode[struct {
		IsNew        bool          `json:"is_new"`
		WelcomeGiven bool          `json:"welcome_given"`
		Client       models.Client `json:"client"`
		Order        models.Order  `json:"order"`
	}](t, env.Data)
	assert.True(t, order.IsNew)
	assert.True(t, order.WelcomeGiven)
	assert.Equal(t, "manager", order.Order.CreatedBy)

	status, env = s.do(http.MethodPost, "/api/register", map[string]any{"name": "Анна", "phone": "+7 912 345-67-89", "ozon_order_code": "555-1"}, false)
	require.Equal(t, http.StatusOK, status)
	registered := decode[struct {
		Merged bool `json:"merged"`
	}](t, env.Data)
	assert.True(t, registered.Merged)

	magnetsPath := "/api/clients/" + order.Client.ID.String() + "/magnets"
	issue := map[string]any{"breed": "Дуб", "stars": 1, "category": "Обычный"}
	status, _ = s.do(http.MethodPost, magnetsPath, issue, true)
	require.Equal(t, http.StatusCreated, status)

	status, env = s.do(http.MethodPost, magnetsPath, issue, true)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", env.Error.Code)

	status, env = s.do(http.MethodPost, "/api/scan", map[string]any{"phone": "89123456789", "breed": "Падук"}, false)
	require.Equal(t, http.StatusOK, status)
	scan := decode[struct {
		Result    string `json:"result"`
		IsWelcome bool   `json:"is_welcome"`
	}](t, env.Data)
	assert.Equal(t, "revealed", scan.Result)
	assert.True(t, scan.IsWelcome)

	status, env = s.do(http.MethodPost, "/api/collection", map[string]any{"phone": "+79123456789"}, false)
	require.Equal(t, http.StatusOK, status)
	view := decode[struct {
		ClientName string            `json:"client_name"`
		Magnets    []json.RawMessage `json:"magnets"`
		InTransit  []json.RawMessage `json:"in_transit"`
	}](t, env.Data)
	assert.Equal(t, "555 Анна", view.ClientName)
	assert.Len(t, view.Magnets, 1)
	assert.Len(t, view.InTransit, 1)

	status, env = s.do(http.MethodDelete, "/api/orders/"+order.Order.ID.String()+"?return_magnets=true", nil, true)
	require.Equal(t, http.StatusOK, status)
	deleted := decode[struct {
		MagnetsRemoved []string `json:"magnets_removed"`
	}](t, env.Data)
	assert.ElementsMatch(t, []string{"Падук", "Дуб"}, deleted.MagnetsRemoved)

	status, env = s.do(http.MethodGet, "/api/inventory", nil, true)
	require.Equal(t, http.StatusOK, status)
	for _, item := range decode[[]models.MagnetInventory](t, env.Data) {
		switch item.Breed {
		case "Падук":
			assert.Equal(t, 3, item.Stock)
		case "Дуб":
			assert.Equal(t, 2, item.Stock)
		}
	}
}

func TestOutOfStockAndBadInput(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.db.Create(&models.MagnetInventory{Breed: "Эбен", Stars: 3, Category: "Легендарный", Stock: 0, Active: true}).Error)

	status, env := s.do(http.MethodPost, "/api/clients", map[string]any{"name": "Анна", "phone": "+79123456789"}, true)
	require.Equal(t, http.StatusCreated, status)
	client := decode[models.Client](t, env.Data)
	assert.True(t, client.Registered)

	status, env = s.do(http.MethodPost, "/api/clients/"+client.ID.String()+"/magnets", map[string]any{"breed": "Эбен", "stars": 3, "category": "Легендарный"}, true)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "out_of_stock", env.Error.Code)

	status, env = s.do(http.MethodGet, "/api/clients/not-a-uuid/magnets", nil, true)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_request", env.Error.Code)

	status, env = s.do(http.MethodPost, "/api/scan", map[string]any{"phone": "123", "breed": "Эбен"}, false)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", env.Error.Code)

	status, env = s.do(http.MethodPut, "/api/inventory/"+url.PathEscape("Бальса")+"/active", map[string]any{"active": false}, true)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Error.Code)

	status, _ = s.do(http.MethodPut, "/api/inventory/"+url.PathEscape("Эбен")+"/active", map[string]any{"active": false}, true)
	assert.Equal(t, http.StatusOK, status)
}

func TestBonusAndSettingsRoutes(t *testing.T) {
	s := newServer(t)

	status, _ := s.do(http.MethodPut, "/api/bonus-stock", map[string]any{"reward": "Кисть для клея Titebrush TM Titebond", "stock": 1}, true)
	require.Equal(t, http.StatusOK, status)

	status, env := s.do(http.MethodPost, "/api/clients", map[string]any{"name": "Анна", "phone": "+79123456789"}, true)
	require.Equal(t, http.StatusCreated, status)
	client := decode[models.Client](t, env.Data)

	grant := map[string]any{"milestone_count": 5, "milestone_type": "magnets", "reward": "Кисть для клея Titebrush TM Titebond"}
	bonusesPath := "/api/clients/" + client.ID.String() + "/bonuses"
	status, _ = s.do(http.MethodPost, bonusesPath, grant, true)
	require.Equal(t, http.StatusCreated, status)
	status, env = s.do(http.MethodPost, bonusesPath, grant, true)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", env.Error.Code)

	status, env = s.do(http.MethodGet, "/api/clients/"+client.ID.String()+"/milestones", nil, true)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]json.RawMessage](t, env.Data))

	status, _ = s.do(http.MethodPost, "/api/settings", map[string]any{"key": "privacy_policy_url", "value": "https://joywood.example/privacy"}, true)
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(http.MethodGet, "/api/settings", nil, false)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://joywood.example/privacy", decode[map[string]string](t, env.Data)["privacy_policy_url"])

	status, _ = s.do(http.MethodPost, "/api/consents", map[string]any{"phone": "+79123456789", "policy_version": "https://joywood.example/privacy"}, false)
	assert.Equal(t, http.StatusCreated, status)
}
