package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/joywood/internal/config"
	"github.com/example/joywood/internal/handlers"
	"github.com/example/joywood/internal/middleware"
	"github.com/example/joywood/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)

	ratings := services.NewRatingCache(db, services.SystemClock, cfg.RatingTTL)
	guard := services.NewInventoryGuard(db)
	ledger := services.NewLedger(db, guard, services.LedgerOptions{
		Clock: services.SystemClock,
		Welcome: services.WelcomeGift{
			Breed:    cfg.WelcomeBreed,
			Stars:    cfg.WelcomeStars,
			Category: cfg.WelcomeCategory,
		},
		Ratings: ratings,
	})
	settings := services.NewSettingsService(db)

	publicHandler := handlers.NewPublicHandler(
		ledger,
		services.NewRegistrationService(db),
		services.NewCollectionService(db, ratings, settings),
		services.NewConsentService(db),
	)
	settingsHandler := handlers.NewSettingsHandler(settings)
	clientHandler := handlers.NewClientHandler(ledger, telegramService)
	orderHandler := handlers.NewOrderHandler(ledger, telegramService)
	inventoryHandler := handlers.NewInventoryHandler(guard)

	api := app.Group("/api")

	// Client-facing routes
	api.Post("/register", publicHandler.Register)
	api.Post("/collection", publicHandler.Collection)
	api.Post("/scan", publicHandler.Scan)
	api.Post("/consents", publicHandler.SaveConsent)
	api.Get("/settings", settingsHandler.List)

	// Manager routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Post("/clients", clientHandler.AddClient)
	protected.Put("/clients/:id", clientHandler.UpdateClient)
	protected.Delete("/clients/:id", clientHandler.DeleteClient)
	protected.Put("/clients/:id/comment", clientHandler.UpdateComment)
	protected.Get("/clients/:id/magnets", clientHandler.ListMagnets)
	protected.Post("/clients/:id/magnets", clientHandler.IssueMagnet)
	protected.Get("/clients/:id/bonuses", clientHandler.ListBonuses)
	protected.Post("/clients/:id/bonuses", clientHandler.GrantBonus)
	protected.Get("/clients/:id/milestones", clientHandler.Milestones)
	protected.Post("/clients/:id/orders", orderHandler.CreateOrder)

	protected.Post("/orders", orderHandler.CreateOrderByCode)
	protected.Put("/orders/:id", orderHandler.UpdateOrder)
	protected.Put("/orders/:id/magnet-comment", orderHandler.SaveMagnetComment)
	protected.Delete("/orders/:id", orderHandler.DeleteOrder)
	protected.Delete("/magnets/:id", orderHandler.RemoveMagnet)

	protected.Get("/inventory", inventoryHandler.List)
	protected.Put("/inventory", inventoryHandler.Upsert)
	protected.Put("/inventory/:breed/active", inventoryHandler.SetActive)
	protected.Get("/bonus-stock", inventoryHandler.ListBonusStock)
	protected.Put("/bonus-stock", inventoryHandler.SetBonusStock)

	protected.Post("/settings", settingsHandler.Save)
}
