package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mysterybox-promo/mysterybox-backend/internal/handlers"
	"github.com/mysterybox-promo/mysterybox-backend/internal/ledger"
	"github.com/mysterybox-promo/mysterybox-backend/internal/middleware"
	"github.com/mysterybox-promo/mysterybox-backend/internal/services"
	"github.com/mysterybox-promo/mysterybox-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, ldg ledger.Ledger, verifier *services.VerificationService) {
	customerHandler := handlers.NewCustomerHandler(store, ldg)
	verificationHandler := handlers.NewVerificationHandler(verifier)
	statsHandler := handlers.NewStatsHandler(ldg)

	api := app.Group("/api")

	// Customer routes (the contest UI)
	customers := api.Group("/customers")
	customers.Post("/", customerHandler.Register)
	customers.Get("/:id", customerHandler.GetCustomer)
	customers.Post("/:id/reward", customerHandler.AssignReward)

	// Verification status polling is open to the UI; no side effects
	api.Get("/verify/:vehicle/status", verificationHandler.Status)

	// Stats shown on the contest page
	api.Get("/stats", statsHandler.VerifiedCount)
	api.Get("/stats/:vehicle", statsHandler.VehicleTotal)

	// ========== ADMIN ROUTES (employee console) ==========
	admin := api.Group("/admin", middleware.RequireAdminKey())
	admin.Get("/pending", verificationHandler.Pending)
	admin.Post("/verify/:vehicle", verificationHandler.Verify)
	admin.Delete("/verify/:vehicle", verificationHandler.Remove)
}
