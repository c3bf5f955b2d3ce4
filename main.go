package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/mysterybox-promo/mysterybox-backend/database"
	"github.com/mysterybox-promo/mysterybox-backend/internal/jobs"
	"github.com/mysterybox-promo/mysterybox-backend/internal/ledger"
	"github.com/mysterybox-promo/mysterybox-backend/internal/models"
	"github.com/mysterybox-promo/mysterybox-backend/internal/payout"
	"github.com/mysterybox-promo/mysterybox-backend/internal/routes"
	"github.com/mysterybox-promo/mysterybox-backend/internal/services"
	"github.com/mysterybox-promo/mysterybox-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	// Pick the ledger backend: the spreadsheet webhook when configured,
	// otherwise Postgres when requested. With neither set the service boots
	// in degraded mode: every ledger call reports "not configured" and the
	// read-only endpoints serve zeros.
	var contestLedger ledger.Ledger
	webhookURL := os.Getenv("SHEETS_WEBHOOK_URL")
	switch {
	case webhookURL != "":
		contestLedger = ledger.NewWebhookLedger(webhookURL)
		log.Println("✅ Using spreadsheet webhook ledger")
	case os.Getenv("USE_DATABASE_LEDGER") == "true":
		log.Println("📦 Connecting to PostgreSQL ledger...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.ContestEntry{},
			&models.TransactionLog{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		contestLedger = ledger.NewDatabaseLedger(database.DB)
		log.Println("✅ Using PostgreSQL ledger")
	default:
		contestLedger = ledger.NewWebhookLedger("")
		log.Println("⚠️  No ledger configured - running in degraded mode")
	}

	// Session store is always in-memory; the ledger is authoritative
	store := storage.NewMemoryStore()

	// Payout provider is optional: without credentials, verifications still
	// run but every payout is skipped
	var provider services.PayoutProvider
	payoutBaseURL := os.Getenv("PAYOUT_BASE_URL")
	payoutClientID := os.Getenv("PAYOUT_CLIENT_ID")
	payoutClientSecret := os.Getenv("PAYOUT_CLIENT_SECRET")
	if payoutBaseURL != "" && payoutClientID != "" && payoutClientSecret != "" {
		provider = payout.NewClient(payoutBaseURL, payoutClientID, payoutClientSecret)
		log.Println("✅ Payout provider configured")
	} else {
		log.Println("⚠️  Payout provider not configured - payouts will be skipped")
	}

	// Operator alerts over WhatsApp are also optional
	var alertService *services.AlertService
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Println("⚠️  Twilio not configured - operator alerts will only be logged")
	} else {
		alertService = services.NewAlertService(twilioService, os.Getenv("OPERATOR_PHONE"))
		log.Println("✅ Twilio operator alerts initialized")
	}

	verificationService := services.NewVerificationService(contestLedger, provider, store, alertService)

	// Start the session cleanup sweep
	cleanupJob := jobs.NewSessionCleanupJob(store)
	cleanupJob.Start()

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "MysteryBox Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Admin-Key",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Service info endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "MysteryBox Backend API",
			"version": "1.0.0",
			"status":  "healthy",
			"ledger":  ledgerType(webhookURL),
			"payout": fiber.Map{
				"configured": provider != nil,
			},
			"sessions": store.ActiveCount(),
		})
	})

	// Health check endpoint for monitoring
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"services": fiber.Map{
				"ledger": webhookURL != "" || os.Getenv("USE_DATABASE_LEDGER") == "true",
				"payout": provider != nil,
				"alerts": alertService != nil,
			},
		})
	})

	// Setup routes
	routes.SetupRoutes(app, store, contestLedger, verificationService)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping session cleanup job...")
		cleanupJob.Stop()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 MysteryBox Backend starting on port %s", port)
	log.Printf("📒 Ledger: %s", ledgerType(webhookURL))
	log.Printf("💸 Payouts: %s", configuredLabel(provider != nil))
	log.Printf("📢 Operator alerts: %s", configuredLabel(alertService != nil))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func ledgerType(webhookURL string) string {
	if webhookURL != "" {
		return "Spreadsheet webhook"
	}
	if os.Getenv("USE_DATABASE_LEDGER") == "true" {
		return "PostgreSQL"
	}
	return "Not configured"
}

func configuredLabel(configured bool) string {
	if configured {
		return "Configured"
	}
	return "Not configured"
}
