package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/funnelsync/internal/infra/config"
	"github.com/xavierca1/funnelsync/internal/infra/database"
	"github.com/xavierca1/funnelsync/internal/infra/http/handlers"
	"github.com/xavierca1/funnelsync/internal/infra/http/middleware"
	"github.com/xavierca1/funnelsync/internal/infra/integration/magicline"
	"github.com/xavierca1/funnelsync/internal/infra/mail"
	"github.com/xavierca1/funnelsync/internal/infra/queue"
	"github.com/xavierca1/funnelsync/internal/infra/worker"
	"github.com/xavierca1/funnelsync/internal/usecase"
)

func main() {
	godotenv.Load()

	// 1. Tenant tables: one config value, loaded once, passed around.
	tenantsFile := os.Getenv("TENANTS_FILE")
	if tenantsFile == "" {
		tenantsFile = "config/tenants.json"
	}
	tenants, err := config.LoadTenants(tenantsFile)
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.NewDBConnection(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rabbitMQ, err := queue.NewRabbitMQ(
		envOr("RABBITMQ_USER", "guest"),
		envOr("RABBITMQ_PASS", "guest"),
		envOr("RABBITMQ_HOST", "localhost"),
		envOr("RABBITMQ_PORT", "5672"),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// 2. Repositories
	trialRepo := database.NewTrialRepository(db)
	guestRepo := database.NewGuestRepository(db)
	conversionRepo := database.NewConversionRepository(db)

	// 3. Platform clients, one per tenant portal
	resolver := usecase.NewResolver(tenants)
	clients := make(map[string]usecase.PlatformClient, len(tenants))
	for _, tenant := range tenants {
		clients[tenant.Code] = magicline.NewClient(tenant)
	}

	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)

	var mailer usecase.ReportMailer
	if os.Getenv("MAIL_HOST") != "" {
		mailer = mail.NewReportSender(
			os.Getenv("MAIL_HOST"), 587, os.Getenv("MAIL_USER"), os.Getenv("MAIL_PASS"),
			envOr("MAIL_FROM", "noreply@funnelsync.local"),
		)
	}

	// 4. Sync use cases and the orchestrator behind the trigger
	batchLimit := config.IntFromEnv("SYNC_BATCH_LIMIT", usecase.DefaultBatchLimit)
	trialSync := usecase.NewSyncTrialsUseCase(trialRepo, guestRepo, conversionRepo, resolver, clients, producer, batchLimit)
	guestSync := usecase.NewSyncGuestsUseCase(guestRepo, conversionRepo, resolver, clients, producer, batchLimit)
	orchestrator := usecase.NewSyncOrchestrator(trialSync, guestSync, mailer, os.Getenv("REPORT_MAIL_TO"))

	// 5. Background pieces: intake worker + recurring executed sync
	intakeWorker := queue.NewWorker(rabbitMQ.Ch, trialRepo, guestRepo)
	go intakeWorker.Start(queue.IntakeQueueName)

	interval := time.Duration(config.IntFromEnv("SYNC_INTERVAL_HOURS", 24)) * time.Hour
	scheduler := worker.NewSyncScheduler(orchestrator, interval)
	go scheduler.Start(context.Background())

	// 6. Handlers
	syncHandler := handlers.NewSyncHandler(orchestrator)
	webhookHandler := handlers.NewWebhookHandler(producer)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn, len(tenants))

	// 7. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Post("/sync", syncHandler.Handle)
	r.Post("/webhooks/contract", webhookHandler.HandleContract)
	r.Post("/webhooks/booking", webhookHandler.HandleBooking)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	port := ":" + envOr("PORT", "8080")
	log.Printf("🔥 FunnelSync listening on %s (%d tenants)", port, len(tenants))
	http.ListenAndServe(port, r)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
