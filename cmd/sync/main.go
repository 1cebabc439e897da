package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/xavierca1/funnelsync/internal/infra/config"
	"github.com/xavierca1/funnelsync/internal/infra/database"
	"github.com/xavierca1/funnelsync/internal/infra/integration/magicline"
	"github.com/xavierca1/funnelsync/internal/infra/mail"
	"github.com/xavierca1/funnelsync/internal/usecase"
)

// One-shot runner for cron. Exits non-zero only when the store is
// unreachable; everything else lands in the printed report.
func main() {
	kind := flag.String("kind", "all", "which prospects to sync: trials, guests or all")
	tenant := flag.String("tenant", "", "restrict the run to one tenant code")
	execute := flag.Bool("execute", false, "apply writes instead of previewing")
	flag.Parse()

	godotenv.Load()

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

	trialRepo := database.NewTrialRepository(db)
	guestRepo := database.NewGuestRepository(db)
	conversionRepo := database.NewConversionRepository(db)

	resolver := usecase.NewResolver(tenants)
	clients := make(map[string]usecase.PlatformClient, len(tenants))
	for _, t := range tenants {
		clients[t.Code] = magicline.NewClient(t)
	}

	var mailer usecase.ReportMailer
	if os.Getenv("MAIL_HOST") != "" {
		mailer = mail.NewReportSender(
			os.Getenv("MAIL_HOST"), 587, os.Getenv("MAIL_USER"), os.Getenv("MAIL_PASS"),
			os.Getenv("MAIL_FROM"),
		)
	}

	// The one-shot runner skips the event stream; cron boxes rarely have
	// the broker in reach and the conversions land in the store anyway.
	batchLimit := config.IntFromEnv("SYNC_BATCH_LIMIT", usecase.DefaultBatchLimit)
	trialSync := usecase.NewSyncTrialsUseCase(trialRepo, guestRepo, conversionRepo, resolver, clients, nil, batchLimit)
	guestSync := usecase.NewSyncGuestsUseCase(guestRepo, conversionRepo, resolver, clients, nil, batchLimit)
	orchestrator := usecase.NewSyncOrchestrator(trialSync, guestSync, mailer, os.Getenv("REPORT_MAIL_TO"))

	report, err := orchestrator.Run(context.Background(), usecase.SyncInput{
		Kind:    usecase.SyncKind(*kind),
		Tenant:  *tenant,
		Execute: *execute,
	})
	if err != nil {
		log.Fatal(err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
}
