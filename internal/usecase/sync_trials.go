package usecase

import (
	"context"
	"log"

	"github.com/xavierca1/funnelsync/internal/entity"
)

// SyncTrialsUseCase reconciles attended trials against the platform: a
// trial that bought a course package moves to the course stage, a trial
// with an active contract becomes a member.
type SyncTrialsUseCase struct {
	engine   syncEngine
	Trials   entity.TrialRepositoryInterface
	Resolver *Resolver
	Clients  map[string]PlatformClient
}

func NewSyncTrialsUseCase(
	trials entity.TrialRepositoryInterface,
	guests entity.GuestRepositoryInterface,
	conversions entity.ConversionRepositoryInterface,
	resolver *Resolver,
	clients map[string]PlatformClient,
	producer ConversionPublisher,
	batchLimit int,
) *SyncTrialsUseCase {
	return &SyncTrialsUseCase{
		engine: syncEngine{
			Conversions: conversions,
			Guests:      guests,
			Producer:    producer,
			BatchLimit:  batchLimit,
		},
		Trials:   trials,
		Resolver: resolver,
		Clients:  clients,
	}
}

func (uc *SyncTrialsUseCase) Execute(ctx context.Context, input SyncInput) (SyncReport, error) {
	report := SyncReport{Kind: string(SyncTrials), DryRun: !input.Execute}

	// 1. Snapshot the existing conversions before anything is written.
	snap, err := uc.engine.snapshot(ctx)
	if err != nil {
		return report, err
	}

	// 2. Load checkable trials and resolve each to its tenant.
	trials, err := uc.Trials.FindCheckable(ctx, 0)
	if err != nil {
		return report, &TechnicalError{Code: "STORE_UNAVAILABLE", Message: "failed to load trials: " + err.Error()}
	}

	byTenant := make(map[string][]candidate)
	for _, trial := range trials {
		tenantCode, err := uc.Resolver.TenantFor(trial.City)
		if err != nil {
			report.addError("trial %s: city %q not mapped to a tenant", trial.ID, trial.City)
			continue
		}
		if input.Tenant != "" && tenantCode != input.Tenant {
			continue
		}

		cand := candidate{
			externalMemberID: trial.ExternalMemberID,
			city:             uc.Resolver.Normalize(trial.City),
			tenantCode:       tenantCode,
			source:           entity.SourceTrial,
		}

		// Cheap pre-exclusion: identity keys already at the member stage
		// need no external call at all.
		if stage, _ := snap.stageFor(cand.externalMemberID, cand.city); stage == StageMember {
			continue
		}

		byTenant[tenantCode] = append(byTenant[tenantCode], cand)
	}

	// 3. Cap the run; everything not examined is deferred to the next one.
	eligible := 0
	for _, cands := range byTenant {
		eligible += len(cands)
	}
	limit := uc.engine.batchLimit()

	// 4. Bulk-fetch facts per tenant (concurrently, tenants are disjoint).
	tenantCodes := make([]string, 0, len(byTenant))
	for code := range byTenant {
		tenantCodes = append(tenantCodes, code)
	}
	facts, failures := uc.engine.fetchFacts(ctx, uc.Clients, tenantCodes, true)
	for code, fetchErr := range failures {
		// Candidates of an unreachable tenant are deferred, not dropped.
		report.addError("tenant %s: bulk fetch failed: %v", code, fetchErr)
	}

	// 5. Run the state machine, sequentially, within the cap.
	processed := 0
	for code, cands := range byTenant {
		tenantFacts, ok := facts[code]
		if !ok {
			continue
		}
		for _, cand := range cands {
			if processed >= limit {
				break
			}
			processed++
			report.Examined++
			uc.engine.reconcile(ctx, cand, tenantFacts, snap, &report, input.Execute)
		}
	}

	report.Remaining = eligible - report.Examined

	log.Printf("🔄 [SYNC] trials %s", report.Summary())
	return report, nil
}
