package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/xavierca1/funnelsync/internal/entity"
)

// SyncGuestsUseCase runs the guest side of the funnel in two steps: first
// ingest the newest course purchases from the platform as Guest records,
// then reconcile unconverted guests against active contracts. A guest with
// a contract is the course→member transition by definition.
type SyncGuestsUseCase struct {
	engine   syncEngine
	Guests   entity.GuestRepositoryInterface
	Resolver *Resolver
	Clients  map[string]PlatformClient
}

func NewSyncGuestsUseCase(
	guests entity.GuestRepositoryInterface,
	conversions entity.ConversionRepositoryInterface,
	resolver *Resolver,
	clients map[string]PlatformClient,
	producer ConversionPublisher,
	batchLimit int,
) *SyncGuestsUseCase {
	return &SyncGuestsUseCase{
		engine: syncEngine{
			Conversions: conversions,
			Guests:      guests,
			Producer:    producer,
			BatchLimit:  batchLimit,
		},
		Guests:   guests,
		Resolver: resolver,
		Clients:  clients,
	}
}

func (uc *SyncGuestsUseCase) Execute(ctx context.Context, input SyncInput) (SyncReport, error) {
	report := SyncReport{Kind: string(SyncGuests), DryRun: !input.Execute}

	// 1. Snapshot existing conversions before any write.
	snap, err := uc.engine.snapshot(ctx)
	if err != nil {
		return report, err
	}

	// 2. Which tenants does this run cover?
	tenantCodes := uc.Resolver.Tenants()
	if input.Tenant != "" {
		tenantCodes = []string{input.Tenant}
	}

	// 3. Bulk facts per tenant: contracts plus course purchases (the
	//    purchases feed the ingest step).
	facts, failures := uc.engine.fetchFacts(ctx, uc.Clients, tenantCodes, true)
	for code, fetchErr := range failures {
		report.addError("tenant %s: bulk fetch failed: %v", code, fetchErr)
	}

	// 4. Ingest: every qualifying purchase becomes (or refreshes) a Guest.
	// A dry-run keeps the would-be guests in hand instead of writing them,
	// so step 5 reconciles the same population either way.
	var pending []*entity.Guest
	for code, tf := range facts {
		for _, course := range tf.courses {
			guest := uc.ingestPurchase(ctx, code, course.ExternalMemberID, course.FacilityID, course.PurchaseDate, course.InitialQuantity, &report, input.Execute)
			if guest != nil && !input.Execute {
				pending = append(pending, guest)
			}
		}
	}

	// 5. Reconcile unconverted guests, oldest first, within the cap.
	guests, err := uc.Guests.FindUnconverted(ctx, 0)
	if err != nil {
		return report, &TechnicalError{Code: "STORE_UNAVAILABLE", Message: "failed to load guests: " + err.Error()}
	}

	if len(pending) > 0 {
		known := make(map[string]bool, len(guests))
		for _, guest := range guests {
			known[guest.TenantCode+"/"+guest.ExternalMemberID] = true
		}
		for _, guest := range pending {
			if !known[guest.TenantCode+"/"+guest.ExternalMemberID] {
				guests = append(guests, guest)
			}
		}
	}

	limit := uc.engine.batchLimit()
	eligible := 0
	for _, guest := range guests {
		if input.Tenant != "" && guest.TenantCode != input.Tenant {
			continue
		}
		tf, ok := facts[guest.TenantCode]
		if !ok {
			// Tenant unreachable or unknown this run; guest stays queued.
			eligible++
			continue
		}

		eligible++
		if report.Examined >= limit {
			continue
		}
		report.Examined++

		cand := candidate{
			externalMemberID: guest.ExternalMemberID,
			city:             uc.Resolver.Normalize(guest.City),
			tenantCode:       guest.TenantCode,
			source:           entity.SourceGuest,
			isGuest:          true,
		}
		uc.engine.reconcile(ctx, cand, tf, snap, &report, input.Execute)
	}
	report.Remaining = eligible - report.Examined

	log.Printf("🔄 [SYNC] guests %s", report.Summary())
	return report, nil
}

// ingestPurchase upserts one course purchase as a Guest record and records
// the write as a proposed change; in dry-run the built guest is returned to
// the caller instead of being persisted. Unknown facility ids leave the
// city empty rather than dropping the guest: the conversion side tolerates
// a missing city via the wildcard match.
func (uc *SyncGuestsUseCase) ingestPurchase(ctx context.Context, tenantCode, externalMemberID, facilityID string, purchased time.Time, packageSize int, report *SyncReport, execute bool) *entity.Guest {
	city, err := uc.Resolver.CityFor(tenantCode, facilityID)
	if err != nil {
		if errors.Is(err, entity.ErrUnknownFacility) {
			report.addError("guest %s/%s: facility %q not mapped to a city", tenantCode, externalMemberID, facilityID)
		}
		city = ""
	}

	start := purchased
	guest := &entity.Guest{
		ExternalMemberID: externalMemberID,
		TenantCode:       tenantCode,
		City:             city,
		PackageSize:      packageSize,
		CreditsLeft:      packageSize,
		StartDate:        &start,
	}

	if execute {
		if err := uc.Guests.Upsert(ctx, guest); err != nil {
			report.addError("guest %s/%s: upsert failed: %v", tenantCode, externalMemberID, err)
			return guest
		}
	}

	report.Changes = append(report.Changes, ProposedChange{
		Action:           "upsert_guest",
		ExternalMemberID: externalMemberID,
		City:             city,
		Detail:           fmt.Sprintf("%der package from %s", packageSize, purchased.Format("2006-01-02")),
	})
	return guest
}
