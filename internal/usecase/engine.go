package usecase

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/xavierca1/funnelsync/internal/entity"
	"github.com/xavierca1/funnelsync/internal/infra/integration/magicline"
	"github.com/xavierca1/funnelsync/internal/infra/queue"
)

// DefaultBatchLimit caps candidates per run so a nightly invocation stays
// inside the caller's timeout; the remainder is picked up next run.
const DefaultBatchLimit = 500

var errNoClientForTenant = errors.New("no platform client configured for tenant")

// candidate is one prospect due for a state check, already resolved to its
// tenant and canonical city.
type candidate struct {
	externalMemberID string
	city             string // canonical, may be empty
	tenantCode       string
	source           entity.ConversionSource
	isGuest          bool
}

func (c candidate) key() string {
	return c.externalMemberID + "@" + c.city
}

// tenantFacts is the bulk-fetched external state for one tenant: the newest
// membership contract and the newest qualifying course purchase per member.
type tenantFacts struct {
	memberships map[string]magicline.MembershipFact
	courses     map[string]magicline.CourseFact
}

// syncEngine runs the conversion state machine and applies (or previews)
// the resulting writes. Shared by the trial and guest syncs.
type syncEngine struct {
	Conversions entity.ConversionRepositoryInterface
	Guests      entity.GuestRepositoryInterface
	Producer    ConversionPublisher // optional; nil skips the event stream
	BatchLimit  int
}

func (e *syncEngine) batchLimit() int {
	if e.BatchLimit > 0 {
		return e.BatchLimit
	}
	return DefaultBatchLimit
}

// snapshot reads the full existing-conversion set. Must complete before
// the first write of a run, so a course→member transition is detected as an
// update instead of racing into a duplicate insert. A failure here is the
// one run-fatal error: the store is unreachable.
func (e *syncEngine) snapshot(ctx context.Context) (*conversionSnapshot, error) {
	records, err := e.Conversions.FindAll(ctx)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "STORE_UNAVAILABLE",
			Message: "failed to read conversion snapshot: " + err.Error(),
		}
	}
	return newConversionSnapshot(records), nil
}

// fetchFacts pulls bulk facts for every tenant with candidates. Tenants are
// independent, so the fetches run concurrently; writes never do.
func (e *syncEngine) fetchFacts(ctx context.Context, clients map[string]PlatformClient, tenantCodes []string, withCourses bool) (map[string]tenantFacts, map[string]error) {
	facts := make(map[string]tenantFacts)
	failures := make(map[string]error)

	// Partition before spawning anything: both maps are shared with the
	// fetch goroutines and must only be written under the mutex once the
	// first one runs.
	var reachable []string
	for _, code := range tenantCodes {
		if _, ok := clients[code]; ok {
			reachable = append(reachable, code)
		} else {
			failures[code] = errNoClientForTenant
		}
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, code := range reachable {
		client := clients[code]

		wg.Add(1)
		go func(code string, client PlatformClient) {
			defer wg.Done()

			memberships, err := client.FetchAllActiveMemberships(ctx)
			if err != nil {
				mu.Lock()
				failures[code] = err
				mu.Unlock()
				return
			}

			courses := map[string]magicline.CourseFact{}
			if withCourses {
				courses, err = client.FetchAllCoursePurchases(ctx)
				if err != nil {
					mu.Lock()
					failures[code] = err
					mu.Unlock()
					return
				}
			}

			mu.Lock()
			facts[code] = tenantFacts{memberships: memberships, courses: courses}
			mu.Unlock()
		}(code, client)
	}

	wg.Wait()
	return facts, failures
}

// reconcile evaluates the state machine for one candidate and applies the
// decision. Membership wins over a simultaneous course purchase: a member
// has graduated past the course stage whatever the purchase timestamps say.
func (e *syncEngine) reconcile(ctx context.Context, cand candidate, facts tenantFacts, snap *conversionSnapshot, report *SyncReport, execute bool) {
	stage, courseRecord := snap.stageFor(cand.externalMemberID, cand.city)
	if stage == StageMember {
		// Already fully converted; nothing to do.
		return
	}

	if membership, ok := facts.memberships[cand.externalMemberID]; ok {
		e.applyMembership(ctx, cand, membership, courseRecord, snap, report, execute)
		return
	}

	if stage == StageUnconverted {
		if course, ok := facts.courses[cand.externalMemberID]; ok {
			e.applyCourse(ctx, cand, course, snap, report, execute)
		}
	}
}

// applyMembership handles the →MEMBER transition.
func (e *syncEngine) applyMembership(ctx context.Context, cand candidate, membership magicline.MembershipFact, courseRecord *entity.ConversionRecord, snap *conversionSnapshot, report *SyncReport, execute bool) {
	membershipType := ClassifyPlan(membership.PlanName)
	hadCourseStep := courseRecord != nil || cand.isGuest

	report.Found++

	if courseRecord != nil {
		// The identity key already sits in the course stage: mutate that
		// record in place, never insert a second row.
		patch := entity.ConversionPatch{
			MemberSince:    membership.StartDate,
			MembershipType: membershipType,
			Source:         cand.source,
			HadCourseStep:  true,
		}
		if execute {
			if err := e.Conversions.Update(ctx, courseRecord.ID, patch); err != nil {
				report.addError("update conversion %s: %v", cand.key(), err)
				return
			}
		}
		courseRecord.MemberSince = patch.MemberSince
		courseRecord.MembershipType = patch.MembershipType
		courseRecord.Source = patch.Source
		courseRecord.HadCourseStep = true

		report.Updated++
		report.Changes = append(report.Changes, ProposedChange{
			Action:           "update_conversion",
			ExternalMemberID: cand.externalMemberID,
			City:             cand.city,
			MembershipType:   string(membershipType),
			Source:           string(cand.source),
			Detail:           "course record upgraded to " + string(membershipType),
		})
	} else {
		record := entity.NewConversionRecord(
			cand.externalMemberID, cand.city, membership.StartDate,
			membershipType, cand.source, hadCourseStep,
		)
		if execute {
			created, err := e.Conversions.Upsert(ctx, record)
			if err != nil {
				report.addError("create conversion %s: %v", cand.key(), err)
				return
			}
			if !created {
				// Another run got here first; the upsert no-op keeps the
				// terminal record unique.
				snap.add(record)
				return
			}
		}
		snap.add(record)

		report.Created++
		report.Changes = append(report.Changes, ProposedChange{
			Action:           "create_conversion",
			ExternalMemberID: cand.externalMemberID,
			City:             cand.city,
			MembershipType:   string(membershipType),
			Source:           string(cand.source),
		})
	}

	if cand.isGuest {
		if execute {
			if err := e.Guests.MarkConverted(ctx, cand.tenantCode, cand.externalMemberID, membership.StartDate); err != nil {
				report.addError("mark guest %s converted: %v", cand.key(), err)
			}
		}
		report.Changes = append(report.Changes, ProposedChange{
			Action:           "mark_guest_converted",
			ExternalMemberID: cand.externalMemberID,
			City:             cand.city,
			Detail:           "converted_at = " + membership.StartDate.Format("2006-01-02"),
		})
	}

	if execute && e.Producer != nil {
		payload := queue.ConversionPayload{
			ExternalMemberID: cand.externalMemberID,
			City:             cand.city,
			TenantCode:       cand.tenantCode,
			MembershipType:   string(membershipType),
			Source:           string(cand.source),
			HadCourseStep:    hadCourseStep,
			MemberSince:      membership.StartDate,
		}
		if err := e.Producer.PublishConversion(ctx, payload); err != nil {
			// The record is persisted; a lost event only degrades the stream.
			log.Printf("⚠️ [SYNC] failed to publish conversion event for %s: %v", cand.key(), err)
		}
	}
}

// applyCourse handles the →COURSE transition. The inserted record *is* the
// course step, so HadCourseStep stays false.
func (e *syncEngine) applyCourse(ctx context.Context, cand candidate, course magicline.CourseFact, snap *conversionSnapshot, report *SyncReport, execute bool) {
	record := entity.NewConversionRecord(
		cand.externalMemberID, cand.city, course.PurchaseDate,
		entity.MembershipCourse, cand.source, false,
	)

	if execute {
		created, err := e.Conversions.Upsert(ctx, record)
		if err != nil {
			report.addError("create course conversion %s: %v", cand.key(), err)
			return
		}
		if !created {
			snap.add(record)
			return
		}
	}
	snap.add(record)

	report.Found++
	report.Created++
	report.Changes = append(report.Changes, ProposedChange{
		Action:           "create_conversion",
		ExternalMemberID: cand.externalMemberID,
		City:             cand.city,
		MembershipType:   string(entity.MembershipCourse),
		Source:           string(cand.source),
	})
}
