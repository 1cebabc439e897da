package usecase

import (
	"context"

	"github.com/xavierca1/funnelsync/internal/infra/integration/magicline"
	"github.com/xavierca1/funnelsync/internal/infra/queue"
)

// PlatformClient is the per-tenant slice of the membership platform the
// engine consumes. magicline.Client satisfies it; tests mock it.
type PlatformClient interface {
	Tenant() string
	FetchActiveMembership(ctx context.Context, externalMemberID string) (*magicline.MembershipFact, error)
	FetchCoursePurchase(ctx context.Context, externalMemberID string) (*magicline.CourseFact, error)
	FetchAllActiveMemberships(ctx context.Context) (map[string]magicline.MembershipFact, error)
	FetchAllCoursePurchases(ctx context.Context) (map[string]magicline.CourseFact, error)
}

// ConversionPublisher pushes applied conversions onto the event stream.
type ConversionPublisher interface {
	PublishConversion(ctx context.Context, payload queue.ConversionPayload) error
}

// ReportMailer delivers the run report after an executed sync.
type ReportMailer interface {
	SendSyncReport(to string, report SyncReport) error
}

// SyncKind selects which prospect population a run covers.
type SyncKind string

const (
	SyncTrials SyncKind = "trials"
	SyncGuests SyncKind = "guests"
	SyncAll    SyncKind = "all"
)

// SyncInput is the external trigger contract; Execute=false previews.
type SyncInput struct {
	Kind    SyncKind
	Tenant  string // optional: restrict the run to one tenant code
	Execute bool
}

// ContractEventInput is the "membership contract created" intake shape.
type ContractEventInput struct {
	ExternalMemberID string `json:"external_member_id"`
	StartDate        string `json:"start_date"` // YYYY-MM-DD
	PlanName         string `json:"plan_name"`
	Email            string `json:"email,omitempty"`
}

// BookingEventInput is the "class-booking state changed" intake shape.
type BookingEventInput struct {
	ExternalMemberID string `json:"external_member_id"`
	TenantCode       string `json:"tenant_code"`
	City             string `json:"city,omitempty"`
	State            string `json:"state"` // booked, attended, cancelled
	CreditsLeft      *int   `json:"credits_left,omitempty"`
}
