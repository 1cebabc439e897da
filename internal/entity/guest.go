package entity

import (
	"context"
	"time"
)

// Guest: a prospect who bought a course package (10er/16er card) on the
// platform without signing a contract. Identified by the tenant-scoped
// external member id; a Guest with ConvertedAt set is terminal and is
// never re-checked by the sync.
type Guest struct {
	ID               string     `json:"id"`
	ExternalMemberID string     `json:"external_member_id"`
	TenantCode       string     `json:"tenant_code"`
	City             string     `json:"city,omitempty"`
	CreditsLeft      int        `json:"credits_left"`
	PackageSize      int        `json:"package_size"` // 10 or 16
	StartDate        *time.Time `json:"start_date,omitempty"`
	ConvertedAt      *time.Time `json:"converted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type GuestRepositoryInterface interface {
	// FindUnconverted returns guests without ConvertedAt, oldest first.
	FindUnconverted(ctx context.Context, limit int) ([]*Guest, error)
	FindByExternalMemberID(ctx context.Context, tenantCode, externalMemberID string) (*Guest, error)
	// Upsert inserts the guest or refreshes package/city data on the
	// existing row. Converted guests are left untouched.
	Upsert(ctx context.Context, guest *Guest) error
	UpdateCredits(ctx context.Context, tenantCode, externalMemberID string, creditsLeft int) error
	// MarkConverted stamps ConvertedAt; a second call with the same
	// timestamp is a no-op.
	MarkConverted(ctx context.Context, tenantCode, externalMemberID string, when time.Time) error
}

func (g *Guest) IsConverted() bool {
	return g.ConvertedAt != nil
}
