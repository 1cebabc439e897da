package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MembershipType string

const (
	MembershipFlex    MembershipType = "flex"
	MembershipLoyalty MembershipType = "loyalty"
	MembershipCourse  MembershipType = "course"
)

// IsTerminal reports whether this type ends the funnel for an identity key.
func (m MembershipType) IsTerminal() bool {
	return m == MembershipFlex || m == MembershipLoyalty
}

type ConversionSource string

const (
	SourceTrial  ConversionSource = "trial"
	SourceGuest  ConversionSource = "guest"
	SourceDirect ConversionSource = "direct"
)

// ConversionRecord is one funnel-stage transition for an identity key.
// The effective identity is (ExternalMemberID, City): raw member ids are
// only unique within one tenant portal, so the city disambiguates. City
// may be empty on legacy rows, which then match any city (one-sided
// wildcard, kept on purpose).
type ConversionRecord struct {
	ID               string           `json:"id"`
	ExternalMemberID string           `json:"external_member_id"`
	City             string           `json:"city,omitempty"`
	MemberSince      time.Time        `json:"member_since"`
	MembershipType   MembershipType   `json:"membership_type"`
	Source           ConversionSource `json:"source"`
	HadCourseStep    bool             `json:"had_course_step"`
	CreatedAt        time.Time        `json:"created_at"`
}

// ConversionPatch carries the fields mutated on a course→member upgrade.
type ConversionPatch struct {
	MemberSince    time.Time
	MembershipType MembershipType
	Source         ConversionSource
	HadCourseStep  bool
}

type ConversionRepositoryInterface interface {
	// FindAll returns every conversion row; the engine snapshots this
	// once per run before issuing any write.
	FindAll(ctx context.Context) ([]*ConversionRecord, error)
	FindByExternalMemberID(ctx context.Context, externalMemberID string) ([]*ConversionRecord, error)
	// Upsert inserts the record and reports whether a row was created.
	// An equivalent record for the same identity key and stage makes it
	// a no-op; that is what keeps re-runs safe.
	Upsert(ctx context.Context, record *ConversionRecord) (bool, error)
	Update(ctx context.Context, id string, patch ConversionPatch) error
}

func NewConversionRecord(externalMemberID, city string, memberSince time.Time, mType MembershipType, source ConversionSource, hadCourseStep bool) *ConversionRecord {
	return &ConversionRecord{
		ID:               uuid.New().String(),
		ExternalMemberID: externalMemberID,
		City:             city,
		MemberSince:      memberSince,
		MembershipType:   mType,
		Source:           source,
		HadCourseStep:    hadCourseStep,
		CreatedAt:        time.Now(),
	}
}

// MatchesCity applies the identity-key city rule: an empty city on either
// side matches anything (legacy rows predate city tracking).
func (c *ConversionRecord) MatchesCity(city string) bool {
	return c.City == "" || city == "" || c.City == city
}
