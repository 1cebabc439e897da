package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Trial: a person who booked a trial class but has no membership yet.
// ExternalMemberID stays empty until the platform assigns one (via intake).
type Trial struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	City             string    `json:"city"`
	Country          string    `json:"country"`
	ExternalMemberID string    `json:"external_member_id,omitempty"`
	Attended         bool      `json:"attended"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type TrialRepositoryInterface interface {
	// FindCheckable returns attended trials that already carry an external
	// member id, oldest first. Trials whose identity key is already settled
	// get filtered by the engine, not here.
	FindCheckable(ctx context.Context, limit int) ([]*Trial, error)
	FindByEmail(ctx context.Context, email string) (*Trial, error)
	SetExternalMemberID(ctx context.Context, trialID, externalMemberID string) error
	Upsert(ctx context.Context, trial *Trial) error
}

// Factory
func NewTrial(email, name, city, country string) (*Trial, error) {
	trial := &Trial{
		ID:        uuid.New().String(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Name:      name,
		City:      city,
		Country:   country,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := trial.Validate(); err != nil {
		return nil, err
	}

	return trial, nil
}

func (t *Trial) Validate() error {
	if t.Email == "" {
		return errors.New("email is required")
	}
	if t.City == "" {
		return errors.New("city is required")
	}
	return nil
}
