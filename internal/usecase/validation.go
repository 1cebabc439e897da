package usecase

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateContractEvent rejects malformed "membership contract created"
// payloads at the boundary, before anything reaches the engine or the
// intake queue.
func ValidateContractEvent(input ContractEventInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.ExternalMemberID) == "" {
		errors = append(errors, ValidationError{"external_member_id", "is required"})
	}

	if strings.TrimSpace(input.StartDate) == "" {
		errors = append(errors, ValidationError{"start_date", "is required"})
	} else if !isValidDate(input.StartDate) {
		errors = append(errors, ValidationError{"start_date", "must be a valid date (YYYY-MM-DD)"})
	}

	if strings.TrimSpace(input.PlanName) == "" {
		errors = append(errors, ValidationError{"plan_name", "is required"})
	}

	if input.Email != "" {
		if _, err := mail.ParseAddress(input.Email); err != nil {
			errors = append(errors, ValidationError{"email", "is invalid"})
		}
	}

	return errors
}

// ValidateBookingEvent rejects malformed "class-booking state changed"
// payloads.
func ValidateBookingEvent(input BookingEventInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.ExternalMemberID) == "" {
		errors = append(errors, ValidationError{"external_member_id", "is required"})
	}

	if strings.TrimSpace(input.TenantCode) == "" {
		errors = append(errors, ValidationError{"tenant_code", "is required"})
	}

	switch strings.ToLower(input.State) {
	case "booked", "attended", "cancelled", "no_show":
	default:
		errors = append(errors, ValidationError{"state", "must be one of booked, attended, cancelled, no_show"})
	}

	if input.CreditsLeft != nil && *input.CreditsLeft < 0 {
		errors = append(errors, ValidationError{"credits_left", "must not be negative"})
	}

	return errors
}

func isValidDate(dateStr string) bool {
	_, err := time.Parse("2006-01-02", dateStr)
	return err == nil
}
