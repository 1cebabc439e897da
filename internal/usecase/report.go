package usecase

import "fmt"

// ProposedChange is one write the engine decided on. In dry-run mode these
// are the whole output; in execute mode they double as the audit trail of
// what was applied.
type ProposedChange struct {
	Action           string `json:"action"` // create_conversion, update_conversion, mark_guest_converted
	ExternalMemberID string `json:"external_member_id"`
	City             string `json:"city,omitempty"`
	MembershipType   string `json:"membership_type,omitempty"`
	Source           string `json:"source,omitempty"`
	Detail           string `json:"detail,omitempty"`
}

// SyncReport is what every run returns, dry or not.
type SyncReport struct {
	Kind      string           `json:"kind"`
	DryRun    bool             `json:"dry_run"`
	Examined  int              `json:"examined"`
	Found     int              `json:"found"`
	Created   int              `json:"created"`
	Updated   int              `json:"updated"`
	Remaining int              `json:"remaining"`
	Changes   []ProposedChange `json:"changes,omitempty"`
	Errors    []string         `json:"errors,omitempty"`
}

func (r *SyncReport) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Merge folds another run's counts into this report.
func (r *SyncReport) Merge(other SyncReport) {
	r.Examined += other.Examined
	r.Found += other.Found
	r.Created += other.Created
	r.Updated += other.Updated
	r.Remaining += other.Remaining
	r.Changes = append(r.Changes, other.Changes...)
	r.Errors = append(r.Errors, other.Errors...)
}

func (r *SyncReport) Summary() string {
	mode := "applied"
	if r.DryRun {
		mode = "dry-run"
	}
	return fmt.Sprintf("[%s %s] examined=%d found=%d created=%d updated=%d remaining=%d errors=%d",
		r.Kind, mode, r.Examined, r.Found, r.Created, r.Updated, r.Remaining, len(r.Errors))
}
