package usecase

import (
	"context"
	"log"
)

// SyncOrchestrator composes the trial and guest runs behind the single
// sync(kind, tenant?, execute) trigger and merges their reports.
type SyncOrchestrator struct {
	TrialSync *SyncTrialsUseCase
	GuestSync *SyncGuestsUseCase
	Mailer    ReportMailer // optional
	ReportTo  string
}

func NewSyncOrchestrator(trialSync *SyncTrialsUseCase, guestSync *SyncGuestsUseCase, mailer ReportMailer, reportTo string) *SyncOrchestrator {
	return &SyncOrchestrator{
		TrialSync: trialSync,
		GuestSync: guestSync,
		Mailer:    mailer,
		ReportTo:  reportTo,
	}
}

func (o *SyncOrchestrator) Run(ctx context.Context, input SyncInput) (SyncReport, error) {
	combined := SyncReport{Kind: string(input.Kind), DryRun: !input.Execute}

	if input.Kind == "" {
		input.Kind = SyncAll
		combined.Kind = string(SyncAll)
	}

	if input.Kind != SyncTrials && input.Kind != SyncGuests && input.Kind != SyncAll {
		return combined, &DomainError{
			Code:    "INVALID_SYNC_KIND",
			Message: "sync kind must be one of trials, guests, all",
		}
	}

	if input.Kind == SyncTrials || input.Kind == SyncAll {
		report, err := o.TrialSync.Execute(ctx, input)
		if err != nil {
			return combined, err
		}
		combined.Merge(report)
	}

	if input.Kind == SyncGuests || input.Kind == SyncAll {
		report, err := o.GuestSync.Execute(ctx, input)
		if err != nil {
			return combined, err
		}
		combined.Merge(report)
	}

	if input.Execute && o.Mailer != nil && o.ReportTo != "" {
		if err := o.Mailer.SendSyncReport(o.ReportTo, combined); err != nil {
			log.Printf("⚠️ [SYNC] report mail failed: %v", err)
		}
	}

	return combined, nil
}
