package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/xavierca1/funnelsync/internal/infra/http/middleware"
	"github.com/xavierca1/funnelsync/internal/infra/queue"
	"github.com/xavierca1/funnelsync/internal/usecase"
)

// WebhookHandler accepts the two intake shapes the platform pushes:
// membership contracts and class-booking changes. Payloads are validated
// here, at the boundary; valid events go onto the intake queue and the
// worker does the prospect writes off the request path.
type WebhookHandler struct {
	Producer queue.IntakePublisherInterface
}

func NewWebhookHandler(producer queue.IntakePublisherInterface) *WebhookHandler {
	return &WebhookHandler{Producer: producer}
}

func (h *WebhookHandler) HandleContract(w http.ResponseWriter, r *http.Request) {
	var input usecase.ContractEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.RecordIntakeEvent(queue.IntakeContractCreated, "rejected")
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if validationErrors := usecase.ValidateContractEvent(input); len(validationErrors) > 0 {
		middleware.RecordIntakeEvent(queue.IntakeContractCreated, "rejected")
		writeValidationErrors(w, validationErrors)
		return
	}

	payload := queue.IntakePayload{
		Type:             queue.IntakeContractCreated,
		ExternalMemberID: input.ExternalMemberID,
		Email:            input.Email,
		PlanName:         input.PlanName,
		StartDate:        input.StartDate,
	}
	if err := h.Producer.PublishIntake(r.Context(), payload); err != nil {
		log.Printf("❌ [WEBHOOK] failed to enqueue contract event: %v", err)
		http.Error(w, "failed to enqueue event", http.StatusInternalServerError)
		return
	}

	middleware.RecordIntakeEvent(queue.IntakeContractCreated, "accepted")
	w.WriteHeader(http.StatusAccepted)
}

func (h *WebhookHandler) HandleBooking(w http.ResponseWriter, r *http.Request) {
	var input usecase.BookingEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.RecordIntakeEvent(queue.IntakeBookingChanged, "rejected")
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if validationErrors := usecase.ValidateBookingEvent(input); len(validationErrors) > 0 {
		middleware.RecordIntakeEvent(queue.IntakeBookingChanged, "rejected")
		writeValidationErrors(w, validationErrors)
		return
	}

	payload := queue.IntakePayload{
		Type:             queue.IntakeBookingChanged,
		ExternalMemberID: input.ExternalMemberID,
		TenantCode:       input.TenantCode,
		City:             input.City,
		State:            input.State,
		CreditsLeft:      input.CreditsLeft,
	}
	if err := h.Producer.PublishIntake(r.Context(), payload); err != nil {
		log.Printf("❌ [WEBHOOK] failed to enqueue booking event: %v", err)
		http.Error(w, "failed to enqueue event", http.StatusInternalServerError)
		return
	}

	middleware.RecordIntakeEvent(queue.IntakeBookingChanged, "accepted")
	w.WriteHeader(http.StatusAccepted)
}

func writeValidationErrors(w http.ResponseWriter, validationErrors []usecase.ValidationError) {
	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		fields[e.Field] = e.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  "validation failed",
		"fields": fields,
	})
}
