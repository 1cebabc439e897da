package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/xavierca1/funnelsync/internal/infra/http/middleware"
	"github.com/xavierca1/funnelsync/internal/usecase"
)

// SyncHandler exposes the reconciliation trigger:
// POST /sync?kind=trials|guests|all&tenant=<code>&execute=true
// Without execute=true the run is a dry-run preview.
type SyncHandler struct {
	Orchestrator *usecase.SyncOrchestrator
}

func NewSyncHandler(orchestrator *usecase.SyncOrchestrator) *SyncHandler {
	return &SyncHandler{Orchestrator: orchestrator}
}

func (h *SyncHandler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	input := usecase.SyncInput{
		Kind:    usecase.SyncKind(query.Get("kind")),
		Tenant:  query.Get("tenant"),
		Execute: query.Get("execute") == "true",
	}
	if input.Kind == "" {
		input.Kind = usecase.SyncAll
	}

	mode := "dry_run"
	if input.Execute {
		mode = "execute"
	}

	start := time.Now()
	report, err := h.Orchestrator.Run(r.Context(), input)
	if err != nil {
		if usecase.IsDomainError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("❌ [SYNC] run failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	middleware.RecordSyncRun(string(input.Kind), mode, time.Since(start))
	middleware.RecordConversions(mode, report.Created, report.Updated)
	middleware.RecordSoftFailures(len(report.Errors))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(report)
}
