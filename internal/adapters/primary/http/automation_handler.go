package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/lorrc/ticket-workflow/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// AutomationHandler triggers the export, auto-process, import cycle
type AutomationHandler struct {
	automationService ports.AutomationService
	errorHandler      *ErrorHandler
	logger            *slog.Logger
}

// NewAutomationHandler creates a new automation handler
func NewAutomationHandler(
	automationService ports.AutomationService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AutomationHandler {
	return &AutomationHandler{
		automationService: automationService,
		errorHandler:      errorHandler,
		logger:            logger.With("handler", "automation"),
	}
}

// RegisterRoutes mounts both triggers. guardCron protects the scheduled
// run; guardManager protects the manual one.
func (h *AutomationHandler) RegisterRoutes(r chi.Router, guardCron, guardManager func(http.Handler) http.Handler) {
	r.With(guardCron).Post("/nightly", h.HandleRun)
	r.With(guardManager).Post("/run-now", h.HandleRun)
}

// HandleRun runs one cycle. An authenticated manager is recorded as the
// history actor; the scheduled trigger runs without one.
func (h *AutomationHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	actorID := principalID(r)

	report, err := h.automationService.Run(r.Context(), actorID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "automation run finished",
		"exported", report.ExportedCount,
		"updated", report.Import.UpdatedCount,
		"skipped", report.Import.SkippedCount,
		"scheduled", actorID == nil,
	)

	WriteJSON(w, http.StatusOK, report)
}

// principalID returns the authenticated user's ID, or nil for requests
// without a principal.
func principalID(r *http.Request) *uuid.UUID {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		return nil
	}
	id := principal.ID
	return &id
}
