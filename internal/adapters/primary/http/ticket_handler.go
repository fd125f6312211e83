package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/lorrc/ticket-workflow/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ticket-workflow/internal/adapters/primary/validation"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// TicketHandler handles HTTP requests for tickets
type TicketHandler struct {
	ticketService ports.TicketService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(
	ticketService ports.TicketService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "ticket"),
	}
}

// RegisterRoutes sets up the routing for all ticket endpoints. The router
// must already carry JWTMiddleware.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTickets)
	r.Post("/", h.HandleCreateTicket)

	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Patch("/", h.HandleEditTicket)
		r.Delete("/", h.HandleDeleteTicket)
		r.Get("/history", h.HandleListHistory)
		r.With(mw.RequireRole(domain.RoleManager)).Patch("/review", h.HandleReviewTicket)
	})
}

// --- Request DTOs ---

// CreateTicketRequest defines the expected JSON body for creating a ticket
type CreateTicketRequest struct {
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	DueDate             string  `json:"dueDate"`
	Severity            string  `json:"severity"`
	AISuggestedSeverity *string `json:"aiSuggestedSeverity"`
}

// ReviewTicketRequest defines the expected JSON body for a manager review
type ReviewTicketRequest struct {
	Action               string  `json:"action"`
	NewSeverity          *string `json:"newSeverity"`
	SeverityChangeReason string  `json:"severityChangeReason"`
}

// EditTicketRequest defines the expected JSON body for an associate edit
type EditTicketRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// Validate requires at least one field to change
func (r *EditTicketRequest) Validate() error {
	v := validation.NewValidator()
	v.Custom("title", r.Title != nil || r.Description != nil, "Provide title or description")

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// --- Handlers ---

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	pagination := validation.ParsePagination(r)

	params := ports.ListTicketsParams{
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
		Query:  validation.ParseStringQueryParam(r, "q"),
	}
	if status := validation.ParseStringQueryParam(r, "status"); status != nil {
		s := domain.TicketStatus(strings.ToUpper(*status))
		params.Status = &s
	}

	page, err := h.ticketService.ListTickets(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginated(w, toTicketSnapshots(page.Tickets), page.Limit, page.Offset, page.Total)
}

// HandleCreateTicket handles POST /tickets
func (h *TicketHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.getPrincipal(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeJSON[CreateTicketRequest](w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.CreateTicketParams{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Severity:    domain.Severity(req.Severity),
		Actor:       principal,
	}
	if req.AISuggestedSeverity != nil {
		ai := domain.Severity(*req.AISuggestedSeverity)
		params.AISuggestedSeverity = &ai
	}

	ticket, err := h.ticketService.CreateTicket(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket created",
		"ticket_id", ticket.ID,
		"ticket_number", ticket.TicketNumber,
	)

	WriteCreated(w, domain.NewTicketSnapshot(ticket))
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.GetTicket(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, domain.NewTicketSnapshot(ticket))
}

// HandleReviewTicket handles PATCH /tickets/{ticketID}/review
func (h *TicketHandler) HandleReviewTicket(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.getPrincipal(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeJSON[ReviewTicketRequest](w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	decision := domain.ReviewDecision{
		Action: domain.ReviewAction(req.Action),
		Reason: req.SeverityChangeReason,
	}
	if req.NewSeverity != nil {
		severity := domain.Severity(*req.NewSeverity)
		decision.NewSeverity = &severity
	}

	ticket, err := h.ticketService.ReviewTicket(r.Context(), ports.ReviewTicketParams{
		TicketID: ticketID,
		Actor:    principal,
		Decision: decision,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket reviewed",
		"ticket_id", ticketID,
		"action", req.Action,
		"new_status", ticket.Status,
	)

	WriteJSON(w, http.StatusOK, domain.NewTicketSnapshot(ticket))
}

// HandleEditTicket handles PATCH /tickets/{ticketID}
func (h *TicketHandler) HandleEditTicket(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.getPrincipal(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeJSON[EditTicketRequest](w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.EditTicket(r.Context(), ports.EditTicketParams{
		TicketID:    ticketID,
		Actor:       principal,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, domain.NewTicketSnapshot(ticket))
}

// HandleDeleteTicket handles DELETE /tickets/{ticketID}
func (h *TicketHandler) HandleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.getPrincipal(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	err = h.ticketService.DeleteTicket(r.Context(), ports.DeleteTicketParams{
		TicketID: ticketID,
		Actor:    principal,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket soft deleted", "ticket_id", ticketID)

	WriteNoContent(w)
}

// HandleListHistory handles GET /tickets/{ticketID}/history
func (h *TicketHandler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	entries, err := h.ticketService.ListHistory(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	snapshots := make([]domain.HistorySnapshot, 0, len(entries))
	for _, entry := range entries {
		snapshots = append(snapshots, domain.NewHistorySnapshot(entry))
	}
	WriteList(w, snapshots)
}

// --- Helper methods ---

// getPrincipal extracts the acting user from the request context
func (h *TicketHandler) getPrincipal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return domain.Principal{}, false
	}
	return principal, true
}

// parseTicketID extracts and validates the ticket ID from the URL
func (h *TicketHandler) parseTicketID(r *http.Request) (uuid.UUID, error) {
	return validation.ParseUUID("ticketID", chi.URLParam(r, "ticketID"))
}

func toTicketSnapshots(tickets []*domain.Ticket) []domain.TicketSnapshot {
	response := make([]domain.TicketSnapshot, 0, len(tickets))
	for _, ticket := range tickets {
		response = append(response, domain.NewTicketSnapshot(ticket))
	}
	return response
}
