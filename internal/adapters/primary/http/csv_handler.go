package http

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// MaxCSVUploadBytes caps the size of an uploaded CSV file.
const MaxCSVUploadBytes = 10 << 20

// CSVHandler exposes the manual steps of the CSV pipeline
type CSVHandler struct {
	csvService   ports.CSVService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewCSVHandler creates a new CSV handler
func NewCSVHandler(csvService ports.CSVService, errorHandler *ErrorHandler, logger *slog.Logger) *CSVHandler {
	return &CSVHandler{
		csvService:   csvService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "csv"),
	}
}

// RegisterRoutes mounts the CSV endpoints. Callers restrict the router to
// managers.
func (h *CSVHandler) RegisterRoutes(r chi.Router) {
	r.Get("/export/pending", h.HandleExportPending)
	r.Post("/auto-process", h.HandleAutoProcess)
	r.Post("/import", h.HandleImport)
}

// HandleExportPending handles GET /csv/export/pending
func (h *CSVHandler) HandleExportPending(w http.ResponseWriter, r *http.Request) {
	file, err := h.csvService.ExportPending(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "pending tickets exported", "rows", file.Rows)
	WriteCSV(w, file)
}

// HandleAutoProcess handles POST /csv/auto-process
func (h *CSVHandler) HandleAutoProcess(w http.ResponseWriter, r *http.Request) {
	upload, err := h.openUpload(w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	defer upload.Close()

	file, err := h.csvService.AutoProcess(r.Context(), upload)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCSV(w, file)
}

// HandleImport handles POST /csv/import
func (h *CSVHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	upload, err := h.openUpload(w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	defer upload.Close()

	actorID := principalID(r)

	result, err := h.csvService.Import(r.Context(), upload, actorID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "csv imported",
		"updated", result.UpdatedCount,
		"skipped", result.SkippedCount,
		"failed", result.FailedCount,
	)

	WriteJSON(w, http.StatusOK, result)
}

// openUpload returns the multipart "file" field of the request.
func (h *CSVHandler) openUpload(w http.ResponseWriter, r *http.Request) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxCSVUploadBytes)

	if err := r.ParseMultipartForm(MaxCSVUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewBadRequestError(err, "CSV file too large")
		}
		return nil, apperrors.NewBadRequestError(err, "Expected multipart form with a file field")
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, apperrors.InvalidCSV(err)
	}
	return file, nil
}
