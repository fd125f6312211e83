package services

import (
	"bytes"
	"context"

	"github.com/google/uuid"

	"github.com/lorrc/ticket-workflow/internal/core/domain"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// AutomationService sequences export, auto-process and import.
type AutomationService struct {
	csv  ports.CSVService
	lock ports.RunLock
	opts options
}

var _ ports.AutomationService = (*AutomationService)(nil)

// NewAutomationService creates a new orchestrator. lock may be nil when
// only one process can ever run the cycle.
func NewAutomationService(csv ports.CSVService, lock ports.RunLock, opts ...Option) *AutomationService {
	return &AutomationService{
		csv:  csv,
		lock: lock,
		opts: applyOptions(opts),
	}
}

// Run executes one cycle. A nil actorID attributes the imported changes to
// an external caller.
func (s *AutomationService) Run(ctx context.Context, actorID *uuid.UUID) (*domain.AutomationReport, error) {
	report := &domain.AutomationReport{
		StartedAt: s.opts.clock(),
		Import:    domain.EmptyImportResult(),
	}

	if s.lock != nil {
		release, ok, err := s.lock.TryAcquire(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.NewConflictError(apperrors.ErrAutomationRunning, "Automation run already in progress")
		}
		defer release()
	}

	exported, err := s.csv.ExportPending(ctx)
	if err != nil {
		return nil, err
	}
	report.ExportedCount = exported.Rows
	report.ExportFile = exported.Filename

	if exported.Rows == 0 {
		report.FinishedAt = s.opts.clock()
		s.opts.logger.Info("automation run skipped, nothing pending")
		return report, nil
	}

	processed, err := s.csv.AutoProcess(ctx, bytes.NewReader(exported.Content))
	if err != nil {
		return nil, err
	}
	report.ProcessedFile = processed.Filename

	report.Distribution, err = tallyStatuses(processed.Content)
	if err != nil {
		return nil, err
	}

	result, err := s.csv.Import(ctx, bytes.NewReader(processed.Content), actorID)
	if err != nil {
		return nil, err
	}
	report.Import = *result
	report.FinishedAt = s.opts.clock()

	s.opts.logger.Info("automation run completed",
		"exported", report.ExportedCount,
		"open", report.Distribution.Open,
		"closed", report.Distribution.Closed,
		"pending", report.Distribution.Pending,
		"updated", result.UpdatedCount,
		"skipped", result.SkippedCount,
		"failed", result.FailedCount,
	)

	return report, nil
}
