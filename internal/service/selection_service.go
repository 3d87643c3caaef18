package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kodevali/the300/internal/config"
	"github.com/kodevali/the300/internal/metrics"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/repository"
	"github.com/rs/zerolog"
)

// selectionService is the concrete implementation of SelectionService
type selectionService struct {
	repos   *repository.Repositories
	audit   AuditService
	buffer  *EditBuffer
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func newSelectionService(repos *repository.Repositories, audit AuditService, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) *selectionService {
	s := &selectionService{
		repos:   repos,
		audit:   audit,
		metrics: m,
		log:     log.With().Str("service", "selections").Logger(),
		now:     time.Now,
	}
	s.buffer = NewEditBuffer(cfg.Edits.FlushDelay, s.apply, m, log)
	return s
}

// ListEmployees returns the roster visible to actor with pending edits
// applied. lob narrows the list; non-admins must name a LOB they manage or get
// every LOB they manage.
func (s *selectionService) ListEmployees(ctx context.Context, actor models.Actor, lob string) ([]*models.Employee, error) {
	var (
		employees []*models.Employee
		err       error
	)
	switch {
	case lob != "":
		if !actor.CanManage(lob) {
			return nil, ErrForbidden
		}
		employees, err = s.repos.Employee.ListByLOB(ctx, lob)
	case actor.IsAdmin():
		employees, err = s.repos.Employee.ListAll(ctx)
	default:
		for _, l := range actor.LOBs {
			part, lerr := s.repos.Employee.ListByLOB(ctx, l)
			if lerr != nil {
				return nil, lerr
			}
			employees = append(employees, part...)
		}
	}
	if err != nil {
		return nil, err
	}

	pending := s.buffer.Pending()
	for _, e := range employees {
		if edit, ok := pending[e.ID]; ok {
			applyEdit(e, edit)
		}
	}
	return employees, nil
}

// Queue validates a selection change and buffers it. A nil or blank reason
// deselects the employee.
func (s *selectionService) Queue(ctx context.Context, employeeID string, reason *string, actor models.Actor) (*models.SelectionEdit, error) {
	emp, err := s.repos.Employee.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, fmt.Errorf("%w: employee %s", ErrNotFound, employeeID)
	}

	lob := emp.LOB()
	if !actor.CanManage(lob) {
		return nil, ErrForbidden
	}
	locked, err := s.repos.Lock.IsLocked(ctx, lob)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, ErrLocked
	}

	if reason != nil {
		r := strings.TrimSpace(*reason)
		reason = &r
		if r == "" {
			reason = nil
		}
	}

	edit := models.SelectionEdit{
		EmployeeID:    emp.ID,
		EmployeeName:  emp.Name,
		EmployeeEmail: emp.Email,
		LOB:           lob,
		Reason:        reason,
		Modifier:      actor.Modifier(),
		ModifiedAt:    s.now(),
	}
	if err := s.buffer.Add(edit); err != nil {
		return nil, err
	}
	return &edit, nil
}

// Flush writes pending edits immediately
func (s *selectionService) Flush(ctx context.Context) (int, error) {
	return s.buffer.Flush(ctx)
}

// Close flushes pending edits; used on shutdown
func (s *selectionService) Close(ctx context.Context) error {
	return s.buffer.Close(ctx)
}

// apply is the buffer's flush func: one batched write, then one change-log
// entry per edit. Edits for LOBs locked since they were queued are dropped.
func (s *selectionService) apply(ctx context.Context, edits []models.SelectionEdit) error {
	locks, err := s.repos.Lock.ListLocks(ctx)
	if err != nil {
		s.metrics.IncFlush(false)
		return fmt.Errorf("failed to load locks: %w", err)
	}

	allowed := edits[:0:0]
	for _, e := range edits {
		if locks[e.LOB] {
			s.log.Warn().Str("employee_id", e.EmployeeID).Str("lob", e.LOB).Msg("Dropping edit for locked LOB")
			continue
		}
		allowed = append(allowed, e)
	}

	if err := s.repos.Employee.ApplySelections(ctx, allowed); err != nil {
		s.metrics.IncFlush(false)
		return fmt.Errorf("failed to apply %d selection edits: %w", len(allowed), err)
	}
	s.metrics.IncFlush(true)

	for _, e := range allowed {
		action, details := describeEdit(e)
		s.audit.Record(ctx, models.Actor{Name: e.Modifier.Name, Email: e.Modifier.Email}, action, details)
	}
	return nil
}

// ResetForGoLive clears every selection, unlocks every LOB and empties the
// change log, then records the reset. Pending edits are discarded.
func (s *selectionService) ResetForGoLive(ctx context.Context, actor models.Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	discarded := s.buffer.Discard()

	cleared, err := s.repos.Employee.ClearSelections(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear selections: %w", err)
	}
	if err := s.repos.Lock.UnlockAll(ctx); err != nil {
		return fmt.Errorf("failed to unlock LOBs: %w", err)
	}
	if err := s.repos.Changelog.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear change log: %w", err)
	}

	s.audit.Record(ctx, actor, models.ActionResetForGoLive,
		"Performed 'Reset for Go-Live' (Cleared Selections, Unlocked LOBs, Cleared Change Log)")

	s.log.Info().
		Int64("selections_cleared", cleared).
		Int("pending_discarded", discarded).
		Str("actor", actor.Email).
		Msg("Reset for go-live")
	return nil
}

func describeEdit(e models.SelectionEdit) (string, string) {
	who := fmt.Sprintf("%s (%s)", e.EmployeeName, e.EmployeeEmail)
	switch {
	case e.Reason == nil:
		return models.ActionDeselected, "Deselected employee " + who
	case *e.Reason == models.ReasonNotSelected:
		return models.ActionSelected, "Selected employee " + who
	default:
		return models.ActionReasonUpdated, fmt.Sprintf("Updated reason for %s to %q", who, *e.Reason)
	}
}

func applyEdit(e *models.Employee, edit models.SelectionEdit) {
	if edit.Reason == nil {
		e.Reason, e.Modifier, e.ModifiedAt = nil, nil, nil
		return
	}
	m := edit.Modifier
	ts := models.FormatTimestamp(edit.ModifiedAt)
	e.Reason, e.Modifier, e.ModifiedAt = edit.Reason, &m, &ts
}
