package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/repository"
	"github.com/rs/zerolog"
)

// auditService is the concrete implementation of AuditService
type auditService struct {
	repo repository.ChangelogRepository
	log  zerolog.Logger
	now  func() time.Time
}

func newAuditService(repo repository.ChangelogRepository, log zerolog.Logger) *auditService {
	return &auditService{
		repo: repo,
		log:  log.With().Str("service", "audit").Logger(),
		now:  time.Now,
	}
}

// Record appends a change-log entry. A failed write is logged and never
// fails the operation being audited.
func (s *auditService) Record(ctx context.Context, actor models.Actor, action, details string) {
	entry := &models.AuditEntry{
		ID:         uuid.New().String(),
		Timestamp:  s.now(),
		ActorName:  actor.Name,
		ActorEmail: actor.Email,
		Action:     action,
		Details:    details,
	}
	if err := s.repo.Record(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", action).Str("actor", actor.Email).Msg("Failed to record change log entry")
	}
}

// List returns entries newest first
func (s *auditService) List(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	return s.repo.List(ctx, limit)
}

// Clear empties the change log and records who did it
func (s *auditService) Clear(ctx context.Context, actor models.Actor) error {
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.Record(ctx, actor, models.ActionChangelogClear, "")
	return nil
}
