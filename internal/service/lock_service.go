package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kodevali/the300/internal/metrics"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const notifyTimeout = 10 * time.Second

// LockEvent describes a line of business that was just locked
type LockEvent struct {
	LOB        string
	Actor      models.Actor
	Selections int
	Recipients []string
}

// Notifier delivers lock notifications
type Notifier interface {
	NotifyLocked(ctx context.Context, event LockEvent) error
}

// LogNotifier writes lock notifications to the log instead of sending mail
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a notifier that logs each event
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) NotifyLocked(_ context.Context, event LockEvent) error {
	n.log.Info().
		Str("lob", event.LOB).
		Str("actor", event.Actor.Email).
		Int("selections", event.Selections).
		Strs("recipients", event.Recipients).
		Msg("Roster locked")
	return nil
}

// lockService is the concrete implementation of LockService
type lockService struct {
	repos    *repository.Repositories
	audit    AuditService
	notifier Notifier
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func newLockService(repos *repository.Repositories, audit AuditService, notifier Notifier, m *metrics.Metrics, log zerolog.Logger) *lockService {
	return &lockService{
		repos:    repos,
		audit:    audit,
		notifier: notifier,
		metrics:  m,
		log:      log.With().Str("service", "locks").Logger(),
	}
}

// IsLocked reports whether lob is locked
func (s *lockService) IsLocked(ctx context.Context, lob string) (bool, error) {
	return s.repos.Lock.IsLocked(ctx, lob)
}

// ListLocks returns every known lock flag
func (s *lockService) ListLocks(ctx context.Context) (map[string]bool, error) {
	return s.repos.Lock.ListLocks(ctx)
}

// SetLock changes the lock flag of lob. Locking sends a notification whose
// failure is logged but never fails the lock.
func (s *lockService) SetLock(ctx context.Context, lob string, locked bool, actor models.Actor) error {
	if strings.TrimSpace(lob) == "" {
		return fmt.Errorf("%w: lob is required", ErrInvalidInput)
	}
	if !actor.CanManage(lob) {
		return ErrForbidden
	}

	if err := s.repos.Lock.SetLock(ctx, lob, locked); err != nil {
		return fmt.Errorf("failed to save lock: %w", err)
	}
	s.metrics.IncLock(locked)

	action := models.ActionUnlocked
	if locked {
		action = models.ActionLocked
	}
	s.audit.Record(ctx, actor, action, lob)

	s.log.Info().Str("lob", lob).Bool("locked", locked).Str("actor", actor.Email).Msg("Lock changed")

	if locked {
		s.notify(ctx, lob, actor)
	}
	return nil
}

func (s *lockService) notify(ctx context.Context, lob string, actor models.Actor) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	event, err := s.buildEvent(ctx, lob, actor)
	if err == nil {
		err = s.notifier.NotifyLocked(ctx, event)
	}
	s.metrics.IncNotification(err == nil)
	if err != nil {
		s.log.Error().Err(err).Str("lob", lob).Msg("Lock notification failed")
	}
}

// buildEvent gathers the LOB's selections and the group head, delegate and
// admin addresses
func (s *lockService) buildEvent(ctx context.Context, lob string, actor models.Actor) (LockEvent, error) {
	var (
		employees   []*models.Employee
		assignments []models.LOBRoles
		admins      []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		employees, err = s.repos.Employee.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		assignments, err = s.repos.Role.ListRoles(gctx)
		return err
	})
	g.Go(func() (err error) {
		admins, err = s.repos.Role.ListAdmins(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return LockEvent{}, err
	}

	event := LockEvent{LOB: lob, Actor: actor}
	byID := make(map[string]*models.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
		if e.LOB() == lob && e.IsSelected() {
			event.Selections++
		}
	}

	var ids []string
	for _, lr := range assignments {
		if lr.LOB == lob {
			if lr.GroupHead != "" {
				ids = append(ids, lr.GroupHead)
			}
			ids = append(ids, lr.Delegates...)
		}
	}
	for _, id := range ids {
		if e, ok := byID[id]; ok && e.Email != "" {
			event.Recipients = append(event.Recipients, models.NormalizeEmail(e.Email))
		}
	}
	event.Recipients = append(event.Recipients, admins...)
	slices.Sort(event.Recipients)
	event.Recipients = slices.Compact(event.Recipients)

	return event, nil
}
