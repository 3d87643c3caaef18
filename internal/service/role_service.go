package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/repository"
	"github.com/kodevali/the300/internal/validation"
	"github.com/rs/zerolog"
)

// roleService is the concrete implementation of RoleService
type roleService struct {
	repos *repository.Repositories
	audit AuditService
	log   zerolog.Logger
}

func newRoleService(repos *repository.Repositories, audit AuditService, log zerolog.Logger) *roleService {
	return &roleService{
		repos: repos,
		audit: audit,
		log:   log.With().Str("service", "roles").Logger(),
	}
}

// DeriveRoles fills in the actor's roles: admin from the allowlist, group head
// and delegate from the LOB assignments of the employee with the actor's email.
func (s *roleService) DeriveRoles(ctx context.Context, actor models.Actor) (models.Actor, error) {
	actor.Email = models.NormalizeEmail(actor.Email)
	var roles []string
	lobs := []string{}

	isAdmin, err := s.repos.Role.IsAdmin(ctx, actor.Email)
	if err != nil {
		return actor, fmt.Errorf("failed to check admin list: %w", err)
	}
	if isAdmin || actor.IsAdmin() {
		roles = append(roles, models.RoleAdmin)
	}

	emp, err := s.repos.Employee.FindByEmail(ctx, actor.Email)
	if err != nil {
		return actor, fmt.Errorf("failed to look up employee: %w", err)
	}

	if emp != nil {
		if actor.Name == "" {
			actor.Name = emp.Name
		}

		assignments, err := s.repos.Role.ListRoles(ctx)
		if err != nil {
			return actor, fmt.Errorf("failed to load roles: %w", err)
		}

		var head, delegate bool
		for _, lr := range assignments {
			switch {
			case lr.GroupHead == emp.ID:
				head = true
				lobs = append(lobs, lr.LOB)
			case slices.Contains(lr.Delegates, emp.ID):
				delegate = true
				lobs = append(lobs, lr.LOB)
			}
		}
		if head {
			roles = append(roles, models.RoleGroupHead)
		}
		if delegate {
			roles = append(roles, models.RoleDelegate)
		}
	}

	actor.Roles = roles
	actor.LOBs = lobs
	return actor, nil
}

// RolesFor returns the actor with the assignments visible to them: every LOB
// for admins, otherwise the LOBs they head or deputize.
func (s *roleService) RolesFor(ctx context.Context, actor models.Actor) (*models.RolesResponse, error) {
	assignments, err := s.repos.Role.ListRoles(ctx)
	if err != nil {
		return nil, err
	}

	resp := &models.RolesResponse{Actor: actor}
	for _, lr := range assignments {
		if actor.IsAdmin() || slices.Contains(actor.LOBs, lr.LOB) {
			resp.Assignment = append(resp.Assignment, lr)
		}
	}
	return resp, nil
}

// SaveRoles sets the group head and delegates of one LOB
func (s *roleService) SaveRoles(ctx context.Context, roles models.LOBRoles, actor models.Actor) error {
	if strings.TrimSpace(roles.LOB) == "" {
		return fmt.Errorf("%w: lob is required", ErrInvalidInput)
	}

	ids := roles.Delegates
	if roles.GroupHead != "" {
		ids = append([]string{roles.GroupHead}, ids...)
	}
	for _, id := range ids {
		emp, err := s.repos.Employee.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if emp == nil {
			return fmt.Errorf("%w: employee %s", ErrNotFound, id)
		}
	}

	if err := s.repos.Role.SaveRoles(ctx, roles); err != nil {
		return fmt.Errorf("failed to save roles: %w", err)
	}

	s.audit.Record(ctx, actor, models.ActionRolesUpdated,
		fmt.Sprintf("%s: group head %q, %d delegate(s)", roles.LOB, roles.GroupHead, len(roles.Delegates)))
	return nil
}

// ListAdmins returns the admin allowlist
func (s *roleService) ListAdmins(ctx context.Context) ([]string, error) {
	return s.repos.Role.ListAdmins(ctx)
}

// ReplaceAdmins swaps the admin allowlist
func (s *roleService) ReplaceAdmins(ctx context.Context, emails []string, actor models.Actor) error {
	normalized, err := normalizeEmails(emails)
	if err != nil {
		return err
	}
	if err := s.repos.Role.ReplaceAdmins(ctx, normalized); err != nil {
		return fmt.Errorf("failed to save admins: %w", err)
	}
	s.audit.Record(ctx, actor, models.ActionAdminsUpdated, strings.Join(normalized, ", "))
	return nil
}

// AddAdmins adds emails to the allowlist, ignoring existing ones
func (s *roleService) AddAdmins(ctx context.Context, emails []string) (int, error) {
	normalized, err := normalizeEmails(emails)
	if err != nil {
		return 0, err
	}
	added, err := s.repos.Role.AddAdmins(ctx, normalized)
	if err != nil {
		return 0, fmt.Errorf("failed to add admins: %w", err)
	}
	s.log.Info().Int("added", added).Int("requested", len(normalized)).Msg("Admins added")
	return added, nil
}

func normalizeEmails(emails []string) ([]string, error) {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = models.NormalizeEmail(e)
		if !validation.IsValidEmail(e) {
			return nil, fmt.Errorf("%w: %q is not an email address", ErrInvalidInput, e)
		}
		out = append(out, e)
	}
	return out, nil
}
