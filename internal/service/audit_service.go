package service

import (
	"context"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/authz"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/repository"
	apperrors "github.com/Thinkpad-Django-Lenovo/helpdesk/pkg/util"
)

// AuditService exposes the append-only trace, read-only, to super admins.
type AuditService struct {
	store repository.Store
}

// NewAuditService constructs the service.
func NewAuditService(store repository.Store) *AuditService {
	return &AuditService{store: store}
}

// ListRecent returns the newest entries first.
func (s *AuditService) ListRecent(ctx context.Context, actor *domain.User, limit int) ([]domain.AuditLog, error) {
	if !authz.Allow(actor.Role, authz.ActionAuditView, authz.RelationNone) {
		return nil, apperrors.NewForbidden("you do not have permission to view the audit log")
	}
	entries, err := s.store.Audit().ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListByActor returns the newest entries for one actor.
func (s *AuditService) ListByActor(ctx context.Context, actor *domain.User, actorID string, limit int) ([]domain.AuditLog, error) {
	if !authz.Allow(actor.Role, authz.ActionAuditView, authz.RelationNone) {
		return nil, apperrors.NewForbidden("you do not have permission to view the audit log")
	}
	entries, err := s.store.Audit().ListByActor(ctx, actorID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}
