package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/api/dto"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/auth"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/service"
	apperrors "github.com/Thinkpad-Django-Lenovo/helpdesk/pkg/util"
)

// AuditHandler exposes the read-only trace.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{service: auditService}
}

// ListRecent GET /audit.
func (h *AuditHandler) ListRecent(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	entries, err := h.service.ListRecent(c.UserContext(), actor, parseLimit(c))
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewAuditEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListByActor GET /audit/actors/:id.
func (h *AuditHandler) ListByActor(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	entries, err := h.service.ListByActor(c.UserContext(), actor, c.Params("id"), parseLimit(c))
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewAuditEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit", "0"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
