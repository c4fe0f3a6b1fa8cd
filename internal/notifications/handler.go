package notifications

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doogybook/backend/internal/middleware"
	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/response"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Inbox reads and acknowledges a user's notifications.
type Inbox interface {
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

// Handler serves notification endpoints.
type Handler struct {
	inbox  Inbox
	logger *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(inbox Inbox, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{inbox: inbox, logger: logger}
}

// List handles GET /me/notifications?unread=true&limit=50.
func (h *Handler) List(c *gin.Context) {
	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = min(n, maxLimit)
	}
	unread := c.Query("unread") == "true"
	list, err := h.inbox.ListForUser(c.Request.Context(), middleware.UserID(c), unread, limit)
	if err != nil {
		h.logger.Error("list notifications failed", zap.Error(err))
		response.Internal(c, "failed to list notifications")
		return
	}
	response.OK(c, list)
}

// MarkRead handles PATCH /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	if err := h.inbox.MarkRead(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "notification not found")
			return
		}
		response.Internal(c, "failed to mark notification read")
		return
	}
	response.NoContent(c)
}
