package session

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doogybook/backend/internal/dogs"
	"github.com/doogybook/backend/internal/middleware"
	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/internal/organizations"
	"github.com/doogybook/backend/pkg/response"
)

// CurrentDogStore keeps each user's current dog selection.
type CurrentDogStore interface {
	SetCurrentDog(ctx context.Context, userID, dogID uuid.UUID) (*CurrentDog, error)
	CurrentDog(ctx context.Context, userID uuid.UUID) (*CurrentDog, error)
	ClearCurrentDog(ctx context.Context, userID uuid.UUID) error
}

// Handler serves the /me/current-dog endpoints.
type Handler struct {
	store   CurrentDogStore
	dogs    dogs.Loader
	checker organizations.AccessChecker
	logger  *zap.Logger
}

// NewHandler creates a current dog handler.
func NewHandler(store CurrentDogStore, loader dogs.Loader, checker organizations.AccessChecker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, dogs: loader, checker: checker, logger: logger}
}

// CurrentDogRequest is the body for PUT /me/current-dog.
type CurrentDogRequest struct {
	DogID string `json:"dog_id" binding:"required"`
}

// CurrentDogView is the selection with the dog it points at.
type CurrentDogView struct {
	CurrentDog
	Dog *models.Dog `json:"dog"`
}

// loadAllowed returns the dog when userID may still see it, or nil.
func (h *Handler) loadAllowed(ctx context.Context, userID, dogID uuid.UUID) (*models.Dog, error) {
	dog, err := h.dogs.GetByID(ctx, dogID)
	if errors.Is(err, dogs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ok, err := dogs.Allowed(ctx, h.checker, dog, userID, dogs.StaffOrOwner)
	if err != nil || !ok {
		return nil, err
	}
	return dog, nil
}

// Set handles PUT /me/current-dog.
func (h *Handler) Set(c *gin.Context) {
	var req CurrentDogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "dog_id required")
		return
	}
	dogID, err := uuid.Parse(req.DogID)
	if err != nil {
		response.BadRequest(c, "invalid dog id")
		return
	}
	ctx, userID := c.Request.Context(), middleware.UserID(c)
	dog, err := h.loadAllowed(ctx, userID, dogID)
	if err != nil {
		response.Internal(c, "failed to load dog")
		return
	}
	if dog == nil {
		response.NotFound(c, "dog not found")
		return
	}
	cur, err := h.store.SetCurrentDog(ctx, userID, dogID)
	if err != nil {
		h.logger.Error("set current dog failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to save current dog")
		return
	}
	response.OK(c, CurrentDogView{CurrentDog: *cur, Dog: dog})
}

// Get handles GET /me/current-dog. A selection the user can no longer see is cleared.
func (h *Handler) Get(c *gin.Context) {
	ctx, userID := c.Request.Context(), middleware.UserID(c)
	cur, err := h.store.CurrentDog(ctx, userID)
	if err != nil {
		response.Internal(c, "failed to load current dog")
		return
	}
	if cur == nil {
		response.NotFound(c, "no current dog")
		return
	}
	dog, err := h.loadAllowed(ctx, userID, cur.DogID)
	if err != nil {
		response.Internal(c, "failed to load dog")
		return
	}
	if dog == nil {
		if err := h.store.ClearCurrentDog(ctx, userID); err != nil {
			h.logger.Warn("clear stale current dog failed", zap.Error(err), zap.String("user_id", userID.String()))
		}
		response.NotFound(c, "no current dog")
		return
	}
	response.OK(c, CurrentDogView{CurrentDog: *cur, Dog: dog})
}

// Clear handles DELETE /me/current-dog.
func (h *Handler) Clear(c *gin.Context) {
	if err := h.store.ClearCurrentDog(c.Request.Context(), middleware.UserID(c)); err != nil {
		response.Internal(c, "failed to clear current dog")
		return
	}
	response.NoContent(c)
}
