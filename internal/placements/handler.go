package placements

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doogybook/backend/internal/dogs"
	"github.com/doogybook/backend/internal/fosters"
	"github.com/doogybook/backend/internal/middleware"
	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/response"
)

// ContactReader loads foster contacts for confirmation summaries.
type ContactReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.FosterContact, error)
}

// FlowStore keeps a staff user's pending transfer between requests. A missing flow loads as nil.
type FlowStore interface {
	LoadTransfer(ctx context.Context, userID, dogID uuid.UUID) (*TransferFlow, error)
	SaveTransfer(ctx context.Context, userID uuid.UUID, flow TransferFlow) error
	ClearTransfer(ctx context.Context, userID, dogID uuid.UUID) error
}

// Handler exposes the placement workflow over HTTP. Routes run behind dogs.RequireDogAccess.
type Handler struct {
	service  *Service
	contacts ContactReader
	flows    FlowStore
	logger   *zap.Logger
}

// NewHandler creates a placements handler.
func NewHandler(service *Service, contacts ContactReader, flows FlowStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, contacts: contacts, flows: flows, logger: logger}
}

// Confirmation is returned instead of performing an irreversible action that was not confirmed.
type Confirmation struct {
	RequiresConfirmation bool   `json:"requires_confirmation"`
	Summary              string `json:"summary"`
}

// TransferState is the client view of a pending transfer.
type TransferState struct {
	Phase   Phase                  `json:"phase"`
	Adopter *models.AdopterAccount `json:"adopter,omitempty"`
	Summary string                 `json:"summary,omitempty"`
}

// PlaceRequest is the body for POST /dogs/:id/foster.
type PlaceRequest struct {
	ContactID string `json:"contact_id"`
	Confirm   bool   `json:"confirm"`
}

// ConfirmRequest is the body for return and transfer confirmation.
type ConfirmRequest struct {
	Confirm bool `json:"confirm"`
}

// LookupRequest is the body for POST /dogs/:id/transfer/lookup.
type LookupRequest struct {
	Email string `json:"email"`
}

func (h *Handler) fail(c *gin.Context, err error) {
	kind, code := Classify(err)
	switch kind {
	case KindValidation:
		response.Fail(c, http.StatusBadRequest, code, err.Error())
	case KindConflict:
		response.Fail(c, http.StatusConflict, code, err.Error())
	case KindNotFound:
		response.Fail(c, http.StatusNotFound, code, err.Error())
	default:
		h.logger.Error("placement request failed", zap.Error(err), zap.String("path", c.FullPath()))
		response.Fail(c, http.StatusInternalServerError, code, "placement update failed, nothing was changed")
	}
}

func confirmationNeeded(c *gin.Context, summary string) {
	_, code := Classify(ErrConfirmationRequired)
	c.JSON(http.StatusOK, response.Body{
		Success: true,
		Code:    code,
		Data:    Confirmation{RequiresConfirmation: true, Summary: summary},
	})
}

// bindOptional binds a JSON body when one is present.
func bindOptional(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return false
	}
	return true
}

// History handles GET /dogs/:id/placements.
func (h *Handler) History(c *gin.Context) {
	dog := dogs.FromContext(c)
	list, err := h.service.History(c.Request.Context(), dog.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// Place handles POST /dogs/:id/foster.
func (h *Handler) Place(c *gin.Context) {
	dog := dogs.FromContext(c)
	var req PlaceRequest
	if !bindOptional(c, &req) {
		return
	}
	if strings.TrimSpace(req.ContactID) == "" {
		h.fail(c, ErrContactRequired)
		return
	}
	contactID, err := uuid.Parse(strings.TrimSpace(req.ContactID))
	if err != nil {
		response.BadRequest(c, "invalid contact id")
		return
	}
	if !req.Confirm {
		contact, err := h.contacts.GetByID(c.Request.Context(), contactID)
		if errors.Is(err, fosters.ErrNotFound) {
			h.fail(c, ErrContactNotFound)
			return
		}
		if err != nil {
			h.fail(c, err)
			return
		}
		if err := CheckPlacement(dog, contact, nil); err != nil {
			h.fail(c, err)
			return
		}
		confirmationNeeded(c, PlaceSummary(dog, contact))
		return
	}
	out, err := h.service.Place(c.Request.Context(), middleware.UserID(c), dog.ID, contactID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, out)
}

// Return handles POST /dogs/:id/foster/return.
func (h *Handler) Return(c *gin.Context) {
	dog := dogs.FromContext(c)
	var req ConfirmRequest
	if !bindOptional(c, &req) {
		return
	}
	if !dog.InFoster() {
		h.fail(c, ErrNotInFoster)
		return
	}
	if !req.Confirm {
		contact, err := h.contacts.GetByID(c.Request.Context(), *dog.FosterFamilyContactID)
		if err != nil && !errors.Is(err, fosters.ErrNotFound) {
			h.fail(c, err)
			return
		}
		confirmationNeeded(c, ReturnSummary(dog, contact))
		return
	}
	out, err := h.service.Return(c.Request.Context(), middleware.UserID(c), dog.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, out)
}

func (h *Handler) loadFlow(c *gin.Context, dog *models.Dog) (TransferFlow, bool) {
	flow, err := h.flows.LoadTransfer(c.Request.Context(), middleware.UserID(c), dog.ID)
	if err != nil {
		h.fail(c, err)
		return TransferFlow{}, false
	}
	if flow == nil {
		return NewTransferFlow(dog.ID), true
	}
	return *flow, true
}

func stateOf(dog *models.Dog, flow TransferFlow) TransferState {
	st := TransferState{Phase: flow.Phase}
	if adopter, ok := flow.Candidate(); ok {
		st.Adopter = &adopter
		st.Summary = TransferSummary(dog, adopter)
	}
	return st
}

// Transfer handles GET /dogs/:id/transfer.
func (h *Handler) Transfer(c *gin.Context) {
	dog := dogs.FromContext(c)
	flow, ok := h.loadFlow(c, dog)
	if !ok {
		return
	}
	response.OK(c, stateOf(dog, flow))
}

// Lookup handles POST /dogs/:id/transfer/lookup.
func (h *Handler) Lookup(c *gin.Context) {
	dog := dogs.FromContext(c)
	var req LookupRequest
	if !bindOptional(c, &req) {
		return
	}
	if err := CheckTransfer(dog); err != nil {
		h.fail(c, err)
		return
	}
	flow, ok := h.loadFlow(c, dog)
	if !ok {
		return
	}
	next, err := h.service.LookupAdopter(c.Request.Context(), flow, req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.flows.SaveTransfer(c.Request.Context(), middleware.UserID(c), next); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, stateOf(dog, next))
}

// Cancel handles POST /dogs/:id/transfer/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	dog := dogs.FromContext(c)
	flow, ok := h.loadFlow(c, dog)
	if !ok {
		return
	}
	if err := h.flows.ClearTransfer(c.Request.Context(), middleware.UserID(c), dog.ID); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, stateOf(dog, flow.Cancel()))
}

// ConfirmTransfer handles POST /dogs/:id/transfer/confirm.
func (h *Handler) ConfirmTransfer(c *gin.Context) {
	dog := dogs.FromContext(c)
	var req ConfirmRequest
	if !bindOptional(c, &req) {
		return
	}
	flow, ok := h.loadFlow(c, dog)
	if !ok {
		return
	}
	adopter, ok := flow.Candidate()
	if !ok {
		h.fail(c, ErrTransferPhase)
		return
	}
	if !req.Confirm {
		confirmationNeeded(c, TransferSummary(dog, adopter))
		return
	}
	userID := middleware.UserID(c)
	out, err := h.service.ConfirmTransfer(c.Request.Context(), userID, flow)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.flows.ClearTransfer(c.Request.Context(), userID, dog.ID); err != nil {
		h.logger.Warn("clear transfer flow failed", zap.Error(err), zap.String("dog_id", dog.ID.String()))
	}
	response.OK(c, out)
}
