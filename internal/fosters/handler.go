package fosters

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doogybook/backend/internal/middleware"
	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/internal/organizations"
	"github.com/doogybook/backend/pkg/response"
)

// Store is the persistence the handler needs.
type Store interface {
	CandidateSource
	Create(ctx context.Context, fc *models.FosterContact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FosterContact, error)
	ListForOrganization(ctx context.Context, orgID uuid.UUID) ([]models.FosterContact, error)
	Update(ctx context.Context, id uuid.UUID, ch Changes) (*models.FosterContact, error)
}

// Handler handles foster contact endpoints.
type Handler struct {
	store   Store
	finder  *Finder
	checker organizations.AccessChecker
	logger  *zap.Logger
}

// NewHandler creates a foster contacts handler.
func NewHandler(store Store, checker organizations.AccessChecker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, finder: NewFinder(store), checker: checker, logger: logger}
}

// CreateContactRequest is the body for POST /organizations/:id/foster-contacts.
type CreateContactRequest struct {
	FullName      string     `json:"full_name" binding:"required"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	City          string     `json:"city"`
	Type          string     `json:"type" binding:"required"`
	Availability  string     `json:"availability"`
	MaxDogs       *int       `json:"max_dogs"`
	LinkedUserID  *uuid.UUID `json:"linked_user_id"`
	HousingType   string     `json:"housing_type"`
	HasGarden     bool       `json:"has_garden"`
	PreferredSize string     `json:"preferred_size"`
	Notes         string     `json:"notes"`
	Rating        *int       `json:"rating"`
}

// UpdateContactRequest is the body for PATCH /foster-contacts/:id.
type UpdateContactRequest struct {
	FullName      *string `json:"full_name"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	City          *string `json:"city"`
	Type          *string `json:"type"`
	Status        *string `json:"status"`
	Availability  *string `json:"availability"`
	MaxDogs       *int    `json:"max_dogs"`
	HousingType   *string `json:"housing_type"`
	HasGarden     *bool   `json:"has_garden"`
	PreferredSize *string `json:"preferred_size"`
	Notes         *string `json:"notes"`
	Rating        *int    `json:"rating"`
}

func validAvailability(s string) bool {
	return s == models.AvailabilityAvailable || s == models.AvailabilityUnavailable
}

func validStatus(s string) bool {
	return s == models.ContactStatusActive || s == models.ContactStatusInactive
}

func validRating(r *int) bool {
	return r == nil || (*r >= 1 && *r <= 5)
}

// newContact validates a create request and builds the contact for orgID.
func newContact(orgID uuid.UUID, req CreateContactRequest) (*models.FosterContact, string) {
	typ := models.ContactType(req.Type)
	if !typ.Valid() {
		return nil, "invalid contact type"
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, "full_name required"
	}
	availability := req.Availability
	if availability == "" {
		availability = models.AvailabilityAvailable
	}
	if !validAvailability(availability) {
		return nil, "invalid availability"
	}
	maxDogs := 1
	if req.MaxDogs != nil {
		maxDogs = *req.MaxDogs
	}
	if maxDogs < 0 {
		return nil, "max_dogs must not be negative"
	}
	if !validRating(req.Rating) {
		return nil, "rating must be between 1 and 5"
	}
	return &models.FosterContact{
		OrganizationID: orgID,
		LinkedUserID:   req.LinkedUserID,
		FullName:       name,
		Email:          models.NormalizeEmail(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		City:           strings.TrimSpace(req.City),
		Type:           typ,
		Status:         models.ContactStatusActive,
		Availability:   availability,
		MaxDogs:        maxDogs,
		HousingType:    req.HousingType,
		HasGarden:      req.HasGarden,
		PreferredSize:  req.PreferredSize,
		Notes:          req.Notes,
		Rating:         req.Rating,
	}, ""
}

// changesFrom validates an update request.
func changesFrom(req UpdateContactRequest) (Changes, string) {
	ch := Changes{
		FullName: req.FullName, Email: req.Email, Phone: req.Phone, City: req.City,
		Status: req.Status, Availability: req.Availability, MaxDogs: req.MaxDogs,
		HousingType: req.HousingType, HasGarden: req.HasGarden, PreferredSize: req.PreferredSize,
		Notes: req.Notes, Rating: req.Rating,
	}
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return ch, "full_name must not be empty"
	}
	if req.Email != nil {
		e := models.NormalizeEmail(*req.Email)
		ch.Email = &e
	}
	if req.Type != nil {
		t := models.ContactType(*req.Type)
		if !t.Valid() {
			return ch, "invalid contact type"
		}
		ch.Type = &t
	}
	if req.Status != nil && !validStatus(*req.Status) {
		return ch, "invalid status"
	}
	if req.Availability != nil && !validAvailability(*req.Availability) {
		return ch, "invalid availability"
	}
	if req.MaxDogs != nil && *req.MaxDogs < 0 {
		return ch, "max_dogs must not be negative"
	}
	if !validRating(req.Rating) {
		return ch, "rating must be between 1 and 5"
	}
	return ch, ""
}

// Create handles POST /organizations/:id/foster-contacts. Runs behind RequireOrgAccess.
func (h *Handler) Create(c *gin.Context) {
	var req CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "full_name and type required")
		return
	}
	fc, msg := newContact(organizations.OrganizationID(c), req)
	if msg != "" {
		response.BadRequest(c, msg)
		return
	}
	if err := h.store.Create(c.Request.Context(), fc); err != nil {
		h.logger.Error("create foster contact failed", zap.Error(err), zap.String("organization_id", fc.OrganizationID.String()))
		response.Internal(c, "failed to create contact")
		return
	}
	response.Created(c, fc)
}

// List handles GET /organizations/:id/foster-contacts.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.ListForOrganization(c.Request.Context(), organizations.OrganizationID(c))
	if err != nil {
		response.Internal(c, "failed to load contacts")
		return
	}
	response.OK(c, list)
}

// Eligible handles GET /organizations/:id/foster-contacts/eligible?q=.
func (h *Handler) Eligible(c *gin.Context) {
	orgID := organizations.OrganizationID(c)
	list, err := h.finder.Eligible(c.Request.Context(), orgID, c.Query("q"))
	if err != nil {
		h.logger.Error("eligible contacts failed", zap.Error(err), zap.String("organization_id", orgID.String()))
		response.Internal(c, "failed to load eligible contacts")
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /foster-contacts/:id. The caller must be staff of the contact's organization.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid contact id")
		return
	}
	var req UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ch, msg := changesFrom(req)
	if msg != "" {
		response.BadRequest(c, msg)
		return
	}

	ctx := c.Request.Context()
	current, err := h.store.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "foster contact not found")
		return
	}
	if err != nil {
		response.Internal(c, "failed to load contact")
		return
	}
	ok, err := h.checker.UserHasOrgAccess(ctx, current.OrganizationID, middleware.UserID(c))
	if err != nil {
		response.Internal(c, "failed to check organization access")
		return
	}
	if !ok {
		response.Forbidden(c, "not authorized for this contact")
		return
	}

	updated, err := h.store.Update(ctx, id, ch)
	switch {
	case errors.Is(err, ErrCapacityBelowCount):
		response.Conflict(c, "max_dogs cannot be lower than the dogs currently hosted")
		return
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "foster contact not found")
		return
	case err != nil:
		h.logger.Error("update foster contact failed", zap.Error(err), zap.String("contact_id", id.String()))
		response.Internal(c, "failed to update contact")
		return
	}
	response.OK(c, updated)
}
