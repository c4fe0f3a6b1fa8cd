package organizations

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/doogybook/backend/internal/middleware"
	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/response"
)

// Slug must be lowercase alphanumeric and hyphens only, 2-64 chars.
var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

// Handler handles organization HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// CreateOrganizationRequest is the body for POST /organizations.
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
	City string `json:"city"`
}

// JoinOrganizationRequest is the body for POST /organizations/join.
type JoinOrganizationRequest struct {
	Slug string `json:"slug" binding:"required"`
}

func normalizeCreate(body *CreateOrganizationRequest) string {
	body.Slug = strings.ToLower(strings.TrimSpace(body.Slug))
	body.Name = strings.TrimSpace(body.Name)
	body.City = strings.TrimSpace(body.City)
	if !slugRegex.MatchString(body.Slug) {
		return "slug must be 2-64 chars, lowercase letters, numbers, hyphens only"
	}
	if len(body.Name) < 1 || len(body.Name) > 255 {
		return "name must be 1-255 characters"
	}
	return ""
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateOrganization handles POST /organizations. Creates the org with the caller as owner.
func (h *Handler) CreateOrganization(c *gin.Context) {
	userID := middleware.UserID(c)
	var body CreateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name and slug required")
		return
	}
	if msg := normalizeCreate(&body); msg != "" {
		response.BadRequest(c, msg)
		return
	}
	org := &models.Organization{Name: body.Name, Slug: body.Slug, City: body.City}
	if err := h.repo.CreateWithOwner(c.Request.Context(), org, userID); err != nil {
		if isUniqueViolation(err) {
			response.Conflict(c, "an organization with this slug already exists")
			return
		}
		h.logger.Error("create organization failed", zap.Error(err))
		response.Internal(c, "failed to create organization")
		return
	}
	response.Created(c, org)
}

// JoinOrganization handles POST /organizations/join. Adds the caller as volunteer.
func (h *Handler) JoinOrganization(c *gin.Context) {
	userID := middleware.UserID(c)
	var body JoinOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "slug required")
		return
	}
	slug := strings.ToLower(strings.TrimSpace(body.Slug))
	if slug == "" {
		response.BadRequest(c, "slug required")
		return
	}
	org, err := h.repo.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		response.NotFound(c, "organization not found")
		return
	}
	role, err := h.repo.GetUserRole(c.Request.Context(), org.ID, userID)
	if err != nil {
		response.Internal(c, "failed to join organization")
		return
	}
	if role != "" {
		response.OK(c, org)
		return
	}
	if err := h.repo.AddUser(c.Request.Context(), org.ID, userID, models.OrgRoleVolunteer); err != nil {
		response.Internal(c, "failed to join organization")
		return
	}
	response.OK(c, org)
}

// ListMyOrganizations handles GET /organizations.
func (h *Handler) ListMyOrganizations(c *gin.Context) {
	orgs, err := h.repo.ListOrganizationsForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Internal(c, "failed to load organizations")
		return
	}
	response.OK(c, orgs)
}

// ListMembers handles GET /organizations/:id/members. Runs behind RequireOrgAccess.
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.repo.ListMembers(c.Request.Context(), OrganizationID(c))
	if err != nil {
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, members)
}
