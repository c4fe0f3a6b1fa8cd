package organizations

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/doogybook/backend/internal/middleware"
	"github.com/doogybook/backend/pkg/response"
)

// ContextOrganizationID is the context key for the organization id once access is enforced.
const ContextOrganizationID = "organization_id"

// AccessChecker reports whether a user is staff of an organization.
type AccessChecker interface {
	UserHasOrgAccess(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// RequireOrgAccess validates that the caller is staff of the organization named by the :id
// route parameter. Call after JWT.
func RequireOrgAccess(checker AccessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid organization id")
			c.Abort()
			return
		}
		ok, err := checker.UserHasOrgAccess(c.Request.Context(), orgID, middleware.UserID(c))
		if err != nil {
			response.Internal(c, "failed to check organization access")
			c.Abort()
			return
		}
		if !ok {
			response.Forbidden(c, "not authorized for this organization")
			c.Abort()
			return
		}
		c.Set(ContextOrganizationID, orgID)
		c.Next()
	}
}

// OrganizationID returns the organization id set by an access middleware.
func OrganizationID(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextOrganizationID).(uuid.UUID)
}
