package dogs

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/doogybook/backend/internal/middleware"
	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/internal/organizations"
	"github.com/doogybook/backend/pkg/response"
)

// ContextDog is the context key for the dog loaded by RequireDogAccess.
const ContextDog = "dog"

// Loader fetches a dog by id.
type Loader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dog, error)
}

// Access selects who may pass RequireDogAccess.
type Access int

const (
	// StaffOnly admits staff of the dog's current organization.
	StaffOnly Access = iota
	// StaffOrOwner also admits the dog's adopter.
	StaffOrOwner
)

// RequireDogAccess loads the dog named by the :id route parameter and checks that the
// caller is staff of its organization (or, for StaffOrOwner, its owner). Call after JWT.
func RequireDogAccess(loader Loader, checker organizations.AccessChecker, access Access) gin.HandlerFunc {
	return func(c *gin.Context) {
		dogID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid dog id")
			c.Abort()
			return
		}
		dog, err := loader.GetByID(c.Request.Context(), dogID)
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "dog not found")
			c.Abort()
			return
		}
		if err != nil {
			response.Internal(c, "failed to load dog")
			c.Abort()
			return
		}
		ok, err := Allowed(c.Request.Context(), checker, dog, middleware.UserID(c), access)
		if err != nil {
			response.Internal(c, "failed to check organization access")
			c.Abort()
			return
		}
		if !ok {
			response.Forbidden(c, "not authorized for this dog")
			c.Abort()
			return
		}
		c.Set(ContextDog, dog)
		if dog.OrganizationID != nil {
			c.Set(organizations.ContextOrganizationID, *dog.OrganizationID)
		}
		c.Next()
	}
}

// Allowed reports whether userID may act on dog: staff of its organization always, its owner
// only with StaffOrOwner.
func Allowed(ctx context.Context, checker organizations.AccessChecker, dog *models.Dog, userID uuid.UUID, access Access) (bool, error) {
	if access == StaffOrOwner && dog.OwnerUserID != nil && *dog.OwnerUserID == userID {
		return true, nil
	}
	if dog.OrganizationID == nil {
		return false, nil
	}
	return checker.UserHasOrgAccess(ctx, *dog.OrganizationID, userID)
}

// FromContext returns the dog loaded by RequireDogAccess.
func FromContext(c *gin.Context) *models.Dog {
	return c.MustGet(ContextDog).(*models.Dog)
}
