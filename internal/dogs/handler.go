package dogs

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/doogybook/backend/internal/middleware"
	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/internal/organizations"
	"github.com/doogybook/backend/pkg/response"
	"github.com/doogybook/backend/pkg/storage"
)

// PhotoStore is the object storage used for dog photos.
type PhotoStore interface {
	PresignPhotoUpload(ctx context.Context, key, contentType string) (string, error)
	PresignPhotoDownload(ctx context.Context, key string) (string, error)
	UploadPhoto(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	DeletePhoto(ctx context.Context, key string) error
}

// Handler handles dog HTTP endpoints.
type Handler struct {
	repo   *Repository
	photos PhotoStore
	logger *zap.Logger
}

// NewHandler creates a dogs handler. photos may be nil when storage is not configured.
func NewHandler(repo *Repository, photos PhotoStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, photos: photos, logger: logger}
}

// CreateDogRequest is the body for POST /organizations/:id/dogs.
type CreateDogRequest struct {
	Name        string `json:"name" binding:"required"`
	Breed       string `json:"breed"`
	Sex         string `json:"sex"`
	BirthDate   string `json:"birth_date"` // YYYY-MM-DD
	Description string `json:"description"`
}

// UpdateDogRequest is the body for PATCH /dogs/:id.
type UpdateDogRequest struct {
	Name           *string `json:"name"`
	Breed          *string `json:"breed"`
	Description    *string `json:"description"`
	BirthDate      *string `json:"birth_date"`
	AdoptionStatus *string `json:"adoption_status"`
}

func parseDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create handles POST /organizations/:id/dogs. Runs behind RequireOrgAccess.
func (h *Handler) Create(c *gin.Context) {
	var req CreateDogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	birth, err := parseDate(req.BirthDate)
	if err != nil {
		response.BadRequest(c, "birth_date must be YYYY-MM-DD")
		return
	}
	orgID := organizations.OrganizationID(c)
	dog := &models.Dog{
		Name:           strings.TrimSpace(req.Name),
		Breed:          strings.TrimSpace(req.Breed),
		Sex:            strings.TrimSpace(req.Sex),
		BirthDate:      birth,
		Description:    req.Description,
		OrganizationID: &orgID,
		AdoptionStatus: models.AdoptionAvailable,
	}
	if dog.Name == "" {
		response.BadRequest(c, "name required")
		return
	}
	if err := h.repo.Create(c.Request.Context(), dog); err != nil {
		h.logger.Error("create dog failed", zap.Error(err), zap.String("organization_id", orgID.String()))
		response.Internal(c, "failed to create dog")
		return
	}
	response.Created(c, dog)
}

// ListRoster handles GET /organizations/:id/dogs?status=&in_foster=.
func (h *Handler) ListRoster(c *gin.Context) {
	var f RosterFilter
	if s := c.Query("status"); s != "" {
		st := models.AdoptionStatus(s)
		if !st.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &st
	}
	if s := c.Query("in_foster"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			response.BadRequest(c, "in_foster must be true or false")
			return
		}
		f.InFoster = &b
	}
	list, err := h.repo.ListByOrganization(c.Request.Context(), organizations.OrganizationID(c), f)
	if err != nil {
		response.Internal(c, "failed to load dogs")
		return
	}
	response.OK(c, list)
}

// Get handles GET /dogs/:id. Runs behind RequireDogAccess.
func (h *Handler) Get(c *gin.Context) {
	response.OK(c, FromContext(c))
}

// ListMine handles GET /me/dogs.
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.repo.ListByOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Internal(c, "failed to load dogs")
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /dogs/:id. Adoption status may only move between available and pending;
// adoption itself goes through the transfer workflow.
func (h *Handler) Update(c *gin.Context) {
	dog := FromContext(c)
	var req UpdateDogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	d := Details{Name: req.Name, Breed: req.Breed, Description: req.Description}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		response.BadRequest(c, "name must not be empty")
		return
	}
	if req.BirthDate != nil {
		birth, err := parseDate(*req.BirthDate)
		if err != nil {
			response.BadRequest(c, "birth_date must be YYYY-MM-DD")
			return
		}
		d.BirthDate = birth
	}
	if req.AdoptionStatus != nil {
		st := models.AdoptionStatus(*req.AdoptionStatus)
		if st != models.AdoptionAvailable && st != models.AdoptionPending {
			response.BadRequest(c, "adoption_status must be available or pending")
			return
		}
		d.AdoptionStatus = &st
	}
	updated, err := h.repo.UpdateDetails(c.Request.Context(), dog.ID, d)
	if errors.Is(err, ErrNotFound) {
		response.Conflict(c, "dog has been adopted and can no longer be edited")
		return
	}
	if err != nil {
		h.logger.Error("update dog failed", zap.Error(err), zap.String("dog_id", dog.ID.String()))
		response.Internal(c, "failed to update dog")
		return
	}
	response.OK(c, updated)
}

// PhotoUploadURLRequest is the body for POST /dogs/:id/photo/upload-url.
type PhotoUploadURLRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// PhotoUploadURL handles POST /dogs/:id/photo/upload-url. Returns a presigned PUT URL and the key
// to confirm with PUT /dogs/:id/photo once the upload finished.
func (h *Handler) PhotoUploadURL(c *gin.Context) {
	if h.photos == nil {
		response.ServiceUnavailable(c, "photo storage not configured")
		return
	}
	dog := FromContext(c)
	var req PhotoUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "content_type required")
		return
	}
	ext, ok := storage.PhotoExtension(req.ContentType)
	if !ok {
		response.BadRequest(c, "unsupported photo type")
		return
	}
	key := storage.PhotoKey(dog.ID, ext)
	url, err := h.photos.PresignPhotoUpload(c.Request.Context(), key, req.ContentType)
	if err != nil {
		h.logger.Error("presign upload failed", zap.Error(err), zap.String("dog_id", dog.ID.String()))
		response.Internal(c, "failed to create upload url")
		return
	}
	response.OK(c, gin.H{"upload_url": url, "key": key})
}

// ConfirmPhotoRequest is the body for PUT /dogs/:id/photo.
type ConfirmPhotoRequest struct {
	Key string `json:"key" binding:"required"`
}

// ConfirmPhoto handles PUT /dogs/:id/photo after a direct upload.
func (h *Handler) ConfirmPhoto(c *gin.Context) {
	if h.photos == nil {
		response.ServiceUnavailable(c, "photo storage not configured")
		return
	}
	dog := FromContext(c)
	var req ConfirmPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil || !storage.OwnsKey(dog.ID, req.Key) {
		response.BadRequest(c, "invalid photo key")
		return
	}
	h.replacePhoto(c, dog, req.Key)
}

// UploadPhoto handles POST /dogs/:id/photo (multipart field "photo").
func (h *Handler) UploadPhoto(c *gin.Context) {
	if h.photos == nil {
		response.ServiceUnavailable(c, "photo storage not configured")
		return
	}
	dog := FromContext(c)
	fh, err := c.FormFile("photo")
	if err != nil {
		response.BadRequest(c, "photo file required")
		return
	}
	if fh.Size > storage.MaxPhotoSize {
		response.BadRequest(c, "photo exceeds 10MB")
		return
	}
	contentType := fh.Header.Get("Content-Type")
	ext, ok := storage.PhotoExtension(contentType)
	if !ok {
		response.BadRequest(c, "unsupported photo type")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "unreadable photo")
		return
	}
	defer f.Close()

	key := storage.PhotoKey(dog.ID, ext)
	if err := h.photos.UploadPhoto(c.Request.Context(), key, contentType, f, fh.Size); err != nil {
		h.logger.Error("photo upload failed", zap.Error(err), zap.String("dog_id", dog.ID.String()))
		response.Internal(c, "failed to upload photo")
		return
	}
	h.replacePhoto(c, dog, key)
}

func (h *Handler) replacePhoto(c *gin.Context, dog *models.Dog, key string) {
	if err := h.repo.SetPhotoKey(c.Request.Context(), dog.ID, key); err != nil {
		response.Internal(c, "failed to save photo")
		return
	}
	if dog.PhotoKey != "" && dog.PhotoKey != key {
		if err := h.photos.DeletePhoto(c.Request.Context(), dog.PhotoKey); err != nil {
			h.logger.Warn("delete previous photo failed", zap.Error(err), zap.String("key", dog.PhotoKey))
		}
	}
	response.OK(c, gin.H{"photo_key": key})
}

// PhotoURL handles GET /dogs/:id/photo/url.
func (h *Handler) PhotoURL(c *gin.Context) {
	if h.photos == nil {
		response.ServiceUnavailable(c, "photo storage not configured")
		return
	}
	dog := FromContext(c)
	if dog.PhotoKey == "" {
		response.NotFound(c, "dog has no photo")
		return
	}
	url, err := h.photos.PresignPhotoDownload(c.Request.Context(), dog.PhotoKey)
	if err != nil {
		response.Internal(c, "failed to create download url")
		return
	}
	response.OK(c, gin.H{"url": url})
}
