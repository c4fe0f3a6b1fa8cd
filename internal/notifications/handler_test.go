package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doogybook/backend/internal/middleware"
	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memInbox struct {
	rows      []models.Notification
	lastLimit int
}

func (m *memInbox) ListForUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	m.lastLimit = limit
	out := []models.Notification{}
	for _, n := range m.rows {
		if n.UserID == userID && (!unreadOnly || n.ReadAt == nil) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memInbox) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	for _, n := range m.rows {
		if n.ID == id && n.UserID == userID {
			return nil
		}
	}
	return ErrNotFound
}

func newRouter(inbox Inbox, userID uuid.UUID) *gin.Engine {
	h := NewHandler(inbox, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, userID) })
	r.GET("/me/notifications", h.List)
	r.PATCH("/notifications/:id/read", h.MarkRead)
	return r
}

func TestHandler_List(t *testing.T) {
	me := uuid.New()
	inbox := &memInbox{rows: []models.Notification{
		{ID: uuid.New(), UserID: me, Title: "a"},
		{ID: uuid.New(), UserID: uuid.New(), Title: "b"},
	}}
	r := newRouter(inbox, me)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me/notifications?limit=1000", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxLimit, inbox.lastLimit)

	var body struct {
		Data []models.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "a", body.Data[0].Title)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me/notifications?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_MarkRead(t *testing.T) {
	me := uuid.New()
	mine := uuid.New()
	r := newRouter(&memInbox{rows: []models.Notification{{ID: mine, UserID: me}}}, me)

	tests := []struct {
		name string
		id   string
		want int
	}{
		{"own notification", mine.String(), http.StatusNoContent},
		{"unknown", uuid.NewString(), http.StatusNotFound},
		{"bad id", "nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/notifications/"+tt.id+"/read", nil))
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusNotFound {
				var body response.Body
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.False(t, body.Success)
			}
		})
	}
}
