package placements

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doogybook/backend/internal/dogs"
	"github.com/doogybook/backend/internal/fosters"
	"github.com/doogybook/backend/internal/middleware"
	"github.com/doogybook/backend/internal/models"
)

type memContacts struct{ store *memStore }

func (m memContacts) GetByID(_ context.Context, id uuid.UUID) (*models.FosterContact, error) {
	c, ok := m.store.state.contacts[id]
	if !ok {
		return nil, fosters.ErrNotFound
	}
	return &c, nil
}

type memFlows map[string]TransferFlow

func flowKey(userID, dogID uuid.UUID) string { return userID.String() + ":" + dogID.String() }

func (m memFlows) LoadTransfer(_ context.Context, userID, dogID uuid.UUID) (*TransferFlow, error) {
	if f, ok := m[flowKey(userID, dogID)]; ok {
		return &f, nil
	}
	return nil, nil
}

func (m memFlows) SaveTransfer(_ context.Context, userID uuid.UUID, flow TransferFlow) error {
	m[flowKey(userID, flow.DogID)] = flow
	return nil
}

func (m memFlows) ClearTransfer(_ context.Context, userID, dogID uuid.UUID) error {
	delete(m, flowKey(userID, dogID))
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type api struct {
	t      *testing.T
	f      *fixture
	flows  memFlows
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	flows := memFlows{}
	h := NewHandler(f.svc, memContacts{store: f.store}, flows, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, f.actorID) })
	loadDog := func(c *gin.Context) {
		d, ok := f.store.state.dogs[uuid.MustParse(c.Param("id"))]
		if !ok {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Set(dogs.ContextDog, &d)
	}
	g := r.Group("/dogs/:id", loadDog)
	g.GET("/placements", h.History)
	g.POST("/foster", h.Place)
	g.POST("/foster/return", h.Return)
	g.GET("/transfer", h.Transfer)
	g.POST("/transfer/lookup", h.Lookup)
	g.POST("/transfer/cancel", h.Cancel)
	g.POST("/transfer/confirm", h.ConfirmTransfer)
	return &api{t: t, f: f, flows: flows, router: r}
}

func (a *api) post(path string, body any) (int, envelope) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.serve(req)
}

func (a *api) get(path string) (int, envelope) {
	return a.serve(httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *api) serve(req *http.Request) (int, envelope) {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestHandler_PlaceAndReturn(t *testing.T) {
	a := newAPI(t)
	dog := a.f.shelterDog("Rex")
	fc := a.f.fosterFamily("Alice", 1, 3)
	base := "/dogs/" + dog.ID.String()

	status, env := a.post(base+"/foster", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "contact_required", env.Code)

	status, env = a.post(base+"/foster", map[string]any{"contact_id": fc.ID})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "confirmation_required", env.Code)
	var conf Confirmation
	require.NoError(t, json.Unmarshal(env.Data, &conf))
	assert.True(t, conf.RequiresConfirmation)
	assert.Contains(t, conf.Summary, "Alice will then host 2 of 3 dogs")
	assert.Zero(t, a.f.store.txs)

	status, env = a.post(base+"/foster", map[string]any{"contact_id": fc.ID, "confirm": true})
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, 2, a.f.store.contact(fc.ID).CurrentDogsCount)

	status, env = a.post(base+"/foster", map[string]any{"contact_id": fc.ID, "confirm": true})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_in_foster", env.Code)

	status, env = a.post(base+"/foster/return", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &conf))
	assert.Contains(t, conf.Summary, "closed as returned")

	status, _ = a.post(base+"/foster/return", map[string]any{"confirm": true})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, a.f.store.contact(fc.ID).CurrentDogsCount)

	status, env = a.post(base+"/foster/return", map[string]any{"confirm": true})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_in_foster", env.Code)

	status, env = a.get(base + "/placements")
	require.Equal(t, http.StatusOK, status)
	var history []models.Placement
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 1)
}

func TestHandler_Transfer(t *testing.T) {
	a := newAPI(t)
	dog := a.f.shelterDog("Rex")
	base := "/dogs/" + dog.ID.String()

	status, env := a.post(base+"/transfer/confirm", map[string]any{"confirm": true})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "transfer_not_confirmable", env.Code)

	status, env = a.post(base+"/transfer/lookup", map[string]any{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "adopter_not_found", env.Code)
	assert.Empty(t, a.flows)

	status, env = a.post(base+"/transfer/lookup", map[string]any{"email": "JANE@example.com"})
	require.Equal(t, http.StatusOK, status)
	var st TransferState
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, PhaseConfirm, st.Phase)
	require.NotNil(t, st.Adopter)
	assert.Equal(t, "Jane Doe", st.Adopter.FullName)

	status, env = a.post(base+"/transfer/lookup", map[string]any{"email": "jane@example.com"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "transfer_pending", env.Code)
	assert.Contains(t, env.Error, "already awaiting confirmation")

	status, _ = a.post(base+"/transfer/cancel", nil)
	require.Equal(t, http.StatusOK, status)
	status, env = a.get(base + "/transfer")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, PhaseLookup, st.Phase)

	status, _ = a.post(base+"/transfer/lookup", map[string]any{"email": "jane@example.com"})
	require.Equal(t, http.StatusOK, status)

	status, env = a.post(base+"/transfer/confirm", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "confirmation_required", env.Code)
	assert.False(t, a.f.store.dog(dog.ID).IsAdopted())

	status, _ = a.post(base+"/transfer/confirm", map[string]any{"confirm": true})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, a.f.store.dog(dog.ID).IsAdopted())
	assert.Empty(t, a.flows)
}

func TestHandler_BackendFailure(t *testing.T) {
	a := newAPI(t)
	dog := a.f.shelterDog("Rex")
	fc := a.f.fosterFamily("Alice", 0, 1)
	a.f.store.failAt = "SetFoster"

	status, env := a.post("/dogs/"+dog.ID.String()+"/foster", map[string]any{"contact_id": fc.ID, "confirm": true})

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "backend_failure", env.Code)
	assert.NotContains(t, env.Error, "boom")
}
