package contracts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/server/respond"
)

func setupTestHandler(t *testing.T) (*Handler, *Repository) {
	t.Helper()
	repo := setupTestRepo(t)
	return NewHandler(repo, zerolog.Nop()), repo
}

func newTestRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) respond.Envelope {
	t.Helper()
	var env respond.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestHandleCreate(t *testing.T) {
	h, _ := setupTestHandler(t)
	router := newTestRouter(h)

	body, err := json.Marshal(sampleContract())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/contracts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, "Contract created", env.Message)
}

func TestHandleCreate_MissingTitle(t *testing.T) {
	h, _ := setupTestHandler(t)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/contracts", bytes.NewReader([]byte(`{"user_id": "u1"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "VALIDATION", env.Code)
}

func TestHandleCreate_InvalidBody(t *testing.T) {
	h, _ := setupTestHandler(t)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/contracts", bytes.NewReader([]byte(`not json`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_BODY", decodeEnvelope(t, rec).Code)
}

func TestHandleGet(t *testing.T) {
	h, repo := setupTestHandler(t)
	router := newTestRouter(h)

	c := sampleContract()
	require.NoError(t, repo.Create(context.Background(), c))

	req := httptest.NewRequest(http.MethodGet, "/contracts/"+c.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "success", env.Status)

	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var got domain.Contract
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, c.ID, got.ID)
	assert.Len(t, got.Clauses, 2)
}

func TestHandleGet_NotFound(t *testing.T) {
	h, _ := setupTestHandler(t)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/contracts/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CONTRACT_NOT_FOUND", decodeEnvelope(t, rec).Code)
}

func TestHandleUpdate(t *testing.T) {
	h, repo := setupTestHandler(t)
	router := newTestRouter(h)

	c := sampleContract()
	require.NoError(t, repo.Create(context.Background(), c))

	c.Title = "Amended title"
	body, err := json.Marshal(c)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/contracts/"+c.ID, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	got, err := repo.FindByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amended title", got.Title)
}

func TestHandleDelete(t *testing.T) {
	h, repo := setupTestHandler(t)
	router := newTestRouter(h)

	c := sampleContract()
	require.NoError(t, repo.Create(context.Background(), c))

	req := httptest.NewRequest(http.MethodDelete, "/contracts/"+c.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/contracts/"+c.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
