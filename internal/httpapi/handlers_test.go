package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kira7dn/videoassembly/internal/jobstore"
)

type stubAssembler struct {
	called  chan struct{}
	jobID   string
	specDoc map[string]any
}

func (s *stubAssembler) Assemble(ctx context.Context, jobID string, specDoc map[string]any) {
	s.jobID = jobID
	s.specDoc = specDoc
	close(s.called)
}

func newTestRouter(t *testing.T) (*chi.Mux, jobstore.JobStore, *stubAssembler) {
	t.Helper()
	store, err := jobstore.NewFileStore(filepath.Join(t.TempDir(), "jobs.json"))
	require.NoError(t, err)
	assembler := &stubAssembler{called: make(chan struct{})}
	h := NewHandler(store, assembler, t.TempDir())
	return NewRouter(h, RouterConfig{}), store, assembler
}

func TestCreateVideoReturnsQueuedJob(t *testing.T) {
	router, _, assembler := newTestRouter(t)

	body, _ := json.Marshal(CreateVideoRequest{Specification: map[string]any{"title": "x"}})
	req := httptest.NewRequest(http.MethodPost, "/video/create", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createVideoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, jobstore.StatusQueued, resp.Status)

	<-assembler.called
	assert.Equal(t, resp.JobID, assembler.jobID)
}

func TestCreateVideoRejectsEmptySpecification(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body, _ := json.Marshal(CreateVideoRequest{})
	req := httptest.NewRequest(http.MethodPost, "/video/create", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatusReturnsNotFoundForUnknownJob(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/video/status/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStatusReturnsJobRecord(t *testing.T) {
	router, store, _ := newTestRouter(t)

	job := jobstore.NewJob()
	require.NoError(t, store.Create(context.Background(), job))

	req := httptest.NewRequest(http.MethodGet, "/video/status/"+job.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetDownloadRejectsPathTraversal(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/video/download/..%2F..%2Fetc%2Fpasswd", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuthRejectsMissingKeyWhenConfigured(t *testing.T) {
	store, err := jobstore.NewFileStore(filepath.Join(t.TempDir(), "jobs.json"))
	require.NoError(t, err)
	h := NewHandler(store, &stubAssembler{called: make(chan struct{})}, t.TempDir())
	router := NewRouter(h, RouterConfig{BackendAPIKey: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/video/status/anything", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
