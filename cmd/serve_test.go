package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funnel-cli/internal/config"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/store"
)

type stubStore struct {
	snap *model.Snapshot
}

func (s *stubStore) Insert(ctx context.Context, snap *model.Snapshot) error { return nil }

func (s *stubStore) Latest(ctx context.Context) (*model.Snapshot, error) {
	if s.snap == nil {
		return nil, store.ErrNoSnapshot
	}
	return s.snap, nil
}

func (s *stubStore) Get(ctx context.Context, id string) (*model.Snapshot, error) {
	return s.Latest(ctx)
}

func (s *stubStore) List(ctx context.Context, limit int) ([]model.Snapshot, error) {
	return nil, nil
}

func (s *stubStore) SetActive(ctx context.Context, id string) error { return nil }
func (s *stubStore) Prune(ctx context.Context, keep int) (int, error) {
	return 0, nil
}
func (s *stubStore) Migrate(ctx context.Context) error { return nil }
func (s *stubStore) Close() error                      { return nil }

func testSnap() *model.Snapshot {
	return &model.Snapshot{
		ID:        "snap-1",
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:    model.SnapshotSourceSync,
		Dataset:   &model.AggregateDataset{Sellers: []string{model.ScopeAll}},
		QA:        &model.QAReport{Status: model.QAStatusPass, Score: 100},
	}
}

func setTestConfig(t *testing.T, token string) {
	t.Helper()
	orig := cfg
	cfg = &config.Config{}
	cfg.Server.BearerToken = token
	cfg.Pipeline.IntroCutoff = "2024-10-01"
	cfg.Pipeline.Retention = 52
	t.Cleanup(func() { cfg = orig })
}

func TestServe_Health(t *testing.T) {
	setTestConfig(t, "")
	r := newRouter(&stubStore{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestServe_Dataset(t *testing.T) {
	setTestConfig(t, "")
	r := newRouter(&stubStore{snap: testSnap()})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), model.ScopeAll)
}

func TestServe_DatasetNoSnapshot(t *testing.T) {
	setTestConfig(t, "")
	r := newRouter(&stubStore{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_QA(t *testing.T) {
	setTestConfig(t, "")
	r := newRouter(&stubStore{snap: testSnap()})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/qa", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"snap-1"`)
	assert.Contains(t, rec.Body.String(), `"pass"`)
}

func TestServe_BearerAuth(t *testing.T) {
	setTestConfig(t, "secret")
	r := newRouter(&stubStore{snap: testSnap()})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/dataset", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServe_AskValidation(t *testing.T) {
	setTestConfig(t, "")
	r := newRouter(&stubStore{snap: testSnap()})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Question present but no API key configured.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"how is January"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
