package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/rankd/internal/filter"
	"github.com/fyrsmithlabs/rankd/internal/pipeline"
	"github.com/fyrsmithlabs/rankd/internal/retrieval"
)

type fakeKeyword struct{}

func (fakeKeyword) Search(_ context.Context, _ string, _ int) ([]retrieval.KeywordHit, error) {
	return []retrieval.KeywordHit{
		{SourceID: "doc-1", Content: "a reasonably detailed passage about the topic at hand", Score: 2.0},
	}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := pipeline.DefaultConfig()
	cfg.Mode = filter.ModeLenient
	retriever := retrieval.New(nil, nil, fakeKeyword{}, nil, nil, cfg.Retrieval, nil)
	p, err := pipeline.New(cfg, nil, retriever, nil, nil, nil, nil)
	require.NoError(t, err)

	s, err := NewServer(p, prometheus.NewRegistry(), nil, Config{})
	require.NoError(t, err)
	return s
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestRetrieve(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/retrieve",
		strings.NewReader(`{"text": "topic"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "doc-1", result.Candidates[0].SourceID)
	assert.NotEmpty(t, result.Timings)
}

func TestRetrieveMissingText(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/retrieve", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetrieveMalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/retrieve", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

