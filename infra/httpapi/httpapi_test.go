package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeHealth struct {
	ok     bool
	detail string
}

func (f fakeHealth) Healthy() (bool, string) { return f.ok, f.detail }

func TestHealthz_ReportsOK(t *testing.T) {
	mux := NewMux(fakeHealth{ok: true}, nil, false)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)
}

func TestHealthz_ReportsUnhealthyWithDetail(t *testing.T) {
	mux := NewMux(fakeHealth{ok: false, detail: "row error budget exceeded"}, nil, false)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "row error budget exceeded")
}

func TestHealthz_NilReporterDefaultsHealthy(t *testing.T) {
	mux := NewMux(nil, nil, false)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsRoute_OnlyMountedWhenEnabled(t *testing.T) {
	mux := NewMux(nil, nil, false)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	mux = NewMux(nil, nil, true)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
