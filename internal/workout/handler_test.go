package workout

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(catalog *testCatalog, now time.Time) (*Handler, *mux.Router) {
	handler := NewHandler(NewGenerator(catalog, DefaultSize, 15, time.UTC))
	handler.now = func() time.Time { return now }
	r := mux.NewRouter()
	handler.SetupRoutes(r)
	return handler, r
}

func TestHandler_HandleToday(t *testing.T) {
	catalog := testExercises(10)
	now := time.Date(2025, time.July, 4, 9, 15, 0, 0, time.UTC)
	_, r := newTestHandler(&testCatalog{exercises: catalog}, now)

	req, err := http.NewRequest("GET", "/workout/today", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "2025-07-04", resp.Date)
	assert.True(t, resp.Available)
	assert.Equal(t, ids(Generate(catalog, now, DefaultSize)), ids(resp.Exercises))
	assert.Equal(t, resp.WorkSeconds+resp.RestSeconds, resp.TotalSeconds)
}

func TestHandler_HandleToday_DateParam(t *testing.T) {
	catalog := testExercises(10)
	_, r := newTestHandler(&testCatalog{exercises: catalog}, time.Now())

	req, err := http.NewRequest("GET", "/workout/today?date=2024-12-31", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "2024-12-31", resp.Date)
	expected := Generate(catalog, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), DefaultSize)
	assert.Equal(t, ids(expected), ids(resp.Exercises))

	req, err = http.NewRequest("GET", "/workout/today?date=31.12.2024", nil)
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_HandleToday_EmptyCatalog(t *testing.T) {
	_, r := newTestHandler(&testCatalog{}, time.Now())

	req, err := http.NewRequest("GET", "/workout/today", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Available)
	assert.Empty(t, resp.Exercises)
	assert.Zero(t, resp.TotalSeconds)
}

func TestHandler_HandleToday_CatalogDown(t *testing.T) {
	_, r := newTestHandler(&testCatalog{err: errors.New("db down")}, time.Now())

	req, err := http.NewRequest("GET", "/workout/today", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
