package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"med-watch/models"
	"med-watch/providers"
	"med-watch/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct {
	records []models.MedicationRecord
	err     error
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) FetchMedications(context.Context) ([]models.MedicationRecord, error) {
	return s.records, s.err
}

func stubRecords() []models.MedicationRecord {
	return []models.MedicationRecord{
		{ID: "a", Name: "Drug A", Category: "Pain", Organizations: []models.OrganizationFlag{{Organization: "WHO"}}, BadEffectScore: models.Float(80)},
		{ID: "b", Name: "Drug B", Category: "Cardiac", Organizations: []models.OrganizationFlag{{Organization: "FDA"}}, BadEffectScore: models.Float(95)},
	}
}

func setupRouter(t *testing.T, src providers.Source) (*gin.Engine, *services.View) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	view := services.NewView(src, zap.NewNop(), services.NewMetrics(reg))
	view.Mount(context.Background())
	t.Cleanup(view.Unmount)

	select {
	case <-view.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("view did not load")
	}
	return newRouter(view, reg, zap.NewNop()), view
}

func doRequest(r http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var state map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	return state
}

func medicationNames(state map[string]any) []string {
	var names []string
	for _, m := range state["medications"].([]any) {
		names = append(names, m.(map[string]any)["name"].(string))
	}
	return names
}

func TestGetView(t *testing.T) {
	router, _ := setupRouter(t, stubSource{records: stubRecords()})

	w := doRequest(router, http.MethodGet, "/view", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	state := decodeState(t, w)
	assert.Equal(t, "ready", state["phase"])
	assert.Equal(t, []string{"Drug B", "Drug A"}, medicationNames(state))
}

func TestPutFilters(t *testing.T) {
	router, _ := setupRouter(t, stubSource{records: stubRecords()})

	w := doRequest(router, http.MethodPut, "/view/filters", "application/json", `{"organization": "WHO"}`)
	require.Equal(t, http.StatusOK, w.Code)

	state := decodeState(t, doRequest(router, http.MethodGet, "/view", "", ""))
	assert.Equal(t, []string{"Drug A"}, medicationNames(state))

	w = doRequest(router, http.MethodPut, "/view/filters", "application/json", `{"organization":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddMedicationJSON(t *testing.T) {
	router, view := setupRouter(t, stubSource{records: stubRecords()})

	w := doRequest(router, http.MethodPost, "/view/form/open", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, view.Snapshot().FormOpen)

	w = doRequest(router, http.MethodPost, "/view/medications", "application/json",
		`{"name": "Drug C", "category": "Neuro", "organizations": ["ICMR"], "badEffectScore": 99}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created["id"])
	assert.False(t, view.Snapshot().FormOpen)

	state := decodeState(t, doRequest(router, http.MethodGet, "/view", "", ""))
	assert.Equal(t, []string{"Drug C", "Drug B", "Drug A"}, medicationNames(state))
}

func TestAddMedicationForm(t *testing.T) {
	router, view := setupRouter(t, stubSource{records: stubRecords()})

	form := url.Values{"name": {"Drug D"}, "category": {"Pain"}, "organizations": {"WHO", "FDA"}}
	w := doRequest(router, http.MethodPost, "/view/medications", gin.MIMEPOSTForm, form.Encode())
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	state := view.Snapshot()
	assert.Equal(t, 3, state.Total)
}

func TestAddMedicationFormBlankScore(t *testing.T) {
	router, view := setupRouter(t, stubSource{records: stubRecords()})

	form := url.Values{"name": {"Drug Y"}, "category": {"Pain"}, "badEffectScore": {""}}
	w := doRequest(router, http.MethodPost, "/view/medications", gin.MIMEPOSTForm, form.Encode())
	require.Equal(t, http.StatusSeeOther, w.Code)

	view.SetSortKey("none")
	added := view.Snapshot().Medications[0]
	assert.Equal(t, "Drug Y", added.Name)
	assert.Nil(t, added.BadEffectScore)

	view.SetSortKey("")
	names := medicationNames(decodeState(t, doRequest(router, http.MethodGet, "/view", "", "")))
	assert.Equal(t, []string{"Drug B", "Drug A", "Drug Y"}, names)
}

func TestAddMedicationFormScore(t *testing.T) {
	router, view := setupRouter(t, stubSource{records: stubRecords()})

	form := url.Values{"name": {"Drug Z"}, "category": {"Pain"}, "badEffectScore": {" 42.5 "}}
	w := doRequest(router, http.MethodPost, "/view/medications", gin.MIMEPOSTForm, form.Encode())
	require.Equal(t, http.StatusSeeOther, w.Code)

	meds := view.Snapshot().Medications
	require.Len(t, meds, 3)
	require.NotNil(t, meds[2].BadEffectScore)
	assert.Equal(t, 42.5, *meds[2].BadEffectScore)

	form.Set("badEffectScore", "lots")
	w = doRequest(router, http.MethodPost, "/view/medications", gin.MIMEPOSTForm, form.Encode())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 3, view.Snapshot().Total)
}

func TestAddMedicationNonFiniteScore(t *testing.T) {
	router, view := setupRouter(t, stubSource{records: stubRecords()})

	for _, score := range []string{"Inf", "+Inf", "-Inf", "NaN"} {
		form := url.Values{"name": {"Drug X"}, "category": {"Pain"}, "badEffectScore": {score}}
		w := doRequest(router, http.MethodPost, "/view/medications", gin.MIMEPOSTForm, form.Encode())
		assert.Equal(t, http.StatusBadRequest, w.Code, score)
	}
	assert.Equal(t, 2, view.Snapshot().Total)

	w := doRequest(router, http.MethodGet, "/view", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Drug B", "Drug A"}, medicationNames(decodeState(t, w)))
}

func TestAddMedicationValidation(t *testing.T) {
	router, _ := setupRouter(t, stubSource{records: stubRecords()})

	w := doRequest(router, http.MethodPost, "/view/medications", "application/json", `{"name": "Only name"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddMedicationWhenFailed(t *testing.T) {
	router, _ := setupRouter(t, stubSource{err: fmt.Errorf("%w: status 503", providers.ErrFetchFailed)})

	w := doRequest(router, http.MethodPost, "/view/medications", "application/json", `{"name": "X", "category": "Y"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIndexPage(t *testing.T) {
	router, view := setupRouter(t, stubSource{records: stubRecords()})

	w := doRequest(router, http.MethodGet, "/?search=drug+a&organization=all", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Serious Medications Watch")
	assert.Contains(t, body, "Drug A")
	assert.NotContains(t, body, "<h3>Drug B</h3>")
	assert.Contains(t, body, "World Health Organization")
	assert.Equal(t, services.DefaultFilters(), view.Snapshot().Filters)

	w = doRequest(router, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h3>Drug B</h3>")
}

func TestIndexPageError(t *testing.T) {
	router, _ := setupRouter(t, stubSource{err: providers.ErrFetchFailed})

	w := doRequest(router, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Error fetching medications. Please try again later.")
}

func TestDarkModeToggle(t *testing.T) {
	router, _ := setupRouter(t, stubSource{records: stubRecords()})

	w := doRequest(router, http.MethodPost, "/view/dark-mode", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"darkMode": true}`, w.Body.String())

	w = doRequest(router, http.MethodPost, "/view/dark-mode", gin.MIMEPOSTForm, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := setupRouter(t, stubSource{records: stubRecords()})

	w := doRequest(router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	doRequest(router, http.MethodGet, "/view", "", "")
	w = doRequest(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "medwatch_fetch_total")
	assert.Contains(t, w.Body.String(), "medwatch_pipeline_runs_total")
}
