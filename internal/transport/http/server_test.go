package httpx

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/logging"
	"github.com/bcrosbie/noose/internal/service"
	"github.com/bcrosbie/noose/internal/store"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	records := store.NewFileStore(filepath.Join(t.TempDir(), "noose.db.json"))
	require.NoError(t, records.Load(context.Background()))
	require.NoError(t, records.SeedReferenceData(context.Background(), domain.ReferenceData{
		Profile: &domain.ColleagueProfile{Name: "Jean", Surname: "Dupont"},
		Popups:  []domain.Popup{{Title: "Attention", ImageURL: "/img/cone.png", IsActive: true}},
	}))
	noose := service.NewNooseService(records, service.Options{Driver: store.DriverFile, Logger: logging.Nop()})
	return withRequestLog(logging.Nop(), NewHandler(noose, logging.Nop()))
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestIndexAndHealth(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Palmarès")

	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageLoadsSectionsIndependently(t *testing.T) {
	body := do(t, newTestHandler(t), http.MethodGet, "/", "").Body.String()

	assert.Contains(t, body, "Promise.allSettled([loadDashboard(), loadAgents(), loadJournal(), loadPalmares()])")
	assert.NotContains(t, body, "Promise.all([")
	assert.NotContains(t, body, "refresh().catch")
	assert.Equal(t, 2, strings.Count(body, "toast(err.message, true)"), "only writes raise error toasts")
}

func TestAgentAndAccidentFlow(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/api/agents", `{"name":"Bond"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	agent := decode[domain.Agent](t, rec)
	assert.Equal(t, int64(1), agent.AgentNumber)

	rec = do(t, h, http.MethodPost, "/api/accidents",
		`{"date":"2024-05-02","description":"Crashed the Aston","cost":"250.50","added_by":"M","agent_id":"`+agent.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/accidents", `{"description":"Coffee on the server","cost":"abc","added_by":"Q"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "0", decode[domain.Accident](t, rec).Cost.String())

	rec = do(t, h, http.MethodGet, "/api/agents/"+agent.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[service.AgentDetail](t, rec)
	assert.Equal(t, "250.5", detail.Agent.TotalCost.String())
	assert.Len(t, detail.Accidents, 1)

	rec = do(t, h, http.MethodGet, "/api/accidents?agent_id="+agent.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Accident](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/accidents?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Accident](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[service.ProfileView](t, rec).Profile.TotalAccidents)

	rec = do(t, h, http.MethodGet, "/api/leaderboard?limit=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[map[string]any](t, rec)
	assert.EqualValues(t, 3, board["size"])
	assert.Len(t, board["by_cost"], 1)
}

func TestValidationErrors(t *testing.T) {
	h := newTestHandler(t)
	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodPost, "/api/agents", `{"name":"  "}`, http.StatusBadRequest},
		{http.MethodPost, "/api/agents", ``, http.StatusBadRequest},
		{http.MethodPost, "/api/agents", `not json`, http.StatusBadRequest},
		{http.MethodPost, "/api/accidents", `{"description":"x","added_by":"y","date":"14/07/2024"}`, http.StatusBadRequest},
		{http.MethodGet, "/api/accidents?limit=-1", ``, http.StatusBadRequest},
		{http.MethodGet, "/api/leaderboard?limit=abc", ``, http.StatusBadRequest},
		{http.MethodGet, "/api/agents/missing", ``, http.StatusNotFound},
		{http.MethodDelete, "/api/agents", ``, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		rec := do(t, h, tc.method, tc.target, tc.body)
		assert.Equal(t, tc.want, rec.Code, "%s %s %s", tc.method, tc.target, tc.body)
		if tc.want != http.StatusMethodNotAllowed {
			assert.NotEmpty(t, decode[map[string]any](t, rec)["error"])
		}
	}
}

func TestQuotePopupAndDashboard(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/quote", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[map[string]any](t, rec)["quote"])

	rec = do(t, h, http.MethodGet, "/api/popup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	popup := decode[map[string]*domain.Popup](t, rec)["popup"]
	require.NotNil(t, popup)
	assert.Equal(t, "Attention", popup.Title)

	rec = do(t, h, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	dashboard := decode[service.Dashboard](t, rec)
	require.NotNil(t, dashboard.Profile)
	assert.Empty(t, dashboard.Degraded)
}

func TestStoreFailureIsServiceUnavailable(t *testing.T) {
	records, err := store.NewSQLiteStore(":memory:", logging.Nop())
	require.NoError(t, err)
	require.NoError(t, records.Load(context.Background()))
	require.NoError(t, records.Close())
	noose := service.NewNooseService(records, service.Options{Driver: store.DriverSQLite, Logger: logging.Nop()})
	h := NewHandler(noose, logging.Nop())

	rec := do(t, h, http.MethodGet, "/api/agents", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"profile", "quote", "popup", "accidents"}, decode[service.Dashboard](t, rec).Degraded)
}

func TestExportWorkbook(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodPost, "/api/agents", `{"name":"Bond"}`)

	rec := do(t, h, http.MethodGet, "/api/export.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxMIME, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	name, err := book.GetCellValue("Agents", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Bond", name)
}
