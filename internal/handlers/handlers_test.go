package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tenderflow/internal/attachments"
	"tenderflow/internal/eventlog"
	"tenderflow/internal/handlers"
	"tenderflow/internal/handlers/testutils"
	"tenderflow/internal/memstore"
	"tenderflow/internal/projection"
	"tenderflow/internal/requests"
	"tenderflow/internal/workflow"
	"tenderflow/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	mem     *memstore.Store
	handler *handlers.Handler
	router  chi.Router
	deptID  string
	userID  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memstore.New()
	f := &fixture{mem: mem, deptID: uuid.NewString(), userID: uuid.NewString()}
	mem.AddDepartment(f.deptID, "Electrical")
	mem.AddUser(f.userID, "admin")

	log := zap.NewNop()
	store := requests.NewStore(mem, mem, requests.Options{}, log)
	events := eventlog.New(mem, log)
	engine := workflow.NewEngine(store, events, workflow.Config{}, log)
	files := attachments.NewTracker(mem, store, events, store.Now, 3, log)
	f.handler = handlers.NewHandler(store, engine, events, files, mem, projection.Limits{Default: 100, Max: 500}, log)

	r := chi.NewRouter()
	r.Route("/api", f.handler.Routes)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) create(t *testing.T, code string, requiredLevels int) projection.TenderRequestView {
	t.Helper()
	rr := f.do(t, testutils.JSONRequest(t, http.MethodPost, "/api/tender-requests", map[string]any{
		"departmentId":   f.deptID,
		"createdBy":      f.userID,
		"code":           code,
		"category":       "ELECTRICAL",
		"requiredLevels": requiredLevels,
	}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var v projection.TenderRequestView
	testutils.DecodeJSON(t, rr, &v)
	return v
}

func TestPingHandler(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	rr := httptest.NewRecorder()

	f.handler.PingHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
	require.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
}

type failingPinger struct{}

func (failingPinger) PingContext(ctx context.Context) error { return errors.New("down") }

func TestReadyzHandler(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	f.handler.DB = failingPinger{}
	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/api/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCreateTenderRequestHandler(t *testing.T) {
	f := newFixture(t)

	v := f.create(t, "EL-001", 2)
	assert.Equal(t, models.StatusDraft, v.Status)
	assert.Equal(t, 0, v.CurrentLevel)
	require.NotNil(t, v.DepartmentName)
	assert.Equal(t, "Electrical", *v.DepartmentName)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/tender-requests/"+v.ID+"/events", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var events []projection.EventView
	testutils.DecodeJSON(t, rr, &events)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventCreated, events[0].Type)
	assert.Equal(t, f.userID, events[0].ActorUserID)
}

func TestCreateTenderRequestHandler_Errors(t *testing.T) {
	f := newFixture(t)
	f.create(t, "DUP", 1)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{"code":`, http.StatusBadRequest},
		{"missing code", fmt.Sprintf(`{"departmentId":%q,"createdBy":%q,"category":"WATER","requiredLevels":1}`, f.deptID, f.userID), http.StatusBadRequest},
		{"unknown department", fmt.Sprintf(`{"departmentId":%q,"createdBy":%q,"code":"X","category":"WATER","requiredLevels":1}`, uuid.NewString(), f.userID), http.StatusBadRequest},
		{"level above required", fmt.Sprintf(`{"departmentId":%q,"createdBy":%q,"code":"X","category":"WATER","requiredLevels":1,"currentLevel":2}`, f.deptID, f.userID), http.StatusUnprocessableEntity},
		{"duplicate code", fmt.Sprintf(`{"departmentId":%q,"createdBy":%q,"code":"DUP","category":"WATER","requiredLevels":1}`, f.deptID, f.userID), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/tender-requests", strings.NewReader(tt.body))
			rr := f.do(t, req)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestGetTenderRequestHandler(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "EL-002", 1)

	req := testutils.WithChiURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": v.ID})
	rr := httptest.NewRecorder()
	f.handler.GetTenderRequestHandler(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var got projection.TenderRequestView
	testutils.DecodeJSON(t, rr, &got)
	assert.Equal(t, v.ID, got.ID)

	req = testutils.WithChiURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": uuid.NewString()})
	rr = httptest.NewRecorder()
	f.handler.GetTenderRequestHandler(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	req = testutils.WithChiURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "not-a-uuid"})
	rr = httptest.NewRecorder()
	f.handler.GetTenderRequestHandler(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListTenderRequestsHandler(t *testing.T) {
	f := newFixture(t)
	f.create(t, "A", 1)
	f.create(t, "B", 1)
	f.create(t, "C", 1)

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/api/tender-requests?limit=2&status=DRAFT", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list []projection.TenderRequestView
	testutils.DecodeJSON(t, rr, &list)
	assert.Len(t, list, 2)

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/api/tender-requests?status=BOGUS", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/api/tender-requests?category=WATER", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "[]\n", rr.Body.String())
}

func TestPatchTenderRequestHandler(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "P-1", 3)

	rr := f.do(t, testutils.JSONRequest(t, http.MethodPatch, "/api/tender-requests/"+v.ID, map[string]any{"code": "P-2"}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got projection.TenderRequestView
	testutils.DecodeJSON(t, rr, &got)
	assert.Equal(t, "P-2", got.Code)
	assert.Equal(t, 3, got.RequiredLevels)

	rr = f.do(t, testutils.JSONRequest(t, http.MethodPut, "/api/tender-requests/"+v.ID, map[string]any{"currentLevel": 4}))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestPatchTenderRequestHandler_DepartmentName(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "P-3", 1)
	internet := uuid.NewString()
	f.mem.AddDepartment(internet, "Internet")

	rr := f.do(t, testutils.JSONRequest(t, http.MethodPatch, "/api/tender-requests/"+v.ID, map[string]any{"departmentId": internet}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got projection.TenderRequestView
	testutils.DecodeJSON(t, rr, &got)
	assert.Equal(t, internet, got.DepartmentID)
	require.NotNil(t, got.DepartmentName)
	assert.Equal(t, "Internet", *got.DepartmentName)
}

func TestDeleteTenderRequestHandler(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "D-1", 1)

	rr := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/tender-requests/"+v.ID, nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/tender-requests/"+v.ID, nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReviewTenderRequestHandler(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "R-1", 2)
	review := func(decision string) *httptest.ResponseRecorder {
		return f.do(t, testutils.JSONRequest(t, http.MethodPost, "/api/tender-requests/"+v.ID+"/review", map[string]any{
			"decision":    decision,
			"actorUserId": f.userID,
		}))
	}

	rr := review("APPROVE")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got projection.TenderRequestView
	testutils.DecodeJSON(t, rr, &got)
	assert.Equal(t, models.StatusInReview, got.Status)
	assert.Equal(t, 1, got.CurrentLevel)

	rr = review("APPROVE")
	require.Equal(t, http.StatusOK, rr.Code)
	testutils.DecodeJSON(t, rr, &got)
	assert.Equal(t, models.StatusOpen, got.Status)
	assert.Equal(t, 2, got.CurrentLevel)

	require.Equal(t, http.StatusUnprocessableEntity, review("APPROVE").Code)
	require.Equal(t, http.StatusBadRequest, review("MAYBE").Code)
}

func TestFileHandlers(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "F-1", 1)

	rr := f.do(t, testutils.JSONRequest(t, http.MethodPost, "/api/tender-requests/"+v.ID+"/files", map[string]any{
		"s3Key":    "tenders/f-1/terms.pdf",
		"fileName": "terms.pdf",
		"size":     2048,
	}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var file projection.FileView
	testutils.DecodeJSON(t, rr, &file)
	assert.Equal(t, "tenders/f-1/terms.pdf", file.S3Key)

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/api/tender-requests/"+v.ID+"/files", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var files []projection.FileView
	testutils.DecodeJSON(t, rr, &files)
	require.Len(t, files, 1)

	rr = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/request-files/"+file.ID, nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/request-files/"+file.ID, nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, testutils.JSONRequest(t, http.MethodPost, "/api/tender-requests/"+uuid.NewString()+"/files", map[string]any{"s3Key": "k"}))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestInfrastructureErrorsHideDetails(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "I-1", 1)
	f.mem.FailEventInserts(10, errors.New("connection reset by peer"))

	rr := f.do(t, testutils.JSONRequest(t, http.MethodPost, "/api/tender-requests/"+v.ID+"/review", map[string]any{
		"decision":    "APPROVE",
		"actorUserId": f.userID,
	}))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection reset")
}
