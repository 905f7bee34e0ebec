package handler

import (
	"context"
	"encoding/json"
	apperrors "medsched/pkg/errors"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type mockScheduleService struct {
	createFunc      func(ctx context.Context, sc *model.Schedule) error
	getByIDFunc     func(ctx context.Context, id string) (*model.Schedule, error)
	listFunc        func(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.Schedule, int64, error)
	updateRulesFunc func(ctx context.Context, id string, rules []model.AttendanceRule) (*model.Schedule, error)
	setActiveFunc   func(ctx context.Context, id string, active bool) error
	deleteFunc      func(ctx context.Context, id string) error
}

func (m *mockScheduleService) Create(ctx context.Context, sc *model.Schedule) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, sc)
	}
	return nil
}

func (m *mockScheduleService) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, apperrors.NotFoundWithID("Schedule", id)
}

func (m *mockScheduleService) ListByPractitioner(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.Schedule, int64, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, practitionerID, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockScheduleService) UpdateRules(ctx context.Context, id string, rules []model.AttendanceRule) (*model.Schedule, error) {
	if m.updateRulesFunc != nil {
		return m.updateRulesFunc(ctx, id, rules)
	}
	return &model.Schedule{ID: id, Rules: rules}, nil
}

func (m *mockScheduleService) SetActive(ctx context.Context, id string, active bool) error {
	if m.setActiveFunc != nil {
		return m.setActiveFunc(ctx, id, active)
	}
	return nil
}

func (m *mockScheduleService) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func newTestRouter(svc *mockScheduleService) *httprouter.Router {
	router := httprouter.New()
	NewScheduleHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestScheduleHandler_Create(t *testing.T) {
	var got model.Schedule
	svc := &mockScheduleService{createFunc: func(_ context.Context, sc *model.Schedule) error {
		got = *sc
		sc.ID = "507f1f77bcf86cd799439022"
		return nil
	}}
	body := `{"practitioner_id":"507f1f77bcf86cd799439011","company_id":"clinic","date_from":"2024-03-01",
		"rules":[{"day_of_week":0,"hour_from":9,"hour_to":12.5}],"active":true}`

	rec := serve(newTestRouter(svc), http.MethodPost, "/api/v1/schedules", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got.DateFrom.String() != "2024-03-01" || len(got.Rules) != 1 || got.Rules[0].HourTo != 12.5 {
		t.Errorf("decoded schedule = %+v", got)
	}

	var resp struct {
		Data model.Schedule `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.ID != "507f1f77bcf86cd799439022" {
		t.Errorf("response id = %q", resp.Data.ID)
	}
}

func TestScheduleHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{name: "malformed json", body: `{`, wantStatus: http.StatusBadRequest, wantCode: apperrors.CodeInvalidInput},
		{name: "unknown field", body: `{"doctor":"x"}`, wantStatus: http.StatusBadRequest, wantCode: apperrors.CodeInvalidInput},
		{name: "bad date", body: `{"date_from":"01/03/2024"}`, wantStatus: http.StatusBadRequest, wantCode: apperrors.CodeInvalidInput},
		{
			name:       "invalid rules",
			body:       `{"date_from":"2024-03-01"}`,
			serviceErr: apperrors.InvalidRuleDefinition("Schedule rules are invalid", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apperrors.CodeInvalidRuleDefinition,
		},
		{
			name:       "duplicate start",
			body:       `{"date_from":"2024-03-01"}`,
			serviceErr: apperrors.Conflict("A schedule already starts on this date for this practitioner"),
			wantStatus: http.StatusConflict,
			wantCode:   apperrors.CodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockScheduleService{createFunc: func(context.Context, *model.Schedule) error { return tt.serviceErr }}
			rec := serve(newTestRouter(svc), http.MethodPost, "/api/v1/schedules", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp struct {
				Code string `json:"code"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestScheduleHandler_GetByID(t *testing.T) {
	svc := &mockScheduleService{getByIDFunc: func(_ context.Context, id string) (*model.Schedule, error) {
		if id == "507f1f77bcf86cd799439022" {
			return &model.Schedule{ID: id}, nil
		}
		return nil, apperrors.NotFoundWithID("Schedule", id)
	}}
	router := newTestRouter(svc)

	if rec := serve(router, http.MethodGet, "/api/v1/schedules/id/507f1f77bcf86cd799439022", ""); rec.Code != http.StatusOK {
		t.Errorf("found: status = %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/api/v1/schedules/id/507f1f77bcf86cd799439023", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d", rec.Code)
	}
}

func TestScheduleHandler_ListByPractitioner(t *testing.T) {
	svc := &mockScheduleService{listFunc: func(_ context.Context, practitionerID string, limit int, offset int64) ([]*model.Schedule, int64, error) {
		if practitionerID != "507f1f77bcf86cd799439011" || limit != 5 || offset != 10 {
			t.Errorf("practitioner=%s limit=%d offset=%d", practitionerID, limit, offset)
		}
		return []*model.Schedule{{ID: "a"}}, 11, nil
	}}
	rec := serve(newTestRouter(svc), http.MethodGet, "/api/v1/schedules/practitioner/507f1f77bcf86cd799439011?limit=5&offset=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		TotalCount int64 `json:"total_count"`
		Limit      int   `json:"limit"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalCount != 11 || resp.Limit != 5 {
		t.Errorf("pagination = %+v", resp)
	}

	rec = serve(newTestRouter(svc), http.MethodGet, "/api/v1/schedules/practitioner/x?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d", rec.Code)
	}
}

func TestScheduleHandler_UpdateRulesAndActivation(t *testing.T) {
	var activeCalls []bool
	svc := &mockScheduleService{setActiveFunc: func(_ context.Context, _ string, active bool) error {
		activeCalls = append(activeCalls, active)
		return nil
	}}
	router := newTestRouter(svc)

	rec := serve(router, http.MethodPut, "/api/v1/schedules/id/507f1f77bcf86cd799439022/rules",
		`{"rules":[{"day_of_week":4,"hour_from":13,"hour_to":18}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update rules: status = %d", rec.Code)
	}

	if rec := serve(router, http.MethodPost, "/api/v1/schedules/id/507f1f77bcf86cd799439022/deactivate", ""); rec.Code != http.StatusNoContent {
		t.Errorf("deactivate: status = %d", rec.Code)
	}
	if rec := serve(router, http.MethodPost, "/api/v1/schedules/id/507f1f77bcf86cd799439022/activate", ""); rec.Code != http.StatusNoContent {
		t.Errorf("activate: status = %d", rec.Code)
	}
	if len(activeCalls) != 2 || activeCalls[0] || !activeCalls[1] {
		t.Errorf("activation calls = %v", activeCalls)
	}
	if rec := serve(router, http.MethodDelete, "/api/v1/schedules/id/507f1f77bcf86cd799439022", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d", rec.Code)
	}
}
