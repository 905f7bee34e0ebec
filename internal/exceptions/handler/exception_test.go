package handler

import (
	"context"
	"encoding/json"
	apperrors "medsched/pkg/errors"
	"medsched/pkg/interval"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

type mockExceptionService struct {
	createFunc    func(ctx context.Context, ex *model.ScheduleException) error
	updateFunc    func(ctx context.Context, id string, update *model.ExceptionUpdate) (*model.ScheduleException, error)
	setActiveFunc func(ctx context.Context, id string, active bool) error
}

func (m *mockExceptionService) Create(ctx context.Context, ex *model.ScheduleException) error {
	return m.createFunc(ctx, ex)
}

func (m *mockExceptionService) Update(ctx context.Context, id string, update *model.ExceptionUpdate) (*model.ScheduleException, error) {
	return m.updateFunc(ctx, id, update)
}

func (m *mockExceptionService) SetActive(ctx context.Context, id string, active bool) error {
	return m.setActiveFunc(ctx, id, active)
}

func (m *mockExceptionService) GetByID(_ context.Context, id string) (*model.ScheduleException, error) {
	return &model.ScheduleException{ID: id}, nil
}

func (m *mockExceptionService) ListByPractitioner(context.Context, string, int, int64) ([]*model.ScheduleException, int64, error) {
	return []*model.ScheduleException{}, 0, nil
}

func (m *mockExceptionService) Query(context.Context, string, string, time.Time, time.Time) (interval.Set, error) {
	return nil, nil
}

func serve(svc *mockExceptionService, method, path, body string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewExceptionHandler(svc, logger.Discard()).RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestExceptionHandler_Create(t *testing.T) {
	var got model.ScheduleException
	svc := &mockExceptionService{createFunc: func(_ context.Context, ex *model.ScheduleException) error {
		got = *ex
		if !ex.Start.Before(ex.End) {
			return apperrors.InvalidExceptionWindow("The exception must start before it ends", nil)
		}
		return nil
	}}

	rec := serve(svc, http.MethodPost, "/api/v1/exceptions",
		`{"practitioner_id":"507f1f77bcf86cd799439011","name":"Leave","start":"2024-03-04T10:00:00+01:00","end":"2024-03-04T12:00:00+01:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if !got.Start.Equal(time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", got.Start)
	}

	rec = serve(svc, http.MethodPost, "/api/v1/exceptions",
		`{"practitioner_id":"507f1f77bcf86cd799439011","name":"Leave","start":"2024-03-04T12:00:00Z","end":"2024-03-04T10:00:00Z"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Code string `json:"code"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != apperrors.CodeInvalidException {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestExceptionHandler_UpdateAndActivation(t *testing.T) {
	var activeCalls []bool
	svc := &mockExceptionService{
		updateFunc: func(_ context.Context, id string, update *model.ExceptionUpdate) (*model.ScheduleException, error) {
			if update.Name == nil || *update.Name != "Sick leave" || update.Start != nil {
				t.Errorf("update = %+v", update)
			}
			return &model.ScheduleException{ID: id, Name: *update.Name}, nil
		},
		setActiveFunc: func(_ context.Context, _ string, active bool) error {
			activeCalls = append(activeCalls, active)
			return nil
		},
	}

	rec := serve(svc, http.MethodPatch, "/api/v1/exceptions/id/65f000000000000000000001", `{"name":"Sick leave"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d", rec.Code)
	}
	if rec := serve(svc, http.MethodPost, "/api/v1/exceptions/id/65f000000000000000000001/deactivate", ""); rec.Code != http.StatusNoContent {
		t.Errorf("deactivate status = %d", rec.Code)
	}
	if rec := serve(svc, http.MethodPost, "/api/v1/exceptions/id/65f000000000000000000001/activate", ""); rec.Code != http.StatusNoContent {
		t.Errorf("activate status = %d", rec.Code)
	}
	if len(activeCalls) != 2 || activeCalls[0] || !activeCalls[1] {
		t.Errorf("activation calls = %v", activeCalls)
	}
	if rec := serve(svc, http.MethodGet, "/api/v1/exceptions/practitioner/507f1f77bcf86cd799439011", ""); rec.Code != http.StatusOK {
		t.Errorf("list status = %d", rec.Code)
	}
}
