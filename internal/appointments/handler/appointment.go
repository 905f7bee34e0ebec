package handler

import (
	"context"
	"medsched/internal/appointments/service"
	httputil "medsched/pkg/http"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

type AppointmentHandler struct {
	service service.AppointmentService
	log     *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log,
	}
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var appt model.Appointment
	if err := httputil.DecodeJSON(r, &appt); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &appt); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, appt); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appt, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *AppointmentHandler) ListByPractitioner(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListByPractitioner", err)
		return
	}
	start, err := optionalTime(r, "start")
	if err != nil {
		h.writeError(w, "ListByPractitioner", err)
		return
	}
	end, err := optionalTime(r, "end")
	if err != nil {
		h.writeError(w, "ListByPractitioner", err)
		return
	}

	appointments, total, err := h.service.ListByPractitioner(r.Context(), ps.ByName("practitioner_id"), start, end, limit, offset)
	if err != nil {
		h.writeError(w, "ListByPractitioner", err)
		return
	}

	if err := httputil.WritePaginated(w, appointments, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListByPractitioner", "error", err)
	}
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var change model.AppointmentReschedule
	if err := httputil.DecodeJSON(r, &change); err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	appt, err := h.service.Reschedule(r.Context(), ps.ByName("id"), &change)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "Reschedule", "error", err)
	}
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}
	httputil.WriteNoContent(w)
}

// action adapts a state transition to an httprouter handle.
func (h *AppointmentHandler) action(name string, do func(ctx context.Context, id string) (*model.Appointment, error)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		appt, err := do(r.Context(), ps.ByName("id"))
		if err != nil {
			h.writeError(w, name, err)
			return
		}
		if err := httputil.WriteSuccess(w, appt); err != nil {
			h.log.Error("failed to write success response", "handler", name, "error", err)
		}
	}
}

func (h *AppointmentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func optionalTime(r *http.Request, name string) (*time.Time, error) {
	if r.URL.Query().Get(name) == "" {
		return nil, nil
	}
	t, err := httputil.QueryTime(r, name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/appointments", h.Create)
	router.GET("/api/v1/appointments/id/:id", h.GetByID)
	router.PATCH("/api/v1/appointments/id/:id", h.Reschedule)
	router.DELETE("/api/v1/appointments/id/:id", h.Delete)
	router.POST("/api/v1/appointments/id/:id/confirm", h.action("Confirm", h.service.Confirm))
	router.POST("/api/v1/appointments/id/:id/done", h.action("MarkDone", h.service.MarkDone))
	router.POST("/api/v1/appointments/id/:id/cancel", h.action("Cancel", h.service.Cancel))
	router.POST("/api/v1/appointments/id/:id/draft", h.action("ResetToDraft", h.service.ResetToDraft))
	router.GET("/api/v1/appointments/practitioner/:practitioner_id", h.ListByPractitioner)
}
