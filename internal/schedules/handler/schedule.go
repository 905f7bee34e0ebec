package handler

import (
	"medsched/internal/schedules/service"
	httputil "medsched/pkg/http"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type ScheduleHandler struct {
	service service.ScheduleService
	log     *logger.Logger
}

func NewScheduleHandler(service service.ScheduleService, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
		log:     log,
	}
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var sc model.Schedule
	if err := httputil.DecodeJSON(r, &sc); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &sc); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, sc); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ScheduleHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sc, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, sc); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ScheduleHandler) ListByPractitioner(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListByPractitioner", err)
		return
	}

	schedules, total, err := h.service.ListByPractitioner(r.Context(), ps.ByName("practitioner_id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListByPractitioner", err)
		return
	}

	if err := httputil.WritePaginated(w, schedules, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListByPractitioner", "operation", "WritePaginated", "error", err)
	}
}

func (h *ScheduleHandler) UpdateRules(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.ScheduleRulesUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "UpdateRules", err)
		return
	}

	sc, err := h.service.UpdateRules(r.Context(), ps.ByName("id"), update.Rules)
	if err != nil {
		h.writeError(w, "UpdateRules", err)
		return
	}

	if err := httputil.WriteSuccess(w, sc); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateRules", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ScheduleHandler) Activate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.setActive(w, r, ps.ByName("id"), true)
}

func (h *ScheduleHandler) Deactivate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.setActive(w, r, ps.ByName("id"), false)
}

func (h *ScheduleHandler) setActive(w http.ResponseWriter, r *http.Request, id string, active bool) {
	if err := h.service.SetActive(r.Context(), id, active); err != nil {
		h.writeError(w, "SetActive", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *ScheduleHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ScheduleHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/schedules", h.Create)
	router.GET("/api/v1/schedules/id/:id", h.GetByID)
	router.GET("/api/v1/schedules/practitioner/:practitioner_id", h.ListByPractitioner)
	router.PUT("/api/v1/schedules/id/:id/rules", h.UpdateRules)
	router.POST("/api/v1/schedules/id/:id/activate", h.Activate)
	router.POST("/api/v1/schedules/id/:id/deactivate", h.Deactivate)
	router.DELETE("/api/v1/schedules/id/:id", h.Delete)
}
