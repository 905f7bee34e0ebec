package handler

import (
	"medsched/internal/exceptions/service"
	httputil "medsched/pkg/http"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type ExceptionHandler struct {
	service service.ExceptionService
	log     *logger.Logger
}

func NewExceptionHandler(service service.ExceptionService, log *logger.Logger) *ExceptionHandler {
	return &ExceptionHandler{
		service: service,
		log:     log,
	}
}

func (h *ExceptionHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var ex model.ScheduleException
	if err := httputil.DecodeJSON(r, &ex); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &ex); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, ex); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *ExceptionHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ex, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, ex); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *ExceptionHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.ExceptionUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	ex, err := h.service.Update(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, ex); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "error", err)
	}
}

func (h *ExceptionHandler) Activate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.setActive(w, r, ps.ByName("id"), true)
}

func (h *ExceptionHandler) Deactivate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.setActive(w, r, ps.ByName("id"), false)
}

func (h *ExceptionHandler) setActive(w http.ResponseWriter, r *http.Request, id string, active bool) {
	if err := h.service.SetActive(r.Context(), id, active); err != nil {
		h.writeError(w, "SetActive", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *ExceptionHandler) ListByPractitioner(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListByPractitioner", err)
		return
	}

	exceptions, total, err := h.service.ListByPractitioner(r.Context(), ps.ByName("practitioner_id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListByPractitioner", err)
		return
	}

	if err := httputil.WritePaginated(w, exceptions, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListByPractitioner", "error", err)
	}
}

func (h *ExceptionHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *ExceptionHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/exceptions", h.Create)
	router.GET("/api/v1/exceptions/id/:id", h.GetByID)
	router.PATCH("/api/v1/exceptions/id/:id", h.Update)
	router.POST("/api/v1/exceptions/id/:id/activate", h.Activate)
	router.POST("/api/v1/exceptions/id/:id/deactivate", h.Deactivate)
	router.GET("/api/v1/exceptions/practitioner/:practitioner_id", h.ListByPractitioner)
}
