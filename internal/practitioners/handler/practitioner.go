package handler

import (
	"medsched/internal/practitioners/service"
	httputil "medsched/pkg/http"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type PractitionerHandler struct {
	service service.PractitionerService
	log     *logger.Logger
}

func NewPractitionerHandler(service service.PractitionerService, log *logger.Logger) *PractitionerHandler {
	return &PractitionerHandler{
		service: service,
		log:     log,
	}
}

func (h *PractitionerHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var p model.Practitioner
	if err := httputil.DecodeJSON(r, &p); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &p); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, p); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *PractitionerHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, p); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *PractitionerHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *PractitionerHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/practitioners", h.Create)
	router.GET("/api/v1/practitioners/id/:id", h.GetByID)
}
