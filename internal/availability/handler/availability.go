package handler

import (
	"medsched/internal/availability/service"
	apperrors "medsched/pkg/errors"
	httputil "medsched/pkg/http"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

// Get serves the bookable intervals of the practitioner_id query parameter
// between start and end.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	practitionerID := r.URL.Query().Get("practitioner_id")
	if practitionerID == "" {
		h.writeError(w, "Get", apperrors.InvalidInput("practitioner_id parameter is required"))
		return
	}
	start, err := httputil.QueryTime(r, "start")
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}
	end, err := httputil.QueryTime(r, "end")
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	set, err := h.service.Availability(r.Context(), practitionerID, start, end)
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httputil.WriteSuccess(w, set); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "error", err)
	}
}

// Validate answers with a decision. A rejected slot is still a 200.
func (h *AvailabilityHandler) Validate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SlotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Validate", err)
		return
	}

	decision, err := h.service.Validate(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Validate", err)
		return
	}

	if err := httputil.WriteSuccess(w, decision); err != nil {
		h.log.Error("failed to write success response", "handler", "Validate", "error", err)
	}
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability", h.Get)
	router.POST("/api/v1/availability/validate", h.Validate)
}
