package appointment

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/radiology-api/internal/handler"
	"github.com/jwalitptl/radiology-api/internal/middleware"
	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/service/appointment"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized("not authenticated", nil))
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), actor.ID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseIDParam(c, "id")
	if !ok {
		return
	}

	found, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, found)
}

func (h *Handler) List(c *gin.Context) {
	var filters model.AppointmentFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	appointments, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

// Transition moves the appointment to the requested status.
func (h *Handler) Transition(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized("not authenticated", nil))
		return
	}

	id, ok := handler.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req model.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	updated, err := h.service.Transition(c.Request.Context(), actor.ID, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, updated)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "appointment deleted")
}

// Schedule returns a doctor's active appointments for a date range.
func (h *Handler) Schedule(c *gin.Context) {
	doctorID, ok := handler.ParseIDParam(c, "id")
	if !ok {
		return
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid from timestamp", err))
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid to timestamp", err))
		return
	}

	appointments, err := h.service.Schedule(c.Request.Context(), doctorID, from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}
