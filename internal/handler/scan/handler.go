package scan

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/radiology-api/internal/handler"
	"github.com/jwalitptl/radiology-api/internal/middleware"
	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/service/scan"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/httputil"
)

type Handler struct {
	service *scan.Service
}

func NewHandler(service *scan.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized("not authenticated", nil))
		return
	}

	var req model.CreateScanRequest
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

func (h *Handler) Update(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized("not authenticated", nil))
		return
	}

	id, ok := handler.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), actor.ID, id, &req)
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
	httputil.RespondWithMessage(c, "scan deleted")
}

func (h *Handler) List(c *gin.Context) {
	var filters model.ScanFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	scans, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, scans)
}

// Availability reports current stock coverage per consumable of the scan.
func (h *Handler) Availability(c *gin.Context) {
	id, ok := handler.ParseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := h.service.Availability(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, report)
}
