package history

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/radiology-api/internal/handler"
	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/service/history"
	"github.com/jwalitptl/radiology-api/pkg/httputil"
)

type Handler struct {
	service *history.Service
}

func NewHandler(service *history.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, record)
}

func (h *Handler) List(c *gin.Context) {
	var filters model.PatientHistoryFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	records, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, records)
}

type amendRequest struct {
	Diagnosis string `json:"diagnosis" binding:"max=2000"`
	Treatment string `json:"treatment" binding:"max=2000"`
	Notes     string `json:"notes" binding:"max=1000"`
}

func (h *Handler) Amend(c *gin.Context) {
	id, ok := handler.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req amendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	record, err := h.service.Amend(c.Request.Context(), id, req.Diagnosis, req.Treatment, req.Notes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, record)
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
	httputil.RespondWithMessage(c, "patient history record deleted")
}
