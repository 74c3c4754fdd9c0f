package stock

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/radiology-api/internal/handler"
	"github.com/jwalitptl/radiology-api/internal/middleware"
	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/service/coordinator"
	"github.com/jwalitptl/radiology-api/internal/service/stock"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/httputil"
)

type Handler struct {
	service     *stock.Service
	coordinator *coordinator.Service
}

func NewHandler(service *stock.Service, coordinator *coordinator.Service) *Handler {
	return &Handler{service: service, coordinator: coordinator}
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized("not authenticated", nil))
		return
	}

	var req model.CreateStockItemRequest
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

	item, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, item)
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

	var req model.UpdateStockItemRequest
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

// Adjust adds to or deducts from an item's quantity.
func (h *Handler) Adjust(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized("not authenticated", nil))
		return
	}

	id, ok := handler.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req model.AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	item, err := h.service.Adjust(c.Request.Context(), actor.ID, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, item)
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
	httputil.RespondWithMessage(c, "stock item deleted")
}

func (h *Handler) List(c *gin.Context) {
	var filters model.StockFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	items, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

// ListLow returns every item at or below its reorder threshold.
func (h *Handler) ListLow(c *gin.Context) {
	items, err := h.service.ListLow(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

// Sweep pushes a consolidated low stock alert to every principal who can
// manage stock. Exposed for on-demand runs; the worker runs it periodically.
func (h *Handler) Sweep(c *gin.Context) {
	notified, err := h.coordinator.SweepLowStock(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"notified": notified})
}
