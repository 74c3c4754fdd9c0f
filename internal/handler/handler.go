package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/httputil"
)

// ParseIDParam parses the named uuid path parameter, writing a 400 envelope
// on failure.
func ParseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// Health reports process and database health.
type Health struct {
	db *sqlx.DB
}

func NewHealth(db *sqlx.DB) *Health {
	return &Health{db: db}
}

func (h *Health) HealthCheck(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"data":   gin.H{"status": "unhealthy"},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"status": "healthy"},
	})
}
