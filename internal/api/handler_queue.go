package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"virtual-queue-backend/internal/engine"
)

type joinRequest struct {
	UserID      string     `json:"user_id" binding:"required"`
	Name        string     `json:"name"`
	CategoryID  string     `json:"category_id"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// JoinQueue handles POST /api/places/:place_id/counters/:counter/tickets.
func (h *Handler) JoinQueue(c *gin.Context) {
	placeID, ok := placeIDParam(c)
	if !ok {
		return
	}
	counterName := c.Param("counter")

	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, metrics, err := h.engine.Join(c.Request.Context(), engine.JoinInput{
		PlaceID:     placeID,
		CounterName: counterName,
		CategoryID:  req.CategoryID,
		UserID:      req.UserID,
		HolderName:  req.Name,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.notifyQueueChanged(placeID, counterName)
	c.JSON(http.StatusCreated, gin.H{"ticket": ticket, "queue": metrics})
}

// GetQueueMetrics handles GET /api/places/:place_id/counters/:counter/queue.
// With ?ticket=CODE the metrics are computed for that ticket; without it,
// for a hypothetical walk-in joining right now.
func (h *Handler) GetQueueMetrics(c *gin.Context) {
	placeID, ok := placeIDParam(c)
	if !ok {
		return
	}
	counterName := c.Param("counter")

	var targetID *int64
	if code := c.Query("ticket"); code != "" {
		ticket, err := h.store.GetTicketByCode(c.Request.Context(), code)
		if err != nil {
			abortWithError(c, err)
			return
		}
		targetID = &ticket.ID
	}

	metrics, err := h.engine.QueueMetrics(c.Request.Context(), placeID, counterName, targetID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// GetEstimate handles GET /api/places/:place_id/counters/:counter/estimate.
func (h *Handler) GetEstimate(c *gin.Context) {
	placeID, ok := placeIDParam(c)
	if !ok {
		return
	}
	counter, err := h.store.GetCounter(c.Request.Context(), placeID, c.Param("counter"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	categoryID := c.Query("category")
	if categoryID == "" {
		categoryID = counter.DefaultCategoryKey()
	}
	c.JSON(http.StatusOK, h.engine.DetailedEstimate(c.Request.Context(), counter, categoryID))
}

// GetCrowd handles GET /api/places/:place_id/counters/:counter/crowd.
func (h *Handler) GetCrowd(c *gin.Context) {
	placeID, ok := placeIDParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.engine.CrowdMetrics(c.Request.Context(), placeID, c.Param("counter")))
}
