package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"virtual-queue-backend/internal/model"
)

// CallNext handles POST /api/places/:place_id/counters/:counter/next. When
// no one is waiting it answers 200 with a null ticket; an empty queue is a
// steady state, not an error.
func (h *Handler) CallNext(c *gin.Context) {
	placeID, ok := placeIDParam(c)
	if !ok {
		return
	}
	counterName := c.Param("counter")

	ticket, err := h.engine.CallNext(c.Request.Context(), placeID, counterName)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.notifyQueueChanged(placeID, counterName)
	if ticket == nil {
		c.JSON(http.StatusOK, gin.H{"ticket": nil, "message": "queue empty"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

type actionRequest struct {
	Action string `json:"action" binding:"required,oneof=complete skip cancel"`
	UserID string `json:"user_id"`
}

// TicketAction handles POST /api/tickets/:code/action.
func (h *Handler) TicketAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.engine.Act(c.Request.Context(), c.Param("code"), req.Action, req.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.notifyQueueChanged(ticket.PlaceID, ticket.CounterName)
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// userTicketResponse pairs a ticket with its live queue metrics.
type userTicketResponse struct {
	Ticket model.Ticket `json:"ticket"`
	Queue  any          `json:"queue,omitempty"`
}

// GetUserTickets handles GET /api/users/:user_id/tickets. Waiting and
// serving tickets carry their current queue metrics.
func (h *Handler) GetUserTickets(c *gin.Context) {
	userID := c.Param("user_id")
	activeOnly := c.Query("all") == ""

	tickets, err := h.store.ListUserTickets(c.Request.Context(), userID, activeOnly)
	if err != nil {
		abortWithError(c, err)
		return
	}

	response := make([]userTicketResponse, 0, len(tickets))
	for _, t := range tickets {
		entry := userTicketResponse{Ticket: t}
		if !t.Status.Terminal() {
			if metrics, err := h.engine.QueueMetrics(c.Request.Context(), t.PlaceID, t.CounterName, &t.ID); err == nil {
				entry.Queue = metrics
			}
		}
		response = append(response, entry)
	}
	c.JSON(http.StatusOK, response)
}
