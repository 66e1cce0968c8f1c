package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetPlaces handles GET /api/places.
func (h *Handler) GetPlaces(c *gin.Context) {
	summaries, err := h.store.ListPlaces(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// counterResponse pairs a counter with its current crowd metrics.
type counterResponse struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	OpenTime   string             `json:"openTime"`
	CloseTime  string             `json:"closeTime"`
	Closed     bool               `json:"closed"`
	Categories []categoryResponse `json:"categories"`
	Crowd      any                `json:"crowd"`
}

type categoryResponse struct {
	CategoryID  string  `json:"categoryId"`
	Name        string  `json:"name"`
	AvgMinutes  float64 `json:"avgMinutes"`
	TotalServed int64   `json:"totalServed"`
}

// GetCounters handles GET /api/places/:place_id/counters.
func (h *Handler) GetCounters(c *gin.Context) {
	placeID, ok := placeIDParam(c)
	if !ok {
		return
	}

	place, err := h.store.GetPlace(c.Request.Context(), placeID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	response := make([]counterResponse, 0, len(place.Counters))
	for _, counter := range place.Counters {
		categories := make([]categoryResponse, 0, len(counter.Categories))
		for _, cat := range counter.Categories {
			categories = append(categories, categoryResponse{
				CategoryID:  cat.CategoryID,
				Name:        cat.Name,
				AvgMinutes:  cat.AvgMinutes,
				TotalServed: cat.TotalServed,
			})
		}
		response = append(response, counterResponse{
			ID:         counter.ID,
			Name:       counter.Name,
			OpenTime:   counter.OpenTime,
			CloseTime:  counter.CloseTime,
			Closed:     counter.Closed,
			Categories: categories,
			Crowd:      h.engine.CrowdMetrics(c.Request.Context(), placeID, counter.Name),
		})
	}
	c.JSON(http.StatusOK, response)
}

func placeIDParam(c *gin.Context) (int64, bool) {
	placeID, err := strconv.ParseInt(c.Param("place_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid place ID"})
		return 0, false
	}
	return placeID, true
}
