package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pool-status-backend/internal/feed"
	"pool-status-backend/internal/model"
	"pool-status-backend/internal/status"
)

// occupancyResponse is the derived state the presentation layer renders.
// Numeric fields are null placeholders while the facility is closed,
// regardless of the last received snapshot.
type occupancyResponse struct {
	Facility            string                `json:"facility"`
	ConnectionStatus    feed.Status           `json:"connectionStatus"`
	ReconnectAttempts   int                   `json:"reconnectAttempts"`
	RetryExhausted      bool                  `json:"retryExhausted"`
	Open                bool                  `json:"open"`
	StatusLabel         string                `json:"statusLabel"`
	FreeSpaces          *int                  `json:"freeSpaces"`
	TotalCapacity       *int                  `json:"totalCapacity"`
	CurrentFill         *int                  `json:"currentFill"`
	AvailabilityPercent *float64              `json:"availabilityPercent"`
	Closing             status.ClosingWarning `json:"closing"`
	ReceivedAt          *time.Time            `json:"receivedAt"`
}

// buildOccupancy derives the response from the feed state at a point in time.
func (h *Handler) buildOccupancy(state feed.State, now time.Time) occupancyResponse {
	resp := occupancyResponse{
		Facility:          h.facility,
		ConnectionStatus:  state.Status,
		ReconnectAttempts: state.ReconnectAttempts,
		RetryExhausted:    state.RetryExhausted,
		Open:              h.hours.IsOpen(now),
		StatusLabel:       "Closed",
	}
	if !resp.Open {
		return resp
	}

	resp.Closing = h.hours.Closing(now)
	if state.Snapshot == nil {
		resp.StatusLabel = "No data"
		return resp
	}

	snap := state.Snapshot
	resp.StatusLabel = status.LevelFor(snap.AvailabilityPercent).Label()
	resp.FreeSpaces = &snap.FreeSpaces
	resp.TotalCapacity = &snap.TotalCapacity
	resp.CurrentFill = &snap.CurrentFill
	resp.AvailabilityPercent = &snap.AvailabilityPercent
	resp.ReceivedAt = &snap.ReceivedAt
	return resp
}

// GetOccupancy handles GET /api/occupancy.
func (h *Handler) GetOccupancy(c *gin.Context) {
	c.JSON(http.StatusOK, h.buildOccupancy(h.feed.State(), h.now()))
}

// PostReconnect handles POST /api/occupancy/reconnect, the manual retry
// affordance surfaced once automatic reconnection gives up.
func (h *Handler) PostReconnect(c *gin.Context) {
	if err := h.feed.Reconnect(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, h.buildOccupancy(h.feed.State(), h.now()))
}

// GetHistory handles GET /api/occupancy/history. It serves the recorded
// samples that feed the external forecast pipeline.
func (h *Handler) GetHistory(c *gin.Context) {
	since := h.now().AddDate(0, 0, -7)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'since' timestamp format. Use RFC3339."})
			return
		}
		since = parsed
	}

	samples, err := h.store.SamplesSince(c.Request.Context(), since)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve samples"})
		return
	}
	if samples == nil {
		samples = []model.OccupancySample{}
	}
	c.JSON(http.StatusOK, samples)
}

// BroadcastState pushes the current derived state to all stream consumers.
// Wired as a feed observer at router construction.
func (h *Handler) BroadcastState(snap feed.Snapshot) {
	h.hub.Broadcast(h.buildOccupancy(h.feed.State(), h.now()))
}
