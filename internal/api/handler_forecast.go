package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"pool-status-backend/internal/forecast"
	"pool-status-backend/internal/status"
)

// periodView is one bucket of one forecast day. Predicted is null when the
// pipeline produced no value for the bucket, and also while the bucket is
// already over (Past then distinguishes the two for the consumer).
type periodView struct {
	Period     string   `json:"period"`
	StartHour  int      `json:"startHour"`
	EndHour    int      `json:"endHour"`
	Predicted  *float64 `json:"predicted"`
	LowerBound *float64 `json:"lowerBound"`
	UpperBound *float64 `json:"upperBound"`
	Past       bool     `json:"past"`
}

type dayView struct {
	Date        string                     `json:"date"`
	LastUpdated time.Time                  `json:"lastUpdated"`
	Periods     []periodView               `json:"periods"`
	Predictions []forecast.PredictionPoint `json:"predictions"`
}

type forecastResponse struct {
	FetchedAt *time.Time `json:"fetchedAt"`
	Days      []dayView  `json:"days"`
}

// GetForecast handles GET /api/forecast. The refresh=true query parameter
// bypasses the validity window.
func (h *Handler) GetForecast(c *gin.Context) {
	force := c.Query("refresh") == "true"
	days := h.forecast.Get(c.Request.Context(), force)
	c.JSON(http.StatusOK, h.buildForecast(days))
}

// PostForecastRefresh handles POST /api/forecast/refresh: unconditional
// cache invalidation plus refetch.
func (h *Handler) PostForecastRefresh(c *gin.Context) {
	days := h.forecast.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, h.buildForecast(days))
}

func (h *Handler) buildForecast(days map[string]forecast.DayForecast) forecastResponse {
	now := h.now()

	resp := forecastResponse{Days: []dayView{}}
	if at := h.forecast.FetchedAt(); !at.IsZero() {
		resp.FetchedAt = &at
	}

	dates := make([]string, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		day := days[date]
		view := dayView{
			Date:        date,
			LastUpdated: day.LastUpdated,
			Periods:     make([]periodView, 0, len(status.Periods)),
			Predictions: day.Predictions,
		}
		if view.Predictions == nil {
			view.Predictions = []forecast.PredictionPoint{}
		}
		for _, p := range status.Periods {
			pv := periodView{
				Period:    string(p),
				StartHour: p.StartHour(),
				EndHour:   p.EndHour(),
				Past:      status.IsPastPeriod(date, p, now),
			}
			if pf, ok := day.Periods[string(p)]; ok && !pv.Past {
				predicted := pf.PredictedFreePercent
				pv.Predicted = &predicted
				pv.LowerBound = pf.LowerBound
				pv.UpperBound = pf.UpperBound
			}
			view.Periods = append(view.Periods, pv)
		}
		resp.Days = append(resp.Days, view)
	}
	return resp
}
