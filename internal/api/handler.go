package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"pool-status-backend/internal/feed"
	"pool-status-backend/internal/forecast"
	"pool-status-backend/internal/status"
	"pool-status-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	feed     *feed.Client
	forecast *forecast.Cache
	hours    *status.Hours
	facility string
	webpush  *webpush.Options
	hub      *Hub
	now      func() time.Time
}

// NewHandler creates a new API handler. now reports facility-local time; nil
// means time.Now.
func NewHandler(s store.Store, client *feed.Client, fc *forecast.Cache, hours *status.Hours, facility string, webpushOptions *webpush.Options, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		store:    s,
		feed:     client,
		forecast: fc,
		hours:    hours,
		facility: facility,
		webpush:  webpushOptions,
		hub:      NewHub(),
		now:      now,
	}
}
