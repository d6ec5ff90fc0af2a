package recorder

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"

	"pool-status-backend/internal/feed"
	"pool-status-backend/internal/model"
	"pool-status-backend/internal/status"
	"pool-status-backend/internal/store"
)

// Recorder persists occupancy snapshots as historical samples for the
// forecast pipeline. Snapshots arrive on every feed message; at most one per
// sampling interval is kept, and nothing is recorded while the facility is
// closed.
type Recorder struct {
	store   store.Store
	hours   *status.Hours
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a recorder sampling at most once per interval. now reports
// facility-local time; nil means time.Now.
func New(s store.Store, hours *status.Hours, interval time.Duration, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		store:   s,
		hours:   hours,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		now:     now,
	}
}

// Attach subscribes the recorder to a feed client.
func (r *Recorder) Attach(client *feed.Client) {
	client.Subscribe(r.Record)
}

// Record handles one snapshot, persisting it when due.
func (r *Recorder) Record(snap feed.Snapshot) {
	if !r.hours.IsOpen(r.now()) {
		return
	}
	if !r.limiter.Allow() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sample := model.OccupancySample{
		ObservedAt:    snap.ReceivedAt.UTC(),
		FreeSpaces:    snap.FreeSpaces,
		TotalCapacity: snap.TotalCapacity,
		CurrentFill:   snap.CurrentFill,
		FreePercent:   snap.AvailabilityPercent,
	}
	if err := r.store.SaveSample(ctx, sample); err != nil {
		log.Printf("recorder: %v", err)
	}
}
