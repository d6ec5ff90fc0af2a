package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"pool-status-backend/internal/feed"
	"pool-status-backend/internal/model"
	"pool-status-backend/internal/status"
)

// Event describes an availability-level transition worth notifying about.
type Event struct {
	Level      status.Level
	Percent    float64
	FreeSpaces int
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size     int
	facility string
	jobs     chan Event
	db       *gorm.DB
	webpush  *webpush.Options
	sender   NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, facility string, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:     size,
		facility: facility,
		jobs:     make(chan Event, size),
		db:       db,
		webpush:  webpushOptions,
		sender:   &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case event := <-wp.jobs:
			log.Printf("Worker %d processing %s transition", id, event.Level)
			wp.sendNotifications(ctx, event)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(event Event) {
	wp.jobs <- event
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

// sendNotifications fetches all subscriptions and pushes the event to each.
func (wp *WorkerPool) sendNotifications(ctx context.Context, event Event) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		log.Printf("Error fetching subscriptions: %v", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for %s transition", len(subscriptions), event.Level)

	message := fmt.Sprintf("%s: %s (%.0f%% free)", wp.facility, event.Level.Label(), event.Percent)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == 410 {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}

// Watcher turns the feed's snapshot stream into level-transition events.
// The first snapshot establishes a baseline without notifying.
type Watcher struct {
	pool *WorkerPool

	mu     sync.Mutex
	last   status.Level
	seeded bool
}

// NewWatcher creates a watcher dispatching into the given pool.
func NewWatcher(pool *WorkerPool) *Watcher {
	return &Watcher{pool: pool}
}

// Attach subscribes the watcher to a feed client.
func (w *Watcher) Attach(client *feed.Client) {
	client.Subscribe(w.Observe)
}

// Observe handles one snapshot, dispatching when the level changed.
func (w *Watcher) Observe(snap feed.Snapshot) {
	level := status.LevelFor(snap.AvailabilityPercent)

	w.mu.Lock()
	changed := w.seeded && level != w.last
	w.last = level
	w.seeded = true
	w.mu.Unlock()

	if changed {
		w.pool.Dispatch(Event{
			Level:      level,
			Percent:    snap.AvailabilityPercent,
			FreeSpaces: snap.FreeSpaces,
		})
	}
}
