package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"virtual-queue-backend/internal/model"
)

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

// Job identifies a counter whose queue changed.
type Job struct {
	PlaceID     int64  `json:"placeId"`
	CounterName string `json:"counterName"`
}

// WorkerPool manages a pool of workers that push queue-update events to the
// subscribers of a counter after any mutating queue call.
type WorkerPool struct {
	size    int
	jobs    chan Job
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			wp.sendNotificationsForCounter(ctx, job)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a queue-changed event for a counter. It never blocks the
// request handler; when the pool is saturated the event is dropped, since a
// later event for the same counter supersedes it anyway.
func (wp *WorkerPool) Dispatch(placeID int64, counterName string) {
	select {
	case wp.jobs <- Job{PlaceID: placeID, CounterName: counterName}:
	default:
		log.Printf("notification pool saturated, dropping event for %d/%s", placeID, counterName)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

// sendNotificationsForCounter fetches subscriptions and pushes a queue-update
// payload for the given counter.
func (wp *WorkerPool) sendNotificationsForCounter(ctx context.Context, job Job) {
	var counter model.Counter
	err := wp.db.WithContext(ctx).
		Where("place_id = ? AND name = ?", job.PlaceID, job.CounterName).
		First(&counter).Error
	if err != nil {
		log.Printf("Error fetching counter %d/%s: %v", job.PlaceID, job.CounterName, err)
		return
	}

	var subscriptions []model.PushSubscription
	err = wp.db.WithContext(ctx).
		Joins("JOIN subscription_counter_mapping scm ON scm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("scm.counter_id = ?", counter.ID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for counter %d: %v", counter.ID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"event":       "queue_updated",
		"placeId":     job.PlaceID,
		"counterName": job.CounterName,
	})
	if err != nil {
		log.Printf("Error encoding payload for counter %d: %v", counter.ID, err)
		return
	}

	log.Printf("Sending %d notifications for counter %s", len(subscriptions), job.CounterName)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
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
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
