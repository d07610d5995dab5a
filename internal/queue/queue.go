package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/leadgen-backend/internal/metrics"
)

// ErrNoSubscribers is returned by InMemoryQueue.Publish when nobody listens on the topic.
var ErrNoSubscribers = errors.New("no subscribers")

// Publisher is the send side used by the scheduler.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Queue interface
type Queue interface {
	Publisher
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers each message to every subscriber in its own goroutine, with retry.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error

	maxRetries int
	backoff    time.Duration
	wg         sync.WaitGroup
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return NewInMemoryQueueWithRetry(3, 500*time.Millisecond)
}

// NewInMemoryQueueWithRetry sets the retry budget and the linear backoff step.
func NewInMemoryQueueWithRetry(maxRetries int, backoff time.Duration) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := append([]func(payload any) error(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("%w for topic %s", ErrNoSubscribers, topic)
	}

	for _, handler := range handlers {
		job := JobPayload{
			Topic:      topic,
			Payload:    payload,
			MaxRetries: q.maxRetries,
		}
		q.wg.Add(1)
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	defer q.wg.Done()

	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			metrics.RecordEventDelivery(job.Topic, "delivered")
			return
		}

		job.RetryCount++
		log := logrus.WithFields(logrus.Fields{"topic": job.Topic, "attempt": job.RetryCount})
		if job.RetryCount > job.MaxRetries {
			log.WithError(err).Error("job permanently failed")
			metrics.RecordEventDelivery(job.Topic, "dropped")
			return
		}
		log.WithError(err).Warn("job failed, retrying")
		metrics.RecordEventDelivery(job.Topic, "retried")

		time.Sleep(time.Duration(job.RetryCount) * q.backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Drain waits for every delivery started so far, retries included.
func (q *InMemoryQueue) Drain() {
	q.wg.Wait()
}

var _ Queue = (*InMemoryQueue)(nil)
