package queue

import (
	"encoding/json"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestPublishWithoutSubscribers(t *testing.T) {
	q := NewInMemoryQueue()
	err := q.Publish("campaign_events", Event{Type: EventStepSent})
	if !errors.Is(err, ErrNoSubscribers) {
		t.Fatalf("expected ErrNoSubscribers, got %v", err)
	}
}

func TestPublishDeliversToEverySubscriber(t *testing.T) {
	q := NewInMemoryQueueWithRetry(0, time.Millisecond)
	var a, b atomic.Int32

	_ = q.Subscribe("t", func(any) error { a.Add(1); return nil })
	_ = q.Subscribe("t", func(any) error { b.Add(1); return nil })

	if err := q.Publish("t", 1); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	q.Drain()

	if a.Load() != 1 || b.Load() != 1 {
		t.Errorf("deliveries = %d, %d", a.Load(), b.Load())
	}
}

func TestPublishRetriesUntilSuccess(t *testing.T) {
	q := NewInMemoryQueueWithRetry(3, time.Millisecond)
	var attempts atomic.Int32

	_ = q.Subscribe("t", func(any) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})

	_ = q.Publish("t", "x")
	q.Drain()

	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestPublishGivesUpAfterMaxRetries(t *testing.T) {
	q := NewInMemoryQueueWithRetry(2, time.Millisecond)
	var attempts atomic.Int32

	_ = q.Subscribe("t", func(any) error {
		attempts.Add(1)
		return errors.New("always")
	})

	_ = q.Publish("t", "x")
	q.Drain()

	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestDecodeEvent(t *testing.T) {
	in := Event{Type: EventRecipientFailed, CampaignID: 4, RecipientID: 9, Error: "boom", OccurredAt: time.Unix(10, 0).UTC()}

	direct, err := DecodeEvent(in)
	if err != nil || direct != in {
		t.Fatalf("DecodeEvent(Event) = %+v, %v", direct, err)
	}

	raw, _ := json.Marshal(in)
	decoded, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent([]byte): %v", err)
	}
	if decoded != in {
		t.Errorf("decoded = %+v, want %+v", decoded, in)
	}

	if _, err := DecodeEvent(42); err == nil {
		t.Error("expected an error for an unknown payload type")
	}
}

func TestEventLoggerNeverRequestsRetry(t *testing.T) {
	q := NewInMemoryQueueWithRetry(3, time.Millisecond)
	if err := StartEventLogger(q, "events"); err != nil {
		t.Fatalf("StartEventLogger: %v", err)
	}
	var seen atomic.Int32
	_ = q.Subscribe("events", func(any) error { seen.Add(1); return nil })

	_ = q.Publish("events", "garbage")
	_ = q.Publish("events", Event{Type: EventStepSent, CampaignID: 1})
	q.Drain()

	if seen.Load() != 2 {
		t.Errorf("second subscriber saw %d messages", seen.Load())
	}
}

func TestAMQPRoundTrip(t *testing.T) {
	url := os.Getenv("QUEUE_TEST_URL")
	if url == "" {
		t.Skip("QUEUE_TEST_URL not set")
	}

	q, err := DialAMQP(url)
	if err != nil {
		t.Fatalf("DialAMQP: %v", err)
	}
	defer q.Close()

	topic := "leadgen_test_events"
	got := make(chan Event, 1)
	if err := q.Subscribe(topic, func(payload any) error {
		e, err := DecodeEvent(payload)
		if err != nil {
			return err
		}
		got <- e
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	want := Event{Type: EventStepSent, CampaignID: 2, RecipientID: 3, OccurredAt: time.Unix(20, 0).UTC()}
	if err := q.Publish(topic, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case e := <-got:
		if e != want {
			t.Errorf("received %+v, want %+v", e, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
