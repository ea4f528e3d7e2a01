package events

import (
	"context"
	"testing"
	"time"

	"github.com/daydemir/ralphd/internal/statestore"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := h.Subscribe(ctx)

	h.Publish(Snapshot{PlanID: "plan-1", Status: statestore.StatusActive})

	select {
	case snap := <-ch:
		if snap.PlanID != "plan-1" {
			t.Errorf("snap = %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published snapshot")
	}
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch := h.Subscribe(ctx)
	if h.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", h.SubscriberCount())
	}

	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				goto closed
			}
		case <-deadline:
			t.Fatal("channel was never closed after cancellation")
		}
	}
closed:
	if h.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount after cancel = %d, want 0", h.SubscriberCount())
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Subscribe(ctx) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			h.Publish(Snapshot{PlanID: "plan-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}
}
