package app

import (
	"testing"
	"time"
)

func TestWatchHubDeliversToOwner(t *testing.T) {
	hub := NewWatchHub()
	events, cancel := hub.Subscribe("u1")
	defer cancel()

	hub.Publish("u1", Event{Type: EventProjectUpdated, ProjectID: "prj1"})

	select {
	case event := <-events:
		if event.ProjectID != "prj1" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}

	// Another owner's events stay invisible.
	hub.Publish("u2", Event{Type: EventProjectUpdated, ProjectID: "prj2"})
	select {
	case event := <-events:
		t.Fatalf("unexpected cross-owner event: %+v", event)
	default:
	}
}

func TestWatchHubAdminKeySeesEveryOwner(t *testing.T) {
	hub := NewWatchHub()
	events, cancel := hub.Subscribe(watchAll)
	defer cancel()

	hub.Publish("u1", Event{Type: EventProjectUpdated, ProjectID: "prj1"})
	hub.Publish("u2", Event{Type: EventProjectDeleted, ProjectID: "prj2"})

	for _, want := range []string{"prj1", "prj2"} {
		select {
		case event := <-events:
			if event.ProjectID != want {
				t.Fatalf("expected %s, got %+v", want, event)
			}
		case <-time.After(time.Second):
			t.Fatalf("expected event for %s", want)
		}
	}
}

func TestWatchHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewWatchHub()
	events, cancel := hub.Subscribe("u1")
	cancel()

	hub.Publish("u1", Event{Type: EventProjectUpdated, ProjectID: "prj1"})
	select {
	case event := <-events:
		t.Fatalf("cancelled subscription must not receive events: %+v", event)
	default:
	}
}

func TestWatchHubSkipsSaturatedListeners(t *testing.T) {
	hub := NewWatchHub()
	events, cancel := hub.Subscribe("u1")
	defer cancel()

	// Overflow the buffer; the publisher must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			hub.Publish("u1", Event{Type: EventProjectUpdated, ProjectID: "prj1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish must never block on a slow listener")
	}
	if len(events) != cap(events) {
		t.Fatalf("expected a full buffer, got %d/%d", len(events), cap(events))
	}
}
