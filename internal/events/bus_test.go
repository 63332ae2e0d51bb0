package events

import (
	"testing"
	"time"
)

func TestBusDeliversToSubscribersOfType(t *testing.T) {
	bus := NewBus()
	started := bus.Subscribe(EventEntryStarted)
	stopped := bus.Subscribe(EventEntryStopped)
	defer bus.Unsubscribe(EventEntryStarted, started)
	defer bus.Unsubscribe(EventEntryStopped, stopped)

	bus.Publish(EventEntryStarted, Payload{"user_id": "u1", "entry_id": "e1"})

	select {
	case p := <-started:
		if p.UserID() != "u1" {
			t.Fatalf("unexpected user id %q", p.UserID())
		}
	case <-time.After(time.Second):
		t.Fatal("expected payload on started subscriber")
	}

	select {
	case p := <-stopped:
		t.Fatalf("stopped subscriber received %v", p)
	default:
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventTimerReminder)

	for i := 0; i < cap(sub)+5; i++ {
		bus.Publish(EventTimerReminder, Payload{"n": i})
	}
	if len(sub) != cap(sub) {
		t.Fatalf("expected full buffer of %d, got %d", cap(sub), len(sub))
	}
}

func TestUnsubscribeClosesChannelOnce(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventAreaChanged)
	bus.Unsubscribe(EventAreaChanged, sub)
	bus.Unsubscribe(EventAreaChanged, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel")
	}
	bus.Publish(EventAreaChanged, Payload{})
}

func TestPayloadUserIDMissing(t *testing.T) {
	if got := (Payload{"user_id": 5}).UserID(); got != "" {
		t.Fatalf("expected empty user id, got %q", got)
	}
}
