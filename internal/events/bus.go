/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventEntryStarted    EventType = "entry.started"
	EventEntryStopped    EventType = "entry.stopped"
	EventEntryDiscarded  EventType = "entry.discarded"
	EventEntryUpdated    EventType = "entry.updated"
	EventEntryDeleted    EventType = "entry.deleted"
	EventActivityChanged EventType = "activity.changed"
	EventAreaChanged     EventType = "area.changed"
	EventSettingsUpdated EventType = "settings.updated"
	EventTimerReminder   EventType = "timer.reminder"
)

// AllTypes lists every event type, in the order clients see them documented.
var AllTypes = []EventType{
	EventEntryStarted,
	EventEntryStopped,
	EventEntryDiscarded,
	EventEntryUpdated,
	EventEntryDeleted,
	EventActivityChanged,
	EventAreaChanged,
	EventSettingsUpdated,
	EventTimerReminder,
}

// DataTypes are the events that change a user's tracked data and therefore
// invalidate derived views such as reports.
var DataTypes = []EventType{
	EventEntryStarted,
	EventEntryStopped,
	EventEntryDiscarded,
	EventEntryUpdated,
	EventEntryDeleted,
	EventActivityChanged,
	EventAreaChanged,
}

// Payload generic event payload. Every payload carries "user_id".
type Payload map[string]any

// UserID returns the owner of the event, or "" when absent.
func (p Payload) UserID() string {
	v, _ := p["user_id"].(string)
	return v
}

// Subscriber receives event payloads.
type Subscriber chan Payload

// Broker is the publish/subscribe surface shared by the in-process bus and the
// distributed buses.
type Broker interface {
	Subscribe(eventType EventType) Subscriber
	Publish(eventType EventType, payload Payload)
	Unsubscribe(eventType EventType, sub Subscriber)
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 16)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers drop events.
// Sends happen under the read lock so Unsubscribe cannot close a channel mid-send.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes it.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			b.subs[eventType] = subs
			close(sub)
			return
		}
	}
}
