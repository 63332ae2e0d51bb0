/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/cronoapp/internal/events"
)

// envelope is the wire format shared by the redis and NATS buses.
type envelope struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func encodeEnvelope(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(envelope{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

func decodeEnvelope(data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	return &env, nil
}

// NodeID returns a process-unique id used to suppress echoed events.
func NodeID(instanceID string) string {
	if instanceID != "" {
		return instanceID + "-" + uuid.NewString()[:8]
	}
	return uuid.NewString()
}

// localSubs is the subscriber registry each distributed bus delivers into.
type localSubs struct {
	mu   sync.RWMutex
	subs map[events.EventType][]events.Subscriber
}

func newLocalSubs() *localSubs {
	return &localSubs{subs: make(map[events.EventType][]events.Subscriber)}
}

func (l *localSubs) add(eventType events.EventType) events.Subscriber {
	sub := make(events.Subscriber, 64)
	l.mu.Lock()
	l.subs[eventType] = append(l.subs[eventType], sub)
	l.mu.Unlock()
	return sub
}

// remove closes sub and returns how many subscribers remain for eventType.
func (l *localSubs) remove(eventType events.EventType, sub events.Subscriber) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	subs := l.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	if len(subs) == 0 {
		delete(l.subs, eventType)
		return 0
	}
	l.subs[eventType] = subs
	return len(subs)
}

// deliver fans payload out without blocking and returns the number of drops.
func (l *localSubs) deliver(eventType events.EventType, payload events.Payload) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	dropped := 0
	for _, sub := range l.subs[eventType] {
		select {
		case sub <- payload:
		default:
			dropped++
		}
	}
	return dropped
}

func (l *localSubs) types() []events.EventType {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]events.EventType, 0, len(l.subs))
	for t := range l.subs {
		out = append(out, t)
	}
	return out
}
