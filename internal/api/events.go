/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/telemetry"
)

const wsPingInterval = 15 * time.Second

type typedPayload struct {
	eventType events.EventType
	payload   events.Payload
}

// handleEvents streams the caller's own events over a WebSocket.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	if a.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "events_unavailable")
		return
	}
	userID := currentUser(r)

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = events.AllTypes
	}

	// Subscribe before the upgrade so nothing published after the handshake is missed.
	done := make(chan struct{})
	merged := make(chan typedPayload, 32)
	subscribers := make([]events.Subscriber, len(eventTypes))
	for i, eventType := range eventTypes {
		sub := a.bus.Subscribe(eventType)
		subscribers[i] = sub
		go forward(eventType, sub, merged, done)
	}
	defer func() {
		close(done)
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	// Clients only listen; CloseRead handles control frames and cancels ctx on close.
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Debug().Err(err).Msg("websocket ping failed")
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		case msg := <-merged:
			if msg.payload.UserID() != userID {
				continue
			}
			if err := a.writeEvent(ctx, conn, msg.eventType, msg.payload); err != nil {
				a.logger.Debug().Err(err).Msg("websocket write failed")
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// forward copies one subscription into the merged stream until done or the
// subscription is closed.
func forward(eventType events.EventType, sub events.Subscriber, out chan<- typedPayload, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			select {
			case out <- typedPayload{eventType: eventType, payload: payload}:
			case <-done:
				return
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, bytes)
}

// parseEventTypes keeps the known types listed in a comma separated value.
func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		t := events.EventType(strings.TrimSpace(part))
		if t == "" || !slices.Contains(events.AllTypes, t) || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
