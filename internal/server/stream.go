package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// StreamEvent is one message pushed to websocket subscribers
type StreamEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	Time    time.Time   `json:"time"`
}

// StreamHub fans events out to connected websocket clients. Slow
// clients get dropped rather than backing up the publishers.
type StreamHub struct {
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
	log         zerolog.Logger
}

// NewStreamHub creates a new stream hub
func NewStreamHub(log zerolog.Logger) *StreamHub {
	return &StreamHub{
		subscribers: make(map[chan []byte]struct{}),
		log:         log.With().Str("component", "stream").Logger(),
	}
}

// Publish sends an event to every connected client
func (h *StreamHub) Publish(eventType string, payload interface{}) {
	data, err := json.Marshal(StreamEvent{
		Type:    eventType,
		Payload: payload,
		Time:    time.Now().UTC(),
	})
	if err != nil {
		h.log.Error().Err(err).Str("type", eventType).Msg("Failed to marshal stream event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- data:
		default:
			// Subscriber not keeping up; it will be closed by its reader
		}
	}
}

func (h *StreamHub) subscribe() chan []byte {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *StreamHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subscribers, ch)
	h.mu.Unlock()
}

// HandleStream upgrades the connection and streams events until the
// client goes away
// GET /ws/stream
func (h *StreamHub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // same-host UI, no origin allowlist
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("Stream client connected")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Stream client write failed, dropping")
				return
			}
		}
	}
}
