package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/marketlens/marketlens/internal/state"
)

// stateChange is the wire form of a single store mutation.
type stateChange struct {
	Type      string      `json:"type"`
	Key       string      `json:"key,omitempty"`
	NewValue  interface{} `json:"new_value,omitempty"`
	OldValue  interface{} `json:"old_value,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// stateStreamHandler pushes every state store change to connected websocket
// clients. Each connection gets its own wildcard subscription and a buffered
// channel; a slow client drops changes rather than blocking the store's
// synchronous notification pass.
type stateStreamHandler struct {
	store *state.Store
	log   zerolog.Logger
}

func newStateStreamHandler(store *state.Store, log zerolog.Logger) *stateStreamHandler {
	return &stateStreamHandler{
		store: store,
		log:   log.With().Str("component", "state_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/state/stream requests.
func (h *stateStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Same-origin enforcement happens at the CORS layer
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	h.log.Info().Msg("Client connected to state stream")

	changes := make(chan stateChange, 100)

	unsubscribe := h.store.OnAny(func(key state.Key, newValue, oldValue interface{}) {
		change := stateChange{
			Type:      "state_changed",
			Key:       string(key),
			NewValue:  newValue,
			OldValue:  oldValue,
			Timestamp: time.Now(),
		}
		select {
		case changes <- change:
		default:
			h.log.Warn().Str("key", string(key)).Msg("State stream channel full, dropping change")
		}
	})
	defer unsubscribe()

	ctx := r.Context()

	if err := h.send(ctx, conn, stateChange{Type: "connected", Timestamp: time.Now()}); err != nil {
		return
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from state stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case change := <-changes:
			if err := h.send(ctx, conn, change); err != nil {
				h.log.Debug().Err(err).Msg("State stream write failed")
				return
			}

		case <-heartbeat.C:
			if err := h.send(ctx, conn, stateChange{Type: "heartbeat", Timestamp: time.Now()}); err != nil {
				return
			}
		}
	}
}

func (h *stateStreamHandler) send(ctx context.Context, conn *websocket.Conn, change stateChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		h.log.Error().Err(err).Str("key", change.Key).Msg("Failed to marshal state change")
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
