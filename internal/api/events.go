package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"launcherd/internal/model"
)

// sseListener bridges hub updates into the handler's streaming loop. The
// send never blocks; a client that cannot keep up loses intermediate
// updates rather than stalling delivery to other subscribers.
type sseListener struct {
	ch chan model.StatusUpdate
}

func newSSEListener() *sseListener {
	return &sseListener{ch: make(chan model.StatusUpdate, 64)}
}

func (l *sseListener) OnStatusUpdate(update model.StatusUpdate) {
	select {
	case l.ch <- update:
	default:
	}
}

// handleStreamEvents streams every status update as a server-sent event.
// The subscription replays the current state of all titles first, so a
// client connecting mid-install sees the full picture immediately.
func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	listener := newSSEListener()
	s.hub.Subscribe(listener)
	defer s.hub.Unsubscribe(listener)

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case update := <-listener.ch:
			if err := writeSSEUpdate(w, update); err != nil {
				return // Write failed (e.g. client gone).
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}

// writeSSEUpdate writes one status update as an SSE "status" event with a
// JSON payload.
func writeSSEUpdate(w http.ResponseWriter, update model.StatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: status\nid: %s\ndata: %s\n\n", update.EventID, payload); err != nil {
		return err
	}
	return nil
}
