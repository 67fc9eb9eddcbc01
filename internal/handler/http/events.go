package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/events"
)

type EventsHandler interface {
	Stream(w http.ResponseWriter, r *http.Request)
}

type EventsHandlerImpl struct {
	hub *events.Hub
}

func NewEventsHandler(hub *events.Hub) EventsHandler {
	return &EventsHandlerImpl{hub: hub}
}

// Stream serves the agent's event feed as Server-Sent Events. The UI shell
// keeps one connection open and reacts to pending-count, sync-completed and
// notification events.
func (h *EventsHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cleanup := h.hub.Subscribe()
	defer cleanup()

	// Initial comment so the client knows the stream is live.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}
