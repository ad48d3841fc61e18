package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Heartbeat keeps idle SSE connections alive through proxies.
const streamHeartbeat = 25 * time.Second

// handleStream handles GET /stream: it authenticates the bearer
// credential, registers a live connection and pushes its outbound events
// as server-sent events until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "no_streaming", fmt.Errorf("response writer does not support streaming"))
		return
	}

	conn, err := s.deps.Connect(r.Context(), bearerToken(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer s.deps.Disconnect(r.Context(), conn)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-conn.Events():
			if !open {
				// Connection closed server-side (superseded or shutdown).
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
			flusher.Flush()
		}
	}
}
