package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"supercritical/internal/orchestrator"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWatchSSE streams run events as Server-Sent Events until the run
// reaches a terminal event or the client goes away.
func (s *apiServer) handleWatchSSE(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("run %s not found", r.PathValue("id")))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// A late subscriber still gets the terminal event.
	if ev, done := run.Terminal(); done {
		writeSSEEvent(w, ev)
		flusher.Flush()
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-run.Events():
			if !ok {
				if terminal, done := run.Terminal(); done {
					writeSSEEvent(w, terminal)
					flusher.Flush()
				}
				fmt.Fprint(w, "event: close\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			writeSSEEvent(w, ev)
			flusher.Flush()
			if ev.Terminal() {
				return
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, ev orchestrator.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// handleWatchWS mirrors the SSE stream over a websocket for clients that
// already hold a socket open.
func (s *apiServer) handleWatchWS(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("run %s not found", r.PathValue("id")))
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	if ev, done := run.Terminal(); done {
		_ = conn.WriteJSON(ev)
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-run.Events():
			if !ok {
				if terminal, done := run.Terminal(); done {
					_ = conn.WriteJSON(terminal)
				}
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			if ev.Terminal() {
				return
			}
		}
	}
}
