// Package stream delivers run events to clients: a server-sent events writer
// for the HTTP trigger and a Redis Pub/Sub mirror for operators.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrStreamingUnsupported is returned when the response cannot be flushed.
var ErrStreamingUnsupported = errors.New("streaming not supported")

// SSEWriter writes named events as text/event-stream, flushing after each one.
// It is safe for concurrent use, although a run only writes from one goroutine.
type SSEWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	eventID uint64
}

// NewSSEWriter sets the streaming headers, writes the 200 status and flushes.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Emit writes one event. Write errors usually mean the client disconnected.
func (s *SSEWriter) Emit(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.eventID++
	if _, err := fmt.Fprintf(s.w, "event: %s\nid: %d\ndata: %s\n\n", name, s.eventID, payload); err != nil {
		return fmt.Errorf("failed to write %s event: %w", name, err)
	}

	s.flusher.Flush()
	return nil
}
