package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrNotFlushable is returned when the ResponseWriter cannot stream
var ErrNotFlushable = errors.New("response writer does not support flushing")

// Stream writes server-sent events to one response. Headers are sent with
// the first event, so a handler can still answer with a plain error until
// then. Event and keep-alive writes are serialized.
type Stream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewStream wraps w. It fails when w cannot flush.
func NewStream(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNotFlushable
	}
	return &Stream{w: w, flusher: flusher}, nil
}

// Started reports whether any bytes of the event stream were sent
func (s *Stream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// WriteEvent sends v as one "data:" line of JSON and flushes
func (s *Stream) WriteEvent(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.writeData(payload)
}

// WriteDone sends the terminal "[DONE]" marker
func (s *Stream) WriteDone() error {
	return s.writeData([]byte("[DONE]"))
}

func (s *Stream) writeData(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.start()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write event failed: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// start sends the SSE headers once; callers hold mu
func (s *Stream) start() {
	if s.started {
		return
	}
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

// WriteKeepAlive implements KeepAliveWriter. It writes an SSE comment
// (": keepalive\n\n") once the stream has started and is a no-op before.
func (s *Stream) WriteKeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	// Lines starting with : are SSE comments (ignored by client)
	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	s.flusher.Flush()

	// Zero-byte write surfaces a closed connection
	if _, err := s.w.Write([]byte{}); err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}

	return nil
}
