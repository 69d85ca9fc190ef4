package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/blackfuel-ai/claudish/internal/anchor"
	"github.com/blackfuel-ai/claudish/pkg/safego"
	"go.uber.org/zap"
)

// Writer serializes Anchor events onto an http.ResponseWriter as SSE
// records, flushing after each one (spec.md §6 "Flush after each record"),
// the same fmt.Fprintf-then-Flush mechanics as the teacher's
// handlers/agent_handler.go RunAgent loop.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

// NewWriter prepares the response for SSE framing. Callers must have
// already set the status code (if any) before the first Write.
func NewWriter(w http.ResponseWriter) *Writer {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// Write emits one Anchor event. It is a no-op once Close has been called,
// the idempotency guard spec.md §4.2 requires at "every emission site."
func (sw *Writer) Write(ev anchor.Event) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.closed {
		return nil
	}
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
		return err
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// Close marks the writer closed; subsequent Write calls are no-ops. Safe
// to call more than once.
func (sw *Writer) Close() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.closed = true
}

// Closed reports whether Close has been called.
func (sw *Writer) Closed() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.closed
}

// StartPingTask launches the 15-second keep-alive ping loop (spec.md §4.2
// "Initialization") under panic recovery (spec.md's supplemented
// pkg/safego addition). It exits once done is closed or the writer closes.
func StartPingTask(logger *zap.Logger, sw *Writer, done <-chan struct{}) {
	safego.Go(logger, "sse-ping", func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if sw.Closed() {
					return
				}
				_ = sw.Write(Ping())
			}
		}
	})
}
