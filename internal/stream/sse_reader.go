package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// idleTimeout bounds how long the proxy waits on the backend between SSE
// lines before giving up and returning whatever was accumulated so far
// (spec.md §5: "Backend request itself has no hard timeout ... but the
// ping keep-alive prevents idle disconnection"; this bounds the backend
// side of that wait). Generalized from the teacher's duplicated
// llm/openai/sse.go and llm/anthropic/sse.go timedReader into one reader
// shared by every OpenAI-compatible backend this proxy talks to.
const idleTimeout = 60 * time.Second

var errIdleTimeout = fmt.Errorf("SSE read idle timeout")

// timedReader wraps an io.Reader and applies a per-Read deadline by racing
// the read against a timer on a background goroutine.
type timedReader struct {
	r       io.Reader
	timeout time.Duration
}

func (t *timedReader) Read(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := t.r.Read(p)
		ch <- result{n, err}
	}()

	select {
	case res := <-ch:
		return res.n, res.err
	case <-time.After(t.timeout):
		return 0, errIdleTimeout
	}
}

// IsIdleTimeout reports whether err is the idle-read-timeout sentinel.
func IsIdleTimeout(err error) bool {
	return err != nil && strings.Contains(err.Error(), errIdleTimeout.Error())
}

// ChunkScanner splits an OpenAI-compatible SSE body into raw data
// payloads, one per "data: " line, skipping every line without that prefix
// (vendors occasionally emit comment lines or blank keep-alives). It does
// not decode the JSON; that is left to the caller. onSkip is stored but
// not called by Next.
type ChunkScanner struct {
	scanner *bufio.Scanner
	onSkip  func(line string, err error)
}

// NewChunkScanner wraps reader with the idle-timeout guard and returns a
// scanner ready to call Next in a loop.
func NewChunkScanner(reader io.Reader, onSkip func(line string, err error)) *ChunkScanner {
	tr := &timedReader{r: reader, timeout: idleTimeout}
	sc := bufio.NewScanner(tr)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &ChunkScanner{scanner: sc, onSkip: onSkip}
}

// RawChunk is returned by Next: either the [DONE] sentinel (Done set) or
// the undecoded JSON payload of one "data: " line (Chunk set).
type RawChunk struct {
	Done  bool
	Chunk json.RawMessage
}

// Next advances to the next "data: " line. It returns ok=false once the
// stream ends (scanner.Scan returns false); callers must then check Err.
func (c *ChunkScanner) Next() (RawChunk, bool) {
	for c.scanner.Scan() {
		line := c.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return RawChunk{Done: true}, true
		}
		return RawChunk{Chunk: json.RawMessage(data)}, true
	}
	return RawChunk{}, false
}

// Err returns the scan error, distinguishing an idle timeout (recoverable:
// return whatever was accumulated) from a genuine I/O failure.
func (c *ChunkScanner) Err() error {
	return c.scanner.Err()
}
