// Package monitor implements Monitor Mode (spec.md §4.6): a raw pass-through
// to the configured upstream vendor endpoint, bypassing the translator
// entirely, with both directions logged and dynamic identifiers redacted so
// captured traffic can be replayed as a reproducible fixture.
//
// Routing this through a higher-level SDK client would re-encode the
// request/response bodies and defeat the goal of capturing the vendor's
// bytes exactly, so this is built directly on net/http.
package monitor

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// Monitor proxies every request to a fixed upstream base URL unchanged,
// logging the request and response bodies (redacted) for fixture capture.
type Monitor struct {
	upstreamBase string
	apiKeyHeader string
	apiKey       string
	client       *http.Client
	logger       *zap.Logger
	fixtureSink  FixtureSink
}

// FixtureSink receives a captured exchange; nil disables capture.
type FixtureSink interface {
	Write(req RedactedExchange)
}

// RedactedExchange is one logged request/response pair with dynamic
// identifiers scrubbed.
type RedactedExchange struct {
	Method       string
	Path         string
	RequestBody  []byte
	ResponseBody []byte
	StatusCode   int
}

// Config configures a Monitor.
type Config struct {
	UpstreamBase string
	APIKeyHeader string
	APIKey       string
	Logger       *zap.Logger
	Sink         FixtureSink
}

func New(cfg Config) *Monitor {
	return &Monitor{
		upstreamBase: cfg.UpstreamBase,
		apiKeyHeader: cfg.APIKeyHeader,
		apiKey:       cfg.APIKey,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger:      cfg.Logger,
		fixtureSink: cfg.Sink,
	}
}

// Proxy forwards r to the upstream base unchanged and copies the response
// back byte for byte, logging both bodies for fixture extraction.
func (m *Monitor) Proxy(w http.ResponseWriter, r *http.Request) {
	reqBody, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "could not read request body", http.StatusBadGateway)
		return
	}

	upstreamReq, err := http.NewRequestWithContext(r.Context(), r.Method, m.upstreamBase+r.URL.Path, bytes.NewReader(reqBody))
	if err != nil {
		http.Error(w, "could not build upstream request", http.StatusBadGateway)
		return
	}
	upstreamReq.Header = r.Header.Clone()
	if m.apiKeyHeader != "" && m.apiKey != "" {
		upstreamReq.Header.Set(m.apiKeyHeader, m.apiKey)
	}

	resp, err := m.client.Do(upstreamReq)
	if err != nil {
		m.logger.Warn("monitor upstream request failed", zap.Error(err))
		http.Error(w, "upstream request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		m.logger.Warn("monitor could not read upstream response", zap.Error(err))
	}

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)

	if m.fixtureSink != nil {
		m.fixtureSink.Write(RedactedExchange{
			Method:       r.Method,
			Path:         r.URL.Path,
			RequestBody:  Redact(reqBody),
			ResponseBody: Redact(respBody),
			StatusCode:   resp.StatusCode,
		})
	}
}

// dynamicIDPattern matches message/tool-use ids so repeated captures of the
// same exchange produce byte-identical fixtures.
var dynamicIDPattern = regexp.MustCompile(`"(msg|toolu)_[A-Za-z0-9]+"`)

// Redact replaces dynamic identifiers in a captured body with a stable
// placeholder so the fixture is reproducible across captures.
func Redact(body []byte) []byte {
	return dynamicIDPattern.ReplaceAllFunc(body, func(m []byte) []byte {
		if len(m) > 6 && string(m[1:6]) == "toolu" {
			return []byte(`"toolu_REDACTED"`)
		}
		return []byte(`"msg_REDACTED"`)
	})
}
