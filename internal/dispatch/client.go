// Package dispatch implements the Dispatcher: the per-request entry point
// that resolves a provider, health-gates and discovers its context window
// on first use, applies capability gating, forwards the translated
// request, and drives the Streaming State Machine over the response.
package dispatch

import (
	"net"
	"net/http"
	"time"
)

// newHTTPClient builds the outbound client claudish uses for every
// backend call, grounded on the teacher's
// internal/infrastructure/llm/openai/provider.go transport tuning:
// generous idle-connection reuse for a proxy that talks to the same
// handful of local servers repeatedly, with a long response-header
// timeout since local model servers can take a while to start producing
// a first token.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   15 * time.Second,
			ResponseHeaderTimeout: 300 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   5,
		},
	}
}
