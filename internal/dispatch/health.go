package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blackfuel-ai/claudish/internal/registry"
	apierrors "github.com/blackfuel-ai/claudish/pkg/errors"
)

const (
	healthProbeTimeout   = 5 * time.Second
	contextProbeTimeout  = 3 * time.Second
	defaultContextWindow = 8192
)

// healthGate probes a local provider in its descriptor's probe order and
// returns a connection_error naming the provider, base URL, and start
// command if none succeed (spec.md §4.5 step 2).
func healthGate(client *http.Client, desc registry.Descriptor) error {
	if len(desc.ProbePaths) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
	defer cancel()

	var lastErr error
	for _, path := range desc.ProbePaths {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, desc.BaseURL+path, nil)
		if err != nil {
			lastErr = err
			continue
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("probe %s returned %d", path, resp.StatusCode)
	}

	return apierrors.Wrap(apierrors.KindConnection, fmt.Sprintf(
		"could not reach %s at %s (start it with: %s)", desc.Name, desc.BaseURL, desc.StartCommand,
	), lastErr)
}

// showResponse is the permissive shape claudish reads context-window
// metadata from (Ollama's /api/show and compatible /v1/models responses).
type showResponse struct {
	ModelInfo map[string]any `json:"model_info"`
	Details   struct {
		ContextLength int `json:"context_length"`
	} `json:"details"`
	ContextLength int `json:"context_length"`
}

// discoverContextWindow implements spec.md §4.5 step 3: parse a model's
// context window from its metadata endpoint, defaulting to 8192.
func discoverContextWindow(client *http.Client, desc registry.Descriptor, model string) int {
	if desc.ShowPath == "" {
		return defaultContextWindow
	}
	ctx, cancel := context.WithTimeout(context.Background(), contextProbeTimeout)
	defer cancel()

	body, _ := json.Marshal(map[string]string{"name": model})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, desc.BaseURL+desc.ShowPath, bytes.NewReader(body))
	if err != nil {
		return defaultContextWindow
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return defaultContextWindow
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return defaultContextWindow
	}

	var show showResponse
	if err := json.NewDecoder(resp.Body).Decode(&show); err != nil {
		return defaultContextWindow
	}
	if show.ContextLength > 0 {
		return show.ContextLength
	}
	if show.Details.ContextLength > 0 {
		return show.Details.ContextLength
	}
	for k, v := range show.ModelInfo {
		if strings.HasSuffix(k, ".context_length") {
			if f, ok := v.(float64); ok && f > 0 {
				return int(f)
			}
		}
	}
	return defaultContextWindow
}
