package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/blackfuel-ai/claudish/internal/adapter"
	"github.com/blackfuel-ai/claudish/internal/anchor"
	"github.com/blackfuel-ai/claudish/internal/registry"
	"github.com/blackfuel-ai/claudish/internal/stream"
	"github.com/blackfuel-ai/claudish/internal/transform"
	"github.com/blackfuel-ai/claudish/internal/usage"
	apierrors "github.com/blackfuel-ai/claudish/pkg/errors"
	"go.uber.org/zap"
)

// Dispatcher is the per-request entry point (spec.md §4.5).
type Dispatcher struct {
	registry *registry.Registry
	breakers *registry.Breakers
	client   *http.Client
	cache    *usage.Cache
	totals   *usage.Totals
	logger   *zap.Logger
	policy   stream.ReasoningPolicy

	mu             sync.Mutex
	contextWindows map[string]int // provider|model -> discovered context window
	probed         map[string]bool
}

// New builds a Dispatcher for one listener.
func New(reg *registry.Registry, port int, logger *zap.Logger, policy stream.ReasoningPolicy) *Dispatcher {
	return &Dispatcher{
		registry:       reg,
		breakers:       registry.NewBreakers(),
		client:         newHTTPClient(),
		cache:          usage.NewCache(),
		totals:         usage.NewTotals(port),
		logger:         logger,
		policy:         policy,
		contextWindows: make(map[string]int),
		probed:         make(map[string]bool),
	}
}

// Dispatch handles one Anchor request end to end, writing the translated
// Anchor SSE event sequence to w. It returns an error only for failures
// detected before message_start; failures after that point are written
// into the stream by runStream as an `error` event followed by
// message_stop (stream.Abort).
func (d *Dispatcher) Dispatch(ctx context.Context, w http.ResponseWriter, req anchor.Request) error {
	res := d.registry.Resolve(req.Model)
	desc := res.Provider

	if cb := d.breakers.For(desc.Name); desc.Name != "" && !cb.Allow() {
		return apierrors.New(apierrors.KindConnection, fmt.Sprintf("%s is circuit-broken after repeated failures", desc.Name))
	}

	if err := d.ensureHealthy(desc); err != nil {
		if cb := d.breakers.For(desc.Name); desc.Name != "" {
			cb.RecordFailure()
		}
		return err
	}

	ad := adapter.Resolve(res.Model)

	result, err := transform.Transform(req)
	if err != nil {
		return err
	}
	if len(result.DroppedParams) > 0 {
		d.logger.Debug("dropped unsupported top-level request fields", zap.Strings("fields", result.DroppedParams))
	}
	outReq := result.Request
	outReq.Model = res.Model
	ad.PrepareRequest(&outReq, desc.Capabilities)

	cacheableTokens := cacheableTokenEstimate(req)
	sessionID := sessionIDFromMetadata(req.Metadata)
	firstUserMsg := firstUserMessageText(req)
	key := usage.Key(req.Model, sessionID, firstUserMsg)
	phase := d.cache.Lookup(key, cacheableTokens, time.Now())

	body, err := json.Marshal(outReq)
	if err != nil {
		return apierrors.Wrap(apierrors.KindValidation, "could not encode outbound request", err)
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, http.MethodPost, desc.BaseURL+desc.APIPath, bytes.NewReader(body))
	if err != nil {
		return apierrors.Wrap(apierrors.KindAPI, "could not build upstream request", err)
	}
	upstreamReq.Header.Set("Content-Type", "application/json")
	if apiKey := resolveAPIKey(desc); apiKey != "" {
		upstreamReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := d.client.Do(upstreamReq)
	if err != nil {
		if cb := d.breakers.For(desc.Name); desc.Name != "" {
			cb.RecordFailure()
		}
		return apierrors.Classify(err, desc.Name, res.Model)
	}
	if cb := d.breakers.For(desc.Name); desc.Name != "" {
		cb.RecordSuccess()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapBackendError(resp, desc)
	}

	contextWindow := d.lookupContextWindow(desc, res.Model)

	d.runStream(resp.Body, w, res.Model, ad, phase, contextWindow, result.ToolSchemas)
	return nil
}

// RemoveStatusFile deletes this listener's session-totals status file,
// called on graceful shutdown (spec.md §3).
func (d *Dispatcher) RemoveStatusFile() {
	d.totals.Remove()
}

func (d *Dispatcher) ensureHealthy(desc registry.Descriptor) error {
	if desc.Name == "" || len(desc.ProbePaths) == 0 {
		return nil
	}
	d.mu.Lock()
	already := d.probed[desc.Name]
	d.mu.Unlock()
	if already {
		return nil
	}
	if err := healthGate(d.client, desc); err != nil {
		return err
	}
	d.mu.Lock()
	d.probed[desc.Name] = true
	d.mu.Unlock()
	return nil
}

func (d *Dispatcher) lookupContextWindow(desc registry.Descriptor, model string) int {
	key := desc.Name + "|" + model
	d.mu.Lock()
	if w, ok := d.contextWindows[key]; ok {
		d.mu.Unlock()
		return w
	}
	d.mu.Unlock()

	w := discoverContextWindow(d.client, desc, model)
	d.mu.Lock()
	d.contextWindows[key] = w
	d.mu.Unlock()
	return w
}

func resolveAPIKey(desc registry.Descriptor) string {
	if desc.APIKeyEnv != "" {
		if v := os.Getenv(desc.APIKeyEnv); v != "" {
			return v
		}
	}
	return os.Getenv("CLAUDISH_LOCAL_API_KEY")
}

// cacheableTokenEstimate measures the character length of the system
// content plus the serialized tool declarations (spec.md §4.4).
func cacheableTokenEstimate(req anchor.Request) int {
	chars := len(req.System)
	for _, t := range req.Tools {
		chars += len(t.Name) + len(t.Description) + len(t.InputSchema)
	}
	return chars / 4
}

func sessionIDFromMetadata(metadata []byte) string {
	if len(metadata) == 0 {
		return ""
	}
	var m struct {
		UserID string `json:"user_id"`
	}
	if json.Unmarshal(metadata, &m) == nil {
		return m.UserID
	}
	return ""
}

func firstUserMessageText(req anchor.Request) string {
	for _, m := range req.Messages {
		if m.Role != "user" {
			continue
		}
		blocks, err := m.Blocks()
		if err != nil {
			continue
		}
		for _, b := range blocks {
			if b.Type == anchor.BlockText {
				return b.Text
			}
		}
	}
	return ""
}

