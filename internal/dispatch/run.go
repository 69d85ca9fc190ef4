package dispatch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/blackfuel-ai/claudish/internal/adapter"
	"github.com/blackfuel-ai/claudish/internal/anchor"
	"github.com/blackfuel-ai/claudish/internal/openai"
	"github.com/blackfuel-ai/claudish/internal/registry"
	"github.com/blackfuel-ai/claudish/internal/stream"
	"github.com/blackfuel-ai/claudish/internal/transform"
	"github.com/blackfuel-ai/claudish/internal/usage"
	apierrors "github.com/blackfuel-ai/claudish/pkg/errors"
	"go.uber.org/zap"
)

// runStream drives the Streaming State Machine over resp body, writing the
// translated Anchor SSE sequence to w (spec.md §4.2, §4.5 step 6).
// toolSchemas maps each sanitized tool name to its declared input_schema,
// used to validate assembled tool_use arguments once a block closes.
func (d *Dispatcher) runStream(body io.Reader, w http.ResponseWriter, model string, ad adapter.Adapter, phase usage.Phase, contextWindow int, toolSchemas map[string]json.RawMessage) {
	sw := stream.NewWriter(w)
	done := make(chan struct{})
	defer close(done)

	st := stream.New()
	messageID := stream.NewMessageID()

	_ = sw.Write(stream.Start(messageID, model))
	stream.StartPingTask(d.logger, sw, done)

	scanner := stream.NewChunkScanner(body, func(line string, err error) {
		d.logger.Debug("skip unparseable SSE line", zap.Error(err))
	})

	for {
		raw, ok := scanner.Next()
		if !ok {
			break
		}
		if raw.Done {
			break
		}

		var chunk openai.StreamChunk
		if err := json.Unmarshal(raw.Chunk, &chunk); err != nil {
			d.logger.Debug("skip unparseable SSE chunk", zap.Error(err))
			continue
		}
		if len(chunk.Choices) > 0 {
			ad.TransformDelta(&chunk.Choices[0].Delta)
		}

		for _, ev := range stream.Step(st, chunk, d.policy, stream.NewToolUseID) {
			if sw.Write(ev) != nil {
				return
			}
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].FinishReason != nil && *chunk.Choices[0].FinishReason != "" {
			break
		}
	}

	if err := scanner.Err(); err != nil && !stream.IsIdleTimeout(err) {
		d.logger.Warn("SSE scan error", zap.Error(err))
		ae := apierrors.Classify(err, "", model)
		for _, ev := range stream.Abort(st, string(ae.Kind), ae.Message) {
			_ = sw.Write(ev)
		}
		sw.Close()
		d.totals.Record(st.InputTokensSeen, usageEstimateFallback(st), contextWindow)
		return
	}

	deltaUsage := anchor.MessageDeltaUsage{OutputTokens: st.OutputTokensSeen}
	if deltaUsage.OutputTokens == 0 {
		deltaUsage.OutputTokens = usageEstimateFallback(st)
	}
	if phase.Create {
		deltaUsage.CacheCreationInputTokens = phase.CacheCreationTokens
		deltaUsage.CacheCreation = &anchor.CacheCreation{Ephemeral5mInputTokens: phase.CacheCreationTokens}
	} else {
		deltaUsage.CacheReadInputTokens = phase.CacheReadTokens
	}

	events := stream.Finalize(st, deltaUsage, func(toolName string, args map[string]any, err error) {
		if err != nil {
			d.logger.Warn("tool call arguments did not parse as JSON", zap.String("tool", toolName), zap.Error(err))
			return
		}
		if schema, ok := toolSchemas[toolName]; ok {
			if verr := transform.ValidateToolArguments(schema, args); verr != nil {
				d.logger.Warn("tool call arguments did not match declared schema", zap.String("tool", toolName), zap.Error(verr))
			}
		}
	})
	for _, ev := range events {
		_ = sw.Write(ev)
	}
	sw.Close()

	d.totals.Record(st.InputTokensSeen, deltaUsage.OutputTokens, contextWindow)
}

// usageEstimateFallback applies the 4-chars-per-token heuristic when the
// backend never reported a usage record (spec.md §4.4).
func usageEstimateFallback(st *stream.State) int {
	return usage.EstimateTokensFromChars(st.OutputCharsSeen)
}

// mapBackendError translates a non-2xx upstream response into an Anchor
// error shape (spec.md §4.5 "Error mapping").
func mapBackendError(resp *http.Response, desc registry.Descriptor) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	text := strings.ToLower(string(body))

	switch {
	case strings.Contains(text, "model") && (strings.Contains(text, "not found") || strings.Contains(text, "does not exist")):
		return apierrors.New(apierrors.KindModelNotFound, fmt.Sprintf("model not found on %s; you may need to pull it first", desc.Name))
	case strings.Contains(text, "does not support") && strings.Contains(text, "tool"):
		return apierrors.New(apierrors.KindCapability, fmt.Sprintf("%s does not support tool calling for this model", desc.Name))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apierrors.New(apierrors.KindAuthentication, "backend rejected credentials")
	case resp.StatusCode == http.StatusTooManyRequests:
		return apierrors.New(apierrors.KindRateLimit, "backend rate limited the request")
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apierrors.New(apierrors.KindOverloaded, "backend is overloaded")
	default:
		return apierrors.New(apierrors.KindAPI, fmt.Sprintf("backend returned status %d", resp.StatusCode))
	}
}
