package dispatch

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/blackfuel-ai/claudish/internal/anchor"
	"github.com/blackfuel-ai/claudish/internal/registry"
	"github.com/blackfuel-ai/claudish/internal/stream"
	apierrors "github.com/blackfuel-ai/claudish/pkg/errors"
)

func TestResolveAPIKey_PrefersDescriptorEnv(t *testing.T) {
	t.Setenv("OLLAMA_API_KEY", "ollama-key")
	t.Setenv("CLAUDISH_LOCAL_API_KEY", "generic-key")

	desc := registry.Descriptor{APIKeyEnv: "OLLAMA_API_KEY"}
	if got := resolveAPIKey(desc); got != "ollama-key" {
		t.Fatalf("resolveAPIKey() = %q, want ollama-key", got)
	}
}

func TestResolveAPIKey_FallsBackToGenericKey(t *testing.T) {
	os.Unsetenv("VLLM_API_KEY")
	t.Setenv("CLAUDISH_LOCAL_API_KEY", "generic-key")

	desc := registry.Descriptor{APIKeyEnv: "VLLM_API_KEY"}
	if got := resolveAPIKey(desc); got != "generic-key" {
		t.Fatalf("resolveAPIKey() = %q, want generic-key", got)
	}
}

func TestCacheableTokenEstimate_CountsSystemAndTools(t *testing.T) {
	req := anchor.Request{
		System: json.RawMessage(`"0123456789"`), // 12 chars including quotes
		Tools: []anchor.Tool{
			{Name: "Read", Description: "reads a file", InputSchema: json.RawMessage(`{}`)},
		},
	}
	got := cacheableTokenEstimate(req)
	want := (len(req.System) + len("Read") + len("reads a file") + len("{}")) / 4
	if got != want {
		t.Fatalf("cacheableTokenEstimate() = %d, want %d", got, want)
	}
}

func TestSessionIDFromMetadata_ExtractsUserID(t *testing.T) {
	got := sessionIDFromMetadata([]byte(`{"user_id":"abc-123"}`))
	if got != "abc-123" {
		t.Fatalf("sessionIDFromMetadata() = %q, want abc-123", got)
	}
}

func TestSessionIDFromMetadata_EmptyOrInvalid(t *testing.T) {
	if got := sessionIDFromMetadata(nil); got != "" {
		t.Fatalf("sessionIDFromMetadata(nil) = %q, want empty", got)
	}
	if got := sessionIDFromMetadata([]byte(`not json`)); got != "" {
		t.Fatalf("sessionIDFromMetadata(invalid) = %q, want empty", got)
	}
}

func TestFirstUserMessageText_FindsFirstUserTextBlock(t *testing.T) {
	req := anchor.Request{
		Messages: []anchor.Message{
			{Role: "assistant", Content: json.RawMessage(`"ignored"`)},
			{Role: "user", Content: json.RawMessage(`[{"type":"text","text":"hello there"}]`)},
		},
	}
	if got := firstUserMessageText(req); got != "hello there" {
		t.Fatalf("firstUserMessageText() = %q, want %q", got, "hello there")
	}
}

func TestFirstUserMessageText_NoUserMessage(t *testing.T) {
	req := anchor.Request{Messages: []anchor.Message{{Role: "assistant", Content: json.RawMessage(`"x"`)}}}
	if got := firstUserMessageText(req); got != "" {
		t.Fatalf("firstUserMessageText() = %q, want empty", got)
	}
}

func TestUsageEstimateFallback_UsesOutputCharsSeen(t *testing.T) {
	st := &stream.State{OutputCharsSeen: 40}
	if got := usageEstimateFallback(st); got != 10 {
		t.Fatalf("usageEstimateFallback() = %d, want 10", got)
	}
}

func TestMapBackendError_ModelNotFound(t *testing.T) {
	resp := &http.Response{StatusCode: 404, Body: io.NopCloser(strings.NewReader(`{"error":"model not found"}`))}
	err := mapBackendError(resp, registry.Descriptor{Name: "ollama"})
	ae, ok := apierrors.As(err)
	if !ok || ae.Kind != apierrors.KindModelNotFound {
		t.Fatalf("expected model_not_found, got %+v", err)
	}
}

func TestMapBackendError_Unauthorized(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusUnauthorized, Body: io.NopCloser(strings.NewReader(`{"error":"bad key"}`))}
	err := mapBackendError(resp, registry.Descriptor{Name: "openrouter"})
	ae, ok := apierrors.As(err)
	if !ok || ae.Kind != apierrors.KindAuthentication {
		t.Fatalf("expected authentication_error, got %+v", err)
	}
}

func TestMapBackendError_RateLimited(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Body: io.NopCloser(strings.NewReader(`{}`))}
	err := mapBackendError(resp, registry.Descriptor{Name: "openrouter"})
	ae, ok := apierrors.As(err)
	if !ok || ae.Kind != apierrors.KindRateLimit {
		t.Fatalf("expected rate_limit_error, got %+v", err)
	}
}

func TestMapBackendError_DefaultsToAPIError(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(strings.NewReader(`{}`))}
	err := mapBackendError(resp, registry.Descriptor{Name: "vllm"})
	ae, ok := apierrors.As(err)
	if !ok || ae.Kind != apierrors.KindAPI {
		t.Fatalf("expected api_error, got %+v", err)
	}
}
