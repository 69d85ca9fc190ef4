package registry

import (
	"os"
	"testing"
)

func TestResolve_PrefixMatchStripsPrefix(t *testing.T) {
	os.Unsetenv("OLLAMA_BASE_URL")
	os.Unsetenv("OLLAMA_HOST")
	r := New()

	res := r.Resolve("ollama/llama3")
	if res.Provider.Name != "ollama" {
		t.Fatalf("expected ollama provider, got %q", res.Provider.Name)
	}
	if res.Model != "llama3" {
		t.Fatalf("expected prefix stripped, got %q", res.Model)
	}
	if res.Provider.BaseURL != "http://localhost:11434" {
		t.Fatalf("expected default ollama base url, got %q", res.Provider.BaseURL)
	}
}

func TestResolve_PrefixHonorsEnvOverride(t *testing.T) {
	os.Setenv("OLLAMA_BASE_URL", "http://example.internal:11434")
	defer os.Unsetenv("OLLAMA_BASE_URL")

	r := New()
	res := r.Resolve("ollama/llama3")
	if res.Provider.BaseURL != "http://example.internal:11434" {
		t.Fatalf("expected env override, got %q", res.Provider.BaseURL)
	}
}

func TestResolve_AbsoluteURL(t *testing.T) {
	r := New()
	res := r.Resolve("http://localhost:9999/v1/my-model")
	if res.Provider.Name != "url" {
		t.Fatalf("expected ad-hoc url provider, got %q", res.Provider.Name)
	}
	if res.Provider.BaseURL != "http://localhost:9999" {
		t.Fatalf("unexpected base url: %q", res.Provider.BaseURL)
	}
	if res.Model != "my-model" {
		t.Fatalf("expected last path segment as model, got %q", res.Model)
	}
}

func TestResolve_CustomBaseURLEnv(t *testing.T) {
	os.Setenv("CLAUDISH_BASE_URL", "http://custom.internal")
	defer os.Unsetenv("CLAUDISH_BASE_URL")

	r := New()
	res := r.Resolve("some-model")
	if res.Provider.Name != "custom" {
		t.Fatalf("expected custom provider, got %q", res.Provider.Name)
	}
	if res.Model != "some-model" {
		t.Fatalf("expected model id passed through verbatim, got %q", res.Model)
	}
}

func TestResolve_FallsBackToAggregator(t *testing.T) {
	os.Unsetenv("CLAUDISH_BASE_URL")
	r := New()
	res := r.Resolve("anthropic/claude-3-opus")
	if res.Provider.Name != "openrouter" {
		t.Fatalf("expected hosted aggregator fallback, got %q", res.Provider.Name)
	}
}
