// Package registry implements the Provider Registry: known local provider
// descriptors, prefix/URL-based model resolution, and per-provider circuit
// breaking.
package registry

import (
	"net/url"
	"os"
	"strings"
)

// Capabilities describes what a provider's backend can be asked to do.
type Capabilities struct {
	SupportsTools     bool
	SupportsVision    bool
	SupportsStreaming bool
	SupportsJSONMode  bool
}

// Descriptor is a ProviderDescriptor: everything the dispatcher needs to
// route to and authenticate against one backend family.
type Descriptor struct {
	Name         string
	BaseURL      string
	APIPath      string
	Prefixes     []string
	APIKeyEnv    string
	ProbePaths   []string // checked in order during the health gate
	ShowPath     string   // model-metadata endpoint for context-window discovery
	StartCommand string   // surfaced in connection_error guidance
	Capabilities Capabilities
}

// Registry holds the known local providers plus the hosted-aggregator
// fallback. It is read-only after construction; environment variables are
// re-read on every lookup per spec.md §5.
type Registry struct {
	providers        []Descriptor
	aggregator       Descriptor
	customBaseURLEnv string
	localAPIKeyEnv   string
}

// New builds the registry with the standard local-provider set.
func New() *Registry {
	return &Registry{
		providers: []Descriptor{
			{
				Name:         "ollama",
				APIPath:      "/v1/chat/completions",
				Prefixes:     []string{"ollama/"},
				APIKeyEnv:    "OLLAMA_API_KEY",
				ProbePaths:   []string{"/api/tags", "/v1/models"},
				ShowPath:     "/api/show",
				StartCommand: "ollama serve",
				Capabilities: Capabilities{SupportsTools: true, SupportsStreaming: true},
			},
			{
				Name:         "lmstudio",
				APIPath:      "/v1/chat/completions",
				Prefixes:     []string{"lmstudio:", "lmstudio/"},
				APIKeyEnv:    "LMSTUDIO_API_KEY",
				ProbePaths:   []string{"/v1/models"},
				ShowPath:     "/v1/models",
				StartCommand: "lms server start",
				Capabilities: Capabilities{SupportsTools: true, SupportsStreaming: true},
			},
			{
				Name:         "vllm",
				APIPath:      "/v1/chat/completions",
				Prefixes:     []string{"vllm:", "vllm/"},
				APIKeyEnv:    "VLLM_API_KEY",
				ProbePaths:   []string{"/v1/models"},
				ShowPath:     "/v1/models",
				StartCommand: "vllm serve <model>",
				Capabilities: Capabilities{SupportsTools: true, SupportsStreaming: true},
			},
			{
				Name:         "mlx",
				APIPath:      "/v1/chat/completions",
				Prefixes:     []string{"mlx:", "mlx/"},
				APIKeyEnv:    "MLX_API_KEY",
				ProbePaths:   []string{"/v1/models"},
				ShowPath:     "/v1/models",
				StartCommand: "mlx_lm.server",
				Capabilities: Capabilities{SupportsTools: false, SupportsStreaming: true},
			},
		},
		aggregator: Descriptor{
			Name:      "openrouter",
			BaseURL:   "https://openrouter.ai/api",
			APIPath:   "/v1/chat/completions",
			APIKeyEnv: "OPENROUTER_API_KEY",
			Capabilities: Capabilities{SupportsTools: true, SupportsVision: true, SupportsStreaming: true},
		},
		customBaseURLEnv: "CLAUDISH_BASE_URL",
		localAPIKeyEnv:   "CLAUDISH_LOCAL_API_KEY",
	}
}

// envBaseURL returns the base URL configured for a provider name via its
// conventional env vars (OLLAMA_HOST/OLLAMA_BASE_URL, <NAME>_BASE_URL, ...).
func envBaseURL(name string) string {
	switch name {
	case "ollama":
		if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
			return v
		}
		if v := os.Getenv("OLLAMA_HOST"); v != "" {
			return v
		}
		return "http://localhost:11434"
	case "lmstudio":
		if v := os.Getenv("LMSTUDIO_BASE_URL"); v != "" {
			return v
		}
		return "http://localhost:1234"
	case "vllm":
		if v := os.Getenv("VLLM_BASE_URL"); v != "" {
			return v
		}
		return "http://localhost:8000"
	case "mlx":
		if v := os.Getenv("MLX_BASE_URL"); v != "" {
			return v
		}
		return "http://localhost:8080"
	}
	return ""
}

// Resolution is the outcome of resolving a model id to a provider plus the
// model name to send upstream.
type Resolution struct {
	Provider Descriptor
	Model    string
}

// Resolve implements spec.md §4.5 step 1: prefix match, then absolute URL,
// then a configured custom base URL, then the hosted aggregator fallback.
func (r *Registry) Resolve(modelID string) Resolution {
	for _, p := range r.providers {
		for _, prefix := range p.Prefixes {
			if strings.HasPrefix(modelID, prefix) {
				desc := p
				desc.BaseURL = envBaseURL(p.Name)
				return Resolution{Provider: desc, Model: strings.TrimPrefix(modelID, prefix)}
			}
		}
	}

	if u, err := url.ParseRequestURI(modelID); err == nil && u.Scheme != "" && u.Host != "" {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		model := modelID
		base := u.Scheme + "://" + u.Host
		if len(segments) > 0 && segments[len(segments)-1] != "" {
			model = segments[len(segments)-1]
		}
		return Resolution{
			Provider: Descriptor{
				Name:         "url",
				BaseURL:      base,
				APIPath:      "/v1/chat/completions",
				ProbePaths:   []string{"/v1/models"},
				Capabilities: Capabilities{SupportsTools: true, SupportsStreaming: true},
			},
			Model: model,
		}
	}

	if custom := os.Getenv(r.customBaseURLEnv); custom != "" {
		return Resolution{
			Provider: Descriptor{
				Name:         "custom",
				BaseURL:      custom,
				APIPath:      "/v1/chat/completions",
				APIKeyEnv:    r.localAPIKeyEnv,
				ProbePaths:   []string{"/v1/models"},
				Capabilities: Capabilities{SupportsTools: true, SupportsStreaming: true},
			},
			Model: modelID,
		}
	}

	return Resolution{Provider: r.aggregator, Model: modelID}
}
