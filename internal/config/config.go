// Package config loads claudish's runtime configuration. Unlike the
// teacher's layered YAML config, claudish is a zero-config local proxy
// (spec.md §6): every setting is an environment variable, bound through
// viper so the rest of the codebase reads a single typed Config struct
// instead of scattering os.Getenv calls.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the full set of claudish environment variables (spec.md §6).
type Config struct {
	Port             int    `mapstructure:"port"`
	ReasoningPolicy  string `mapstructure:"reasoning_policy"`
	Debug            bool   `mapstructure:"debug"`
	BaseURL          string `mapstructure:"base_url"`
	LocalAPIKey      string `mapstructure:"local_api_key"`
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key"`
	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"`

	OllamaBaseURL   string `mapstructure:"ollama_base_url"`
	OllamaHost      string `mapstructure:"ollama_host"`
	OllamaAPIKey    string `mapstructure:"ollama_api_key"`
	LMStudioBaseURL string `mapstructure:"lmstudio_base_url"`
	LMStudioAPIKey  string `mapstructure:"lmstudio_api_key"`
	VLLMBaseURL     string `mapstructure:"vllm_base_url"`
	VLLMAPIKey      string `mapstructure:"vllm_api_key"`
	MLXBaseURL      string `mapstructure:"mlx_base_url"`
	MLXAPIKey       string `mapstructure:"mlx_api_key"`

	MonitorUpstream string `mapstructure:"monitor_upstream"`
}

// envBindings maps each mapstructure key to the CLAUDISH_-prefixed or
// vendor-conventional environment variable it reads from.
var envBindings = map[string]string{
	"port":               "CLAUDISH_PORT",
	"reasoning_policy":   "CLAUDISH_REASONING_POLICY",
	"debug":              "CLAUDISH_DEBUG",
	"base_url":           "CLAUDISH_BASE_URL",
	"local_api_key":      "CLAUDISH_LOCAL_API_KEY",
	"openrouter_api_key": "OPENROUTER_API_KEY",
	"anthropic_api_key":  "ANTHROPIC_API_KEY",

	"ollama_base_url":   "OLLAMA_BASE_URL",
	"ollama_host":       "OLLAMA_HOST",
	"ollama_api_key":    "OLLAMA_API_KEY",
	"lmstudio_base_url": "LMSTUDIO_BASE_URL",
	"lmstudio_api_key":  "LMSTUDIO_API_KEY",
	"vllm_base_url":     "VLLM_BASE_URL",
	"vllm_api_key":      "VLLM_API_KEY",
	"mlx_base_url":      "MLX_BASE_URL",
	"mlx_api_key":       "MLX_API_KEY",

	"monitor_upstream": "CLAUDISH_MONITOR_UPSTREAM",
}

// Load reads Config entirely from the process environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("port", 8317)
	v.SetDefault("reasoning_policy", "as_text")
	v.SetDefault("debug", false)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
