// Package config loads run configuration from an optional research.yml file
// and from environment variables. Configuration is read once at process start
// and injected into the components that need it; nothing below this package
// reads the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies a language-model backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderGroq   Provider = "groq"
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Default model per provider when none is configured.
var defaultModels = map[Provider]string{
	ProviderGemini: "gemini-2.0-flash",
	ProviderGroq:   "llama-3.3-70b-versatile",
	ProviderOpenAI: "gpt-4o-mini",
	ProviderOllama: "llama3.2",
}

// FileConfig holds settings loaded from research.yml.
type FileConfig struct {
	OutputDir   string        `yaml:"outputDir,omitempty"`
	Provider    string        `yaml:"provider,omitempty"`
	Model       string        `yaml:"model,omitempty"`
	MaxAttempts int           `yaml:"maxAttempts,omitempty"`
	MaxRounds   int           `yaml:"maxRounds,omitempty"`
	CallTimeout time.Duration `yaml:"callTimeout,omitempty"`
	RunTimeout  time.Duration `yaml:"runTimeout,omitempty"`

	// RequestInterval spaces model calls across a run, for free-tier
	// rate limits. Zero disables throttling.
	RequestInterval time.Duration `yaml:"requestInterval,omitempty"`

	Verbose bool `yaml:"verbose,omitempty"`
}

// Config is the resolved configuration for a research run.
type Config struct {
	// Provider is the selected LLM backend.
	Provider Provider

	// Model is the model identifier passed to the provider.
	Model string

	// APIKey is the credential for the selected provider. Empty for ollama.
	APIKey string

	// OllamaBaseURL is the local Ollama endpoint. Only used when Provider
	// is ProviderOllama.
	OllamaBaseURL string

	// SerperAPIKey enables the web_search tool. Empty disables it; the
	// Scout then works from model knowledge alone.
	SerperAPIKey string

	// OutputDir is where generated reports are written.
	OutputDir string

	// MaxAttempts bounds retries for each tool/model call.
	MaxAttempts int

	// MaxRounds bounds the agent reasoning loop.
	MaxRounds int

	// CallTimeout is the per-call deadline for tool/model HTTP calls.
	CallTimeout time.Duration

	// RunTimeout bounds an entire pipeline run. Zero means no limit.
	RunTimeout time.Duration

	// RequestInterval is the minimum spacing between model calls. Zero
	// disables throttling.
	RequestInterval time.Duration

	// Verbose enables per-round progress output.
	Verbose bool
}

// Defaults applied when neither file nor environment provides a value.
const (
	DefaultOutputDir     = "output"
	DefaultMaxAttempts   = 3
	DefaultMaxRounds     = 6
	DefaultCallTimeout   = 120 * time.Second
	DefaultOllamaBaseURL = "http://localhost:11434"
)

// LoadFile attempts to read research.yml or research.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func LoadFile(dir string) (*FileConfig, error) {
	for _, name := range []string{"research.yml", "research.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var fc FileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		return &fc, nil
	}
	return &FileConfig{}, nil
}

// Resolve merges file settings with the environment and applies defaults.
// Provider selection follows the free-first order: an explicit provider wins;
// otherwise Gemini, Groq, a MODEL_NAME of the form "ollama/<model>", then
// OpenAI. Missing LLM credentials are an error.
func Resolve(fc *FileConfig, env func(string) string) (*Config, error) {
	if fc == nil {
		fc = &FileConfig{}
	}

	cfg := &Config{
		SerperAPIKey:    env("SERPER_API_KEY"),
		OllamaBaseURL:   DefaultOllamaBaseURL,
		OutputDir:       fc.OutputDir,
		MaxAttempts:     fc.MaxAttempts,
		MaxRounds:       fc.MaxRounds,
		CallTimeout:     fc.CallTimeout,
		RunTimeout:      fc.RunTimeout,
		RequestInterval: fc.RequestInterval,
		Verbose:         fc.Verbose,
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if v := env("OLLAMA_BASE_URL"); v != "" {
		cfg.OllamaBaseURL = v
	}

	modelName := env("MODEL_NAME")

	if fc.Provider != "" {
		cfg.Provider = Provider(fc.Provider)
	} else {
		cfg.Provider = detectProvider(env, modelName)
	}
	if cfg.Provider == "" {
		return nil, errNoProvider()
	}

	switch cfg.Provider {
	case ProviderGemini:
		cfg.APIKey = env("GEMINI_API_KEY")
	case ProviderGroq:
		cfg.APIKey = env("GROQ_API_KEY")
	case ProviderOpenAI:
		cfg.APIKey = env("OPENAI_API_KEY")
	case ProviderOllama:
		// Local provider, no key required.
	default:
		return nil, fmt.Errorf("config: unsupported provider %q", cfg.Provider)
	}
	if cfg.Provider != ProviderOllama && cfg.APIKey == "" {
		return nil, fmt.Errorf("config: provider %q selected but no API key set", cfg.Provider)
	}

	cfg.Model = fc.Model
	if cfg.Model == "" {
		cfg.Model = modelFromName(cfg.Provider, modelName)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}

	return cfg, nil
}

// detectProvider picks a provider from available credentials, free options
// first.
func detectProvider(env func(string) string, modelName string) Provider {
	switch {
	case env("GEMINI_API_KEY") != "":
		return ProviderGemini
	case env("GROQ_API_KEY") != "":
		return ProviderGroq
	case strings.HasPrefix(modelName, "ollama/"):
		return ProviderOllama
	case env("OPENAI_API_KEY") != "":
		return ProviderOpenAI
	}
	return ""
}

// modelFromName extracts the bare model identifier from a MODEL_NAME value
// such as "ollama/llama3.2" or "groq/llama-3.3-70b-versatile". A value with
// no provider prefix is returned as-is; a value prefixed for a different
// provider is ignored.
func modelFromName(p Provider, modelName string) string {
	if modelName == "" {
		return ""
	}
	prefix, rest, found := strings.Cut(modelName, "/")
	if !found {
		return modelName
	}
	if Provider(prefix) == p {
		return rest
	}
	return ""
}

func errNoProvider() error {
	return fmt.Errorf("config: no LLM credentials found; set GEMINI_API_KEY (free), " +
		"GROQ_API_KEY (free), MODEL_NAME=ollama/<model> (free, local), or OPENAI_API_KEY")
}
