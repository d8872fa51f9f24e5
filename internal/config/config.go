package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// azureEnvKeys maps the environment names used by the hosted deployment
// onto config keys.
var azureEnvKeys = map[string]string{
	"AZURE_OPENAI_ENDPOINT":           "chat.endpoint",
	"AZURE_OPENAI_CHATGPT_DEPLOYMENT": "chat.deployment",
	"AZURE_OPENAI_API_KEY":            "chat.api_key",
	"AZURE_SEARCH_ENDPOINT":           "search.endpoint",
	"AZURE_SEARCH_INDEX":              "search.index",
	"AZURE_SEARCH_API_KEY":            "search.api_key",
}

// ConfigurationError reports a missing or invalid configuration value.
// It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

func missing(field string) error {
	return &ConfigurationError{Field: field, Reason: "is required"}
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Load reads configuration from the given YAML file, then overlays the
// AZURE_* variables and finally DOCCHAT_* overrides
// (DOCCHAT_CHAT__DEPLOYMENT -> chat.deployment).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("AZURE_", ".", func(s string) string {
		return azureEnvKeys[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading azure env: %w", err)
	}

	if err := k.Load(env.Provider("DOCCHAT_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "DOCCHAT_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderAzure:  true,
	ProviderOpenAI: true,
}

var validHistoryPolicies = map[HistoryPolicy]bool{
	HistoryDiscard: true,
	HistoryInclude: true,
}

// Validate checks that everything the chat needs at runtime is present, so
// a missing endpoint fails at startup instead of on the first question.
// The returned error is always a *ConfigurationError.
func (c *Config) Validate() error {
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateChat(); err != nil {
		return err
	}
	if c.Search.Backend == SearchLocal {
		if err := c.ValidateEmbedding(); err != nil {
			return err
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Session.IdleTimeout < 0 {
		return invalid("session.idle_timeout", "must be non-negative")
	}
	if c.Timeouts.Search < 0 || c.Timeouts.Completion < 0 {
		return invalid("timeouts", "must be non-negative")
	}
	if c.Timeouts.Retries < 0 {
		return invalid("timeouts.retries", "must be non-negative")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return invalid("log.format", "must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// ValidateSearch checks only the search settings. Commands that never call
// the chat model use it instead of Validate.
func (c *Config) ValidateSearch() error {
	if err := c.validateSearch(); err != nil {
		return err
	}
	if c.Search.Backend == SearchLocal {
		return c.ValidateEmbedding()
	}
	return nil
}

func (c *Config) validateSearch() error {
	s := c.Search
	switch s.Backend {
	case SearchAzure:
		if s.Endpoint == "" {
			return missing("search.endpoint (AZURE_SEARCH_ENDPOINT)")
		}
		if s.Index == "" {
			return missing("search.index (AZURE_SEARCH_INDEX)")
		}
		if s.APIKey == "" {
			return missing("search.api_key (AZURE_SEARCH_API_KEY)")
		}
		if s.APIVersion == "" {
			return missing("search.api_version")
		}
		if s.VectorField == "" {
			return missing("search.vector_field")
		}
	case SearchLocal:
		if s.IndexDir == "" {
			return missing("search.index_dir")
		}
	case "":
		return missing("search.backend")
	default:
		return invalid("search.backend", "must be azure or local, got %q", s.Backend)
	}

	if s.Top <= 0 {
		return invalid("search.top", "must be positive, got %d", s.Top)
	}
	if s.KNearest < s.Top {
		return invalid("search.k_nearest", "must be at least search.top (%d), got %d", s.Top, s.KNearest)
	}
	return nil
}

func (c *Config) validateChat() error {
	ch := c.Chat
	if ch.Provider == "" {
		return missing("chat.provider")
	}
	if !validProviders[ch.Provider] {
		return invalid("chat.provider", "must be azure or openai, got %q", ch.Provider)
	}
	if ch.Provider == ProviderAzure {
		if ch.Endpoint == "" {
			return missing("chat.endpoint (AZURE_OPENAI_ENDPOINT)")
		}
		if ch.APIVersion == "" {
			return missing("chat.api_version")
		}
	}
	if ch.Deployment == "" {
		return missing("chat.deployment (AZURE_OPENAI_CHATGPT_DEPLOYMENT)")
	}
	if ch.APIKey == "" {
		return missing("chat.api_key (AZURE_OPENAI_API_KEY)")
	}
	if ch.Temperature < 0 || ch.Temperature > 2 {
		return invalid("chat.temperature", "must be between 0 and 2, got %g", ch.Temperature)
	}
	if ch.MaxTokens < 0 {
		return invalid("chat.max_tokens", "must be non-negative")
	}
	if !validHistoryPolicies[ch.HistoryPolicy] {
		return invalid("chat.history_policy", "must be discard or include, got %q", ch.HistoryPolicy)
	}
	if ch.MaxDocumentChars < 0 {
		return invalid("chat.max_document_chars", "must be non-negative")
	}
	if ch.RequestsPerMinute < 0 {
		return invalid("chat.requests_per_minute", "must be non-negative")
	}
	return nil
}

// ValidateEmbedding checks the embedding settings used by the local index.
func (c *Config) ValidateEmbedding() error {
	e := c.Embedding
	if !validProviders[e.Provider] {
		return invalid("embedding.provider", "must be azure or openai, got %q", e.Provider)
	}
	if e.Model == "" {
		return missing("embedding.model")
	}
	if e.APIKey == "" {
		return missing("embedding.api_key")
	}
	if e.Provider == ProviderAzure && e.Endpoint == "" {
		return missing("embedding.endpoint")
	}
	return nil
}
