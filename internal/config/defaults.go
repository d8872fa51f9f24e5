package config

import "time"

const (
	// DefaultChatAPIVersion is the Azure OpenAI API version the chat prompt targets.
	DefaultChatAPIVersion = "2025-01-01-preview"
	// DefaultSearchAPIVersion is the Azure AI Search REST version with vectorizable text queries.
	DefaultSearchAPIVersion = "2024-07-01"
	// DefaultTemperature favors grounded answers over creative ones.
	DefaultTemperature = 0.2
	DefaultVectorField = "text_vector"
	DefaultKNearest    = 50
	DefaultTop         = 5
)

// DefaultExcludes are glob patterns skipped by ingest.
var DefaultExcludes = []string{
	".git/**",
	"node_modules/**",
	"vendor/**",
	"*.min.js",
	"*.lock",
}

// DefaultConfig returns a Config with sensible defaults. Endpoints and keys
// have no defaults and must come from the file or the environment.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Backend:     SearchAzure,
			APIVersion:  DefaultSearchAPIVersion,
			VectorField: DefaultVectorField,
			KNearest:    DefaultKNearest,
			Top:         DefaultTop,
			IndexDir:    "data/index",
		},
		Chat: ChatConfig{
			Provider:      ProviderAzure,
			APIVersion:    DefaultChatAPIVersion,
			Temperature:   DefaultTemperature,
			MaxTokens:     1024,
			HistoryPolicy: HistoryDiscard,
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Session: SessionConfig{
			IdleTimeout: 30 * time.Minute,
		},
		Timeouts: TimeoutConfig{
			Search:     15 * time.Second,
			Completion: 60 * time.Second,
			Retries:    1,
		},
		Ingest: IngestConfig{
			Include:      []string{"**/*.md", "**/*.txt"},
			Exclude:      DefaultExcludes,
			ChunkSize:    1500,
			ChunkOverlap: 200,
			Concurrency:  4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
