package config

import "time"

// SearchBackend selects which retriever answers document searches.
type SearchBackend string

const (
	SearchAzure SearchBackend = "azure"
	SearchLocal SearchBackend = "local"
)

// ProviderType identifies a chat or embedding provider.
type ProviderType string

const (
	ProviderAzure  ProviderType = "azure"
	ProviderOpenAI ProviderType = "openai"
)

// HistoryPolicy controls which prior turns reach the model when documents
// were found for a question.
type HistoryPolicy string

const (
	// HistoryDiscard sends an empty history with every question.
	HistoryDiscard HistoryPolicy = "discard"
	// HistoryInclude sends every turn before the current question.
	HistoryInclude HistoryPolicy = "include"
)

// Config is the top-level docchat configuration, corresponding to .docchat.yml.
type Config struct {
	Search     SearchConfig     `yaml:"search" koanf:"search"`
	Chat       ChatConfig       `yaml:"chat" koanf:"chat"`
	Embedding  EmbeddingConfig  `yaml:"embedding" koanf:"embedding"`
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Session    SessionConfig    `yaml:"session" koanf:"session"`
	Timeouts   TimeoutConfig    `yaml:"timeouts" koanf:"timeouts"`
	Transcript TranscriptConfig `yaml:"transcript" koanf:"transcript"`
	Ingest     IngestConfig     `yaml:"ingest" koanf:"ingest"`
	Log        LogConfig        `yaml:"log" koanf:"log"`
}

// SearchConfig describes the search index that grounds every answer.
type SearchConfig struct {
	Backend     SearchBackend `yaml:"backend" koanf:"backend"`
	Endpoint    string        `yaml:"endpoint" koanf:"endpoint"`
	Index       string        `yaml:"index" koanf:"index"`
	APIKey      string        `yaml:"api_key,omitempty" koanf:"api_key"`
	APIVersion  string        `yaml:"api_version" koanf:"api_version"`
	VectorField string        `yaml:"vector_field" koanf:"vector_field"`
	KNearest    int           `yaml:"k_nearest" koanf:"k_nearest"`
	Top         int           `yaml:"top" koanf:"top"`
	IndexDir    string        `yaml:"index_dir" koanf:"index_dir"` // local backend only
}

// ChatConfig describes the chat-completion deployment.
type ChatConfig struct {
	Provider          ProviderType  `yaml:"provider" koanf:"provider"`
	Endpoint          string        `yaml:"endpoint" koanf:"endpoint"`
	Deployment        string        `yaml:"deployment" koanf:"deployment"`
	APIKey            string        `yaml:"api_key,omitempty" koanf:"api_key"`
	APIVersion        string        `yaml:"api_version" koanf:"api_version"`
	Temperature       float64       `yaml:"temperature" koanf:"temperature"`
	MaxTokens         int           `yaml:"max_tokens" koanf:"max_tokens"`
	PromptFile        string        `yaml:"prompt_file,omitempty" koanf:"prompt_file"`
	HistoryPolicy     HistoryPolicy `yaml:"history_policy" koanf:"history_policy"`
	SummarizeQuery    bool          `yaml:"summarize_query" koanf:"summarize_query"` // reword the question as a summarization request
	MaxDocumentChars  int           `yaml:"max_document_chars" koanf:"max_document_chars"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// EmbeddingConfig describes the embedding model used by the local index.
type EmbeddingConfig struct {
	Provider   ProviderType `yaml:"provider" koanf:"provider"`
	Endpoint   string       `yaml:"endpoint,omitempty" koanf:"endpoint"`
	Model      string       `yaml:"model" koanf:"model"`
	APIKey     string       `yaml:"api_key,omitempty" koanf:"api_key"`
	APIVersion string       `yaml:"api_version,omitempty" koanf:"api_version"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// SessionConfig controls chat session lifetime.
type SessionConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout" koanf:"idle_timeout"`
}

// TimeoutConfig bounds each call to an external collaborator.
type TimeoutConfig struct {
	Search     time.Duration `yaml:"search" koanf:"search"`
	Completion time.Duration `yaml:"completion" koanf:"completion"`
	Retries    int           `yaml:"retries" koanf:"retries"`
}

// TranscriptConfig enables the SQLite transcript log. An empty path disables it.
type TranscriptConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// IngestConfig controls how files are split into chunks for the local index.
type IngestConfig struct {
	Include      []string `yaml:"include" koanf:"include"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`
	ChunkSize    int      `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	Concurrency  int      `yaml:"concurrency" koanf:"concurrency"`
}

// LogConfig selects the log level and output format ("console" or "json").
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
