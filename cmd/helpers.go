package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/docchat/internal/chat"
	"github.com/ziadkadry99/docchat/internal/config"
	"github.com/ziadkadry99/docchat/internal/db"
	"github.com/ziadkadry99/docchat/internal/embeddings"
	"github.com/ziadkadry99/docchat/internal/llm"
	"github.com/ziadkadry99/docchat/internal/logging"
	"github.com/ziadkadry99/docchat/internal/prompt"
	"github.com/ziadkadry99/docchat/internal/retry"
	"github.com/ziadkadry99/docchat/internal/search"
	"github.com/ziadkadry99/docchat/internal/session"
	"github.com/ziadkadry99/docchat/internal/transcript"
	"github.com/ziadkadry99/docchat/internal/vectordb"
)

// loadConfig loads the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docchat init` to create a config file", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.Stderr(cfg.Log.Level, cfg.Log.Format, verbose)
}

// createEmbedderFromConfig creates the embedder used by the local index.
func createEmbedderFromConfig(cfg *config.Config) embeddings.Embedder {
	e := cfg.Embedding
	return embeddings.NewOpenAIEmbedder(embeddings.OpenAIConfig{
		Azure:      e.Provider == config.ProviderAzure,
		Endpoint:   e.Endpoint,
		APIKey:     e.APIKey,
		APIVersion: e.APIVersion,
		Model:      e.Model,
	})
}

// openLocalStore creates the chromem store and loads the persisted index
// from search.index_dir. A missing index is not an error when allowMissing
// is set; the store is simply empty.
func openLocalStore(ctx context.Context, cfg *config.Config, allowMissing bool) (*vectordb.ChromemStore, error) {
	store, err := vectordb.NewChromemStore(createEmbedderFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	if _, err := os.Stat(cfg.Search.IndexDir); allowMissing && errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err := store.Load(ctx, cfg.Search.IndexDir); err != nil {
		return nil, fmt.Errorf("loading index from %s: %w\nRun `docchat ingest` first to build it", cfg.Search.IndexDir, err)
	}
	return store, nil
}

// createRetrieverFromConfig builds the retriever selected by search.backend.
func createRetrieverFromConfig(ctx context.Context, cfg *config.Config, log zerolog.Logger) (search.Retriever, error) {
	s := cfg.Search
	switch s.Backend {
	case config.SearchLocal:
		store, err := openLocalStore(ctx, cfg, true)
		if err != nil {
			return nil, err
		}
		if store.Count() == 0 {
			log.Warn().Str("index_dir", s.IndexDir).Msg("local index is empty, every question will find no results")
		}
		return search.NewLocalRetriever(store, s.KNearest, s.Top), nil
	default:
		return search.NewAzureRetriever(search.AzureConfig{
			Endpoint:    s.Endpoint,
			Index:       s.Index,
			APIKey:      s.APIKey,
			APIVersion:  s.APIVersion,
			VectorField: s.VectorField,
			KNearest:    s.KNearest,
			Top:         s.Top,
			Policy:      retry.Policy{Timeout: cfg.Timeouts.Search, Retries: cfg.Timeouts.Retries},
		}), nil
	}
}

// createLLMProviderFromConfig creates the chat provider with retries and
// optional rate limiting.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	c := cfg.Chat
	return llm.NewProvider(llm.Options{
		Kind:   string(c.Provider),
		APIKey: c.APIKey,
		Model: llm.ModelConfig{
			Endpoint:    c.Endpoint,
			Deployment:  c.Deployment,
			APIVersion:  c.APIVersion,
			Temperature: c.Temperature,
			MaxTokens:   c.MaxTokens,
		},
		Policy:            retry.Policy{Timeout: cfg.Timeouts.Completion, Retries: cfg.Timeouts.Retries},
		RequestsPerMinute: c.RequestsPerMinute,
	})
}

// loadPrompt loads chat.prompt_file, or the built-in template when unset.
func loadPrompt(cfg *config.Config) (*prompt.Template, error) {
	tmpl, err := prompt.Load(cfg.Chat.PromptFile)
	if err == nil {
		err = tmpl.Require(prompt.RequiredChatInputs...)
	}
	if err != nil {
		return nil, &config.ConfigurationError{Field: "chat.prompt_file", Reason: err.Error()}
	}
	return tmpl, nil
}

// app holds the components shared by the chat front ends.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	retriever  search.Retriever
	controller *chat.Controller
	sessions   *session.Store
	transcript *transcript.Store // nil when transcript.path is empty
	database   *db.DB
}

// newApp validates the config and wires retriever, prompt, orchestrator and
// controller together.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	retriever, err := createRetrieverFromConfig(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	tmpl, err := loadPrompt(cfg)
	if err != nil {
		return nil, err
	}

	runner := prompt.NewRunner(tmpl, provider).WithTemperature(cfg.Chat.Temperature)
	orchestrator := chat.NewOrchestrator(runner, logging.Component(log, "orchestrator"))
	controller := chat.NewController(retriever, orchestrator, chat.ControllerOptions{
		HistoryPolicy:  cfg.Chat.HistoryPolicy,
		SummarizeQuery: cfg.Chat.SummarizeQuery,
		Format:         chat.FormatOptions{MaxDocumentChars: cfg.Chat.MaxDocumentChars},
		Logger:         logging.Component(log, "controller"),
	})

	a := &app{
		cfg:        cfg,
		log:        log,
		retriever:  retriever,
		controller: controller,
		sessions:   session.NewStore(cfg.Session.IdleTimeout),
	}

	if path := cfg.Transcript.Path; path != "" {
		database, err := db.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening transcript database: %w", err)
		}
		a.database = database
		a.transcript = transcript.NewStore(database)
		controller.AddObserver(transcript.NewRecorder(a.transcript, logging.Component(log, "transcript")))
	}

	return a, nil
}

func (a *app) Close() {
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing transcript database")
		}
	}
}

// stderrf prints a status line that should not mix with command output.
func stderrf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}
