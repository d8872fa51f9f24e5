package config

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it. Secrets are never asked for; they belong in the
// environment.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to docchat! Let's connect your search index and chat model.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Search backend.
	backendPrompt := promptui.Select{
		Label: "Select search backend",
		Items: []string{
			"azure - Azure AI Search hybrid index",
			"local - embedded index built by `docchat ingest`",
		},
	}
	backendIdx, _, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend selection: %w", err)
	}
	cfg.Search.Backend = []SearchBackend{SearchAzure, SearchLocal}[backendIdx]

	if cfg.Search.Backend == SearchAzure {
		if cfg.Search.Endpoint, err = ask("Search endpoint URL", "", requireURL); err != nil {
			return nil, err
		}
		if cfg.Search.Index, err = ask("Search index name", "", requireValue); err != nil {
			return nil, err
		}
	} else {
		if cfg.Search.IndexDir, err = ask("Local index directory", cfg.Search.IndexDir, requireValue); err != nil {
			return nil, err
		}
	}

	// 2. Chat model.
	providerPrompt := promptui.Select{
		Label: "Select chat provider",
		Items: []string{string(ProviderAzure), string(ProviderOpenAI)},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Chat.Provider = ProviderType(providerStr)

	if cfg.Chat.Provider == ProviderAzure {
		if cfg.Chat.Endpoint, err = ask("Azure OpenAI endpoint URL", "", requireURL); err != nil {
			return nil, err
		}
	}
	if cfg.Chat.Deployment, err = ask("Chat deployment (or model) name", "gpt-4o", requireValue); err != nil {
		return nil, err
	}

	// 3. Conversation memory.
	policyPrompt := promptui.Select{
		Label: "Conversation memory when documents are found",
		Items: []string{
			"discard - answer each question on its own",
			"include - send earlier turns to the model",
		},
	}
	policyIdx, _, err := policyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("history policy: %w", err)
	}
	cfg.Chat.HistoryPolicy = []HistoryPolicy{HistoryDiscard, HistoryInclude}[policyIdx]

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	fmt.Println("Set AZURE_SEARCH_API_KEY and AZURE_OPENAI_API_KEY (or DOCCHAT_* equivalents) before starting.")
	return cfg, nil
}

func ask(label, def string, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validate,
	}
	v, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("%s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(v), nil
}

func requireValue(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("a value is required")
	}
	return nil
}

func requireURL(s string) error {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "http://") {
		return fmt.Errorf("must start with http:// or https://")
	}
	return nil
}
