package llm

import (
	"fmt"

	"github.com/ziadkadry99/docchat/internal/retry"
)

// Options assembles a provider and its wrappers.
type Options struct {
	Kind              string // "azure" or "openai"
	APIKey            string
	Model             ModelConfig
	Policy            retry.Policy
	RequestsPerMinute int // 0 disables rate limiting
}

// NewProvider creates the provider named by opts.Kind, wrapped with
// retries and, when configured, a rate limiter.
func NewProvider(opts Options) (Provider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s API key is not set", opts.Kind)
	}

	var p Provider
	switch opts.Kind {
	case "azure":
		if opts.Model.Endpoint == "" {
			return nil, fmt.Errorf("azure endpoint is not set")
		}
		p = NewAzureProvider(opts.APIKey, opts.Model)
	case "openai":
		p = NewOpenAIProvider(opts.APIKey, opts.Model)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", opts.Kind)
	}

	p = NewRetryingProvider(p, opts.Policy)
	if opts.RequestsPerMinute > 0 {
		p = NewRateLimitedProvider(p, opts.RequestsPerMinute)
	}
	return p, nil
}
