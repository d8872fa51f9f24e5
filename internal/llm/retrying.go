package llm

import (
	"context"

	"github.com/ziadkadry99/docchat/internal/retry"
)

// RetryingProvider bounds each completion with a timeout and retries
// transient failures according to its policy.
type RetryingProvider struct {
	provider Provider
	policy   retry.Policy
}

// NewRetryingProvider wraps provider with policy.
func NewRetryingProvider(provider Provider, policy retry.Policy) Provider {
	return &RetryingProvider{provider: provider, policy: policy}
}

func (r *RetryingProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var resp *CompletionResponse
	err := r.policy.Do(ctx, IsTransient, func(ctx context.Context) error {
		var err error
		resp, err = r.provider.Complete(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
