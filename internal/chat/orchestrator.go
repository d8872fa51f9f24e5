package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/docchat/internal/llm"
	"github.com/ziadkadry99/docchat/internal/prompt"
)

// Orchestrator produces one answer from a question, the prior conversation
// and the formatted documents.
type Orchestrator struct {
	invoker prompt.Invoker
	log     zerolog.Logger
}

// NewOrchestrator returns an Orchestrator that runs invoker.
func NewOrchestrator(invoker prompt.Invoker, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{invoker: invoker, log: log}
}

// Complete returns the generated answer verbatim. On any failure it returns
// FallbackAnswer together with a *CompletionError; the returned text is
// always safe to show.
func (o *Orchestrator) Complete(ctx context.Context, input string, history []llm.Message, documents string) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			answer, err = FallbackAnswer, &CompletionError{Err: fmt.Errorf("panic: %v", r)}
			o.log.Error().Interface("panic", r).Msg("completion panicked")
		}
	}()

	if history == nil {
		history = []llm.Message{}
	}

	out, err := o.invoker.Invoke(ctx, map[string]any{
		prompt.InputChatInput:   input,
		prompt.InputChatHistory: history,
		prompt.InputDocuments:   documents,
	})
	if err != nil {
		o.log.Warn().Err(err).Msg("completion failed")
		return FallbackAnswer, &CompletionError{Err: err}
	}
	return out, nil
}
