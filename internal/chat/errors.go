package chat

import (
	"errors"
	"fmt"
)

// Messages shown in place of an answer.
const (
	FallbackAnswer    = "I'm sorry, I encountered an error processing your request."
	RetrievalFallback = "I'm sorry, I couldn't search the documents right now."
	NoResultsAnswer   = "No results found."
)

// ErrEmptyInput is returned by Submit for blank messages.
var ErrEmptyInput = errors.New("message is empty")

// RetrievalError wraps a failed document search. The turn is still answered
// with RetrievalFallback.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("document search failed: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// CompletionError wraps a failed chat completion. The turn is still answered
// with FallbackAnswer.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("chat completion failed: %v", e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Notice returns the short, user-facing description of a per-turn error,
// or "" when err is nil.
func Notice(err error) string {
	var (
		rerr *RetrievalError
		cerr *CompletionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rerr):
		return "Search is unavailable, please try again shortly."
	case errors.As(err, &cerr):
		return "The assistant could not answer, please try again."
	default:
		return err.Error()
	}
}
