package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/docchat/internal/config"
	"github.com/ziadkadry99/docchat/internal/search"
	"github.com/ziadkadry99/docchat/internal/session"
)

// State is where a session is in the processing of a turn.
type State int

const (
	StateIdle State = iota
	StateAwaitingSearch
	StateAwaitingCompletion
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSearch:
		return "searching"
	case StateAwaitingCompletion:
		return "answering"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Kind classifies a turn.
type Kind string

const (
	KindQuestion         Kind = "question"
	KindAnswer           Kind = "answer"
	KindNoResults        Kind = "no_results"
	KindRetrievalFailed  Kind = "retrieval_failed"
	KindCompletionFailed Kind = "completion_failed"
)

// summarizePrompt rewrites the question when SummarizeQuery is set.
const summarizePrompt = "Please summarize information about: %s"

// Outcome describes how a submitted message was answered.
type Outcome struct {
	Answer    string
	Documents []search.Document
	// Notice is a *RetrievalError or *CompletionError when the answer is a
	// fallback message.
	Notice error
	Kind   Kind
}

// Observer is notified as a turn progresses. Calls happen on the
// submitting goroutine.
type Observer interface {
	StateChanged(sessionID string, state State)
	TurnAppended(sessionID string, turn session.Turn, kind Kind)
}

// ControllerOptions configure a Controller.
type ControllerOptions struct {
	HistoryPolicy  config.HistoryPolicy
	// SummarizeQuery sends "Please summarize information about: <input>"
	// as chat_input instead of the raw question.
	SummarizeQuery bool
	Format         FormatOptions
	Observers      []Observer
	Logger         zerolog.Logger
}

// Controller runs the question/answer cycle for a session: record the
// question, search, answer and record the answer.
type Controller struct {
	retriever    search.Retriever
	orchestrator *Orchestrator
	opts         ControllerOptions
}

// NewController returns a Controller. An empty HistoryPolicy means
// config.HistoryDiscard.
func NewController(retriever search.Retriever, orchestrator *Orchestrator, opts ControllerOptions) *Controller {
	if opts.HistoryPolicy == "" {
		opts.HistoryPolicy = config.HistoryDiscard
	}
	return &Controller{retriever: retriever, orchestrator: orchestrator, opts: opts}
}

// AddObserver registers o for subsequent turns. It is not safe to call while
// turns are in flight.
func (c *Controller) AddObserver(o Observer) {
	c.opts.Observers = append(c.opts.Observers, o)
}

// Submit answers input within sess. Per-turn failures never surface as an
// error: they are answered with a fallback message and reported through
// Outcome.Notice. The returned error is ErrEmptyInput or session.ErrBusy,
// in which case nothing was appended.
func (c *Controller) Submit(ctx context.Context, sess *session.Session, input string) (Outcome, error) {
	if strings.TrimSpace(input) == "" {
		return Outcome{}, ErrEmptyInput
	}
	if err := sess.Begin(); err != nil {
		return Outcome{}, err
	}
	defer sess.Done()
	defer c.setState(sess, StateIdle)

	log := c.opts.Logger.With().Str("session", sess.ID).Logger()

	prior := sess.History().All()
	c.append(sess, session.Turn{Role: session.RoleUser, Content: input}, KindQuestion)

	c.setState(sess, StateAwaitingSearch)
	docs, err := c.retriever.Search(ctx, input)
	if err != nil {
		var rerr *RetrievalError
		if !errors.As(err, &rerr) {
			rerr = &RetrievalError{Err: err}
		}
		log.Warn().Err(err).Msg("search failed")
		return c.finish(sess, Outcome{Answer: RetrievalFallback, Notice: rerr, Kind: KindRetrievalFailed}), nil
	}
	log.Debug().Int("documents", len(docs)).Msg("search complete")

	if len(docs) == 0 {
		return c.finish(sess, Outcome{Answer: NoResultsAnswer, Documents: docs, Kind: KindNoResults}), nil
	}

	c.setState(sess, StateAwaitingCompletion)

	var (
		history []session.Turn
		query   = input
	)
	if c.opts.HistoryPolicy == config.HistoryInclude {
		history = prior
	}
	if c.opts.SummarizeQuery {
		query = fmt.Sprintf(summarizePrompt, input)
	}

	assembled := c.opts.Format.Format(history, docs)
	answer, err := c.orchestrator.Complete(ctx, query, assembled.ChatHistory, assembled.DocumentsText)
	out := Outcome{Answer: answer, Documents: docs, Kind: KindAnswer}
	if err != nil {
		out.Notice = err
		out.Kind = KindCompletionFailed
	}
	return c.finish(sess, out), nil
}

func (c *Controller) finish(sess *session.Session, out Outcome) Outcome {
	c.append(sess, session.Turn{Role: session.RoleAssistant, Content: out.Answer}, out.Kind)
	return out
}

func (c *Controller) append(sess *session.Session, t session.Turn, kind Kind) {
	sess.History().Append(t)
	for _, o := range c.opts.Observers {
		o.TurnAppended(sess.ID, t, kind)
	}
}

func (c *Controller) setState(sess *session.Session, s State) {
	for _, o := range c.opts.Observers {
		o.StateChanged(sess.ID, s)
	}
}
