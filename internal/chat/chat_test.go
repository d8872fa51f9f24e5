package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docchat/internal/config"
	"github.com/ziadkadry99/docchat/internal/llm"
	"github.com/ziadkadry99/docchat/internal/prompt"
	"github.com/ziadkadry99/docchat/internal/search"
	"github.com/ziadkadry99/docchat/internal/session"
)

type fakeRetriever struct {
	docs    []search.Document
	err     error
	queries []string
}

func (f *fakeRetriever) Search(_ context.Context, q string) ([]search.Document, error) {
	f.queries = append(f.queries, q)
	return f.docs, f.err
}

type fakeInvoker struct {
	answer string
	err    error
	panics bool
	calls  []map[string]any
}

func (f *fakeInvoker) Invoke(_ context.Context, inputs map[string]any) (string, error) {
	f.calls = append(f.calls, inputs)
	if f.panics {
		panic("template exploded")
	}
	return f.answer, f.err
}

type recordingObserver struct {
	mu     sync.Mutex
	states []State
	turns  []session.Turn
	kinds  []Kind
}

func (r *recordingObserver) StateChanged(_ string, s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recordingObserver) TurnAppended(_ string, t session.Turn, k Kind) {
	r.mu.Lock()
	r.turns = append(r.turns, t)
	r.kinds = append(r.kinds, k)
	r.mu.Unlock()
}

var testNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

var refundDoc = search.Document{
	Title: "Refund Policy",
	Path:  "policies/refunds.md",
	Chunk: "Customers may request a full refund within 30 days of purchase.",
}

func newController(r search.Retriever, inv prompt.Invoker, opts ControllerOptions) *Controller {
	return NewController(r, NewOrchestrator(inv, zerolog.Nop()), opts)
}

func TestFormatDocumentsInOrder(t *testing.T) {
	docs := []search.Document{
		{Title: "A", Path: "a.md", Chunk: "first"},
		{Title: "B", Path: "b.md", Chunk: "second"},
	}
	got := Format(nil, docs)
	assert.Equal(t, "## Document: A\nPath: a.md\nfirst\n\n## Document: B\nPath: b.md\nsecond", got.DocumentsText)
	assert.Empty(t, got.ChatHistory)
}

func TestFormatEmpty(t *testing.T) {
	got := Format(nil, nil)
	assert.Equal(t, "", got.DocumentsText)
	assert.NotNil(t, got.ChatHistory)
}

func TestFormatHistory(t *testing.T) {
	got := Format([]session.Turn{
		{Role: session.RoleUser, Content: "q"},
		{Role: session.RoleAssistant, Content: "a"},
	}, nil)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "q"},
		{Role: llm.RoleAssistant, Content: "a"},
	}, got.ChatHistory)
}

func TestFormatTruncatesChunks(t *testing.T) {
	got := FormatOptions{MaxDocumentChars: 3}.Format(nil, []search.Document{{Title: "T", Path: "p", Chunk: "héllo"}})
	assert.Equal(t, "## Document: T\nPath: p\nhél", got.DocumentsText)
}

func TestOrchestratorReturnsVerbatim(t *testing.T) {
	inv := &fakeInvoker{answer: "  exact text\n"}
	out, err := NewOrchestrator(inv, zerolog.Nop()).Complete(context.Background(), "q", nil, "docs")
	require.NoError(t, err)
	assert.Equal(t, "  exact text\n", out)

	require.Len(t, inv.calls, 1)
	assert.Equal(t, "q", inv.calls[0][prompt.InputChatInput])
	assert.Equal(t, "docs", inv.calls[0][prompt.InputDocuments])
	assert.Equal(t, []llm.Message{}, inv.calls[0][prompt.InputChatHistory])
}

func TestOrchestratorFallbackOnError(t *testing.T) {
	boom := errors.New("503")
	out, err := NewOrchestrator(&fakeInvoker{err: boom}, zerolog.Nop()).Complete(context.Background(), "q", nil, "")
	assert.Equal(t, FallbackAnswer, out)

	var cerr *CompletionError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, boom)
}

func TestOrchestratorRecoversPanic(t *testing.T) {
	out, err := NewOrchestrator(&fakeInvoker{panics: true}, zerolog.Nop()).Complete(context.Background(), "q", nil, "")
	assert.Equal(t, FallbackAnswer, out)
	var cerr *CompletionError
	assert.ErrorAs(t, err, &cerr)
}

func TestSubmitRefundScenario(t *testing.T) {
	docs := []search.Document{
		{Title: "Policy A", Path: "policies/a.md", Chunk: "Refunds require a receipt."},
		{Title: "Policy B", Path: "policies/b.md", Chunk: "Refunds are issued to the original card."},
	}
	r := &fakeRetriever{docs: docs}
	inv := &fakeInvoker{answer: "Refunds are processed within 14 days."}
	c := newController(r, inv, ControllerOptions{})
	sess := session.New(testNow)

	out, err := c.Submit(context.Background(), sess, "What is the refund policy?")
	require.NoError(t, err)
	assert.Equal(t, KindAnswer, out.Kind)
	assert.Nil(t, out.Notice)
	assert.Equal(t, "Refunds are processed within 14 days.", out.Answer)
	assert.Equal(t, docs, out.Documents)

	assert.Equal(t, []string{"What is the refund policy?"}, r.queries)
	require.Len(t, inv.calls, 1)
	call := inv.calls[0]
	assert.Equal(t, "What is the refund policy?", call[prompt.InputChatInput])
	assert.Equal(t, []llm.Message{}, call[prompt.InputChatHistory])

	text, ok := call[prompt.InputDocuments].(string)
	require.True(t, ok)
	blockA := "## Document: Policy A\nPath: policies/a.md\nRefunds require a receipt."
	blockB := "## Document: Policy B\nPath: policies/b.md\nRefunds are issued to the original card."
	assert.Equal(t, blockA+"\n\n"+blockB, text)
	assert.Less(t, strings.Index(text, blockA), strings.Index(text, blockB))

	assert.Equal(t, []session.Turn{
		{Role: session.RoleUser, Content: "What is the refund policy?"},
		{Role: session.RoleAssistant, Content: "Refunds are processed within 14 days."},
	}, sess.History().All())
}

func TestSubmitAlternatesTurns(t *testing.T) {
	c := newController(&fakeRetriever{docs: []search.Document{refundDoc}}, &fakeInvoker{answer: "ok"}, ControllerOptions{})
	sess := session.New(testNow)

	const n = 4
	for i := 0; i < n; i++ {
		_, err := c.Submit(context.Background(), sess, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	turns := sess.History().All()
	require.Len(t, turns, 2*n)
	for i, turn := range turns {
		if i%2 == 0 {
			assert.Equal(t, session.RoleUser, turn.Role)
			assert.Equal(t, fmt.Sprintf("question %d", i/2), turn.Content)
		} else {
			assert.Equal(t, session.RoleAssistant, turn.Role)
		}
	}
}

func TestSubmitNoResultsSkipsCompletion(t *testing.T) {
	inv := &fakeInvoker{answer: "unused"}
	c := newController(&fakeRetriever{docs: []search.Document{}}, inv, ControllerOptions{})
	sess := session.New(testNow)

	out, err := c.Submit(context.Background(), sess, "anything")
	require.NoError(t, err)
	assert.Equal(t, KindNoResults, out.Kind)
	assert.Equal(t, NoResultsAnswer, out.Answer)
	assert.Empty(t, inv.calls)
	assert.Equal(t, NoResultsAnswer, sess.History().All()[1].Content)
}

func TestSubmitRetrievalFailure(t *testing.T) {
	inv := &fakeInvoker{answer: "unused"}
	c := newController(&fakeRetriever{err: errors.New("connection refused")}, inv, ControllerOptions{})
	sess := session.New(testNow)

	out, err := c.Submit(context.Background(), sess, "q")
	require.NoError(t, err)
	assert.Equal(t, KindRetrievalFailed, out.Kind)
	assert.Equal(t, RetrievalFallback, out.Answer)
	var rerr *RetrievalError
	assert.ErrorAs(t, out.Notice, &rerr)
	assert.Empty(t, inv.calls)
	assert.Equal(t, 2, sess.History().Len())
	assert.False(t, sess.Busy())
}

func TestSubmitCompletionFailureKeepsSession(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("timeout")}
	c := newController(&fakeRetriever{docs: []search.Document{refundDoc}}, inv, ControllerOptions{})
	sess := session.New(testNow)

	out, err := c.Submit(context.Background(), sess, "q")
	require.NoError(t, err)
	assert.Equal(t, KindCompletionFailed, out.Kind)
	assert.Equal(t, FallbackAnswer, out.Answer)
	var cerr *CompletionError
	assert.ErrorAs(t, out.Notice, &cerr)

	inv.err = nil
	inv.answer = "recovered"
	out, err = c.Submit(context.Background(), sess, "again")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out.Answer)
	assert.Equal(t, 4, sess.History().Len())
}

func TestSubmitDiscardPolicy(t *testing.T) {
	inv := &fakeInvoker{answer: "a"}
	c := newController(&fakeRetriever{docs: []search.Document{refundDoc}}, inv, ControllerOptions{})
	sess := session.New(testNow)

	_, err := c.Submit(context.Background(), sess, "first")
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), sess, "refunds")
	require.NoError(t, err)

	last := inv.calls[1]
	assert.Equal(t, "refunds", last[prompt.InputChatInput])
	assert.Equal(t, []llm.Message{}, last[prompt.InputChatHistory])
}

func TestSubmitSummarizeQuery(t *testing.T) {
	inv := &fakeInvoker{answer: "a"}
	r := &fakeRetriever{docs: []search.Document{refundDoc}}
	c := newController(r, inv, ControllerOptions{SummarizeQuery: true})
	sess := session.New(testNow)

	_, err := c.Submit(context.Background(), sess, "refunds")
	require.NoError(t, err)

	require.Len(t, inv.calls, 1)
	assert.Equal(t, "Please summarize information about: refunds", inv.calls[0][prompt.InputChatInput])
	assert.Equal(t, []string{"refunds"}, r.queries)
	assert.Equal(t, "refunds", sess.History().All()[0].Content)
}

func TestSubmitIncludePolicy(t *testing.T) {
	inv := &fakeInvoker{answer: "a"}
	c := newController(&fakeRetriever{docs: []search.Document{refundDoc}}, inv, ControllerOptions{HistoryPolicy: config.HistoryInclude})
	sess := session.New(testNow)

	_, err := c.Submit(context.Background(), sess, "first")
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), sess, "second")
	require.NoError(t, err)

	assert.Equal(t, []llm.Message{}, inv.calls[0][prompt.InputChatHistory])

	last := inv.calls[1]
	assert.Equal(t, "second", last[prompt.InputChatInput])
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "first"},
		{Role: llm.RoleAssistant, Content: "a"},
	}, last[prompt.InputChatHistory])
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	r := &fakeRetriever{}
	c := newController(r, &fakeInvoker{}, ControllerOptions{})
	sess := session.New(testNow)

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := c.Submit(context.Background(), sess, in)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.Zero(t, sess.History().Len())
	assert.Empty(t, r.queries)
}

func TestSubmitRejectsBusySession(t *testing.T) {
	c := newController(&fakeRetriever{}, &fakeInvoker{}, ControllerOptions{})
	sess := session.New(testNow)
	require.NoError(t, sess.Begin())

	_, err := c.Submit(context.Background(), sess, "q")
	assert.ErrorIs(t, err, session.ErrBusy)
	assert.Zero(t, sess.History().Len())
}

func TestSubmitNotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	c := newController(&fakeRetriever{docs: []search.Document{refundDoc}}, &fakeInvoker{answer: "a"}, ControllerOptions{Observers: []Observer{obs}})
	sess := session.New(testNow)

	_, err := c.Submit(context.Background(), sess, "q")
	require.NoError(t, err)

	assert.Equal(t, []State{StateAwaitingSearch, StateAwaitingCompletion, StateIdle}, obs.states)
	assert.Equal(t, []Kind{KindQuestion, KindAnswer}, obs.kinds)
	assert.Equal(t, session.RoleUser, obs.turns[0].Role)
}

func TestNotice(t *testing.T) {
	assert.Equal(t, "", Notice(nil))
	assert.Contains(t, Notice(&RetrievalError{Err: errors.New("x")}), "Search")
	assert.Contains(t, Notice(&CompletionError{Err: errors.New("x")}), "assistant")
}
