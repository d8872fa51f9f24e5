package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/docchat/internal/chat"
	"github.com/ziadkadry99/docchat/internal/search"
	"github.com/ziadkadry99/docchat/internal/session"
)

// mockRetriever implements search.Retriever for testing.
type mockRetriever struct {
	docs []search.Document
	err  error
}

func (m *mockRetriever) Search(context.Context, string) ([]search.Document, error) {
	return m.docs, m.err
}

// mockInvoker implements prompt.Invoker for testing.
type mockInvoker struct {
	answer string
	calls  int
}

func (m *mockInvoker) Invoke(context.Context, map[string]any) (string, error) {
	m.calls++
	return m.answer, nil
}

var refundDocs = []search.Document{
	{Title: "Refund Policy", Path: "policies/refunds.md", Chunk: "Full refund within 30 days."},
	{Title: "Shipping", Path: "policies/shipping.md", Chunk: "Ships in 2 days."},
}

func newTestServer(r *mockRetriever, inv *mockInvoker) (*Server, *session.Store) {
	store := session.NewStore(0)
	ctrl := chat.NewController(r, chat.NewOrchestrator(inv, zerolog.Nop()), chat.ControllerOptions{})
	return NewServer(r, ctrl, store), store
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content type %T", c)
		return ""
	}
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"search_documents", searchDocumentsTool, "search_documents"},
		{"ask_documents", askDocumentsTool, "ask_documents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(&mockRetriever{}, &mockInvoker{})
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestHandleSearchDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("formats documents in order", func(t *testing.T) {
		srv, _ := newTestServer(&mockRetriever{docs: refundDocs}, &mockInvoker{})
		res, err := srv.handleSearchDocuments(ctx, call(map[string]any{"query": "refund"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.IsError {
			t.Fatalf("unexpected tool error: %v", res.Content)
		}
		text := resultText(t, res)
		first := strings.Index(text, "## Document: Refund Policy")
		second := strings.Index(text, "## Document: Shipping")
		if first < 0 || second < first {
			t.Errorf("documents missing or out of order:\n%s", text)
		}
	})

	t.Run("no results", func(t *testing.T) {
		srv, _ := newTestServer(&mockRetriever{docs: []search.Document{}}, &mockInvoker{})
		res, _ := srv.handleSearchDocuments(ctx, call(map[string]any{"query": "x"}))
		if got := resultText(t, res); got != chat.NoResultsAnswer {
			t.Errorf("got %q", got)
		}
	})

	t.Run("search error", func(t *testing.T) {
		srv, _ := newTestServer(&mockRetriever{err: errors.New("503")}, &mockInvoker{})
		res, _ := srv.handleSearchDocuments(ctx, call(map[string]any{"query": "x"}))
		if !res.IsError {
			t.Error("expected tool error")
		}
	})

	t.Run("missing query", func(t *testing.T) {
		srv, _ := newTestServer(&mockRetriever{}, &mockInvoker{})
		res, err := srv.handleSearchDocuments(ctx, call(map[string]any{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsError {
			t.Error("expected error for missing query")
		}
	})
}

func TestHandleAskDocuments(t *testing.T) {
	ctx := context.Background()
	inv := &mockInvoker{answer: "Refunds are accepted for 30 days."}
	srv, store := newTestServer(&mockRetriever{docs: refundDocs}, inv)

	res, err := srv.handleAskDocuments(ctx, call(map[string]any{"question": "What is the refund policy?"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, res)
	if !strings.HasPrefix(text, "Refunds are accepted for 30 days.") {
		t.Errorf("unexpected answer: %q", text)
	}
	if !strings.Contains(text, "- Refund Policy (policies/refunds.md)") {
		t.Errorf("missing sources: %q", text)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}

	idx := strings.Index(text, "session_id: ")
	id := strings.TrimSpace(text[idx+len("session_id: "):])

	if _, err := srv.handleAskDocuments(ctx, call(map[string]any{"question": "And shipping?", "session_id": id})); err != nil {
		t.Fatalf("follow-up: %v", err)
	}
	sess, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.History().Len() != 4 {
		t.Errorf("history has %d turns, want 4", sess.History().Len())
	}

	res, _ = srv.handleAskDocuments(ctx, call(map[string]any{"question": "x", "session_id": "missing"}))
	if !res.IsError {
		t.Error("expected error for unknown session")
	}

	res, _ = srv.handleAskDocuments(ctx, call(map[string]any{"question": "  "}))
	if !res.IsError {
		t.Error("expected error for blank question")
	}
}
