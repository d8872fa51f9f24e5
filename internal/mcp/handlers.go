package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/docchat/internal/chat"
	"github.com/ziadkadry99/docchat/internal/session"
)

// handleSearchDocuments runs the retriever and returns the excerpts.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	docs, err := s.retriever.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText(chat.NoResultsAnswer), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Found %d result(s):\n\n%s", len(docs), chat.Format(nil, docs).DocumentsText)), nil
}

// handleAskDocuments answers a question within a session.
func (s *Server) handleAskDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	var sess *session.Session
	if id := request.GetString("session_id", ""); id != "" {
		sess, err = s.sessions.Get(id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown session %q; omit session_id to start a new conversation", id)), nil
		}
	} else {
		sess = s.sessions.Create()
	}

	out, err := s.controller.Submit(ctx, sess, question)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		return mcp.NewToolResultError("missing required parameter: question"), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatAnswer(sess.ID, out)), nil
}

// formatAnswer renders an outcome for AI agent consumption.
func formatAnswer(sessionID string, out chat.Outcome) string {
	var sb strings.Builder
	sb.WriteString(out.Answer)
	sb.WriteString("\n")

	if len(out.Documents) > 0 {
		sb.WriteString("\nSources:\n")
		for _, d := range out.Documents {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", d.Title, d.Path))
		}
	}
	if n := chat.Notice(out.Notice); n != "" {
		sb.WriteString(fmt.Sprintf("\nNote: %s\n", n))
	}
	sb.WriteString(fmt.Sprintf("\nsession_id: %s\n", sessionID))
	return sb.String()
}
