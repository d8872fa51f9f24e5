package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/docchat/internal/chat"
	"github.com/ziadkadry99/docchat/internal/search"
	"github.com/ziadkadry99/docchat/internal/session"
)

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	ActiveSessions int `json:"active_sessions"`
}

// sessionResponse describes one session.
type sessionResponse struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Busy      bool       `json:"busy"`
	Turns     []turnView `json:"turns"`
}

type submitRequest struct {
	Content string `json:"content"`
}

// submitResponse is the outcome of one turn.
type submitResponse struct {
	Answer    string            `json:"answer"`
	HTML      string            `json:"html,omitempty"`
	Kind      chat.Kind         `json:"kind"`
	Notice    string            `json:"notice,omitempty"`
	Documents []search.Document `json:"documents"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{ActiveSessions: d.sessions.Len()})
}

func (d *Dashboard) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, d.sessionView(d.sessions.Create()))
}

func (d *Dashboard) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := d.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, d.sessionView(sess))
}

func (d *Dashboard) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !d.sessions.End(id) {
		writeError(w, http.StatusNotFound, session.ErrNotFound)
		return
	}
	d.Evicted([]string{id})
	w.WriteHeader(http.StatusNoContent)
}

func (d *Dashboard) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, err := d.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	out, err := d.controller.Submit(r.Context(), sess, req.Content)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	docs := out.Documents
	if docs == nil {
		docs = []search.Document{}
	}
	view := d.turnView(session.Turn{Role: session.RoleAssistant, Content: out.Answer})
	writeJSON(w, http.StatusOK, submitResponse{
		Answer:    out.Answer,
		HTML:      view.HTML,
		Kind:      out.Kind,
		Notice:    chat.Notice(out.Notice),
		Documents: docs,
	})
}

func (d *Dashboard) sessionView(sess *session.Session) sessionResponse {
	return sessionResponse{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		Busy:      sess.Busy(),
		Turns:     d.turnViews(sess.History().All()),
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
