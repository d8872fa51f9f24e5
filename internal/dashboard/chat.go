package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/docchat/internal/chat"
	"github.com/ziadkadry99/docchat/internal/search"
	"github.com/ziadkadry99/docchat/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type      string `json:"type"`       // "start", "resume" or "message"
	SessionID string `json:"session_id"` // empty for "start"
	Content   string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string            `json:"type"` // "session", "turn", "status", "response" or "error"
	SessionID string            `json:"session_id"`
	Content   string            `json:"content,omitempty"`
	Title     string            `json:"title,omitempty"`
	State     string            `json:"state,omitempty"`
	Turn      *turnView         `json:"turn,omitempty"`
	Turns     []turnView        `json:"turns,omitempty"`
	Kind      chat.Kind         `json:"kind,omitempty"`
	Notice    string            `json:"notice,omitempty"`
	Documents []search.Document `json:"documents,omitempty"`
}

// wsConn serializes writes to one socket; observer callbacks for a session
// may arrive from REST requests on other goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
	d    *Dashboard
}

func (c *wsConn) send(resp chatResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(resp); err != nil {
		c.d.log.Debug().Err(err).Msg("websocket write")
	}
}

func (c *wsConn) sendError(sessionID, message string) {
	c.send(chatResponse{Type: "error", SessionID: sessionID, Content: message})
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer ws.Close()

	c := &wsConn{conn: ws, d: d}
	defer d.detach(c)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.log.Warn().Err(err).Msg("websocket read")
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			c.sendError("", "invalid message format")
			continue
		}

		switch req.Type {
		case "start":
			d.startSession(c)
		case "resume":
			d.resumeSession(c, req.SessionID)
		case "message":
			d.handleChatMessage(c, r, req)
		default:
			c.sendError(req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (d *Dashboard) startSession(c *wsConn) {
	sess := d.sessions.Create()
	d.attach(sess.ID, c)
	c.send(chatResponse{Type: "session", SessionID: sess.ID, Title: d.title, Turns: []turnView{}})
}

// resumeSession reattaches to an existing session, or starts a new one if
// it has expired.
func (d *Dashboard) resumeSession(c *wsConn, id string) {
	sess, err := d.sessions.Get(id)
	if err != nil {
		d.startSession(c)
		return
	}
	d.attach(sess.ID, c)
	c.send(chatResponse{
		Type:      "session",
		SessionID: sess.ID,
		Title:     d.title,
		Turns:     d.turnViews(sess.History().All()),
	})
}

func (d *Dashboard) handleChatMessage(c *wsConn, r *http.Request, req chatRequest) {
	sess, err := d.sessions.Get(req.SessionID)
	if err != nil {
		c.sendError(req.SessionID, "session not found, please reload")
		return
	}
	d.attach(sess.ID, c)

	out, err := d.controller.Submit(r.Context(), sess, req.Content)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		c.sendError(sess.ID, "content is required")
		return
	case errors.Is(err, session.ErrBusy):
		c.sendError(sess.ID, err.Error())
		return
	case err != nil:
		c.sendError(sess.ID, "processing failed: "+err.Error())
		return
	}

	c.send(chatResponse{
		Type:      "response",
		SessionID: sess.ID,
		Content:   out.Answer,
		Kind:      out.Kind,
		Notice:    chat.Notice(out.Notice),
		Documents: out.Documents,
	})
}
