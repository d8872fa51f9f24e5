// Package dashboard serves the chat page and the session API.
package dashboard

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/docchat/internal/chat"
	"github.com/ziadkadry99/docchat/internal/markdown"
	"github.com/ziadkadry99/docchat/internal/session"
)

// Dashboard provides the chat page, its WebSocket and the JSON mirror of
// the same operations.
type Dashboard struct {
	sessions   *session.Store
	controller *chat.Controller
	renderer   *markdown.Renderer
	title      string
	log        zerolog.Logger

	mu    sync.Mutex
	conns map[string]*wsConn // session ID -> attached socket
}

// New creates a Dashboard and registers it as an observer of controller so
// attached sockets see turns and state changes as they happen.
func New(sessions *session.Store, controller *chat.Controller, renderer *markdown.Renderer, title string, log zerolog.Logger) *Dashboard {
	if title == "" {
		title = "Document Chat"
	}
	d := &Dashboard{
		sessions:   sessions,
		controller: controller,
		renderer:   renderer,
		title:      title,
		log:        log,
		conns:      make(map[string]*wsConn),
	}
	controller.AddObserver(d)
	return d
}

// RegisterRoutes mounts all dashboard routes onto the given router. timeout
// wraps the JSON routes and may be nil.
func (d *Dashboard) RegisterRoutes(r chi.Router, timeout func(http.Handler) http.Handler) {
	r.Get("/", d.ServeIndex)
	r.Get("/ws/chat", d.handleWebSocket)

	r.Group(func(r chi.Router) {
		if timeout != nil {
			r.Use(timeout)
		}
		r.Get("/api/stats", d.handleStats)
		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", d.handleCreateSession)
			r.Get("/{id}", d.handleGetSession)
			r.Delete("/{id}", d.handleEndSession)
			r.Post("/{id}/messages", d.handleSubmit)
		})
	})
}

// Evicted detaches sockets from sessions the store has swept.
func (d *Dashboard) Evicted(ids []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		delete(d.conns, id)
	}
}

func (d *Dashboard) attach(id string, c *wsConn) {
	d.mu.Lock()
	d.conns[id] = c
	d.mu.Unlock()
}

func (d *Dashboard) detach(c *wsConn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, cur := range d.conns {
		if cur == c {
			delete(d.conns, id)
		}
	}
}

func (d *Dashboard) conn(id string) *wsConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[id]
}

// StateChanged forwards busy state to the attached socket.
func (d *Dashboard) StateChanged(sessionID string, state chat.State) {
	if c := d.conn(sessionID); c != nil {
		c.send(chatResponse{Type: "status", SessionID: sessionID, State: state.String()})
	}
}

// TurnAppended forwards a new turn to the attached socket.
func (d *Dashboard) TurnAppended(sessionID string, turn session.Turn, _ chat.Kind) {
	if c := d.conn(sessionID); c != nil {
		v := d.turnView(turn)
		c.send(chatResponse{Type: "turn", SessionID: sessionID, Turn: &v})
	}
}

// turnView is a turn as the page displays it.
type turnView struct {
	Role    session.Role `json:"role"`
	Content string       `json:"content"`
	HTML    string       `json:"html,omitempty"`
}

func (d *Dashboard) turnView(t session.Turn) turnView {
	v := turnView{Role: t.Role, Content: t.Content}
	if t.Role == session.RoleAssistant && d.renderer != nil {
		html, err := d.renderer.Render(t.Content)
		if err != nil {
			d.log.Warn().Err(err).Msg("rendering answer")
		} else {
			v.HTML = html
		}
	}
	return v
}

func (d *Dashboard) turnViews(turns []session.Turn) []turnView {
	out := make([]turnView, 0, len(turns))
	for _, t := range turns {
		out = append(out, d.turnView(t))
	}
	return out
}
