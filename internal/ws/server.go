package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-cinecam/internal/app"
	diag "github.com/coreman2200/funtimes-cinecam/internal/diagnostics"
)

const (
	writeWait  = 200 * time.Millisecond
	// frames queued per feed client before new ones are dropped
	sendBuffer = 16
)

type Server struct {
	core      *app.Core
	log       zerolog.Logger
	startTime time.Time
	upgrader  websocket.Upgrader

	mu          sync.Mutex
	poseClients map[*client]struct{}
	diagClients map[*client]struct{}
}

// client is one feed subscriber. The frame loop only ever offers messages to
// send; a writer goroutine per client does the socket writes, so a stalled
// client loses messages instead of holding up the loop.
type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	dropped int
}

func newClient(conn *websocket.Conn, backlog int) *client {
	return &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer+backlog)}
}

// offer queues b without blocking and reports whether it fit.
func (c *client) offer(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		c.dropped++
		return false
	}
}

// New attaches a server to core: every published frame goes to /pose
// clients and every diagnostic to /diag clients. Call before core.Run.
func New(core *app.Core, log zerolog.Logger) *Server {
	s := &Server{
		core:        core,
		log:         log,
		startTime:   time.Now(),
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		poseClients: map[*client]struct{}{},
		diagClients: map[*client]struct{}{},
	}
	core.OnFrame(s.broadcastFrame)
	core.Diag.Next = diag.SinkFunc(s.pushDiag)
	return s
}

// Handler routes /pose, /diag, /control and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/pose", s.HandlePoseWS)
	mux.HandleFunc("/diag", s.HandleDiagWS)
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return withCORS(mux)
}

func (s *Server) HandlePoseWS(w http.ResponseWriter, r *http.Request) {
	s.subscribe(w, r, s.poseClients, "pose")
}

func (s *Server) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	s.subscribe(w, r, s.diagClients, "diag")
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request, set map[*client]struct{}, feed string) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	var backlog []diag.Diagnostic
	// late joiners get the backlog
	if feed == "diag" {
		backlog = s.core.Diag.Recent()
	}
	c := newClient(conn, len(backlog))
	for _, d := range backlog {
		if b, err := json.Marshal(d); err == nil {
			c.offer(b)
		}
	}
	s.mu.Lock()
	set[c] = struct{}{}
	s.mu.Unlock()
	s.log.Debug().Str("client", c.id).Str("feed", feed).Msg("client connected")

	go s.writeLoop(c)
	go func() {
		defer func() {
			s.mu.Lock()
			delete(set, c)
			close(c.send)
			dropped := c.dropped
			s.mu.Unlock()
			conn.Close()
			s.log.Debug().Str("client", c.id).Str("feed", feed).Int("dropped", dropped).Msg("client gone")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// writeLoop drains c.send onto the socket until the channel is closed. A
// failed write closes the connection, which ends the read loop.
func (s *Server) writeLoop(c *client) {
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			s.log.Debug().Err(err).Str("client", c.id).Msg("write")
			c.conn.Close()
			return
		}
	}
}

type reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// HandleControlWS reads one JSON command per message and answers each with
// a reply.
func (s *Server) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	id := uuid.NewString()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd app.Command
		resp := reply{OK: true}
		if err := json.Unmarshal(data, &cmd); err != nil {
			resp = reply{Error: "bad json: " + err.Error()}
		} else if err := s.core.Submit(cmd); err != nil {
			resp = reply{Error: err.Error()}
		}
		if !resp.OK {
			s.log.Debug().Str("client", id).Str("error", resp.Error).Msg("control rejected")
		}
		b, _ := json.Marshal(resp)
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	f := s.core.Latest()
	s.mu.Lock()
	clients := len(s.poseClients) + len(s.diagClients)
	s.mu.Unlock()
	resp := map[string]any{
		"run_id":   s.core.RunID,
		"frame_id": f.ID,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"scene":    f.Scene,
		"step":     f.Step,
		"driver":   f.Driver,
		"scenes":   s.core.SceneNames(),
		"clients":  clients,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Clients is the number of connected feed clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.poseClients) + len(s.diagClients)
}

func (s *Server) broadcastFrame(f app.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.poseClients) == 0 {
		return
	}
	b, err := json.Marshal(f)
	if err != nil {
		s.log.Debug().Err(err).Msg("encode frame")
		return
	}
	s.fanOut(s.poseClients, b)
}

func (s *Server) pushDiag(d diag.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.diagClients) == 0 {
		return
	}
	b, err := json.Marshal(d)
	if err != nil {
		return
	}
	s.fanOut(s.diagClients, b)
}

// fanOut offers b to every client in set. Callers hold s.mu.
func (s *Server) fanOut(set map[*client]struct{}, b []byte) {
	for c := range set {
		if !c.offer(b) && c.dropped == 1 {
			s.log.Debug().Str("client", c.id).Msg("client lagging; dropping messages")
		}
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
