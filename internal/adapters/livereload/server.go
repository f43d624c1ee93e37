// Package livereload implements a LiveReload protocol server over WebSockets.
package livereload

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

// ProtocolV7 is the LiveReload protocol version spoken by the server.
const ProtocolV7 = "http://livereload.com/protocols/official-7"

const (
	serverName      = "extbuild"
	writeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

var _ ports.Reloader = (*Server)(nil)

// message is a LiveReload protocol frame.
type message struct {
	Command    string   `json:"command"`
	Protocols  []string `json:"protocols,omitempty"`
	ServerName string   `json:"serverName,omitempty"`
	Path       string   `json:"path,omitempty"`
	LiveCSS    bool     `json:"liveCSS,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

// Server implements ports.Reloader.
type Server struct {
	logger   ports.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	addr      net.Addr
	listening chan struct{}
}

// NewServer creates a new Server.
func NewServer(logger ports.Logger) *Server {
	return &Server{
		logger: logger,
		upgrader: websocket.Upgrader{
			// Extension pages connect from chrome-extension:// and moz-extension:// origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients:   make(map[*client]struct{}),
		listening: make(chan struct{}),
	}
}

// Serve listens on addr and accepts LiveReload clients until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLiveReloadFailed.Error()), "addr", addr)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	close(s.listening)

	mux := http.NewServeMux()
	mux.HandleFunc("/livereload", s.handle)
	mux.HandleFunc("/", s.handle)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeClients()
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return zerr.Wrap(err, domain.ErrLiveReloadFailed.Error())
	}
	return nil
}

// Addr returns the address the server listens on once Serve has bound it.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.listening:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reload sends one reload command to every connected client.
func (s *Server) Reload(path string) {
	msg := message{Command: "reload", Path: path, LiveCSS: true}

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			s.drop(c)
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "LiveReload clients must use WebSocket", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer s.drop(c)

	s.logger.Info("live reload client connected from " + r.RemoteAddr)

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Command == "hello" {
			if err := c.send(message{
				Command:    "hello",
				Protocols:  []string{ProtocolV7},
				ServerName: serverName,
			}); err != nil {
				return
			}
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for c := range clients {
		_ = c.conn.Close()
	}
}
