package relay

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"droidbridge/internal/adb"
	"droidbridge/internal/logcat"
)

// Server pumps the device log into a Hub and serves it over WebSocket.
type Server struct {
	hub      *Hub
	spawner  logcat.Spawner
	filters  []string
	upgrader websocket.Upgrader
	stop     chan struct{}
	once     sync.Once
}

func New(spawner logcat.Spawner, filters []string) *Server {
	if len(filters) == 0 {
		filters = logcat.DefaultFilters
	}
	return &Server{
		hub:     NewHub(),
		spawner: spawner,
		filters: filters,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		stop: make(chan struct{}),
	}
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws/logcat", s.handleLogcatWS)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	return r
}

// Start launches the background pump feeding the hub.
func (s *Server) Start() {
	go s.pump()
}

// Run starts the pump and serves HTTP on addr. Blocks until the
// listener fails.
func (s *Server) Run(addr string) error {
	s.Start()
	slog.Info("relay listening", "addr", addr)
	return http.ListenAndServe(addr, s.Router())
}

// Close stops the pump. Connected clients are left to disconnect on
// their own.
func (s *Server) Close() {
	s.once.Do(func() { close(s.stop) })
}

// pump reads the log stream and broadcasts each line, respawning the
// log reader whenever its stream ends.
func (s *Server) pump() {
	args := append([]string{"logcat", "-v", "threadtime"}, s.filters...)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		proc, err := s.spawner.SpawnLogcat(args)
		if err != nil {
			slog.Error("spawning logcat for relay", "error", err)
			select {
			case <-s.stop:
				return
			case <-time.After(time.Second):
			}
			continue
		}
		s.pumpProcess(proc)
		_ = proc.Kill()
	}
}

func (s *Server) pumpProcess(proc logcat.Process) {
	reader := logcat.NewLineReader(proc.Output())
	defer reader.Close()
	for {
		line, err := reader.ReadLine(time.Second)
		switch {
		case errors.Is(err, logcat.ErrReadTimeout):
			select {
			case <-s.stop:
				return
			default:
				continue
			}
		case errors.Is(err, io.EOF):
			slog.Warn("relay logcat stream ended, respawning")
			return
		case err != nil:
			slog.Error("relay read failed", "error", err)
			return
		}
		s.hub.Broadcast(line)
	}
}

func (s *Server) handleLogcatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := &Client{
		ID:   uuid.NewString(),
		Send: make(chan string, 256),
		Done: make(chan struct{}),
	}
	s.hub.Register(client)
	defer s.hub.Unregister(client.ID)
	defer close(client.Done)

	// Drain client messages so pings are answered and disconnects are
	// noticed.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case line := <-client.Send:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		case <-disconnected:
			return
		case <-s.stop:
			return
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"clients": s.hub.ClientCount(),
		"filters": s.filters,
	}
	if info, err := adb.FindServer(); err == nil && info != nil {
		status["adb_server"] = info
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}
