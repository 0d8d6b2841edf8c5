package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxkey/voxkey/pkg/session"
)

type Config struct {
	ListenAddr string
}

// wireEvent is the JSON shape pushed to websocket subscribers.
type wireEvent struct {
	Kind      string  `json:"kind"`
	SessionID string  `json:"session_id,omitempty"`
	Text      string  `json:"text,omitempty"`
	Final     bool    `json:"final,omitempty"`
	Level     float64 `json:"level,omitempty"`
	Peak      float64 `json:"peak,omitempty"`
	Progress  float64 `json:"progress,omitempty"`
	App       string  `json:"app,omitempty"`
	Message   string  `json:"message,omitempty"`
	Time      int64   `json:"ts"`
}

// Server exposes the live event feed over a websocket at /events and
// Prometheus metrics at /metrics, for a UI process running alongside the
// dictation core.
type Server struct {
	cfg      Config
	server   *http.Server
	upgrader websocket.Upgrader
	registry *prometheus.Registry
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan wireEvent

	draining bool
}

func NewServer(cfg Config, registry *prometheus.Registry, logger *slog.Logger) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8090"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		registry: registry,
		logger:   logger.With("component", "telemetry"),
		clients:  make(map[*websocket.Conn]chan wireEvent),
	}
}

func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	s.server = &http.Server{
		Addr:              s.cfg.ListenAddr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	go func() {
		<-ctx.Done()
		_ = s.server.Close()
	}()
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()
	s.logger.Info("telemetry listening", "addr", s.cfg.ListenAddr)
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	s.draining = true
	for conn, ch := range s.clients {
		close(ch)
		_ = conn.Close()
	}
	s.clients = make(map[*websocket.Conn]chan wireEvent)
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Publish fans one session event out to all connected subscribers. Slow
// subscribers lose events rather than stalling the caller.
func (s *Server) Publish(ev session.Event) {
	we := toWire(ev)

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, ch := range s.clients {
		select {
		case ch <- we:
		default:
			s.logger.Debug("subscriber behind, event skipped", "remote", conn.RemoteAddr().String())
		}
	}
}

// Pump drains the notifier and publishes everything until ctx ends.
func (s *Server) Pump(ctx context.Context, notifier *session.Notifier) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		ev, ok := notifier.Poll()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		s.Publish(ev)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}

	ch := make(chan wireEvent, 128)
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[conn] = ch
	s.mu.Unlock()
	s.logger.Info("subscriber connected", "remote", conn.RemoteAddr().String())

	go s.writeLoop(conn, ch)

	// Reader only detects disconnects; subscribers never send payloads.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.detach(conn)
}

func (s *Server) writeLoop(conn *websocket.Conn, ch chan wireEvent) {
	for we := range ch {
		payload, err := json.Marshal(we)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}
	_ = conn.Close()
}

func (s *Server) detach(conn *websocket.Conn) {
	s.mu.Lock()
	if ch, ok := s.clients[conn]; ok {
		close(ch)
		delete(s.clients, conn)
	}
	s.mu.Unlock()
	_ = conn.Close()
	s.logger.Info("subscriber disconnected", "remote", conn.RemoteAddr().String())
}

func toWire(ev session.Event) wireEvent {
	we := wireEvent{
		Kind:      ev.Kind.String(),
		SessionID: ev.SessionID,
		Level:     ev.Level,
		Peak:      ev.Peak,
		Progress:  ev.Progress,
		App:       ev.App,
		Message:   ev.Message,
		Time:      ev.Time.UnixMilli(),
	}
	if ev.Result != nil {
		we.Text = ev.Result.Processed
		we.Final = ev.Result.Final
	}
	if ev.Err != nil {
		we.Message = ev.Err.Code
	}
	return we
}
