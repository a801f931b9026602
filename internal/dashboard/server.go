// Package dashboard serves the live business dashboard.
//
// The server exposes the dashboard figures as JSON, Prometheus metrics and
// a websocket feed that broadcasts record changes, sync results and fresh
// stats to every connected client.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/electripro/electripro/internal/metrics"
	"github.com/electripro/electripro/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeRecordUpdate indicates a record was created, updated or deleted
	MessageTypeRecordUpdate MessageType = "record_update"

	// MessageTypeSyncComplete indicates a reload or import finished
	MessageTypeSyncComplete MessageType = "sync_complete"

	// MessageTypeStats carries the current dashboard figures
	MessageTypeStats MessageType = "stats"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Config holds server configuration
type Config struct {
	// Port to listen on; 0 picks a free port
	Port int

	// Gatherer is served on /metrics (default: prometheus.DefaultGatherer)
	Gatherer prometheus.Gatherer

	// Metrics counts clients and broadcasts. Nil disables it.
	Metrics *metrics.Dashboard

	// Logger for server activity. Zero value discards.
	Logger zerolog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{Port: 8080}
}

// clientQueue is how many messages may wait for one slow client.
const clientQueue = 32

// client is one websocket subscriber with its own send queue, drained by
// a dedicated writer.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server manages WebSocket connections and broadcasts dashboard messages
type Server struct {
	stores   *store.Stores
	addr     string
	listener net.Listener
	server   *http.Server
	engine   *gin.Engine
	metrics  *metrics.Dashboard
	log      zerolog.Logger

	clients   map[*client]struct{}
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a dashboard server over stores. Nothing listens until
// Start.
func NewServer(stores *store.Stores, config Config) *Server {
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		stores:    stores,
		addr:      fmt.Sprintf(":%d", config.Port),
		metrics:   config.Metrics,
		log:       config.Logger.With().Str("component", "dashboard").Logger(),
		clients:   make(map[*client]struct{}),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.engine = s.routes(config.Gatherer)
	return s
}

func (s *Server) routes(gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/ws", s.handleWebSocket)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.GET("/stats", s.handleStats)
	api.GET("/budgets/:id/totals", s.handleBudgetTotals)
	api.GET("/obras/:id/profitability", s.handleObraProfitability)
	api.GET("/plans/:id/planning", s.handlePlanning)
	return r
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins the HTTP server and the broadcast loop
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:     s.engine,
		ReadTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info().Str("addr", ln.Addr().String()).Msg("dashboard listening")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.log.Info().Msg("stopping dashboard server")

	s.cancel()

	s.clientsMu.Lock()
	for cl := range s.clients {
		s.dropLocked(cl, websocket.StatusGoingAway, "server shutting down")
	}
	s.clientsMu.Unlock()
	s.metrics.SetClients(0)

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()
	s.log.Info().Msg("dashboard server stopped")
	return nil
}

// Broadcast queues a message for every connected client. Messages are
// dropped when the queue is full.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.log.Warn().Str("type", string(msg.Type)).Msg("broadcast queue full, dropping message")
	}
}

// broadcastLoop fans each message out to the per-client queues. A client
// whose queue is full is disconnected rather than slowing the others.
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Warn().Err(err).Msg("failed to marshal message")
				continue
			}
			s.metrics.ObserveMessage(string(msg.Type))

			var slow []*client
			s.clientsMu.RLock()
			for cl := range s.clients {
				select {
				case cl.send <- data:
				default:
					slow = append(slow, cl)
				}
			}
			s.clientsMu.RUnlock()

			for _, cl := range slow {
				s.log.Debug().Msg("client too slow, disconnecting")
				s.removeClient(cl, websocket.StatusPolicyViolation, "too slow")
			}
		}
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, clientQueue)}

	// Queued before the client joins the broadcast set, so the current
	// figures always arrive first.
	if welcome, err := s.statsMessage(); err == nil {
		if data, err := json.Marshal(welcome); err == nil {
			cl.send <- data
		}
	}

	s.clientsMu.Lock()
	s.clients[cl] = struct{}{}
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.metrics.SetClients(count)
	s.log.Debug().Int("clients", count).Msg("client connected")

	go s.writeLoop(cl)
	go s.readLoop(cl)
}

// writeLoop sends queued messages until the queue is closed.
func (s *Server) writeLoop(cl *client) {
	for data := range cl.send {
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		err := cl.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			s.log.Debug().Err(err).Msg("failed to send to client")
			s.removeClient(cl, websocket.StatusInternalError, "write failed")
		}
	}
}

// readLoop detects client disconnects; client messages are ignored.
func (s *Server) readLoop(cl *client) {
	for {
		if _, _, err := cl.conn.Read(s.ctx); err != nil {
			s.removeClient(cl, websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (s *Server) removeClient(cl *client, code websocket.StatusCode, reason string) {
	s.clientsMu.Lock()
	if _, ok := s.clients[cl]; !ok {
		s.clientsMu.Unlock()
		return
	}
	s.dropLocked(cl, code, reason)
	count := len(s.clients)
	s.clientsMu.Unlock()

	s.metrics.SetClients(count)
	s.log.Debug().Int("clients", count).Msg("client disconnected")
}

// dropLocked removes cl from the set and closes it. clientsMu must be
// held for writing.
func (s *Server) dropLocked(cl *client, code websocket.StatusCode, reason string) {
	delete(s.clients, cl)
	close(cl.send)
	go func() { _ = cl.conn.Close(code, reason) }()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleRoot(c *gin.Context) {
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>ElectriPro Dashboard</title>
</head>
<body>
    <h1>ElectriPro Dashboard</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Stats: <a href="/api/stats">/api/stats</a></p>
    <p>Health check: <a href="/health">/health</a></p>
</body>
</html>`, c.Request.Host)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
