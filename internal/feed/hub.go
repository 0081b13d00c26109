package feed

import (
	"VoiceRover/internal/core"
	"VoiceRover/internal/model"
	"VoiceRover/internal/parser"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// PhraseMessage is what /ws/phrases clients send.
type PhraseMessage struct {
	Text string `json:"text"`
}

// Event is broadcast to /ws/events monitors after every tracking decision.
type Event struct {
	Tick        uint64                    `json:"tick"`
	Observation parser.ObservationMessage `json:"observation"`
	Command     string                    `json:"command"`
}

// Hub is a websocket server that accepts observations and phrases from
// producers and broadcasts tracking decisions to monitors.
//
// Ingress queues are bounded: a full queue drops the newest message.
type Hub struct {
	Addr   string
	logger *zap.SugaredLogger

	observations chan model.Observation
	phrases      chan string
	done         chan struct{}
	stopOnce     sync.Once
	dropped      atomic.Uint64

	server *http.Server

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub constructs a Hub listening on addr with ingress queues of size queue.
func NewHub(addr string, queue int, logger *zap.SugaredLogger) *Hub {
	if queue <= 0 {
		queue = 1
	}
	h := &Hub{
		Addr:         addr,
		logger:       logger.Named("hub"),
		observations: make(chan model.Observation, queue),
		phrases:      make(chan string, queue),
		done:         make(chan struct{}),
		clients:      map[*websocket.Conn]bool{},
	}
	h.server = &http.Server{Addr: addr, Handler: h.Handler()}
	return h
}

// Handler returns the hub's HTTP routes.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/observations", h.handleObservations)
	mux.HandleFunc("/ws/phrases", h.handlePhrases)
	mux.HandleFunc("/ws/events", h.handleEvents)
	return mux
}

// Start serves until Stop is called. It blocks, and returns at once when
// Stop already ran.
func (h *Hub) Start() error {
	h.logger.Infow("listening", "addr", h.Addr)
	if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts down the HTTP server, closes monitor connections and ends the sources.
func (h *Hub) Stop() error {
	h.stopOnce.Do(func() { close(h.done) })
	h.mu.Lock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
	return h.server.Close()
}

// NextObservation blocks until a client pushes an observation.
func (h *Hub) NextObservation(ctx context.Context) (model.Observation, error) {
	select {
	case <-ctx.Done():
		return model.Observation{}, ctx.Err()
	case <-h.done:
		return model.Observation{}, io.EOF
	case obs := <-h.observations:
		return obs, nil
	}
}

// NextPhrase blocks until a client pushes a phrase.
func (h *Hub) NextPhrase(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-h.done:
		return "", io.EOF
	case p := <-h.phrases:
		return p, nil
	}
}

// Dropped returns how many ingress messages were discarded on a full queue.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// ClientCount returns the number of connected monitors.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// PublishDecision broadcasts d to all monitors.
func (h *Hub) PublishDecision(d core.Decision) {
	wire, err := parser.Encode(d.Command)
	if err != nil {
		h.logger.Warnw("unencodable decision", "command", d.Command, "error", err)
		return
	}
	ev := Event{
		Tick:        d.Tick,
		Observation: parser.MessageFor(d.Observation),
		Command:     strings.TrimSpace(string(wire)),
	}
	b, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warnw("marshal event", "error", err)
		return
	}
	h.broadcast(b)
}

func (h *Hub) handleObservations(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, "observations", func(msg []byte) error {
		obs, err := parser.DecodeObservationJSON(msg)
		if err != nil {
			return err
		}
		select {
		case h.observations <- obs:
		default:
			h.dropped.Add(1)
			h.logger.Warnw("observation queue full, dropping frame")
		}
		return nil
	})
}

func (h *Hub) handlePhrases(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, "phrases", func(msg []byte) error {
		var p PhraseMessage
		if err := json.Unmarshal(msg, &p); err != nil {
			return err
		}
		select {
		case h.phrases <- p.Text:
		default:
			h.dropped.Add(1)
			h.logger.Warnw("phrase queue full, dropping", "text", p.Text)
		}
		return nil
	})
}

// ingest upgrades the request and hands every message to handle until the client leaves.
func (h *Hub) ingest(w http.ResponseWriter, r *http.Request, name string, handle func([]byte) error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.logger.Infow("producer connected", "stream", name, "remote", r.RemoteAddr)
	defer func() {
		if err := conn.Close(); err != nil {
			h.logger.Debugw("close producer", "error", err)
		}
	}()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			h.logger.Infow("producer disconnected", "stream", name, "remote", r.RemoteAddr)
			return
		}
		if err := handle(msg); err != nil {
			h.logger.Warnw("bad message", "stream", name, "error", err)
		}
	}
}

// handleEvents upgrades HTTP to websocket and registers the client for broadcasts.
func (h *Hub) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// broadcast sends a message to all connected monitors.
func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debugw("broadcast failed", "error", err)
		}
	}
}
