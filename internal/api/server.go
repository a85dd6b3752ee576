// Package api exposes the parley daemon over REST, plus a websocket
// feed for live turn timelines.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parley-io/parley/internal/conversation"
	"github.com/parley-io/parley/internal/logbuf"
	"github.com/parley-io/parley/internal/retrieval"
	"github.com/parley-io/parley/internal/timeline"
	"github.com/parley-io/parley/pkg/protocol"
)

// TurnRunner runs a full conversational turn and returns the agent
// reply.
type TurnRunner interface {
	Submit(ctx context.Context, conversationID, text string) (*protocol.Message, error)
}

// LogQuerier abstracts log entry querying to avoid coupling to logbuf
// directly.
type LogQuerier interface {
	Recent(since time.Time, minLevel slog.Level, limit int) []logbuf.Entry
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	Key  string // API key for Bearer auth
}

// Server is the parley REST API server.
type Server struct {
	conversations *conversation.Store
	roster        *conversation.Roster
	timeline      *timeline.Store
	corpus        *retrieval.Corpus
	runner        TurnRunner
	cfg           Config
	logger        *slog.Logger
	logs          LogQuerier
	upgrader      websocket.Upgrader
	mux           *http.ServeMux
	srv           *http.Server
}

// NewServer creates a new API server. corpus and logs may be nil.
func NewServer(convs *conversation.Store, roster *conversation.Roster, tl *timeline.Store, corpus *retrieval.Corpus, runner TurnRunner, cfg Config, logger *slog.Logger, logs LogQuerier) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		conversations: convs,
		roster:        roster,
		timeline:      tl,
		corpus:        corpus,
		runner:        runner,
		cfg:           cfg,
		logger:        logger,
		logs:          logs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/agents", s.requireAuth(s.handleListAgents))
	mux.HandleFunc("GET /api/agents/{id}", s.requireAuth(s.handleGetAgent))
	mux.HandleFunc("GET /api/conversations", s.requireAuth(s.handleListConversations))
	mux.HandleFunc("POST /api/conversations", s.requireAuth(s.handleCreateConversation))
	mux.HandleFunc("GET /api/conversations/{id}", s.requireAuth(s.handleGetConversation))
	mux.HandleFunc("POST /api/conversations/{id}/messages", s.requireAuth(s.handlePostMessage))
	mux.HandleFunc("GET /api/turns/{id}", s.requireAuth(s.handleGetTurn))
	mux.HandleFunc("GET /api/turns/{id}/watch", s.requireAuth(s.handleWatchTurn))
	mux.HandleFunc("POST /api/corpus/documents", s.requireAuth(s.handleAddDocument))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))
	s.mux = mux

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// MountWebhook registers the webhook connector endpoint. Webhook
// endpoints carry their own auth, so the API key is not required.
func (s *Server) MountWebhook(h http.Handler) {
	s.mux.Handle("POST /api/webhook/{name}", h)
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth checks the Bearer header; websocket clients that cannot
// set headers may pass the key as a token query parameter instead.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.cfg.Key {
			next(w, r)
			return
		}
		if r.URL.Query().Get("token") == s.cfg.Key {
			next(w, r)
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.roster.List())
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	agent, ok := s.roster.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleListConversations(w http.ResponseWriter, _ *http.Request) {
	convs := s.conversations.List()
	if convs == nil {
		convs = []*protocol.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

type createConversationRequest struct {
	Title   string `json:"title"`
	AgentID string `json:"agent_id"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.AgentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agent_id is required"})
		return
	}
	if _, ok := s.roster.Get(req.AgentID); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown agent"})
		return
	}
	conv := s.conversations.Create(req.Title, req.AgentID)
	writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conv := s.conversations.Get(id)
	if conv == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type postMessageRequest struct {
	Content string `json:"content"`
}

// handlePostMessage runs a full turn synchronously and returns the
// agent reply. The turn's protocol steps are available afterwards under
// /api/turns/{id}.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	reply, err := s.runner.Submit(r.Context(), id, req.Content)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleGetTurn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	turn := s.timeline.Get(id)
	if turn == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "turn not found"})
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

// handleWatchTurn streams turn snapshots over a websocket: the current
// state immediately, then one message per appended step.
func (s *Server) handleWatchTurn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "turn", id, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain the read side so client close frames terminate the watch.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for turn := range s.timeline.Watch(ctx, id) {
		if err := conn.WriteJSON(turn); err != nil {
			return
		}
	}
}

type addDocumentRequest struct {
	URL       string  `json:"url,omitempty"`
	Source    string  `json:"source,omitempty"`
	Title     string  `json:"title,omitempty"`
	Body      string  `json:"body,omitempty"`
	Relevance float64 `json:"relevance,omitempty"`
}

// handleAddDocument grows the corpus, either from an inline document or
// by fetching and extracting a web page when only a URL is given.
func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	if s.corpus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "corpus not available"})
		return
	}

	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if req.Body == "" && req.URL != "" {
		doc, err := s.corpus.IngestURL(r.Context(), req.URL)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, doc)
		return
	}

	if req.Title == "" || req.Body == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and body are required"})
		return
	}
	doc := retrieval.Document{
		Source:    req.Source,
		Title:     req.Title,
		Body:      req.Body,
		URL:       req.URL,
		Relevance: req.Relevance,
		AddedAt:   time.Now(),
	}
	if doc.Source == "" {
		doc.Source = "api"
	}
	if err := s.corpus.Add(doc); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	minLevel := slog.LevelDebug
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		switch strings.ToLower(lvl) {
		case "info":
			minLevel = slog.LevelInfo
		case "warn":
			minLevel = slog.LevelWarn
		case "error":
			minLevel = slog.LevelError
		}
	}

	var since time.Time
	if ms := r.URL.Query().Get("since"); ms != "" {
		if n, err := strconv.ParseInt(ms, 10, 64); err == nil {
			since = time.UnixMilli(n)
		}
	}

	entries := s.logs.Recent(since, minLevel, limit)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
