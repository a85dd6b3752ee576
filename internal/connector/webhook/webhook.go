// Package webhook accepts signed HTTP callbacks and turns them into
// conversational turns.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parley-io/parley/internal/connector"
)

// EndpointConfig holds per-endpoint webhook configuration.
type EndpointConfig struct {
	// Secret for HMAC-SHA256 signature verification (X-Hub-Signature-256 header).
	// If empty, Bearer auth is used instead.
	Secret string `json:"secret,omitempty"`
	// BearerToken for Authorization header auth. Used if Secret is empty.
	BearerToken string `json:"bearer_token,omitempty"`
	// AgentID is the persona answering this endpoint.
	AgentID string `json:"agent_id,omitempty"`
}

// Config maps endpoint names to their auth settings.
type Config struct {
	Endpoints map[string]EndpointConfig `json:"endpoints"`
}

// Payload is the expected JSON body for webhook requests.
type Payload struct {
	SenderID string         `json:"sender_id"`
	ChatID   string         `json:"chat_id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Handler serves webhook requests at /api/webhook/{name} and replies
// synchronously with the agent message for the turn.
type Handler struct {
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
}

// New creates a new webhook handler.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:  cfg,
		handler: handler,
		logger:  logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Endpoint name is the last path segment: /api/webhook/{name}
	name := extractName(r.URL.Path)
	if name == "" {
		http.Error(w, "missing endpoint name in path", http.StatusBadRequest)
		return
	}

	endpoint, ok := h.config.Endpoints[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown webhook endpoint: %s", name), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !h.authenticate(r, endpoint, body) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if payload.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	// Metadata travels inline so the turn can see it.
	content := payload.Content
	if len(payload.Metadata) > 0 {
		metaJSON, _ := json.Marshal(payload.Metadata)
		content = fmt.Sprintf("%s\n\n[webhook metadata: %s]", content, metaJSON)
	}

	inbound := connector.InboundMessage{
		Channel:  "webhook:" + name,
		SenderID: payload.SenderID,
		ChatID:   payload.ChatID,
		AgentID:  endpoint.AgentID,
		Content:  content,
	}
	if inbound.SenderID == "" {
		inbound.SenderID = name
	}
	if inbound.ChatID == "" {
		inbound.ChatID = name
	}

	reply, err := h.handler(r.Context(), inbound)
	if err != nil {
		h.logger.Error("webhook turn failed",
			"endpoint", name,
			"error", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"turn_id": reply.TurnID,
		"reply":   reply.Content,
	})
}

func (h *Handler) authenticate(r *http.Request, endpoint EndpointConfig, body []byte) bool {
	// HMAC signature verification
	if endpoint.Secret != "" {
		sig := r.Header.Get("X-Hub-Signature-256")
		if sig == "" {
			sig = r.Header.Get("X-Signature-256")
		}
		return verifyHMAC(body, endpoint.Secret, sig)
	}

	// Bearer token
	if endpoint.BearerToken != "" {
		return r.Header.Get("Authorization") == "Bearer "+endpoint.BearerToken
	}

	// No auth configured: allow, for development setups
	return true
}

// verifyHMAC checks an HMAC-SHA256 signature of the form "sha256=<hex>".
func verifyHMAC(body []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}

	sig := strings.TrimPrefix(signature, "sha256=")
	expectedMAC, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expectedMAC)
}

// extractName gets the last path segment from /api/webhook/{name}.
func extractName(path string) string {
	path = strings.TrimSuffix(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// ComputeSignature generates an HMAC-SHA256 signature for callers.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
