package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/parley-io/parley/pkg/protocol"
)

const defaultCompletionsPath = "/v1/chat/turns"

// Remote delegates generation to an external chat-completion endpoint.
// The remote service may run retrieval server-side and return its own
// protocol steps, which are forwarded verbatim after normalization.
type Remote struct {
	client  *http.Client
	baseURL string
	apiKey  string
	path    string
	timeout time.Duration
	now     func() time.Time
}

// RemoteOption configures a Remote backend.
type RemoteOption func(*Remote)

// WithAPIKey sets the bearer credential.
func WithAPIKey(key string) RemoteOption {
	return func(r *Remote) { r.apiKey = key }
}

// WithPath sets the completions path suffix.
func WithPath(path string) RemoteOption {
	return func(r *Remote) {
		if path != "" {
			r.path = path
		}
	}
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

// NewRemote creates a remote backend. An empty baseURL produces an
// unconfigured backend whose Generate fails fast with ErrNotConfigured.
func NewRemote(baseURL string, opts ...RemoteOption) *Remote {
	r := &Remote{
		client:  &http.Client{},
		baseURL: baseURL,
		path:    defaultCompletionsPath,
		timeout: 12 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Remote) Name() string { return "remote" }

// Configured reports whether a base URL is present.
func (r *Remote) Configured() bool { return r.baseURL != "" }

func (r *Remote) Generate(ctx context.Context, req protocol.GenerationRequest) (*protocol.GenerationResult, error) {
	if !r.Configured() {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("backend: marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, r.baseURL+r.path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("backend: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend: api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var wire remoteResult
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, fmt.Errorf("backend: unmarshal response: %w", err)
	}

	return r.parseResult(&wire), nil
}

// --- Remote wire format types ---

// remoteResult tolerates loosely-typed numeric fields: services written
// in dynamic languages send token counts and latencies as strings or
// floats interchangeably.
type remoteResult struct {
	Content   string                  `json:"content"`
	Context   *protocol.RagContext    `json:"context,omitempty"`
	ModelCall *remoteModelCall        `json:"model_call,omitempty"`
	Steps     []protocol.ProtocolStep `json:"protocol_steps,omitempty"`
}

type remoteModelCall struct {
	Model            string         `json:"model"`
	Params           map[string]any `json:"params,omitempty"`
	PromptTokens     any            `json:"prompt_tokens"`
	CompletionTokens any            `json:"completion_tokens"`
	LatencyMS        any            `json:"latency_ms"`
}

// --- Normalization ---

func (r *Remote) parseResult(wire *remoteResult) *protocol.GenerationResult {
	out := &protocol.GenerationResult{
		Content: wire.Content,
		Context: wire.Context,
		Steps:   r.normalizeSteps(wire.Steps),
	}
	if wire.ModelCall != nil {
		out.ModelCall = normalizeModelCall(wire.ModelCall)
	}
	return out
}

// normalizeSteps assigns identifiers and timestamps to any
// backend-supplied step missing them; step content is otherwise
// forwarded verbatim.
func (r *Remote) normalizeSteps(steps []protocol.ProtocolStep) []protocol.ProtocolStep {
	for i := range steps {
		if steps[i].ID == "" {
			steps[i].ID = uuid.NewString()
		}
		if steps[i].Timestamp.IsZero() {
			steps[i].Timestamp = r.now()
		}
	}
	return steps
}

// normalizeModelCall coerces loose numeric fields, dropping any that
// are not finite numbers rather than defaulting them to zero.
func normalizeModelCall(wire *remoteModelCall) *protocol.ModelCallInfo {
	info := &protocol.ModelCallInfo{Model: wire.Model}

	if n, ok := coerceNumber(wire.PromptTokens); ok {
		info.PromptTokens = int(n)
	}
	if n, ok := coerceNumber(wire.CompletionTokens); ok {
		info.CompletionTokens = int(n)
	}
	if n, ok := coerceNumber(wire.LatencyMS); ok {
		info.LatencyMS = n
	}

	if len(wire.Params) > 0 {
		params := make(map[string]float64, len(wire.Params))
		for k, v := range wire.Params {
			if n, ok := coerceNumber(v); ok {
				params[k] = n
			}
		}
		if len(params) > 0 {
			info.Params = params
		}
	}
	return info
}

// coerceNumber converts a loosely-typed JSON value to a finite float64.
func coerceNumber(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		n = f
	case int:
		n = float64(x)
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
