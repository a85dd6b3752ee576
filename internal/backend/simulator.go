package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parley-io/parley/internal/packer"
	"github.com/parley-io/parley/internal/retrieval"
	"github.com/parley-io/parley/pkg/protocol"
)

const (
	simulatorModel   = "parley-sim-1"
	defaultLatency   = 250 * time.Millisecond
	systemGuidance   = "Ground every reply in the retrieved evidence and cite sources by title. If no evidence applies, say so instead of inventing support."
	defaultEvidenceK = 5
)

// StageHook is invoked as the simulator enters each stage, letting the
// pipeline surface agent state transitions to observers.
type StageHook func(agentID string, kind protocol.StepKind)

// Simulator is the deterministic offline generation strategy. It runs
// retrieval, packing, and reply synthesis locally, incurring a fixed
// artificial latency, and never fails.
type Simulator struct {
	engine   *retrieval.Engine
	packer   *packer.Packer
	latency  time.Duration
	actorFor func(agentID string) protocol.Actor
	hook     StageHook
	logger   *slog.Logger
	now      func() time.Time
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithLatency overrides the artificial per-call latency.
func WithLatency(d time.Duration) SimulatorOption {
	return func(s *Simulator) { s.latency = d }
}

// WithActorResolver maps agent ids to actor triples for step attribution.
func WithActorResolver(fn func(agentID string) protocol.Actor) SimulatorOption {
	return func(s *Simulator) { s.actorFor = fn }
}

// WithStageHook registers a stage-entry callback.
func WithStageHook(hook StageHook) SimulatorOption {
	return func(s *Simulator) { s.hook = hook }
}

// WithSimulatorLogger sets the simulator's logger.
func WithSimulatorLogger(l *slog.Logger) SimulatorOption {
	return func(s *Simulator) { s.logger = l }
}

// NewSimulator creates a local simulator over the given retrieval
// engine and packer.
func NewSimulator(engine *retrieval.Engine, pk *packer.Packer, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		engine:  engine,
		packer:  pk,
		latency: defaultLatency,
		actorFor: func(agentID string) protocol.Actor {
			return protocol.Actor{ID: agentID, Name: agentID}
		},
		hook:   func(string, protocol.StepKind) {},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Name() string { return "simulator" }

// Generate runs the local path end to end and returns the result plus
// the retrieve/pack/generate steps it produced. The returned error is
// always nil: retrieval problems degrade to an evidence-free reply.
func (s *Simulator) Generate(ctx context.Context, req protocol.GenerationRequest) (*protocol.GenerationResult, error) {
	actor := s.actorFor(req.AgentID)
	userText := lastUserContent(req.Messages)
	query := retrieval.ReformulateQuery(userText)
	start := s.now()

	// Retrieve
	s.hook(req.AgentID, protocol.StepRetrieve)
	var items []protocol.EvidenceItem
	if req.Rag.Enable {
		retrieved, err := s.engine.Retrieve(query)
		if err != nil {
			s.logger.Warn("retrieval failed, continuing without evidence",
				"agent", req.AgentID,
				"error", err,
			)
		} else {
			items = retrieved
		}
		k := req.Rag.K
		if k <= 0 {
			k = defaultEvidenceK
		}
		if len(items) > k {
			items = items[:k]
		}
	}

	steps := []protocol.ProtocolStep{{
		ID:        uuid.NewString(),
		Kind:      protocol.StepRetrieve,
		Timestamp: s.now(),
		Actor:     actor,
		Input:     &protocol.StepIO{Text: query},
		Retrieval: &protocol.RetrievalRecord{Query: query, Items: items},
		Note:      fmt.Sprintf("%d evidence items after dedup and ranking", len(items)),
	}}

	// Pack
	s.hook(req.AgentID, protocol.StepPack)
	window := s.packer.Pack(systemGuidance, userText, items)
	steps = append(steps, protocol.ProtocolStep{
		ID:            uuid.NewString(),
		Kind:          protocol.StepPack,
		Timestamp:     s.now(),
		Actor:         actor,
		ContextWindow: window,
		Note:          fmt.Sprintf("%d items, ~%d tokens", len(window), protocol.TotalTokenEstimate(window)),
	})

	// Generate
	s.hook(req.AgentID, protocol.StepGenerate)
	s.simulateLatency(ctx)
	reply := synthesize(req.AgentID, userText, items)

	call := &protocol.ModelCallInfo{
		Model:            simulatorModel,
		PromptTokens:     protocol.TotalTokenEstimate(window),
		CompletionTokens: packer.EstimateTokens(reply),
		LatencyMS:        float64(s.now().Sub(start)) / float64(time.Millisecond),
	}
	steps = append(steps, protocol.ProtocolStep{
		ID:        uuid.NewString(),
		Kind:      protocol.StepGenerate,
		Timestamp: s.now(),
		Actor:     actor,
		Output:    &protocol.StepIO{Text: reply},
		ModelCall: call,
	})

	return &protocol.GenerationResult{
		Content: reply,
		Context: &protocol.RagContext{
			Query:       query,
			Chunks:      items,
			RetrievedAt: start,
		},
		ModelCall: call,
		Steps:     steps,
	}, nil
}

// simulateLatency emulates real call timing. A cancelled context cuts
// the wait short but never fails the call.
func (s *Simulator) simulateLatency(ctx context.Context) {
	if s.latency <= 0 {
		return
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func lastUserContent(messages []protocol.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func firstSentence(text string) string {
	if i := strings.Index(text, ". "); i >= 0 {
		return text[:i+1]
	}
	return text
}
