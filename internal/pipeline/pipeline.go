// Package pipeline orchestrates a conversational turn: sanitize, plan,
// arbitrate between remote and local generation, and record every
// stage as a protocol step.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parley-io/parley/internal/backend"
	"github.com/parley-io/parley/internal/conversation"
	"github.com/parley-io/parley/internal/retrieval"
	"github.com/parley-io/parley/internal/timeline"
	"github.com/parley-io/parley/pkg/protocol"
)

// backendActor attributes error steps to the remote service rather
// than to any agent persona.
var backendActor = protocol.Actor{ID: "backend", Name: "Backend", Icon: "🛰️"}

// Remote is the optional delegated generation strategy. Configured
// reports whether delegation is possible at all; an unconfigured remote
// is a routing decision, not an error.
type Remote interface {
	backend.Backend
	Configured() bool
}

// Local is the generation strategy of last resort. Its Generate must
// never return an error.
type Local interface {
	backend.Backend
}

// Pipeline drives the turn state machine. One Pipeline serves all
// agents and conversations; distinct turns may interleave, with store
// appends serialized by the stores themselves.
type Pipeline struct {
	conversations *conversation.Store
	timeline      *timeline.Store
	roster        *conversation.Roster
	remote        Remote
	local         Local
	params        map[string]any
	ragK          int
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRemote sets the delegated backend. A nil or unconfigured remote
// routes every turn to the local path.
func WithRemote(r Remote) Option {
	return func(p *Pipeline) { p.remote = r }
}

// WithParams sets the free-form model parameters forwarded to backends.
func WithParams(params map[string]any) Option {
	return func(p *Pipeline) { p.params = params }
}

// WithRagK sets the desired evidence count in the retrieval directive.
func WithRagK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.ragK = k
		}
	}
}

// WithLogger sets the pipeline's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a turn pipeline over the given stores, roster, and local
// generation strategy.
func New(convs *conversation.Store, tl *timeline.Store, roster *conversation.Roster, local Local, opts ...Option) *Pipeline {
	p := &Pipeline{
		conversations: convs,
		timeline:      tl,
		roster:        roster,
		local:         local,
		ragK:          5,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StageStatusHook maps simulator stage entries to observable agent
// state transitions. Wire it into the simulator at construction.
func StageStatusHook(roster *conversation.Roster) backend.StageHook {
	return func(agentID string, kind protocol.StepKind) {
		switch kind {
		case protocol.StepRetrieve:
			roster.SetStatus(agentID, protocol.AgentRetrieving, "searching corpus")
		case protocol.StepPack, protocol.StepGenerate:
			roster.SetStatus(agentID, protocol.AgentResponding, "composing reply")
		}
	}
}

// Submit runs one full turn for the conversation and returns the
// appended agent reply. The only failure mode is an unknown
// conversation: generation problems degrade to the local path and the
// turn always completes with a reply.
func (p *Pipeline) Submit(ctx context.Context, conversationID, text string) (*protocol.Message, error) {
	conv := p.conversations.Get(conversationID)
	if conv == nil {
		return nil, fmt.Errorf("pipeline: unknown conversation %q", conversationID)
	}
	agentID := conv.AgentID
	actor := p.actorFor(agentID)

	// received: sanitize, append the user message, register the turn.
	sanitized := Sanitize(text)
	turnID := uuid.NewString()
	userMsg := protocol.Message{
		ID:        uuid.NewString(),
		Role:      protocol.RoleUser,
		Content:   sanitized,
		Timestamp: p.now(),
		TurnID:    turnID,
	}
	if err := p.conversations.Append(conversationID, userMsg); err != nil {
		return nil, err
	}
	p.timeline.Ensure(turnID)

	// planned: choose a strategy and, for the local path, the
	// reformulated retrieval query.
	p.roster.SetStatus(agentID, protocol.AgentThinking, "planning turn")
	query := retrieval.ReformulateQuery(sanitized)
	strategy := "simulate locally"
	if p.remoteConfigured() {
		strategy = "delegate to remote backend"
	}
	p.timeline.Append(turnID, protocol.ProtocolStep{
		ID:        uuid.NewString(),
		Kind:      protocol.StepPlan,
		Timestamp: p.now(),
		Actor:     actor,
		Input:     &protocol.StepIO{Text: sanitized},
		Output: &protocol.StepIO{
			Text: strategy,
			Fields: map[string]any{
				"strategy": strategy,
				"query":    query,
			},
		},
	})

	req := p.buildRequest(conversationID, agentID)

	// remote-attempt: on success the turn ends here; on failure the
	// raw error becomes an audit step and the local path takes over.
	if p.remoteConfigured() {
		result, err := p.remote.Generate(ctx, req)
		if err == nil {
			p.logger.Info("remote generation succeeded",
				"turn", turnID,
				"agent", agentID,
				"steps", len(result.Steps),
			)
			return p.finish(conversationID, turnID, agentID, result)
		}

		p.logger.Warn("remote generation failed, falling back to local path",
			"turn", turnID,
			"agent", agentID,
			"error", err,
		)
		p.roster.SetStatus(agentID, protocol.AgentError, "remote generation failed")
		p.timeline.Append(turnID, protocol.ProtocolStep{
			ID:        uuid.NewString(),
			Kind:      protocol.StepError,
			Timestamp: p.now(),
			Actor:     backendActor,
			Note:      err.Error(),
		})
	}

	// routed: the local simulator takes retrieval and generation.
	p.timeline.Append(turnID, protocol.ProtocolStep{
		ID:        uuid.NewString(),
		Kind:      protocol.StepRoute,
		Timestamp: p.now(),
		Actor:     actor,
		Output: &protocol.StepIO{
			Text: "retrieval and generation delegated to local simulator",
			Fields: map[string]any{
				"backend": p.local.Name(),
			},
		},
	})

	// retrieved / packed / generated: the simulator emits those steps;
	// it never fails.
	result, err := p.local.Generate(ctx, req)
	if err != nil {
		// Contractually unreachable; keep the turn alive regardless.
		p.logger.Error("local generation returned an error", "turn", turnID, "error", err)
		result = &protocol.GenerationResult{Content: "I could not produce a reply for this turn."}
	}
	return p.finish(conversationID, turnID, agentID, result)
}

// finish merges result steps into the timeline, appends the reply, and
// returns the agent to idle.
func (p *Pipeline) finish(conversationID, turnID, agentID string, result *protocol.GenerationResult) (*protocol.Message, error) {
	for _, step := range result.Steps {
		p.timeline.Append(turnID, step)
	}

	reply := protocol.Message{
		ID:        uuid.NewString(),
		Role:      protocol.RoleAgent,
		Content:   result.Content,
		Timestamp: p.now(),
		AgentID:   agentID,
		Rag:       result.Context,
		ModelCall: result.ModelCall,
		TurnID:    turnID,
	}
	if err := p.conversations.Append(conversationID, reply); err != nil {
		return nil, err
	}
	p.roster.SetStatus(agentID, protocol.AgentIdle, "")
	return &reply, nil
}

func (p *Pipeline) remoteConfigured() bool {
	return p.remote != nil && p.remote.Configured()
}

func (p *Pipeline) actorFor(agentID string) protocol.Actor {
	if a, ok := p.roster.Get(agentID); ok {
		return a.Actor()
	}
	return protocol.Actor{ID: agentID, Name: agentID}
}

// buildRequest snapshots the conversation history into a generation
// request. Agent replies map to the assistant role on the wire.
func (p *Pipeline) buildRequest(conversationID, agentID string) protocol.GenerationRequest {
	conv := p.conversations.Get(conversationID)

	messages := make([]protocol.ChatMessage, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		role := "user"
		switch m.Role {
		case protocol.RoleAgent:
			role = "assistant"
		case protocol.RoleSystem:
			role = "system"
		}
		messages = append(messages, protocol.ChatMessage{Role: role, Content: m.Content})
	}

	return protocol.GenerationRequest{
		Messages: messages,
		AgentID:  agentID,
		Params:   p.params,
		Rag:      protocol.RagDirective{Enable: true, K: p.ragK},
	}
}
