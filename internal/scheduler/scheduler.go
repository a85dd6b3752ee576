// Package scheduler submits recurring prompts through the turn
// pipeline on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// SubmitFunc runs a scheduled prompt for an agent. The daemon wires it
// to the pipeline with a per-schedule conversation.
type SubmitFunc func(ctx context.Context, agentID, prompt string)

// Scheduler manages cron-based recurring prompts.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   map[string][]cron.EntryID // agent_id → entry IDs
	ctx    context.Context
	submit SubmitFunc
	logger *slog.Logger
}

// New creates a new scheduler.
func New(submit SubmitFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		jobs:   make(map[string][]cron.EntryID),
		ctx:    context.Background(),
		submit: submit,
		logger: logger,
	}
}

// Start begins the cron scheduler. Blocks until context is cancelled;
// jobs firing after cancellation see the cancelled context.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", s.JobCount())

	<-ctx.Done()
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

// AddSchedule registers a recurring prompt for an agent. The schedule
// is a standard cron expression (5 fields) or a predefined form like
// @every 1h.
func (s *Scheduler) AddSchedule(agentID, schedule, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(schedule, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		s.logger.Info("schedule fired", "agent", agentID, "prompt", prompt)
		s.submit(ctx, agentID, prompt)
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", schedule, err)
	}

	s.jobs[agentID] = append(s.jobs[agentID], id)
	s.logger.Info("schedule registered", "agent", agentID, "schedule", schedule)
	return nil
}

// RemoveAgent removes all schedules for an agent.
func (s *Scheduler) RemoveAgent(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.jobs[agentID] {
		s.cron.Remove(id)
	}
	delete(s.jobs, agentID)
}

// Jobs returns all entry IDs for an agent.
func (s *Scheduler) Jobs(agentID string) []cron.EntryID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[agentID]
}

// JobCount returns the total number of registered schedules.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, ids := range s.jobs {
		total += len(ids)
	}
	return total
}
