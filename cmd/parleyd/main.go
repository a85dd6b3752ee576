// Command parleyd is the parley daemon: it serves the REST API, runs
// connectors and schedules, and drives conversational turns through
// the remote/local generation pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiPkg "github.com/parley-io/parley/internal/api"
	"github.com/parley-io/parley/internal/backend"
	"github.com/parley-io/parley/internal/config"
	"github.com/parley-io/parley/internal/connector"
	slackconn "github.com/parley-io/parley/internal/connector/slack"
	"github.com/parley-io/parley/internal/connector/telegram"
	"github.com/parley-io/parley/internal/connector/webhook"
	"github.com/parley-io/parley/internal/conversation"
	"github.com/parley-io/parley/internal/logbuf"
	"github.com/parley-io/parley/internal/packer"
	"github.com/parley-io/parley/internal/pipeline"
	"github.com/parley-io/parley/internal/retrieval"
	"github.com/parley-io/parley/internal/scheduler"
	"github.com/parley-io/parley/internal/timeline"
	"github.com/parley-io/parley/pkg/protocol"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logRing := logbuf.NewRing(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logRing))

	// Load config (file or env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("parleyd starting", "daemon_id", cfg.Daemon.ID)

	// 1. Corpus, retrieval engine, packer
	os.MkdirAll(cfg.Daemon.DataDir, 0o755)
	corpus, err := retrieval.OpenCorpus(cfg.Daemon.DataDir + "/corpus.db")
	if err != nil {
		logger.Error("failed to open corpus", "error", err)
		os.Exit(1)
	}
	defer corpus.Close()

	engine := retrieval.NewEngine(corpus, retrieval.WithLogger(logger.With("component", "retrieval")))
	pk := packer.New()

	// 2. Stores and live roster
	convs := conversation.NewStore()
	tl := timeline.NewStore()
	roster := conversation.NewRoster(cfg.Agents)

	// 3. Backends: local simulator always, remote when configured
	sim := backend.NewSimulator(engine, pk,
		backend.WithActorResolver(func(agentID string) protocol.Actor {
			if a, ok := roster.Get(agentID); ok {
				return a.Actor()
			}
			return protocol.Actor{ID: agentID, Name: agentID}
		}),
		backend.WithStageHook(pipeline.StageStatusHook(roster)),
		backend.WithSimulatorLogger(logger.With("component", "simulator")),
	)

	var pipeOpts []pipeline.Option
	pipeOpts = append(pipeOpts,
		pipeline.WithParams(cfg.Params),
		pipeline.WithLogger(logger.With("component", "pipeline")),
	)
	if cfg.Backend.BaseURL != "" {
		remote := backend.NewRemote(cfg.Backend.BaseURL,
			backend.WithAPIKey(cfg.Backend.APIKey),
			backend.WithPath(cfg.Backend.CompletionsPath),
			backend.WithTimeout(time.Duration(cfg.Backend.TimeoutMS)*time.Millisecond),
		)
		pipeOpts = append(pipeOpts, pipeline.WithRemote(remote))
		logger.Info("remote backend configured", "base_url", cfg.Backend.BaseURL)
	}

	pipe := pipeline.New(convs, tl, roster, sim, pipeOpts...)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Schedules: recurring prompts through the pipeline, one stable
	// conversation per agent.
	if len(cfg.Schedules) > 0 {
		sched := scheduler.New(func(ctx context.Context, agentID, prompt string) {
			convID := "schedule:" + agentID
			convs.Ensure(convID, "scheduled prompts for "+agentID, agentID)
			if _, err := pipe.Submit(ctx, convID, prompt); err != nil {
				logger.Error("scheduled turn failed", "agent", agentID, "error", err)
			}
		}, logger.With("component", "scheduler"))

		for _, s := range cfg.Schedules {
			agentID := s.AgentID
			if agentID == "" {
				agentID = cfg.Agents[0].ID
			}
			if err := sched.AddSchedule(agentID, s.Schedule, s.Prompt); err != nil {
				logger.Error("failed to register schedule", "schedule", s.Schedule, "error", err)
				os.Exit(1)
			}
		}
		go safeGo(logger, "scheduler", func() { sched.Start(ctx) })
	}

	// 5. Connectors
	inbound := connector.PipelineHandler(pipe, convs)

	if cfg.Connectors.Telegram != nil {
		tgConn, err := telegram.New(telegram.Config{
			Token:     cfg.Connectors.Telegram.Token,
			AgentID:   cfg.Connectors.Telegram.AgentID,
			AllowFrom: cfg.Connectors.Telegram.AllowFrom,
		}, inbound, logger.With("connector", "telegram"))
		if err != nil {
			logger.Error("failed to init telegram connector", "error", err)
			os.Exit(1)
		}
		go safeGo(logger, "telegram", func() { tgConn.Start(ctx) })
	}

	if cfg.Connectors.Slack != nil {
		slConn, err := slackconn.New(slackconn.Config{
			BotToken: cfg.Connectors.Slack.BotToken,
			AppToken: cfg.Connectors.Slack.AppToken,
			AgentID:  cfg.Connectors.Slack.AgentID,
		}, inbound, logger.With("connector", "slack"))
		if err != nil {
			logger.Error("failed to init slack connector", "error", err)
			os.Exit(1)
		}
		go safeGo(logger, "slack", func() { slConn.Start(ctx) })
	}

	// 6. API server, with webhook endpoints mounted when configured
	apiSrv := apiPkg.NewServer(convs, roster, tl, corpus, pipe, apiPkg.Config{
		Host: cfg.API.Host,
		Port: cfg.API.Port,
		Key:  cfg.API.Key,
	}, logger.With("component", "api"), logRing)

	if len(cfg.Connectors.Webhook) > 0 {
		endpoints := make(map[string]webhook.EndpointConfig, len(cfg.Connectors.Webhook))
		for name, ep := range cfg.Connectors.Webhook {
			agentID := ep.AgentID
			if agentID == "" {
				agentID = cfg.Agents[0].ID
			}
			endpoints[name] = webhook.EndpointConfig{
				Secret:      ep.Secret,
				BearerToken: ep.BearerToken,
				AgentID:     agentID,
			}
		}
		apiSrv.MountWebhook(webhook.New(webhook.Config{Endpoints: endpoints}, inbound, logger.With("connector", "webhook")))
	}

	go safeGo(logger, "api-server", func() { apiSrv.Start(ctx) })
	logger.Info("api server started", "port", cfg.API.Port)

	// 7. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	logger.Info("parleyd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
