// Package server provides the public entry point for initializing the
// inboxpilot server.
//
// This package exists in pkg/ (not internal/) so embedders can compose the
// full server with their own listener, middleware, or extra tools.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/inboxpilot/inboxpilot/internal/agent"
	"github.com/inboxpilot/inboxpilot/internal/api"
	"github.com/inboxpilot/inboxpilot/internal/api/handlers"
	"github.com/inboxpilot/inboxpilot/internal/config"
	"github.com/inboxpilot/inboxpilot/internal/gcal"
	"github.com/inboxpilot/inboxpilot/internal/gmail"
	"github.com/inboxpilot/inboxpilot/internal/llm"
	"github.com/inboxpilot/inboxpilot/internal/parser"
	"github.com/inboxpilot/inboxpilot/internal/schema"
	"github.com/inboxpilot/inboxpilot/internal/store"
	"github.com/inboxpilot/inboxpilot/internal/telemetry"
	"github.com/inboxpilot/inboxpilot/internal/tools"
)

// Server holds the initialized inboxpilot components.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Agent is the orchestrator. Exposed so embedders can register
	// additional tools before serving.
	Agent *agent.Agent

	// Store is the task-history store.
	Store store.Store

	// Config is the loaded configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from the environment and returns a ready
// Server.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig initializes the server with an explicit configuration.
func NewWithConfig(_ context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	history := store.NewMemoryStore(cfg.DataDir)
	log.Info().Str("data_dir", cfg.DataDir).Msg("✅ Task history store initialized")

	schemas := schema.NewRegistry()

	backend := llm.NewClient(cfg.Providers)
	if len(cfg.Providers) == 0 {
		log.Warn().Msg("No model providers configured, running on rule-based extraction only")
	} else {
		log.Info().Int("providers", len(cfg.Providers)).Msg("✅ Model client initialized")
	}

	llmParser := parser.NewLLMParser(backend, schemas, nil)
	rules := parser.NewRuleExtractor(schemas, nil)

	token := gmail.StaticToken(cfg.Gmail.AccessToken)
	mail := gmail.New(cfg.Gmail.BaseURL, token)
	cal := gcal.New(cfg.Calendar.BaseURL, token)

	registry := tools.NewRegistry()
	for _, t := range []tools.Tool{
		tools.NewQueryGmail(mail),
		tools.NewReadEmail(mail),
		tools.NewSendEmail(mail),
		tools.NewListGmailLabels(mail),
		tools.NewListCalendars(cal),
		tools.NewQueryEvents(cal),
		tools.NewCreateEvent(cal),
		tools.NewDeleteEvent(cal),
	} {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("register tool %s: %w", t.Name(), err)
		}
	}
	log.Info().Int("tools", len(registry.Names())).Msg("✅ Tool registry initialized")

	ag := agent.New(registry, llmParser, rules, schemas, history)

	h := handlers.New(ag)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Agent:        ag,
		Store:        history,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
