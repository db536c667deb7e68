// Package server provides the public entry point for initializing the
// CrewPlan wizard server.
//
// This package exists in pkg/ (not internal/) so embedders can compose the
// server with their own middleware:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crewplan/crewplan/internal/alerts"
	"github.com/crewplan/crewplan/internal/api"
	"github.com/crewplan/crewplan/internal/api/handlers"
	"github.com/crewplan/crewplan/internal/config"
	"github.com/crewplan/crewplan/internal/conversations"
	"github.com/crewplan/crewplan/internal/llm"
	"github.com/crewplan/crewplan/internal/store"
	"github.com/crewplan/crewplan/internal/telemetry"
	"github.com/crewplan/crewplan/internal/wizard"
	"github.com/crewplan/crewplan/pkg/models"
)

// Server holds the initialized CrewPlan wizard stack.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store: in-memory by default, PostgreSQL when
	// CREWPLAN_DATABASE_URL is set.
	Store store.Store

	// Config is the loaded configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig initializes the wizard server with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Server.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var dataStore store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		dataStore = pg
		log.Info().Msg("PostgreSQL store initialized")
	} else {
		dataStore = store.NewMemoryStore()
		log.Info().Msg("In-memory store initialized")
	}

	seedDefaultOrg(ctx, dataStore)

	provider := llm.NewOpenAIProvider(cfg.LLM.APIKey, cfg.LLM.APIBase, cfg.LLM.Model)
	agent := wizard.NewAgent(provider, cfg.LLM.Model)
	convs := conversations.NewStore(cfg.Wizard.ConversationTTL)
	alertSvc := alerts.NewService(dataStore)

	// Background sweep of expired conversations; stops with ctx.
	go convs.Run(ctx, cfg.Wizard.SweepInterval)

	h := handlers.New(dataStore, agent, convs, alertSvc, cfg.Wizard.WindowWeeks)
	router := api.NewRouter(h, cfg)

	log.Info().
		Str("model", cfg.LLM.Model).
		Int("window_weeks", cfg.Wizard.WindowWeeks).
		Msg("wizard pipeline initialized")

	return &Server{
		Handler:      router,
		Store:        dataStore,
		Config:       cfg,
		Port:         cfg.Server.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// seedDefaultOrg ensures requests without an explicit org land somewhere.
func seedDefaultOrg(ctx context.Context, s store.Store) {
	if _, err := s.GetOrg(ctx, "default"); err == nil {
		return
	}
	org := &models.Organization{
		ID:        "default",
		Name:      "Default Organization",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateOrg(ctx, org); err != nil {
		log.Warn().Err(err).Msg("failed to seed default org")
		return
	}
	log.Info().Msg("default org seeded")
}
