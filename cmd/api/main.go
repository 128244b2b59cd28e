// Command api serves the SCL analysis HTTP API: session lifecycle,
// generation runs with SSE/websocket progress, deep dives, exports, and
// executive reports.
package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"supercritical/internal/deepdive"
	"supercritical/internal/export"
	"supercritical/internal/gateway/config"
	"supercritical/internal/gateway/server"
	"supercritical/internal/llmclient"
	"supercritical/internal/orchestrator"
	"supercritical/internal/scenario"
	"supercritical/internal/session"
	"supercritical/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := buildServer(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	httpSrv := server.New(cfg.Port, srv.routes())
	if err := httpSrv.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func buildServer(ctx context.Context, cfg *config.Config) (*apiServer, error) {
	sessions := session.NewManager()

	sessionStore, err := buildSessionStore(cfg)
	if err != nil {
		return nil, err
	}

	packs, err := scenario.Load(cfg.ScenarioDir)
	if err != nil {
		return nil, err
	}

	var local *orchestrator.LocalGenerator
	client, err := buildLLMClient(ctx, cfg.LLM)
	if err != nil {
		log.Printf("llm client unavailable, local generation disabled: %v", err)
	} else {
		local = orchestrator.NewLocalGenerator(client, orchestrator.NewStaticKnowledge())
	}

	var backend *orchestrator.BackendClient
	if cfg.Backend.URL != "" {
		backend = orchestrator.NewBackendClient(cfg.Backend.URL)
	}

	orch := orchestrator.New(sessions, backend, local, orchestrator.Options{
		BackendTimeout: cfg.Backend.Timeout,
		PollInterval:   cfg.Backend.PollInterval,
	})

	var expander deepdive.Expander
	switch {
	case backend != nil:
		expander = backend
	case client != nil:
		expander = deepdive.NewLocalExpander(client)
	}

	var archive *export.S3Archive
	if cfg.Archive.Enabled {
		archive, err = export.NewS3Archive(export.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			log.Printf("archive disabled: %v", err)
			archive = nil
		}
	}

	srv := &apiServer{
		sessions: sessions,
		orch:     orch,
		store:    sessionStore,
		packs:    packs,
		archive:  archive,
		prefs:    store.NewPrefsStore(filepath.Join(cfg.DataDir, "prefs.json")),
		runs:     newRunRegistry(),
	}
	if expander != nil {
		srv.dives = deepdive.NewEngine(sessions, expander, orch)
	}
	return srv, nil
}

func buildSessionStore(cfg *config.Config) (store.SessionStore, error) {
	var backend store.SessionStore
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		backend = pg
	} else {
		fs, err := store.NewFileStore(filepath.Join(cfg.DataDir, "sessions"))
		if err != nil {
			return nil, err
		}
		backend = fs
	}
	return store.NewCachedStore(backend, cfg.CacheSize)
}

func buildLLMClient(ctx context.Context, cfg config.LLMConfig) (llmclient.LLMClient, error) {
	switch cfg.Provider {
	case "openrouter":
		return llmclient.NewOpenRouterClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return llmclient.NewGeminiClient(ctx, cfg.Model)
	}
}
