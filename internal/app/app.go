package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"chatforum/internal/sweeper"
	"chatforum/pkg/chat"
	"chatforum/pkg/config"
	"chatforum/pkg/digest"
	"chatforum/pkg/genai"
	"chatforum/pkg/identity"
	"chatforum/pkg/logger"
	"chatforum/pkg/onboard"
	"chatforum/pkg/snapshot"
	"chatforum/pkg/state"
	"chatforum/pkg/validation"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	backend    chat.Backend
	provider   identity.Provider
	builder    *digest.Builder
	onboarding *onboard.Service

	sweepCancel context.CancelFunc
	srv         *http.Server
}

// New initializes resources that do not require a running context
// (snapshot store, runtime keys, upstream clients). It does not start
// the sweeper or the HTTP server; call Run to start those and block
// until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	logger.InitWithLevel(eff.Config.Logging.Level)

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// runtime keys
	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}, SigningKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	// payload limits
	validation.SetLimits(validation.Limits{
		MaxMessages: eff.Config.Limits.MaxMessages,
		MaxTextLen:  eff.Config.Limits.MaxTextLen,
	})

	// state layout and snapshot store
	if err := state.EnsureStateDirs(eff.DataPath); err != nil {
		return nil, fmt.Errorf("failed to prepare state dirs under %s: %w", eff.DataPath, err)
	}
	if err := snapshot.Open(state.PathsVar.Snapshots); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", state.PathsVar.Snapshots, err)
	}

	// upstream clients
	backend, err := chat.NewClient(eff.Config.Chat)
	if err != nil {
		return nil, fmt.Errorf("chat backend: %w", err)
	}
	provider, err := identity.NewClient(eff.Config.Identity)
	if err != nil {
		return nil, fmt.Errorf("identity provider: %w", err)
	}

	genCfg := eff.Config.Generation
	gen := digest.NewGenerator(genai.NewClient(genCfg), genai.Prompt, digest.GeneratorConfig{
		Candidates:    genCfg.Candidates,
		Delay:         genCfg.Delay.Duration(),
		Strategy:      genCfg.Strategy,
		MaxConcurrent: genCfg.MaxConcurrent,
	})

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,

		backend:    backend,
		provider:   provider,
		builder:    digest.NewBuilder(gen, genCfg.Configured),
		onboarding: onboard.NewService(backend, provider, *eff.Config),
	}
	return a, nil
}

// Run starts the snapshot sweeper and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	cancel, err := sweeper.Start(ctx, a.eff.Config.Sweeper)
	if err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}
	a.sweepCancel = cancel

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

// shutdown stops background work and releases the snapshot store. Safe to
// call once, after the serve loop exits.
func (a *App) shutdown() {
	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	if a.srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(sctx); err != nil {
			logger.Warn("http_shutdown_failed", "error", err)
		}
	}
	if err := snapshot.Close(); err != nil {
		logger.Warn("snapshot_close_failed", "error", err)
	}
}
