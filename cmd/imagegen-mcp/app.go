package main

import (
	"fmt"

	"github.com/entrhq/imagegen-mcp/pkg/auth"
	"github.com/entrhq/imagegen-mcp/pkg/browser"
	"github.com/entrhq/imagegen-mcp/pkg/config"
	"github.com/entrhq/imagegen-mcp/pkg/generation"
	"github.com/entrhq/imagegen-mcp/pkg/logging"
	"github.com/entrhq/imagegen-mcp/pkg/tools"
	"github.com/entrhq/imagegen-mcp/pkg/tools/imagegen"
)

// app is the fully wired process: one browser manager shared by every tool.
type app struct {
	browser  *browser.Manager
	registry *tools.Registry
	log      *logging.Logger
}

func buildApp(cfg *config.Config) (*app, error) {
	// On error NewLogger has already fallen back to stderr and said so
	log, _ := logging.NewLogger("imagegen")
	log.Infof("starting session %s, config %q, logging to %s", log.SessionID(), cfg.ConfigFilePath, log.LogPath())

	routes, err := browser.NewRoutes(cfg.BaseURL, cfg.SignInPattern, cfg.HistoryPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid site routes: %w", err)
	}

	manager := browser.NewManager(
		browser.ManagerOptions{
			UserDataDir:       cfg.UserDataDir,
			StorageStatePath:  cfg.SessionPath,
			RootURL:           cfg.RootURL(),
			Headless:          cfg.Headless,
			NavigationTimeout: cfg.NavigationTimeout.Std(),
		},
		browser.NewPlaywrightLauncher(log.With("component", "launcher")),
		log.With("component", "browser"),
	)

	authenticator := auth.New(
		manager,
		auth.NewSessionStore(cfg.SessionPath, cfg.MetadataPath()),
		routes,
		auth.Options{
			AppURL:            cfg.AppURL(),
			LoginURL:          cfg.LoginURL(),
			NavigationTimeout: cfg.NavigationTimeout.Std(),
		},
		log.With("component", "auth"),
	)

	waiter := generation.DefaultWaiterOptions()
	waiter.Ceiling = cfg.GenerationTimeout.Std()
	waiter.PollInterval = cfg.PollInterval.Std()

	orchestrator := generation.New(
		manager,
		routes,
		generation.Options{
			AppURL:            cfg.AppURL(),
			SavePath:          cfg.SavePath,
			NavigationTimeout: cfg.NavigationTimeout.Std(),
			DownloadTimeout:   cfg.DownloadTimeout.Std(),
			Waiter:            waiter,
			StrictAspectRatio: cfg.StrictAspectRatio,
		},
		log.With("component", "generation"),
	)

	registry, err := imagegen.NewRegistry(imagegen.Deps{
		Browser:   manager,
		Auth:      authenticator,
		Generator: orchestrator,
		Config:    cfg,
		Limiter:   imagegen.NewLimiter(cfg.GenerationRatePerMinute),
		Log:       log.With("component", "tools"),
	})
	if err != nil {
		return nil, err
	}

	return &app{browser: manager, registry: registry, log: log}, nil
}

// Close shuts the browser down and flushes the log.
func (a *app) Close() error {
	err := a.browser.Shutdown()
	if cerr := a.log.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
