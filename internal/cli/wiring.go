package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/daydemir/ralphd/internal/bridge/githubbridge"
	"github.com/daydemir/ralphd/internal/bus"
	"github.com/daydemir/ralphd/internal/config"
	"github.com/daydemir/ralphd/internal/console"
	"github.com/daydemir/ralphd/internal/dispatcher"
	"github.com/daydemir/ralphd/internal/events"
	"github.com/daydemir/ralphd/internal/hooks"
	"github.com/daydemir/ralphd/internal/review"
)

// buildDispatcher loads config.json and assembles a Dispatcher wired with
// every bridge/plugin/review-provider the repo's configuration names,
// mirroring how the teacher's run.go assembled an executor.Config from
// flags and planner state before constructing an executor.Executor.
func buildDispatcher(repoRoot string, hub *events.Hub, con *console.Console) (*dispatcher.Dispatcher, error) {
	cfg, err := config.Load(repoRoot, localDir)
	if err != nil {
		return nil, fmt.Errorf("cli: load config: %w", err)
	}

	bridges := bus.NewRegistry()
	if err := registerBridges(repoRoot, cfg, bridges); err != nil {
		return nil, err
	}

	hookRegistry := hooks.NewRegistry()
	plugins, order := cfg.ResolvePlugins("")
	pluginConfigs := make(map[string]hooks.PluginConfig, len(plugins))
	for name, entry := range plugins {
		pluginConfigs[name] = hooks.PluginConfig{
			Module:  entry.Module,
			Config:  entry.Config,
			Enabled: entry.Enabled,
			Targets: entry.Targets,
		}
	}
	if err := hooks.LoadPlugins(repoRoot, order, pluginConfigs, hookRegistry); err != nil {
		return nil, fmt.Errorf("cli: load plugins: %w", err)
	}

	reviewProvider := buildReviewProvider(cfg, bridges)

	onLog := func(msg string) {
		con.Warning(msg)
	}

	return dispatcher.New(repoRoot, localDir, cfg, bridges, hookRegistry, reviewProvider, hub, onLog), nil
}

// registerBridges registers every platform bridge named in cfg.Bridges.
// GitHub's owner/repo/token come from the environment rather than
// config.json, since those are credentials rather than workspace
// configuration (spec.md §6 leaves bridge-specific settings to the
// bridge's own constructor).
func registerBridges(repoRoot string, cfg *config.Config, bridges *bus.Registry) error {
	ghCfg, ok := cfg.Bridges["github"]
	if !ok || (ghCfg.Enabled != nil && !*ghCfg.Enabled) {
		return nil
	}
	token := os.Getenv("GITHUB_TOKEN")
	owner := os.Getenv("GITHUB_OWNER")
	repo := os.Getenv("GITHUB_REPO")
	if token == "" || owner == "" || repo == "" {
		return fmt.Errorf("cli: github bridge is enabled but GITHUB_TOKEN/GITHUB_OWNER/GITHUB_REPO are not all set")
	}
	bridge := githubbridge.New(context.Background(), token, owner, repo)
	return bridges.Register(bridge)
}

// buildReviewProvider returns the per-worktree review.Provider factory
// selected by cfg.Review.Provider, or nil if the choice cannot be
// satisfied by what was registered (status=review plans then simply never
// advance, per internal/dispatcher's nil-ReviewProvider contract).
func buildReviewProvider(cfg *config.Config, bridges *bus.Registry) func(string) (review.Provider, error) {
	switch cfg.Review.Provider {
	case "", review.DefaultProviderName:
		inbound := bridges.Inbound()
		if len(inbound) == 0 {
			return nil
		}
		bridge := inbound[0]
		return func(string) (review.Provider, error) {
			return review.NewPlatformProvider(bridge), nil
		}
	case "local":
		return func(worktree string) (review.Provider, error) {
			return review.NewLocalProvider(worktree, localDir), nil
		}
	default:
		return nil
	}
}
