package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/loam"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	fileAdapter "github.com/aretw0/arbor/pkg/adapters/file"
	loamAdapter "github.com/aretw0/arbor/pkg/adapters/loam"
	redisAdapter "github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/stages"
)

// App holds what a command works with, built from one configuration.
type App struct {
	Config config.Config
	Logger *slog.Logger
	Source ports.ItemSource
	Tree   *arbor.Tree
	// Popup only shows line bookmarks. It is nil unless popup is enabled.
	Popup *arbor.Tree

	locker  ports.DistributedLocker
	closers []func() error
}

// NewApp creates the item source and the trees described by cfg.
func NewApp(cfg config.Config, logger *slog.Logger, hooks pipeline.Hooks) (*App, error) {
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		hooks = pipeline.MergeHooks(hooks, createDebugHooks(logger))
	}

	app := &App{Config: cfg, Logger: logger}
	if err := app.createSource(); err != nil {
		return nil, err
	}

	full, err := app.createTree(hooks)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Tree = full

	if cfg.Popup {
		popup, err := app.createTree(hooks, arbor.WithPopup())
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Popup = popup
	}

	logger.Debug("App initialized", "source", cfg.Source.Type, "tree", full.ID(), "popup", cfg.Popup)
	return app, nil
}

// View returns the tree commands should show: the popup tree when enabled.
func (a *App) View() *arbor.Tree {
	if a.Popup != nil {
		return a.Popup
	}
	return a.Tree
}

// Close releases the trees and the source connection.
func (a *App) Close() error {
	var errs []error
	for _, t := range []*arbor.Tree{a.Popup, a.Tree} {
		if t != nil {
			errs = append(errs, t.Close())
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) createSource() error {
	sc := a.Config.Source
	switch sc.Type {
	case config.SourceFile:
		a.Source = fileAdapter.New(sc.Path)

	case config.SourceLoam:
		absPath, err := filepath.Abs(sc.Path)
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		// Arbor never writes group documents, so the repository stays read-only.
		repo, err := loam.Init(absPath,
			loam.WithStrict(true),
			loam.WithReadOnly(true),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize loam: %w", err)
		}
		a.Source = loamAdapter.New(loam.NewTypedRepository[loamAdapter.GroupMetadata](repo))

	case config.SourceRedis:
		prefix := sc.Redis.Prefix
		if prefix == "" {
			prefix = redisAdapter.DefaultPrefix
		}
		src := redisAdapter.New(sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB, redisAdapter.WithPrefix(prefix))
		a.Source = src
		a.closers = append(a.closers, src.Close)
		if sc.Redis.Lock {
			a.locker = redisAdapter.NewLocker(src.Client(), prefix)
		}

	default:
		return fmt.Errorf("unknown source type %q", sc.Type)
	}
	return nil
}

// createTree builds a tree with its own stage registry, since registries
// keep per-branch state.
func (a *App) createTree(hooks pipeline.Hooks, extra ...arbor.Option) (*arbor.Tree, error) {
	reg := stages.Default()
	if len(a.Config.Stages) > 0 {
		var err error
		reg, err = stages.Build(a.Config.Stages)
		if err != nil {
			return nil, fmt.Errorf("invalid stages: %w", err)
		}
	}

	opts := []arbor.Option{
		arbor.WithLogger(a.Logger),
		arbor.WithStages(reg),
		arbor.WithHooks(hooks),
	}
	if a.locker != nil {
		opts = append(opts, arbor.WithLocker(a.locker))
	}
	opts = append(opts, extra...)

	t, err := arbor.New(a.Source, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing tree: %w", err)
	}
	return t, nil
}
