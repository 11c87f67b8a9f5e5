package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions contains all the configuration for the serve command.
type ServeOptions struct {
	ConfigPath string
	Debug      bool
	// Addr overrides the listen address of the config file.
	Addr string
	Out  io.Writer
}

// Serve exposes the tree over HTTP until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, opts ServeOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.HTTP.Addr = opts.Addr
	}

	logger, err := createLogger(opts.Debug, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics("arbor")
	if err := metrics.Register(reg); err != nil {
		return err
	}

	app, err := NewApp(cfg, logger, metrics.Hooks())
	if err != nil {
		return err
	}
	defer app.Close()

	srvOpts := []arborhttp.Option{
		arborhttp.WithGatherer(reg),
		arborhttp.WithLogger(logger),
	}
	if app.Popup != nil {
		srvOpts = append(srvOpts, arborhttp.WithPopupTree(app.Popup))
	}
	api := arborhttp.NewServer(app.Tree, srvOpts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	startBackground(ctx, app, app.Tree, api.Publish)
	if app.Popup != nil {
		startBackground(ctx, app, app.Popup, nil)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(opts.Out, "Serving %s bookmarks on %s", cfg.Source.Type, srv.Addr)
		logger.Info("HTTP server listening", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Shutting down HTTP server")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Streams never finish on their own.
		api.Streams.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		printSystemMessage(opts.Out, "Server stopped gracefully")
		return nil
	}
}

// startBackground runs the refresh loop of t and forwards source changes into
// it when the source can be watched.
func startBackground(ctx context.Context, app *App, t *arbor.Tree, onRefresh func(context.Context, arbor.Refresh)) {
	go func() {
		if err := t.Run(ctx, onRefresh); err != nil && !isInterrupted(err) {
			app.Logger.Error("Refresh loop stopped", "tree", t.ID(), "err", err)
		}
	}()
	go func() {
		err := t.WatchSource(ctx)
		switch {
		case errors.Is(err, arbor.ErrNotWatchable):
			app.Logger.Info("Source is not watchable, refreshing on request only", "source", app.Config.Source.Type)
		case err != nil && !isInterrupted(err):
			app.Logger.Error("Watching source stopped", "err", err)
		}
	}()
}
