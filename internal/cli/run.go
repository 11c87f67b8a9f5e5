package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"

	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/pipeline"
)

// TreeOptions contains all the configuration for the tree command.
type TreeOptions struct {
	ConfigPath string
	Debug      bool
	Format     string
	// Popup shows line bookmarks only, on top of the config file setting.
	Popup   bool
	Watch   bool
	NoColor bool
	// Width truncates text rows. Zero disables truncation.
	Width int
	Out   io.Writer
}

// RunTree prints the bookmark tree once, or keeps reprinting it on changes in watch mode.
func RunTree(ctx context.Context, opts TreeOptions) error {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if err := ValidateFormat(opts.Format); err != nil {
		return err
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Popup {
		cfg.Popup = true
	}

	logger, err := createLogger(opts.Debug, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	app, err := NewApp(cfg, logger, pipeline.Hooks{})
	if err != nil {
		return err
	}
	defer app.Close()

	printer := tui.NewPrinter(opts.Out, opts.Width)
	if opts.NoColor {
		printer.Profile = termenv.Ascii
	}

	if opts.Watch {
		return handleExecutionError(runWatch(ctx, app, printer, opts))
	}

	return printSnapshot(ctx, app.View(), printer, opts)
}
