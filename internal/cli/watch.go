package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
)

// runWatch prints the tree, then reprints it whenever the source reports a
// change, until ctx is done.
func runWatch(ctx context.Context, app *App, printer *tui.Printer, opts TreeOptions) error {
	t := app.View()
	logger := app.Logger

	if err := printSnapshot(ctx, t, printer, opts); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Refreshes only mark the tree dirty. Reprinting from the Run callback
	// would take the lock of the branch being refreshed.
	dirty := make(chan string, 1)
	errCh := make(chan error, 2)

	go func() {
		err := t.WatchSource(ctx)
		if errors.Is(err, arbor.ErrNotWatchable) {
			err = fmt.Errorf("%s sources cannot be watched: %w", app.Config.Source.Type, err)
		}
		errCh <- err
	}()
	go func() {
		errCh <- t.Run(ctx, func(_ context.Context, r arbor.Refresh) {
			if r.Err != nil {
				logger.Warn("Refresh failed", "group", r.Group, "err", r.Err)
			}
			select {
			case dirty <- r.Group:
			default:
			}
		})
	}()

	logger.Info("Watching source", "source", app.Config.Source.Type)
	printSystemMessage(opts.Out, "Waiting for changes...")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case group := <-dirty:
			if group == arbor.RootBranch {
				printSystemMessage(opts.Out, "Change detected.")
			} else {
				printSystemMessage(opts.Out, "Change detected in '%s'.", group)
			}
			if err := printSnapshot(ctx, t, printer, opts); err != nil {
				if isInterrupted(err) {
					return err
				}
				logger.Error("Failed to print tree", "err", err)
			}
			printSystemMessage(opts.Out, "Waiting for changes...")
		}
	}
}

func printSnapshot(ctx context.Context, t *arbor.Tree, printer *tui.Printer, opts TreeOptions) error {
	branches, err := snapshot(ctx, t)
	if err != nil {
		return err
	}
	return render(opts.Out, printer, opts.Format, branches)
}
