package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/poltergeist/distill/pkg/interfaces"
	"github.com/poltergeist/distill/pkg/logger"
	"github.com/poltergeist/distill/pkg/notifier"
	"github.com/poltergeist/distill/pkg/watch"
	"github.com/spf13/cobra"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	var flags selectionFlags
	var notify bool
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch PATTERN...",
		Short: "Re-distill whenever the source tree changes",
		Long: `Run the selections once, then watch the source root and run them again
after every settled change. The destination roots are cleared before each
run because distillation never overwrites existing files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			n := notifier.New(notifier.Config{Enabled: notify, BeepOnFailure: notify}, c.logger)
			return c.runWatch(ctx, args, flags, settle, n)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&notify, "notify", false, "send desktop notifications for each run")
	cmd.Flags().DurationVar(&settle, "settle", watch.DefaultSettleDelay, "quiet period before a change triggers a run")

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, patterns []string, flags selectionFlags, settle time.Duration, n interfaces.DistillNotifier) error {
	if err := c.settings.Validate(); err != nil {
		return err
	}
	if err := c.settings.CheckDisjointRoots(); err != nil {
		return err
	}

	w, err := watch.New(c.logger, settle, c.settings.DestRoot, c.settings.SymbolsRoot)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.AddTree(c.settings.SourceRoot); err != nil {
		return err
	}

	c.redistill(patterns, flags, n)
	c.printInfo(fmt.Sprintf("Watching %s", c.settings.SourceRoot))

	err = w.Run(ctx, func(changed []string) {
		c.logger.Info("Source changed", logger.WithField("files", len(changed)))
		c.redistill(patterns, flags, n)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// redistill clears the destination roots and runs every selection in a new session.
// Failures are reported, not returned, so the watch keeps going.
func (c *CLI) redistill(patterns []string, flags selectionFlags, n interfaces.DistillNotifier) {
	if err := c.settings.CheckDisjointRoots(); err != nil {
		c.printError(err.Error())
		return
	}

	for _, root := range []string{c.settings.DestRoot, c.settings.SymbolsRoot} {
		if root == "" {
			continue
		}
		if err := c.fs.RemoveAll(root); err != nil {
			c.printError(fmt.Sprintf("failed to clear %s: %v", root, err))
			return
		}
	}

	engine, err := c.newEngine()
	if err != nil {
		c.printError(err.Error())
		return
	}
	session := engine.Context().ID()
	n.NotifyDistillStart(session)

	started := time.Now()
	manifest, err := engine.DistillAll(c.selections(patterns, flags)...)
	if err != nil {
		n.NotifyDistillFailure(session, err)
		c.printError(err.Error())
		return
	}

	duration := time.Since(started)
	n.NotifyDistillSuccess(session, manifest.Len(), duration)
	c.printSuccess(fmt.Sprintf("Distilled %d files in %s", manifest.Len(), duration.Round(time.Millisecond)))
}
