package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/woozymasta/matsys/watch"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <material>...",
		Short: "Precache materials and recompile them when their documents change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			for _, name := range args {
				m := e.sys.FindMaterial(name, "")
				m.IncRef()
				m.Precache()
			}

			w, err := watch.New(e.cfg.Root, &watch.Options{Ext: e.cfg.Extension, Logger: e.logger})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- w.Run(ctx, e.sys.MarkDirty) }()

			return reloadLoop(ctx, cmd, e, interval, errc)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "reload poll interval")

	return cmd
}

// reloadLoop applies marked reloads on the owning goroutine until ctx ends
// or the watcher stops.
func reloadLoop(ctx context.Context, cmd *cobra.Command, e *env, interval time.Duration, errc <-chan error) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case err := <-errc:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-t.C:
			if n := e.sys.ApplyReloads(); n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "reloaded %d materials\n", n)
			}
		case <-ctx.Done():
			// Run returns ctx.Err once it observes the cancellation.
			if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	}
}
