package cli

import (
	"context"
	"time"

	flag "github.com/spf13/pflag"

	"songlib/internal/scan"
	"songlib/internal/watch"
)

func watchCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("watch", flag.ContinueOnError),
		Usage: "watch",
		Short: "Rescan automatically when library roots change",
		Long: "Run an initial full scan, then watch every root for filesystem changes\n" +
			"and rescan after changes settle. Stops on interrupt.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			c, err := buildCoordinator(a)
			if err != nil {
				return err
			}

			if err := c.Start(scan.ModeFull); err != nil {
				return err
			}

			c.Wait()
			reportScan(o, c)

			rescan := func() {
				// A change burst during a running scan is folded into the
				// next trigger; overlapping scans are rejected anyway.
				if err := c.Start(scan.ModeFull); err != nil {
					return
				}

				c.Wait()
				reportScan(o, c)
			}

			debounce := time.Duration(a.cfg.DebounceMS) * time.Millisecond

			w, err := watch.New(c.Roots(), debounce, rescan, a.log)
			if err != nil {
				return err
			}

			defer func() { _ = w.Close() }()

			go func() {
				<-ctx.Done()
				c.Abort()
			}()

			w.Run(ctx)

			return nil
		},
	}
}
