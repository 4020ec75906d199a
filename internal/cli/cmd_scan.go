package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	flag "github.com/spf13/pflag"

	"songlib/internal/scan"
)

// ErrNoRootsConfigured means neither the config files nor --root named a
// library root.
var ErrNoRootsConfigured = errors.New("no library roots configured (use --root or set \"roots\" in config)")

func scanCmd(a *app) *Command {
	flags := flag.NewFlagSet("scan", flag.ContinueOnError)
	fast := flags.Bool("fast", false, "load cached results instead of walking the library")

	return &Command{
		Flags: flags,
		Usage: "scan [flags]",
		Short: "Scan all library roots and rebuild the catalog",
		Long: "Walk every configured library root, validate each song candidate, and\n" +
			"write a fresh cache file per root. With --fast, load each root's existing\n" +
			"cache instead; roots without a readable cache come back empty.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			mode := scan.ModeFull
			if *fast {
				mode = scan.ModeFast
			}

			c, err := buildCoordinator(a)
			if err != nil {
				return err
			}

			if err := c.Start(mode); err != nil {
				return err
			}

			// A signal aborts the scan at the next safe point.
			go func() {
				<-ctx.Done()
				c.Abort()
			}()

			c.Wait()

			reportScan(o, c)

			return nil
		},
	}
}

func buildCoordinator(a *app) (*scan.Coordinator, error) {
	if len(a.cfg.Roots) == 0 {
		return nil, ErrNoRootsConfigured
	}

	c := a.newCoordinator()

	for _, root := range a.cfg.Roots {
		if err := c.AddRoot(root); err != nil {
			return nil, fmt.Errorf("registering root %s: %w", root, err)
		}
	}

	return c, nil
}

func reportScan(o *IO, c *scan.Coordinator) {
	snapshot := c.Snapshot()

	roots := make([]string, 0, len(snapshot))
	for root := range snapshot {
		roots = append(roots, root)
	}

	sort.Strings(roots)

	for _, root := range roots {
		state := snapshot[root]

		o.Printf("%s: %d songs, %d containers, %d errors\n",
			root, len(state.Entries), len(state.Containers), len(state.Errs))

		for _, scanErr := range state.Errs {
			o.Printf("  %s\n", scanErr.Error())
		}

		if state.CacheErr != nil {
			o.Warn("cache problem for %s: %v", root, state.CacheErr)
		}
	}

	o.Printf("scanned %d folders, %d songs, %d errors\n",
		c.FoldersScanned(), c.SongsScanned(), c.ErrorsEncountered())
}
