package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"songlib/internal/cache"
	"songlib/internal/notes"
	"songlib/internal/song"
)

func lsCmd(a *app) *Command {
	flags := flag.NewFlagSet("ls", flag.ContinueOnError)
	partsFilter := flags.String("parts", "", "comma-separated part names the song must have (e.g. guitar,drums)")
	artistFilter := flags.String("artist", "", "case-insensitive artist substring")

	return &Command{
		Flags: flags,
		Usage: "ls [flags]",
		Short: "List cached songs across all roots",
		Long: "Read every root's cache file and print its songs. Roots without a cache\n" +
			"are reported as warnings; run scan first to populate them.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			wantParts, err := parsePartsFilter(*partsFilter)
			if err != nil {
				return err
			}

			if len(a.cfg.Roots) == 0 {
				return ErrNoRootsConfigured
			}

			store := a.cacheStore()
			total := 0

			for _, root := range a.cfg.Roots {
				entries, _, err := store.Read(root)
				if err != nil {
					if errors.Is(err, cache.ErrNotFound) {
						o.Warn("no cache for %s (run scan first)", root)
					} else {
						o.Warn("unreadable cache for %s: %v", root, err)
					}

					continue
				}

				for _, entry := range entries {
					if !matchEntry(entry, wantParts, *artistFilter) {
						continue
					}

					printEntry(o, entry)
					total++
				}
			}

			o.Printf("%d songs\n", total)

			return nil
		},
	}
}

func parsePartsFilter(spec string) (notes.Parts, error) {
	var parts notes.Parts

	if spec == "" {
		return 0, nil
	}

	for _, name := range strings.Split(spec, ",") {
		name = strings.ToLower(strings.TrimSpace(name))

		part := notes.PartByName(name)
		if part == 0 {
			return 0, fmt.Errorf("unknown part name: %q", name)
		}

		parts |= part
	}

	return parts, nil
}

// matchEntry applies the filters: the entry must carry every requested
// part and the artist substring when given.
func matchEntry(entry song.Entry, wantParts notes.Parts, artist string) bool {
	if entry.Parts&wantParts != wantParts {
		return false
	}

	if artist != "" && !strings.Contains(strings.ToLower(entry.Artist), strings.ToLower(artist)) {
		return false
	}

	return true
}

func printEntry(o *IO, entry song.Entry) {
	artist := entry.Artist
	if artist == "" {
		artist = "-"
	}

	o.Printf("%-28s %-24s %-10s %s\n", entry.Name, artist, entry.Kind, entry.Parts)
}
