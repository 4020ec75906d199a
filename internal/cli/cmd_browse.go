package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"songlib/internal/song"
)

func browseCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("browse", flag.ContinueOnError),
		Usage: "browse",
		Short: "Interactively query the cached catalog",
		Long: "Open a prompt over the cached catalog. Commands: find <text>,\n" +
			"parts <names>, info <short-name>, help, quit.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			entries, err := loadCatalog(a, o)
			if err != nil {
				return err
			}

			repl := &browseREPL{entries: entries}

			return repl.run(o)
		},
	}
}

// loadCatalog reads every root's cache into one list. Unreadable roots are
// warnings; browsing a partial catalog beats refusing to start.
func loadCatalog(a *app, o *IO) ([]song.Entry, error) {
	if len(a.cfg.Roots) == 0 {
		return nil, ErrNoRootsConfigured
	}

	store := a.cacheStore()

	var entries []song.Entry

	for _, root := range a.cfg.Roots {
		rootEntries, _, err := store.Read(root)
		if err != nil {
			o.Warn("skipping %s: %v", root, err)

			continue
		}

		entries = append(entries, rootEntries...)
	}

	return entries, nil
}

type browseREPL struct {
	entries []song.Entry
	liner   *liner.State
}

// historyFile returns the path to the prompt history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".songlib_history")
}

func (r *browseREPL) run(o *IO) error {
	r.liner = liner.NewLiner()
	defer func() { _ = r.liner.Close() }()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	o.Printf("songlib catalog: %d songs loaded. Type 'help' for commands.\n", len(r.entries))

	for {
		line, err := r.liner.Prompt("songlib> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				o.Println()

				break
			}

			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		if !r.dispatch(o, line) {
			break
		}
	}

	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = r.liner.WriteHistory(f)
			_ = f.Close()
		}
	}

	return nil
}

// dispatch handles one REPL line. Returns false to exit the loop.
func (r *browseREPL) dispatch(o *IO, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "quit", "exit":
		return false

	case "help":
		o.Println("  find <text>        songs whose name or artist contains <text>")
		o.Println("  parts <names>      songs carrying every named part (comma-separated)")
		o.Println("  info <short-name>  full details for one song")
		o.Println("  quit               leave the prompt")

	case "find":
		r.find(o, rest)

	case "parts":
		wantParts, err := parsePartsFilter(rest)
		if err != nil || wantParts == 0 {
			o.Println("usage: parts guitar,drums,...")

			break
		}

		count := 0

		for _, entry := range r.entries {
			if entry.Parts&wantParts == wantParts {
				printEntry(o, entry)
				count++
			}
		}

		o.Printf("%d songs\n", count)

	case "info":
		r.info(o, rest)

	default:
		o.Println("unknown command; type 'help'")
	}

	return true
}

func (r *browseREPL) find(o *IO, text string) {
	needle := strings.ToLower(text)
	count := 0

	for _, entry := range r.entries {
		if strings.Contains(strings.ToLower(entry.Name), needle) ||
			strings.Contains(strings.ToLower(entry.Artist), needle) {
			printEntry(o, entry)
			count++
		}
	}

	o.Printf("%d songs\n", count)
}

func (r *browseREPL) info(o *IO, shortName string) {
	for _, entry := range r.entries {
		if entry.ShortName != shortName {
			continue
		}

		o.Printf("name:     %s\n", entry.Name)
		o.Printf("artist:   %s\n", entry.Artist)
		o.Printf("album:    %s\n", entry.Album)
		o.Printf("charter:  %s\n", entry.Charter)
		o.Printf("year:     %d\n", entry.Year)
		o.Printf("kind:     %s\n", entry.Kind)
		o.Printf("parts:    %s\n", entry.Parts)
		o.Printf("notation: %s\n", entry.NotationPath)
		o.Printf("checksum: %s\n", hex.EncodeToString(entry.Checksum[:]))

		if len(entry.Upgrades) > 0 {
			o.Printf("upgrades: %s\n", strings.Join(entry.Upgrades, ", "))
		}

		return
	}

	o.Println("no song with short name", shortName)
}

// completer offers command names and, for info, known short names.
func (r *browseREPL) completer(line string) []string {
	if after, ok := strings.CutPrefix(line, "info "); ok {
		var matches []string

		for _, entry := range r.entries {
			if strings.HasPrefix(entry.ShortName, after) {
				matches = append(matches, "info "+entry.ShortName)
			}
		}

		return matches
	}

	var matches []string

	for _, cmd := range []string{"find ", "parts ", "info ", "help", "quit"} {
		if strings.HasPrefix(cmd, line) {
			matches = append(matches, cmd)
		}
	}

	return matches
}
