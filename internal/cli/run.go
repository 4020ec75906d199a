// Package cli implements the songlib command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"songlib/internal/cache"
	"songlib/internal/config"
	"songlib/internal/container"
	"songlib/internal/fs"
	"songlib/internal/logging"
	"songlib/internal/scan"
)

const (
	minArgs      = 2
	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
	helpFlag     = "--help"
)

// app bundles the resolved configuration with the wired services every
// command needs.
type app struct {
	cfg  config.Config
	fsys fs.FS
	log  *zap.Logger
	in   io.Reader
}

func (a *app) cacheStore() *cache.Store {
	return cache.NewStore(a.fsys, a.cfg.CacheDirAbs)
}

func (a *app) newCoordinator() *scan.Coordinator {
	return scan.NewCoordinator(a.fsys, a.cacheStore(), container.NewFileReader(a.fsys), a.log)
}

// Run is the main entry point. Returns exit code. A signal on sigCh
// cancels the command context; commands abort cooperatively.
func Run(in io.Reader, out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	o := NewIO(out, errOut)

	if len(args) < minArgs {
		printUsage(o)

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	if len(flags.remaining) == 0 || flags.remaining[0] == "-h" || flags.remaining[0] == helpFlag {
		printUsage(o)

		return 0
	}

	cmdName := flags.remaining[0]
	cmdArgs := flags.remaining[1:]

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride:  flags.workDir,
		ConfigPath:       flags.configPath,
		RootsOverride:    flags.roots,
		CacheDirOverride: flags.cacheDir,
		Env:              env,
	})
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	// Interactive and listing commands keep stdout clean; their log lines
	// go to the file sink only.
	quiet := cmdName != "scan" && cmdName != "watch"

	log, err := logging.New(logging.Options{
		Level:    cfg.LogLevel,
		FilePath: cfg.LogFile,
		Quiet:    quiet,
	})
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}
	defer func() { _ = log.Sync() }()

	a := &app{cfg: cfg, fsys: fs.NewReal(), log: log, in: in}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for _, cmd := range commands(a) {
		if cmd.Name() == cmdName {
			return cmd.Run(ctx, o, cmdArgs)
		}
	}

	o.ErrPrintln("error: unknown command:", cmdName)
	printUsage(o)

	return 1
}

func commands(a *app) []*Command {
	return []*Command{
		scanCmd(a),
		lsCmd(a),
		browseCmd(a),
		watchCmd(a),
		printConfigCmd(a),
	}
}

func printUsage(o *IO) {
	o.Println("Usage: songlib [global flags] <command> [flags]")
	o.Println()
	o.Println("Scan song libraries into a queryable, cached catalog.")
	o.Println()
	o.Println("Commands:")

	for _, cmd := range commands(&app{}) {
		o.Println(cmd.HelpLine())
	}

	o.Println()
	o.Println("Global flags:")
	o.Println("  -C, --cwd <dir>        Run as if started in <dir>")
	o.Println("  -c, --config <file>    Explicit config file (JSONC)")
	o.Println("      --root <dir>       Library root (repeatable, overrides config)")
	o.Println("      --cache-dir <dir>  Cache directory")
	o.Println("      --log-level <lvl>  debug, info, warn, or error")
}

type globalFlags struct {
	workDir    string
	configPath string
	roots      []string
	cacheDir   string
	logLevel   string
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	valueFlags := []struct {
		short, long string
		set         func(string)
	}{
		{"-C", "--cwd", func(v string) { flags.workDir = v }},
		{"-c", "--config", func(v string) { flags.configPath = v }},
		{"", "--root", func(v string) { flags.roots = append(flags.roots, v) }},
		{"", "--cache-dir", func(v string) { flags.cacheDir = v }},
		{"", "--log-level", func(v string) { flags.logLevel = v }},
	}

	for _, vf := range valueFlags {
		if arg == vf.long || (vf.short != "" && arg == vf.short) {
			if idx+1 >= len(args) {
				return consumedNone, fmt.Errorf("flag requires an argument: %s", arg)
			}

			vf.set(args[idx+1])

			return consumedTwo, nil
		}

		if after, ok := strings.CutPrefix(arg, vf.long+"="); ok {
			vf.set(after)

			return consumedOne, nil
		}
	}

	if arg == "-h" || arg == helpFlag {
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	}

	if strings.HasPrefix(arg, "-") && arg != "-" {
		return consumedNone, fmt.Errorf("unknown flag: %s", arg)
	}

	// Not a flag
	return consumedNone, nil
}
