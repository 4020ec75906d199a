package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"
)

func printConfigCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			o.Println("effective_cwd=" + a.cfg.EffectiveCwd)
			o.Println("cache_dir=" + a.cfg.CacheDirAbs)
			o.Println("roots=" + strings.Join(a.cfg.Roots, ":"))
			o.Println("log_level=" + a.cfg.LogLevel)

			if a.cfg.LogFile != "" {
				o.Println("log_file=" + a.cfg.LogFile)
			}

			o.Println("")
			o.Println("# sources")

			if a.cfg.Sources.Global == "" && a.cfg.Sources.Project == "" {
				o.Println("(defaults only)")
			} else {
				if a.cfg.Sources.Global != "" {
					o.Println("global_config=" + a.cfg.Sources.Global)
				}

				if a.cfg.Sources.Project != "" {
					o.Println("project_config=" + a.cfg.Sources.Project)
				}
			}

			return nil
		},
	}
}
