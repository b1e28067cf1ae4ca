package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/assimelha/surf/internal/config"
	"github.com/assimelha/surf/internal/observability"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// app carries the state shared by every subcommand of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// flagKeys maps command-line flags onto configuration keys. A flag only
// overrides the config file and environment when it is set explicitly.
var flagKeys = map[string]string{
	"home":                    "browser.home",
	"engine":                  "browser.engine",
	"log-level":               "logger.level",
	"log-format":              "logger.format",
	"remote":                  "browser.remote_url",
	"profile":                 "browser.profile",
	"window-size":             "browser.window_size",
	"timeout":                 "browser.timeout",
	"raw":                     "output.raw",
	"truncate-after":          "output.truncate_after",
	"fit-viewport":            "stealth.fit_viewport",
	"templates-dir":           "stealth.templates_dir",
	"user-agent":              "stealth.user_agent",
	"languages":               "stealth.languages",
	"vendor":                  "stealth.vendor",
	"platform":                "stealth.platform",
	"webgl-vendor":            "stealth.webgl_vendor",
	"webgl-renderer":          "stealth.webgl_renderer",
	"fix-hairline":            "stealth.fix_hairline",
	"run-on-insecure-origins": "stealth.run_on_insecure_origins",
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "surf",
		Short: "surf - a stealthy headless browser for the terminal",
		Long: `surf opens pages in chromium with bot-detection evasions applied
before the first navigation, and prints them as text.

Quick start:
  surf visit example.com                 # One-shot browser, page as text
  surf visit example.com --screenshot a.png
  surf session start work                # Persistent browser
  surf visit -s work example.com         # Reuse its tab and cookies
  surf session stop work
  surf evasions                          # List the activation sequence`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./surf.yaml or ~/.surf/surf.yaml)")
	pf.String("home", "", "state directory for sessions and profiles (default ~/.surf)")
	pf.String("engine", "chromedp", "automation engine: chromedp, rod or playwright")
	pf.String("log-level", "info", "log level")
	pf.String("log-format", "console", "log format: console or json")

	root.AddCommand(
		newVisitCmd(a),
		newSessionCmd(a),
		newEvasionsCmd(),
		newRenderCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	v := viper.New()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	if err := config.Setup(v, a.cfgFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	observability.InitializeLogger(cfg.Logger)
	a.logger = observability.GetLogger()
	return nil
}

// Execute runs surf with ctx, which main cancels on SIGINT or SIGTERM.
func Execute(ctx context.Context) error {
	defer observability.Sync()
	return newRootCmd().ExecuteContext(ctx)
}
