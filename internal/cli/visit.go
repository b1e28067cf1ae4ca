package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/assimelha/surf/internal/browser"
	"github.com/assimelha/surf/pkg/stealth"
)

type visitOptions struct {
	session    string
	screenshot string
	headful    bool
	noStealth  bool
}

func newVisitCmd(a *app) *cobra.Command {
	var opts visitOptions
	cmd := &cobra.Command{
		Use:   "visit <url>",
		Short: "Open a URL with stealth applied and print it as text",
		Long: `Open a URL and print the page as text, or as HTML with --raw.

Stealth evasions are registered on the tab before navigation. Without
--session or --remote a fresh browser is started and stopped afterwards.`,
		Example: `  surf visit example.com
  surf visit -s work https://example.com/account
  surf visit example.com --languages fr-FR,fr --vendor "Apple Computer, Inc."
  surf visit --remote http://127.0.0.1:9222 example.com --screenshot page.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("headful") {
				a.cfg.Browser.Headless = !opts.headful
			}
			if opts.noStealth {
				a.cfg.Stealth.Enabled = false
			}
			out, err := a.visit(cmd.Context(), browser.EnsureProtocol(args[0]), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.session, "session", "s", "", "named persistent session to use, started on first use")
	f.String("remote", "", "attach to a running browser (ws:// debugger URL or http://host:port)")
	f.String("profile", "default", "browser profile directory name")
	f.BoolVar(&opts.headful, "headful", false, "show the browser window")
	f.String("window-size", "", "browser window size, WxH")
	f.Duration("timeout", 60*time.Second, "overall time limit")
	f.StringVar(&opts.screenshot, "screenshot", "", "save a full-page PNG screenshot to this path")
	f.Bool("raw", false, "print raw HTML instead of text")
	f.Int("truncate-after", 100000, "truncate text output after this many characters (0 disables)")
	f.BoolVar(&opts.noStealth, "no-stealth", false, "skip stealth activation")
	f.Bool("fit-viewport", true, "resize the viewport to the page before a screenshot")
	addStealthFlags(f)
	return cmd
}

func (a *app) visit(ctx context.Context, url string, opts visitOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Browser.Timeout)
	defer cancel()

	ep, err := a.endpoint(ctx, opts.session)
	if err != nil {
		return "", err
	}
	defer ep.release()

	b, err := browser.Open(ctx, ep.engine, ep.wsURL, ep.targetID)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := b.Close(ep.keep); err != nil {
			a.logger.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	if ep.save != nil {
		if err := ep.save(b.TargetID()); err != nil {
			return "", fmt.Errorf("failed to save session: %w", err)
		}
	}

	if a.cfg.Stealth.Enabled {
		activator := stealth.New(
			stealth.WithTemplates(a.cfg.Stealth.Templates()),
			stealth.WithLogger(a.logger),
		)
		if err := activator.Activate(ctx, b.Session(), a.cfg.Stealth.Request()); err != nil {
			return "", fmt.Errorf("stealth activation: %w", err)
		}
	}

	a.logger.Info("Navigating", zap.String("url", url), zap.String("engine", ep.engine))
	if err := b.Navigate(ctx, url); err != nil {
		return "", err
	}

	if opts.screenshot != "" {
		if err := a.screenshot(ctx, b, opts.screenshot); err != nil {
			return "", err
		}
	}

	html, err := b.HTML(ctx)
	if err != nil {
		return "", err
	}
	if a.cfg.Output.Raw {
		return html, nil
	}
	return browser.PageText(url, html, a.cfg.Output.TruncateAfter)
}

func (a *app) screenshot(ctx context.Context, b browser.Browser, path string) error {
	if a.cfg.Stealth.FitViewport {
		if err := stealth.FitViewport(ctx, b.Session()); err != nil {
			a.logger.Warn("Could not fit viewport to page", zap.Error(err))
		}
	}
	buf, err := b.Screenshot(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("error saving screenshot: %w", err)
	}
	a.logger.Info("Screenshot saved", zap.String("path", path), zap.Int("bytes", len(buf)))
	return nil
}

// endpoint is a browser to attach to, and what to do with it afterwards.
type endpoint struct {
	engine   string
	wsURL    string
	targetID string
	// keep leaves the tab open on exit.
	keep bool
	// save records the tab surf attached to, for persistent sessions.
	save    func(targetID string) error
	release func()
}

func (a *app) endpoint(ctx context.Context, session string) (*endpoint, error) {
	engine := a.cfg.Browser.Engine

	if remote := a.cfg.Browser.RemoteURL; remote != "" {
		wsURL, err := a.resolveRemote(ctx, remote)
		if err != nil {
			return nil, err
		}
		return &endpoint{engine: engine, wsURL: wsURL, keep: true, release: func() {}}, nil
	}

	if session != "" {
		store := browser.NewStore(a.cfg.Browser.Home)
		info, err := store.Load(session)
		switch {
		case errors.Is(err, browser.ErrSessionNotFound):
			a.logger.Info("Starting new session", zap.String("session", session))
			if info, err = a.startSession(ctx, store, session); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		default:
			a.logger.Info("Connecting to session", zap.String("session", session), zap.Int("pid", info.PID))
		}

		return &endpoint{
			engine:   engine,
			wsURL:    info.WSURL,
			targetID: info.TargetID,
			keep:     true,
			save: func(targetID string) error {
				if info.TargetID == targetID && info.Engine == engine {
					return nil
				}
				info.TargetID = targetID
				info.Engine = engine
				return store.Save(session, *info)
			},
			release: func() {},
		}, nil
	}

	proc, err := browser.Launch(ctx, a.launchOptions())
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Started browser", zap.Int("pid", proc.PID), zap.Int("port", proc.Port))
	return &endpoint{
		engine: engine,
		wsURL:  proc.WSURL,
		release: func() {
			if err := browser.Stop(proc.PID); err != nil {
				a.logger.Warn("Failed to stop browser", zap.Int("pid", proc.PID), zap.Error(err))
			}
		},
	}, nil
}

// resolveRemote accepts a debugger websocket URL as is, and asks an http
// DevTools address for one.
func (a *app) resolveRemote(ctx context.Context, remote string) (string, error) {
	if strings.HasPrefix(remote, "ws://") || strings.HasPrefix(remote, "wss://") {
		return remote, nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Browser.StartupTimeout)
	defer cancel()
	wsURL, err := browser.WaitForEndpoint(ctx, strings.TrimSuffix(browser.EnsureProtocol(remote), "/"))
	if err != nil {
		return "", fmt.Errorf("remote browser: %w", err)
	}
	return wsURL, nil
}

func (a *app) launchOptions() browser.LaunchOptions {
	return browser.LaunchOptions{
		ExecPath:       a.cfg.Browser.ExecPath,
		Home:           a.cfg.Browser.Home,
		Profile:        a.cfg.Browser.Profile,
		Headful:        !a.cfg.Browser.Headless,
		WindowSize:     a.cfg.Browser.WindowSize,
		StartupTimeout: a.cfg.Browser.StartupTimeout,
	}
}
