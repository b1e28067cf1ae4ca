package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/assimelha/surf/internal/browser"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage persistent browser sessions",
	}
	cmd.AddCommand(newSessionStartCmd(a), newSessionStopCmd(a), newSessionListCmd(a))
	return cmd
}

func newSessionStartCmd(a *app) *cobra.Command {
	var headful bool
	cmd := &cobra.Command{
		Use:   "start [name]",
		Short: "Start a browser that stays running between visits",
		Long: `Start a detached browser and remember it under a name. Without a name
a short random one is generated and printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("headful") {
				a.cfg.Browser.Headless = !headful
			}
			name := uuid.NewString()[:8]
			if len(args) == 1 {
				name = args[0]
			}

			store := browser.NewStore(a.cfg.Browser.Home)
			if _, err := store.Load(name); err == nil {
				return fmt.Errorf("session '%s' already exists", name)
			} else if !errors.Is(err, browser.ErrSessionNotFound) {
				return err
			}

			info, err := a.startSession(cmd.Context(), store, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session '%s' started (pid %d)\n", name, info.PID)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("profile", "default", "browser profile directory name")
	f.BoolVar(&headful, "headful", false, "show the browser window")
	f.String("window-size", "", "browser window size, WxH")
	return cmd
}

func newSessionStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "stop <name>",
		Aliases: []string{"rm"},
		Short:   "Stop a session's browser and forget it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			store := browser.NewStore(a.cfg.Browser.Home)
			info, err := store.Load(name)
			if errors.Is(err, browser.ErrSessionNotFound) {
				return fmt.Errorf("session '%s' not found", name)
			}
			if err != nil {
				return fmt.Errorf("failed to load session '%s': %w", name, err)
			}
			if err := browser.Stop(info.PID); err != nil {
				a.logger.Warn("Failed to stop browser", zap.Int("pid", info.PID), zap.Error(err))
			}
			if err := store.Remove(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session '%s' stopped\n", name)
			return nil
		},
	}
}

func newSessionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := browser.NewStore(a.cfg.Browser.Home)
			names, err := store.List()
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions. Run 'surf session start' to create one.")
				return nil
			}
			return writeSessions(cmd.OutOrStdout(), store, names)
		},
	}
}

func writeSessions(w io.Writer, store *browser.Store, names []string) error {
	table := newTable(w, "NAME", "PID", "ENGINE", "PROFILE", "HEADFUL", "TARGET")
	for _, name := range names {
		info, err := store.Load(name)
		if err != nil {
			return err
		}
		engine := info.Engine
		if engine == "" {
			engine = browser.EngineChromedp
		}
		table.Append([]string{
			name,
			strconv.Itoa(info.PID),
			engine,
			info.Profile,
			strconv.FormatBool(info.Headful),
			info.TargetID,
		})
	}
	table.Render()
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// startSession launches a detached browser and records it under name.
func (a *app) startSession(ctx context.Context, store *browser.Store, name string) (*browser.SessionInfo, error) {
	proc, err := browser.Launch(ctx, a.launchOptions())
	if err != nil {
		return nil, err
	}
	info := &browser.SessionInfo{
		WSURL:   proc.WSURL,
		Profile: a.cfg.Browser.Profile,
		Headful: !a.cfg.Browser.Headless,
		PID:     proc.PID,
		Engine:  a.cfg.Browser.Engine,
	}
	if err := store.Save(name, *info); err != nil {
		_ = browser.Stop(proc.PID)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return info, nil
}
