// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/tidedesk/internal/backoffice"
	"github.com/jeranaias/tidedesk/internal/config"
	"github.com/jeranaias/tidedesk/internal/ui/screens"
	"github.com/jeranaias/tidedesk/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// LogFileName is written inside the data directory.
const LogFileName = "tidedesk.log"

// ErrNoTerminal is returned when the UI is started without a terminal.
var ErrNoTerminal = errors.New("tidedesk needs an interactive terminal; use a subcommand for scripted use")

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	dataDir    string
	jsonOut    bool
	debug      bool
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "tidedesk",
		Short: "Seafood back-office in the terminal",
		Long: `tidedesk keeps stock, sales and purchases for a seafood shop in a local
database and shows them as a dashboard and reports.

Examples:
  tidedesk                               # Start the back-office UI
  tidedesk report monthly                # Monthly sales as a bar chart
  tidedesk report category --json        # Category split as JSON
  tidedesk user add owner@example.com    # Create an account
  tidedesk import seed.json              # Load products and transactions
  tidedesk telemetry export              # Archive a diagnostics snapshot`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			lipgloss.SetColorProfile(GetColorProfile())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runTUI(cmd)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("tidedesk %s (%s, built %s, %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH))

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "config file (default $TIDEDESK_HOME/config.toml)")
	pf.StringVar(&o.dataDir, "data-dir", "", "override storage.data_dir")
	pf.BoolVar(&o.jsonOut, "json", false, "print results as JSON")
	pf.BoolVar(&o.debug, "debug", false, "log to stderr instead of "+LogFileName)

	root.AddCommand(
		newReportCommand(o),
		newTelemetryCommand(o),
		newUserCommand(o),
		newImportCommand(o),
		newConfigCommand(o),
	)
	return root
}

// Execute runs the command line and reports a failure on stderr.
func Execute() error {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
	}
	return err
}

// =============================================================================
// APP LIFECYCLE
// =============================================================================

func (o *options) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.Storage.DataDir = o.dataDir
	}
	return cfg, nil
}

// session is an opened app plus the log file it writes to.
type session struct {
	*backoffice.App
	logFile io.Closer
}

// Close releases the app and restores the standard logger.
func (s *session) Close() error {
	err := s.App.Close()
	if s.logFile != nil {
		log.SetOutput(os.Stderr)
		err = errors.Join(err, s.logFile.Close())
	}
	return err
}

// open loads the config, routes the log and builds the app.
func (o *options) open() (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	s := &session{}
	if !o.debug {
		if err := os.MkdirAll(cfg.Storage.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(cfg.Storage.DataDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		log.SetOutput(f)
		s.logFile = f
	}

	app, err := backoffice.New(cfg, backoffice.WithVersion(Version))
	if err != nil {
		if s.logFile != nil {
			log.SetOutput(os.Stderr)
			s.logFile.Close()
		}
		return nil, err
	}
	s.App = app
	return s, nil
}

// =============================================================================
// TUI
// =============================================================================

func (o *options) runTUI(cmd *cobra.Command) error {
	if !IsTTY() || !IsStdoutTTY() {
		return ErrNoTerminal
	}

	s, err := o.open()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	s.Start(ctx)

	theme := styles.NewTheme(s.Config.UI.Theme)
	p := tea.NewProgram(
		screens.New(ctx, s.App, theme),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
