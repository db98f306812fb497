package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/adminperf/internal/app"
	"github.com/dshills/adminperf/internal/config"
	"github.com/dshills/adminperf/internal/config/loader"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "adminperf",
		Short: "Admin page server and interaction performance console",
		Long: `adminperf serves an administrative page with its static assets and
diagnostic endpoints, and can host the page in a terminal to exercise lazy
loading, responsive layout, touch feedback and keyboard shortcuts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a TOML or YAML configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")

	root.AddCommand(
		newServeCmd(flags),
		newConsoleCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(),
	)
	return root
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin page, static files and diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(app.Options{ConfigPath: flags.configPath, LogLevel: flags.logLevel})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.Serve(ctx)
		},
	}
}

func newConsoleCmd(flags *rootFlags) *cobra.Command {
	var page string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Host the admin page in the terminal",
		Long: `Draws the admin page as an outline. Arrow keys, PgUp/PgDn and the
mouse wheel scroll; clicking a row taps it; Ctrl+S, Ctrl+P and Escape reach
the page shortcuts. Ctrl+Q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(app.Options{
				ConfigPath: flags.configPath,
				LogLevel:   flags.logLevel,
				Console:    true,
				Page:       page,
			})
			if err != nil {
				return err
			}
			defer a.Close()

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("creating screen: %w", err)
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.Console(ctx, screen)
		},
	}
	cmd.Flags().StringVar(&page, "page", "", "HTML file to host instead of the configured page")
	return cmd
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if flags.logLevel != "" {
				cfg.Log.Level = flags.logLevel
			}
			out, err := cfg.Marshal(loader.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	show.Flags().StringVarP(&format, "format", "f", string(loader.FormatTOML), "Output format (toml or yaml)")
	cmd.AddCommand(show)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "adminperf %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}
