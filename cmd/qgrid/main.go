package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kobzarvs/qgrid/internal/app"
	"github.com/kobzarvs/qgrid/internal/config"
	"github.com/kobzarvs/qgrid/internal/logger"
)

var (
	debug   bool
	logPath string

	remoteURL string
	execCmd   string
	readOnly  bool

	addr  string
	stdio bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "qgrid",
		Short:         "Edit a table in the terminal, kept in sync with a data model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log at debug level")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Log file (default: qgrid.log in the config directory)")

	viewCmd := &cobra.Command{
		Use:   "view [dataset]",
		Short: "Open a grid on a dataset or a remote model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runView,
	}
	viewCmd.Flags().StringVar(&remoteURL, "remote", "", "Model server websocket URL (ws://host:port)")
	viewCmd.Flags().StringVar(&execCmd, "exec", "", "Model command speaking framed JSON on stdin/stdout")
	viewCmd.Flags().BoolVar(&readOnly, "readonly", false, "Open the grid without editors")

	serveCmd := &cobra.Command{
		Use:   "serve dataset",
		Short: "Serve a dataset to grids",
		Long: `serve loads a dataset and shares it with every connected grid.
Commands read from stdin: add, remove, print, clients, help.`,
		Args: cobra.ExactArgs(1),
		RunE: runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: [remote] addr from config.toml)")
	serveCmd.Flags().BoolVar(&stdio, "stdio", false, "Serve one grid over stdin/stdout instead of websocket")
	serveCmd.Flags().BoolVar(&readOnly, "readonly", false, "Tell grids not to attach editors")

	rootCmd.AddCommand(viewCmd, serveCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "qgrid:", err)
		os.Exit(1)
	}
}

func runView(cmd *cobra.Command, args []string) error {
	if err := logger.Init(logger.Options{Debug: debug, Path: logPath}); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	opts := app.ViewOptions{Remote: remoteURL, Exec: execCmd, ReadOnly: readOnly}
	if len(args) > 0 {
		opts.Dataset = args[0]
	}
	return app.View(cmd.Context(), cfg, opts)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logger.Init(logger.Options{Debug: debug, Path: logPath, Stderr: true}); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if addr == "" {
		addr = cfg.Remote.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Serve(ctx, app.ServeOptions{
		Dataset:  args[0],
		Addr:     addr,
		Stdio:    stdio,
		ReadOnly: readOnly || !cfg.Grid.IsEditable(),
	})
}
