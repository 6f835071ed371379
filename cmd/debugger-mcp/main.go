package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/promslog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vajrock/debugger-mcp/internal/config"
	"github.com/vajrock/debugger-mcp/internal/dapbackend"
	"github.com/vajrock/debugger-mcp/internal/debugger"
	"github.com/vajrock/debugger-mcp/internal/metrics"
	"github.com/vajrock/debugger-mcp/internal/protocol"
	"github.com/vajrock/debugger-mcp/internal/server"
	"github.com/vajrock/debugger-mcp/internal/tools"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const instructions = "Debugger tools for Go programs. Start a session with start_debug_session, " +
	"set breakpoints with set_breakpoint, then inspect with get_stack_trace, get_variables and evaluate."

var (
	configPath string
	logLevel   string
	logFormat  string
	listen     string
	sourceRoot string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "debugger-mcp",
		Short:         "MCP server exposing a Go debugger to AI assistants",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "logfmt", "log format: logfmt or json")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over HTTP and SSE",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	serveCmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides server.listen")
	serveCmd.Flags().StringVar(&sourceRoot, "source-root", "", "directory relative breakpoint paths resolve against (default: working directory)")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalogue as markdown",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), toolsMarkdown(tools.Builtins(&tools.Deps{})))
			return err
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(serveCmd, toolsCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func serve(ctx context.Context) error {
	logger, err := configureLogging(logLevel, logFormat)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	root := sourceRoot
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	backend := dapbackend.New(cfg, logger)
	exec := debugger.NewExecutor()
	defer exec.Close()
	backend.UseExecutor(exec)

	registry := tools.NewRegistry()
	registry.RegisterBuiltins(&tools.Deps{
		Sessions:    backend,
		Runs:        backend,
		Configs:     backend,
		Breakpoints: backend,
		Files:       dapbackend.Files{Root: root},
		Executor:    exec,
		Timeouts: tools.Timeouts{
			Frames:    cfg.Timeouts.Frames,
			Variables: cfg.Timeouts.Variables,
			Evaluate:  cfg.Timeouts.Evaluate,
			Executor:  cfg.Timeouts.Executor,
			Launch:    cfg.Timeouts.Launch,
		},
		Metrics: m,
		Logger:  logger,
	})

	dispatcher := server.NewDispatcher(registry, server.DispatcherOptions{
		Identity: protocol.ServerIdentity{
			Name:         "debugger-mcp",
			Version:      version,
			Instructions: instructions,
		},
		ProtocolVersion: cfg.Server.ProtocolVersion,
		ListChanged:     cfg.Server.NotifyToolChanges,
		Metrics:         m,
		Logger:          logger,
	})
	srv := server.New(server.Options{
		Config:     cfg.Server,
		Dispatcher: dispatcher,
		Registry:   registry,
		Gatherer:   promReg,
		Logger:     logger,
	})

	logger.Info("starting debugger-mcp",
		"version", version,
		"tools", registry.Count(),
		"configurations", len(cfg.RunConfigurations),
		"source_root", root)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			logger.Warn("debugger shutdown incomplete", "err", err)
		}
		return nil
	})
	return g.Wait()
}

// configureLogging sets up the slog logger with the specified level and format.
func configureLogging(levelStr, formatStr string) (*slog.Logger, error) {
	level := promslog.NewLevel()
	if err := level.Set(levelStr); err != nil {
		return nil, err
	}

	format := promslog.NewFormat()
	if err := format.Set(formatStr); err != nil {
		return nil, err
	}

	logger := promslog.New(&promslog.Config{
		Level:  level,
		Format: format,
		Style:  promslog.GoKitStyle,
	})
	slog.SetDefault(logger)
	return logger, nil
}
