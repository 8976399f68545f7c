package main

import (
	"context"
	"flag"
	"fmt"
	"g4build/internal/core/app"
	"g4build/internal/core/config"
	"g4build/internal/shared/observability"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

var (
	configPath = flag.String("config", "./"+config.DefaultFileName, "Path to config file")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("g4build v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, cfgFile, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to read working directory", "error", err)
		os.Exit(1)
	}
	if cfgFile != "" {
		cwd = filepath.Dir(cfgFile)
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		slog.Error("failed to resolve paths", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	opts := []app.Option{}
	if cfgFile != "" {
		opts = append(opts, app.WithConfigPath(cfgFile))
	}
	svc, err := app.New(cfg, paths, opts...)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}

	code := 0
	if err := runCommand(ctx, svc, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		slog.Error(flag.Arg(0)+" failed", "error", err)
		code = 1
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Close(closeCtx); err != nil {
		slog.Warn("failed to close app", "error", err)
	}
	if err := shutdownTracing(closeCtx); err != nil {
		slog.Warn("failed to flush traces", "error", err)
	}
	os.Exit(code)
}

// loadConfig reads path. A missing default config file falls back to the
// built-in defaults; the returned file name is empty in that case.
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err == nil {
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			abs = path
		}
		return cfg, abs, nil
	}
	if os.IsNotExist(err) && path == "./"+config.DefaultFileName {
		cfg, err = config.Parse("")
		return cfg, "", err
	}
	return nil, "", err
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: g4build [flags] <command> [args]\n\n")
	fmt.Fprintf(out, "commands:\n")
	fmt.Fprintf(out, "  check                 report whether antlr is installed\n")
	fmt.Fprintf(out, "  deps <file.g4>...     list imported grammars\n")
	fmt.Fprintf(out, "  targets <file.g4>...  list generated files and commands\n")
	fmt.Fprintf(out, "  build [file.g4]...    generate code (all grammars by default)\n")
	fmt.Fprintf(out, "  watch                 rebuild grammars as they change\n")
	fmt.Fprintf(out, "  history [-since d] [-limit n]\n")
	fmt.Fprintf(out, "                        show recorded builds\n\n")
	fmt.Fprintf(out, "flags:\n")
	flag.PrintDefaults()
}
