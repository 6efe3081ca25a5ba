package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"calendly-mcp/internal/audit"
	"calendly-mcp/internal/calendly"
	"calendly-mcp/internal/config"
	"calendly-mcp/internal/dispatch"
	"calendly-mcp/internal/logging"
	"calendly-mcp/internal/mcp"
	"calendly-mcp/internal/metrics"
	"calendly-mcp/internal/openapi"
	"calendly-mcp/internal/ratelimit"
	"calendly-mcp/internal/redact"
	"calendly-mcp/internal/tools"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	transport := flag.String("transport", "", "Transport: stdio or http")
	listen := flag.String("listen", "", "HTTP listen address")
	envFile := flag.String("env-file", "", "Optional env file to load before startup")
	logFormat := flag.String("log-format", "", "Log output format: text, json")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("calendly-mcp %s\n", Version)
		return
	}

	if *envFile != "" {
		if err := config.LoadEnvFile(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "env file: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		os.Exit(1)
	}
	override(&cfg.Transport, *transport)
	override(&cfg.Listen, *listen)
	override(&cfg.LogFormat, *logFormat)
	override(&cfg.LogLevel, *logLevel)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	redactor := redact.NewRedactor(cfg.Secrets()...)
	limiter := ratelimit.New(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.RequestsPerHour)

	client, err := calendly.NewClient(calendly.Options{
		BaseURL:  cfg.BaseURL,
		Token:    cfg.APIKey,
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		Logger:   logger,
		Redactor: redactor,
		Limiter:  limiter,
	})
	if err != nil {
		return fmt.Errorf("calendly client: %w", err)
	}

	registry, err := tools.Default()
	if err != nil {
		return fmt.Errorf("tool registry: %w", err)
	}
	if cfg.Filter != nil {
		registry = registry.Filter(cfg.Filter.Allows)
	}
	logger.Info("registry ready", "tools", registry.Len())

	collector := metrics.NewCollector()
	collector.TrackLimiter(limiter)
	opts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithRedactor(redactor),
		dispatch.WithRecorder(collector),
	}
	var auditLog *audit.Logger
	if cfg.Audit.Path != "" {
		auditLog, err = audit.NewLogger(cfg.Audit.Path, redactor, logger)
		if err != nil {
			return fmt.Errorf("audit log: %w", err)
		}
		// Deferred closes run after g.Wait, once the transport has drained,
		// so no invocation can record after this.
		defer func() {
			if cerr := auditLog.Close(); cerr != nil {
				logger.Error("audit log close failed", "error", cerr)
			}
		}()
		opts = append(opts, dispatch.WithRecorder(auditLog))
		logger.Info("audit log enabled", "path", cfg.Audit.Path)
	}
	dispatcher := dispatch.New(registry, client, opts...)
	server := mcp.NewServer(mcp.NewRegistry(registry), dispatcher, logger, Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	switch cfg.Transport {
	case config.TransportStdio:
		if term.IsTerminal(int(os.Stdin.Fd())) {
			logger.Warn("stdio transport attached to a terminal; expecting JSON-RPC lines on stdin")
		}
		g.Go(func() error {
			defer stop()
			return server.Serve(ctx, os.Stdin, os.Stdout)
		})
	case config.TransportHTTP:
		doc, err := openapi.Build(ctx, registry, Version)
		if err != nil {
			return err
		}
		if cfg.Auth == nil {
			logger.Warn("http transport has no inbound auth configured")
		}
		httpOpts := []mcp.HTTPOption{mcp.WithOpenAPI(doc), mcp.WithMetrics(collector)}
		if auditLog != nil {
			httpOpts = append(httpOpts, mcp.WithAudit(auditLog))
		}
		httpServer := mcp.NewHTTPServer(server, logger, cfg.Auth, httpOpts...)
		g.Go(func() error {
			defer stop()
			return httpServer.Serve(ctx, cfg.Listen)
		})
	default:
		return fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("transport stopped")
	return err
}
