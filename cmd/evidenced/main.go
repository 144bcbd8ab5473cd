// Evidenced is a tenant-isolated retrieval service with guardrails.
//
// This binary starts the evidenced HTTP server: prompt gating, tenant-bound
// vector retrieval, evidence filtering, synthesis, and output redaction.
//
// Configuration is loaded from an optional YAML file and EVIDENCED_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	evidenced
//
//	# Start with a config file
//	evidenced -config /etc/evidenced/config.yaml
//
//	# Configure via environment
//	EVIDENCED_SERVER_PORT=9090 evidenced
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/evidenced/internal/config"
	"github.com/fyrsmithlabs/evidenced/internal/embeddings"
	"github.com/fyrsmithlabs/evidenced/internal/guard"
	httpserver "github.com/fyrsmithlabs/evidenced/internal/http"
	"github.com/fyrsmithlabs/evidenced/internal/logging"
	"github.com/fyrsmithlabs/evidenced/internal/pipeline"
	"github.com/fyrsmithlabs/evidenced/internal/policy"
	"github.com/fyrsmithlabs/evidenced/internal/redact"
	"github.com/fyrsmithlabs/evidenced/internal/synthesizer"
	"github.com/fyrsmithlabs/evidenced/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("evidenced %s (commit %s, built %s)\n", version, gitCommit, buildDate)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		log.Fatalf("evidenced: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()
	ctx := context.Background()

	logger.Info(ctx, "starting evidenced",
		zap.String("version", version),
		zap.String("retrieval_backend", cfg.Retrieval.Backend),
		zap.String("synthesizer", cfg.Synthesizer.Provider),
	)

	embedder := embeddings.NewHashProvider(cfg.Retrieval.VectorSize)
	defer embedder.Close()

	store, err := vectorstore.NewStore(vectorstore.FactoryConfig{
		Backend: cfg.Retrieval.Backend,
		Chromem: vectorstore.ChromemConfig{
			Path:       cfg.Retrieval.Path,
			VectorSize: cfg.Retrieval.VectorSize,
		},
	}, embedder, logger.Named("vectorstore"))
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer store.Close()

	g, err := guard.NewGuard(guard.Config{MaxPromptLen: cfg.Guard.MaxPromptLen},
		guard.NewLexicalDetector(), logger.Named("guard"))
	if err != nil {
		return fmt.Errorf("creating guard: %w", err)
	}

	redactor, err := redact.NewDetector(cfg.Redaction.Detector, nil)
	if err != nil {
		return fmt.Errorf("creating redactor: %w", err)
	}
	if cfg.Redaction.Detector == "nlp" {
		logger.Warn(ctx, "nlp redaction detector is not available yet, using the regex engine")
	}

	synth, err := synthesizer.New(cfg.Synthesizer)
	if err != nil {
		return fmt.Errorf("creating synthesizer: %w", err)
	}

	filter := policy.NewFilter(policy.NewAllowlist(cfg.Retrieval.AllowlistSources),
		g, logger.Named("policy"))

	p, err := pipeline.New(pipeline.Config{
		TopK:           cfg.Retrieval.TopK,
		MaxPromptChars: cfg.Retrieval.MaxPromptChars,
	}, store, g, filter, redactor, synth, pipeline.NewMetrics(nil), logger.Named("pipeline"))
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	srv, err := httpserver.NewServer(p, logger.Named("http"), &httpserver.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		JWTSecret: cfg.Auth.JWTSecret.Value(),
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if !cfg.Auth.JWTSecret.IsSet() {
		logger.Warn(ctx, "no JWT secret configured, API requests will be rejected")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info(ctx, "received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
