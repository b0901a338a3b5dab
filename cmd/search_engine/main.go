package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/internal/logger"
	"github.com/gcbaptista/go-facet-search/internal/node"
)

func main() {
	// Define command-line flags
	var (
		help       = flag.Bool("help", false, "Show help message")
		version    = flag.Bool("version", false, "Show version information")
		configPath = flag.String("config", "", "Path to a YAML node configuration file")
		port       = flag.Int("port", 0, "Port to run the server on (overrides http.port)")
		env        = flag.String("env", "", "Environment: local, dev or prod (overrides node.env)")
	)

	flag.Parse()

	if *help {
		fmt.Printf("Go Facet Search - a sharded search and faceting engine\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s                            # Start server on default port 8080\n", os.Args[0])
		fmt.Printf("  %s --port 9000                # Start server on port 9000\n", os.Args[0])
		fmt.Printf("  %s --config node.yaml --env prod\n", os.Args[0])
		return
	}

	if *version {
		fmt.Printf("Go Facet Search v1.0.0\n")
		return
	}

	cfg := config.DefaultNodeConfig()
	if *configPath != "" {
		loaded, err := config.LoadNodeConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if *env != "" {
		cfg.Node.Env = *env
	}

	l, err := logger.New(cfg.Node.Env, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if cfg.Node.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	n, err := node.New(cfg, node.WithLogger(l))
	if err != nil {
		l.Fatal("failed to create node", zap.Error(err))
	}
	if err := n.Start(); err != nil {
		l.Fatal("failed to start node", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		l.Info("shutdown signal received")
	case err := <-n.Done():
		if err != nil {
			l.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := n.Close(shutdownCtx); err != nil {
		l.Error("shutdown did not complete cleanly", zap.Error(err))
	}
}
