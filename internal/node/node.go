// Package node assembles an embeddable search node: the engine, its job
// manager, metrics and the HTTP API, with an explicit Start/Close lifecycle.
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/api"
	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/internal/engine"
	"github.com/gcbaptista/go-facet-search/internal/jobs"
	"github.com/gcbaptista/go-facet-search/internal/logger"
	"github.com/gcbaptista/go-facet-search/internal/metrics"
	"github.com/gcbaptista/go-facet-search/services"
)

const healthPollInterval = 10 * time.Millisecond

type state int

const (
	stateCreated state = iota
	stateStarted
	stateClosed
)

// Node is one search node. The zero value is not usable; call New.
type Node struct {
	cfg     config.NodeConfig
	addr    string
	logger  *zap.Logger
	metrics *metrics.Metrics
	jobs    *jobs.Manager
	engine  *engine.Engine
	router  *gin.Engine

	mu       sync.Mutex
	state    state
	server   *http.Server
	listener net.Listener
	serveErr chan error
}

// Option configures a Node.
type Option func(*Node)

// WithLogger replaces the logger built from the node configuration.
func WithLogger(l *zap.Logger) Option {
	return func(n *Node) { n.logger = l }
}

// WithAddr overrides the listen address derived from http.port.
// "127.0.0.1:0" picks a free port.
func WithAddr(addr string) Option {
	return func(n *Node) { n.addr = addr }
}

// New builds a node from cfg. Nothing listens until Start.
func New(cfg config.NodeConfig, opts ...Option) (*Node, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid node config: %w", err)
	}

	n := &Node{
		cfg:      cfg,
		addr:     fmt.Sprintf(":%d", cfg.HTTP.Port),
		metrics:  metrics.New(),
		serveErr: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		l, err := logger.New(cfg.Node.Env, cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		n.logger = l
	}
	n.logger = n.logger.With(zap.String("node", cfg.Node.Name))

	n.jobs = jobs.NewManager(cfg.Jobs.MaxConcurrent,
		jobs.WithLogger(n.logger.Named("jobs")),
		jobs.WithMetrics(n.metrics),
		jobs.WithRetention(time.Duration(cfg.Jobs.RetentionMin)*time.Minute))

	n.engine = engine.NewEngine(
		engine.WithLogger(n.logger.Named("engine")),
		engine.WithMetrics(n.metrics),
		engine.WithJobs(n.jobs),
		engine.WithDefaultShards(cfg.Index.DefaultShards),
		engine.WithSearchDefaults(cfg.Search.DefaultFacetSize, cfg.Search.MaxSize))

	n.router = gin.New()
	n.router.Use(gin.Recovery())
	api.SetupRoutes(n.router, api.Config{
		Engine:         n.engine,
		Jobs:           n.jobs,
		Health:         n,
		Logger:         n.logger.Named("http"),
		Metrics:        n.metrics,
		DefaultSize:    cfg.Search.DefaultSize,
		MaxSize:        cfg.Search.MaxSize,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	})
	return n, nil
}

// Start starts the job manager and begins serving HTTP in the background.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case stateStarted:
		return fmt.Errorf("node already started")
	case stateClosed:
		return fmt.Errorf("node is closed")
	}

	listener, err := net.Listen("tcp", n.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.addr, err)
	}
	n.listener = listener
	n.server = &http.Server{
		Handler:           n.router,
		ReadTimeout:       time.Duration(n.cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(n.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	n.jobs.Start()
	go func() {
		if err := n.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.logger.Error("http server stopped", zap.Error(err))
			n.serveErr <- err
		}
		close(n.serveErr)
	}()

	n.state = stateStarted
	n.logger.Info("node started", zap.String("addr", listener.Addr().String()), zap.String("env", n.cfg.Node.Env))
	return nil
}

// Close stops accepting requests, waits for in-flight ones until ctx ends,
// cancels running jobs and closes every index. Close is idempotent.
func (n *Node) Close(ctx context.Context) error {
	n.mu.Lock()
	if n.state == stateClosed {
		n.mu.Unlock()
		return nil
	}
	wasStarted := n.state == stateStarted
	n.state = stateClosed
	server := n.server
	n.mu.Unlock()

	// In-flight handlers may call Health, so the lock is not held while draining.
	var shutdownErr error
	if wasStarted {
		shutdownErr = server.Shutdown(ctx)
		if err := <-n.serveErr; err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	n.jobs.Stop()
	n.engine.Close()

	n.logger.Info("node closed")
	_ = n.logger.Sync()
	return shutdownErr
}

// Done is closed once the HTTP server stops; it yields the serve error, if any.
func (n *Node) Done() <-chan error {
	return n.serveErr
}

// Addr returns the address the node listens on, empty before Start.
func (n *Node) Addr() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listener == nil {
		return ""
	}
	return n.listener.Addr().String()
}

// URL returns the base URL of the HTTP API, empty before Start.
func (n *Node) URL() string {
	addr := n.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr
}

// Handler returns the HTTP handler of the node, usable without Start.
func (n *Node) Handler() http.Handler {
	return n.router
}

// Engine returns the index manager of the node.
func (n *Node) Engine() *engine.Engine {
	return n.engine
}

// Metrics returns the metrics registry of the node.
func (n *Node) Metrics() *metrics.Metrics {
	return n.metrics
}

// Health computes the node status: red unless started, yellow while async jobs
// are pending or an index refuses writes, green otherwise.
func (n *Node) Health() services.NodeHealth {
	n.mu.Lock()
	st := n.state
	n.mu.Unlock()

	open, total := n.engine.OpenIndexes()
	health := services.NodeHealth{
		NodeName:    n.cfg.Node.Name,
		Indexes:     total,
		OpenIndexes: open,
		ActiveJobs:  n.jobs.ActiveJobs(),
	}
	switch {
	case st != stateStarted:
		health.Status = services.HealthRed
	case health.ActiveJobs > 0 || open < total:
		health.Status = services.HealthYellow
	default:
		health.Status = services.HealthGreen
	}
	return health
}

// WaitForStatus blocks until the node is at least as healthy as want or ctx ends.
func (n *Node) WaitForStatus(ctx context.Context, want services.HealthStatus) error {
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	for {
		health := n.Health()
		if health.Status.AtLeast(want) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("node status is %s, waited for %s: %w", health.Status, want, ctx.Err())
		case <-ticker.C:
		}
	}
}
