// ABOUTME: Gateway orchestrator that coordinates the HTTP and gRPC health servers
// ABOUTME: Wires the registry, hub, publisher, journal and mirrors and owns their lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/status-gateway/internal/agent"
	"github.com/2389/status-gateway/internal/auth"
	"github.com/2389/status-gateway/internal/config"
	"github.com/2389/status-gateway/internal/dedupe"
	"github.com/2389/status-gateway/internal/hub"
	"github.com/2389/status-gateway/internal/metrics"
	"github.com/2389/status-gateway/internal/mirror"
	"github.com/2389/status-gateway/internal/publisher"
	"github.com/2389/status-gateway/internal/status"
	"github.com/2389/status-gateway/internal/store"
)

// dedupeMaxEntries bounds the agent_action replay cache.
const dedupeMaxEntries = 10_000

// Gateway orchestrates the status-gateway server components.
type Gateway struct {
	config      *config.Config
	store       store.Store // nil when the journal is disabled
	registry    *agent.Registry
	hub         *hub.Hub
	publisher   *publisher.Publisher
	mirrors     *mirror.Fanout
	metrics     *metrics.Metrics // nil when metrics are disabled
	dedupe      *dedupe.Cache[status.AgentActionResult]
	verifier    auth.TokenVerifier
	health      *health.Server
	grpcServer  *grpc.Server // nil when no gRPC address is configured
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// actionMu serializes agent_action handling so a replayed request id
	// is never applied twice.
	actionMu sync.Mutex

	// background holds the publisher and mirror loops started by Run.
	background     sync.WaitGroup
	stopBackground context.CancelFunc
}

// initStore opens the journal. An empty path disables it.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("STATUS_GATEWAY_DB_PATH"); envPath != "" {
		dbPath = envPath
	}
	if dbPath == "" {
		return nil, nil
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// rosterFromConfig converts configured roster entries, falling back to the
// built-in roster when none are configured.
func rosterFromConfig(entries []config.AgentEntry) []status.AgentStatus {
	if len(entries) == 0 {
		return agent.DefaultRoster()
	}
	roster := make([]status.AgentStatus, 0, len(entries))
	for _, e := range entries {
		state := status.StateReady
		if e.Status != "" {
			state = status.ParseAgentState(e.Status)
		}
		name := e.Name
		if name == "" {
			name = e.ID
		}
		roster = append(roster, status.AgentStatus{
			ID:                e.ID,
			Name:              name,
			Status:            state,
			Capabilities:      e.Capabilities,
			Description:       e.Description,
			Icon:              e.Icon,
			DailyEarnings:     e.DailyEarnings,
			MonthlyProjection: e.MonthlyProjection,
		})
	}
	return roster
}

// buildMirrors connects every enabled mirror. A configured mirror that
// cannot connect fails startup.
func buildMirrors(ctx context.Context, cfg config.MirrorsConfig, m *metrics.Metrics, logger *slog.Logger) (*mirror.Fanout, error) {
	fanout := mirror.NewFanout(m, logger)

	if cfg.NATS.Enabled {
		sink, err := mirror.NewNATSSink(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			return nil, err
		}
		fanout.Add("nats", sink)
	}

	if cfg.Redis.Enabled {
		sink, err := mirror.NewRedisSink(ctx, mirror.RedisOptions{
			URL:     cfg.Redis.URL,
			Channel: cfg.Redis.Channel,
			ListKey: cfg.Redis.ListKey,
			ListMax: cfg.Redis.ListMax,
		}, logger)
		if err != nil {
			_ = fanout.Close()
			return nil, err
		}
		fanout.Add("redis", sink)
	}

	return fanout, nil
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		v, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return nil, fmt.Errorf("creating JWT verifier: %w", err)
		}
		verifier = v
		logger.Info("bearer auth enabled for /api and push endpoints")
	} else {
		logger.Warn("auth disabled - no jwt_secret configured")
	}

	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	mirrors, err := buildMirrors(context.Background(), cfg.Mirrors, m, logger)
	if err != nil {
		if s != nil {
			_ = s.Close()
		}
		return nil, fmt.Errorf("connecting mirrors: %w", err)
	}

	registry := agent.NewRegistry(rosterFromConfig(cfg.Agents.Roster), logger.With("component", "registry"))
	h := hub.New(logger)

	pub := publisher.New(publisher.Options{
		Hub:             h,
		Registry:        registry,
		Store:           s,
		Mirrors:         mirrors,
		Metrics:         m,
		Logger:          logger,
		Version:         cfg.Server.Version,
		MetricsInterval: cfg.Publisher.MetricsInterval,
		SignalInterval:  cfg.Publisher.SignalInterval,
		SystemInterval:  cfg.Publisher.SystemInterval,
	})

	gw := &Gateway{
		config:    cfg,
		store:     s,
		registry:  registry,
		hub:       h,
		publisher: pub,
		mirrors:   mirrors,
		metrics:   m,
		dedupe:    dedupe.New[status.AgentActionResult](cfg.Publisher.DedupeWindow, dedupeMaxEntries),
		verifier:  verifier,
		logger:    logger.With("component", "gateway"),
	}

	if cfg.Server.GRPCAddr != "" || cfg.Tailscale.Enabled {
		gw.grpcServer, gw.health = createGRPCServer()
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("gateway initialized",
		"agents", registry.Len(),
		"journal", s != nil,
		"mirrors", mirrors.Len(),
		"metrics", m != nil,
		"grpc_health", gw.grpcServer != nil,
	)

	return gw, nil
}

// Publisher returns the gateway's status publisher.
func (g *Gateway) Publisher() *publisher.Publisher {
	return g.publisher
}

// Registry returns the agent roster.
func (g *Gateway) Registry() *agent.Registry {
	return g.registry
}

// setupTCPListeners creates standard TCP listeners for HTTP and, when
// configured, gRPC.
func (g *Gateway) setupTCPListeners() (grpcLn, httpLn net.Listener, err error) {
	g.logger.Info("starting gateway",
		"grpc_addr", g.config.Server.GRPCAddr,
		"http_addr", g.config.Server.HTTPAddr,
	)

	httpLn, err = net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}

	if g.grpcServer != nil {
		grpcLn, err = net.Listen("tcp", g.config.Server.GRPCAddr)
		if err != nil {
			_ = httpLn.Close()
			return nil, nil, fmt.Errorf("listening on gRPC address: %w", err)
		}
	}

	return grpcLn, httpLn, nil
}

// warnIgnoredAddresses logs a warning if server addresses are configured but Tailscale is enabled.
func (g *Gateway) warnIgnoredAddresses() {
	if g.config.Server.GRPCAddr != "" || g.config.Server.HTTPAddr != "" {
		g.logger.Warn("server.grpc_addr and server.http_addr are ignored when tailscale is enabled",
			"grpc_addr", g.config.Server.GRPCAddr,
			"http_addr", g.config.Server.HTTPAddr,
		)
	}
}

// setupListeners creates listeners based on configuration (Tailscale or TCP).
func (g *Gateway) setupListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	if g.config.Tailscale.Enabled {
		g.warnIgnoredAddresses()
		return g.setupTailscaleListeners(ctx)
	}
	return g.setupTCPListeners()
}

// startServers starts the servers in goroutines, returning the error channel.
func (g *Gateway) startServers(grpcLn, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	if grpcLn != nil {
		go func() {
			g.logger.Info("gRPC health server listening", "addr", grpcLn.Addr().String())
			if err := g.grpcServer.Serve(grpcLn); err != nil {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
	}

	go func() {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// startBackground launches the publisher timers and the mirror queue.
func (g *Gateway) startBackground(ctx context.Context) {
	bgCtx, cancel := context.WithCancel(ctx)
	g.stopBackground = cancel

	g.background.Add(2)
	go func() {
		defer g.background.Done()
		_ = g.publisher.Run(bgCtx)
	}()
	go func() {
		defer g.background.Done()
		g.mirrors.Run(bgCtx)
	}()
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		g.drainErrors(errCh)
		return err
	}
}

// drainErrors drains any remaining errors from the channel.
func (g *Gateway) drainErrors(errCh chan error) {
	select {
	case additionalErr := <-errCh:
		g.logger.Error("additional server error", "error", additionalErr)
	default:
	}
}

// Run starts the servers and the publisher and blocks until ctx is
// canceled or a server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	grpcListener, httpListener, err := g.setupListeners(ctx)
	if err != nil {
		return err
	}

	g.startBackground(ctx)
	errCh := g.startServers(grpcListener, httpListener)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout,
// since the Run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "status-gateway", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListeners creates a tsnet server and returns listeners for gRPC and HTTP.
func (g *Gateway) setupTailscaleListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	tsCfg := g.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, nil, err
	}

	g.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	g.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	st, err := g.tsnetServer.Up(ctx)
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, nil, fmt.Errorf("starting tailscale: %w", err)
	}
	g.logTailscaleStatus(tsCfg.Hostname, st)

	grpcLn, err = g.tsnetServer.Listen("tcp", ":50051")
	if err != nil {
		_ = g.tsnetServer.Close()
		return nil, nil, fmt.Errorf("listening on tailscale gRPC port: %w", err)
	}

	httpLn, err = g.createTailscaleHTTPListener(tsCfg, grpcLn)
	if err != nil {
		return nil, nil, err
	}
	return grpcLn, httpLn, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (g *Gateway) logTailscaleStatus(hostname string, st *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(st.TailscaleIPs) > 0 {
		tsAddr = st.TailscaleIPs[0].String()
	} else {
		g.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if st.Self != nil {
		dnsName = st.Self.DNSName
	}
	g.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// createTailscaleHTTPListener creates the HTTP listener: Funnel on :443 when
// enabled, plain HTTP on :80 otherwise.
func (g *Gateway) createTailscaleHTTPListener(tsCfg config.TailscaleConfig, grpcLn net.Listener) (net.Listener, error) {
	if !tsCfg.Funnel {
		ln, err := g.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			_ = grpcLn.Close()
			_ = g.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}

	g.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
	ln, err := g.tsnetServer.ListenFunnel("tcp", ":443")
	if err != nil {
		_ = grpcLn.Close()
		_ = g.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale funnel port: %w", err)
	}
	return ln, nil
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the publisher, closes every push connection, stops the
// servers and releases the journal and mirrors.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	if g.health != nil {
		g.health.Shutdown()
	}

	if g.stopBackground != nil {
		g.stopBackground()
	}
	g.background.Wait()

	// Closing the hub ends every /ws and /api/stream handler so the HTTP
	// server can drain.
	g.hub.Close()

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.grpcServer != nil {
		g.shutdownGRPCServer(ctx)
	}
	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
	}
	errs = appendCloseError(errs, "mirror close", g.mirrors.Close())
	if g.store != nil {
		errs = appendCloseError(errs, "store close", g.store.Close())
	}
	g.dedupe.Close()

	return errors.Join(errs...)
}
