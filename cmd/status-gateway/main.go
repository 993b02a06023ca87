// ABOUTME: Entry point for the status-gateway server
// ABOUTME: Serves agent status over HTTP, WebSocket and SSE, plus admin subcommands

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/2389/status-gateway/internal/auth"
	"github.com/2389/status-gateway/internal/config"
	"github.com/2389/status-gateway/internal/gateway"
	"github.com/2389/status-gateway/internal/status"
)

// version is set with -ldflags at build time.
var version = "dev"

const banner = `
     _        _                                 _
 ___| |_ __ _| |_ _   _ ___        __ _  __ _| |_ _____      ____ _ _   _
/ __| __/ _' | __| | | / __|_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
\__ \ || (_| | |_| |_| \__ \_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
|___/\__\__,_|\__|\__,_|___/      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
                                  |___/                             |___/
`

// getDataPath returns the status-gateway data directory.
// Priority: XDG_DATA_HOME/status-gateway > ~/.local/share/status-gateway
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "status-gateway")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: status-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                         Start the gateway server")
		fmt.Println("  init                          Create a new config file interactively")
		fmt.Println("  health                        Check gateway health")
		fmt.Println("  agents                        List the agent roster")
		fmt.Println("  token [--subject S] [--ttl D] Mint a bearer token from the configured secret")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "agents":
		err = runAgents(ctx)
	case "token":
		err = runToken(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, string, error) {
	configPath := config.DefaultPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, configPath, fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	if cfg.Server.GRPCAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("gRPC:      %s (health)\n", cfg.Server.GRPCAddr)
	}
	green.Print("    ▶ ")
	fmt.Printf("Publisher: metrics %s, signals %s, system %s\n",
		cfg.Publisher.MetricsInterval, cfg.Publisher.SignalInterval, cfg.Publisher.SystemInterval)
	if cfg.Database.Path != "" {
		green.Print("    ▶ ")
		fmt.Printf("Journal:   %s\n", cfg.Database.Path)
	}
	if cfg.Mirrors.NATS.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("NATS:      %s ", cfg.Mirrors.NATS.URL)
		gray.Printf("(%s.*)\n", cfg.Mirrors.NATS.SubjectPrefix)
	}
	if cfg.Mirrors.Redis.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Redis:     %s ", cfg.Mirrors.Redis.URL)
		gray.Printf("(%s)\n", cfg.Mirrors.Redis.Channel)
	}

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	if cfg.Auth.JWTSecret == "" {
		yellow.Println("    ! auth disabled")
	}

	fmt.Println()

	logger.Info("starting status-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"grpc_addr", cfg.Server.GRPCAddr,
		"version", cfg.Server.Version,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// apiGet performs an authenticated GET against the local gateway.
func apiGet(ctx context.Context, cfg *config.Config, path string) (*http.Response, error) {
	url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if cfg.Auth.JWTSecret != "" {
		verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return nil, fmt.Errorf("creating JWT verifier: %w", err)
		}
		token, err := verifier.Generate("status-gateway-cli", time.Minute)
		if err != nil {
			return nil, fmt.Errorf("generating token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return http.DefaultClient.Do(req)
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	resp, err := apiGet(ctx, cfg, "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runAgents(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	resp, err := apiGet(ctx, cfg, "/api/agents")
	if err != nil {
		return fmt.Errorf("agents request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("agents request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var body gateway.AgentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	for _, a := range body.Agents {
		fmt.Printf("  %-22s %s  %s\n", a.ID, stateColor(a.Status).Sprintf("%-11s", a.Status), a.Name)
	}
	return nil
}

func stateColor(s status.AgentState) *color.Color {
	switch s {
	case status.StateActive, status.StateReady:
		return color.New(color.FgGreen)
	case status.StateProcessing:
		return color.New(color.FgCyan)
	case status.StateIdle, status.StateInitialized:
		return color.New(color.FgYellow)
	case status.StateError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgHiBlack)
	}
}

// runToken mints a bearer token for dashboards and status-watch.
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "", "token subject (default: random id)")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if *ttl <= 0 {
		return fmt.Errorf("--ttl must be positive")
	}

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt_secret not configured in %s", configPath)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}

	sub := strings.TrimSpace(*subject)
	if sub == "" {
		sub = uuid.New().String()
	}

	token, err := verifier.Generate(sub, *ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func randomSecret() (string, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(secretBytes), nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("status-gateway configuration setup")
	fmt.Println("==================================")
	fmt.Println()

	defaultDbPath := filepath.Join(getDataPath(), "journal.db")

	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")
	grpcAddr := prompt(reader, "gRPC health address (empty to disable)", "")

	fmt.Println("\n--- Journal ---")
	dbPath := prompt(reader, "SQLite journal path (\"none\" to disable)", defaultDbPath)
	if strings.EqualFold(dbPath, "none") {
		dbPath = ""
	}

	fmt.Println("\n--- Publisher ---")
	metricsInterval := prompt(reader, "Performance update interval", config.DefaultMetricsInterval.String())
	signalInterval := prompt(reader, "Signal interval", config.DefaultSignalInterval.String())
	systemInterval := prompt(reader, "System update interval", config.DefaultSystemInterval.String())

	fmt.Println("\n--- Auth ---")
	var jwtSecret string
	if yes(prompt(reader, "Require bearer tokens?", "no")) {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		jwtSecret = secret
	}

	fmt.Println("\n--- Tailscale Configuration ---")
	tailscaleEnabled := yes(prompt(reader, "Enable Tailscale?", "no"))

	var tsHostname, tsAuthKey string
	var tsEphemeral, tsFunnel bool
	if tailscaleEnabled {
		tsHostname = prompt(reader, "Tailscale hostname", "status-gateway")
		tsAuthKey = prompt(reader, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		tsEphemeral = yes(prompt(reader, "Ephemeral node?", "no"))
		tsFunnel = yes(prompt(reader, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# status-gateway configuration\n")
	cfg.WriteString("# Generated by status-gateway init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", httpAddr))
	if grpcAddr != "" {
		cfg.WriteString(fmt.Sprintf("  grpc_addr: %q\n", grpcAddr))
	}
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("publisher:\n")
	cfg.WriteString(fmt.Sprintf("  metrics_interval: %q\n", metricsInterval))
	cfg.WriteString(fmt.Sprintf("  signal_interval: %q\n", signalInterval))
	cfg.WriteString(fmt.Sprintf("  system_interval: %q\n", systemInterval))
	cfg.WriteString("\n")

	if jwtSecret != "" {
		cfg.WriteString("auth:\n")
		cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n", jwtSecret))
		cfg.WriteString("\n")
	}

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", tailscaleEnabled))
	if tailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", tsHostname))
		if tsAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: %q\n", tsAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", tsEphemeral))
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", tsFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("subscriber:\n")
	cfg.WriteString(fmt.Sprintf("  url: %q\n", "ws://"+httpAddr+"/ws"))
	cfg.WriteString(fmt.Sprintf("  reconnect_interval: %q\n", config.DefaultReconnectInterval.String()))
	cfg.WriteString(fmt.Sprintf("  max_reconnect_attempts: %d\n", config.DefaultMaxReconnectAttempts))
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: false\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", config.DefaultMetricsPath))

	// Refuse to write something serve would reject.
	if _, err := config.Parse([]byte(cfg.String()), "yaml"); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	mode := os.FileMode(0644)
	if jwtSecret != "" {
		mode = 0600
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), mode); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  status-gateway serve\n")
	if jwtSecret != "" {
		fmt.Println("\nTo mint a token for a dashboard:")
		fmt.Printf("  status-gateway token --subject dashboard\n")
	}

	return nil
}

func yes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
