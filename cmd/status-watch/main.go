// ABOUTME: Terminal client that subscribes to a status-gateway push channel
// ABOUTME: Prints frames and connection-state changes, and sends control commands typed on stdin

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/2389/status-gateway/internal/config"
	"github.com/2389/status-gateway/internal/status"
	"github.com/2389/status-gateway/internal/subscriber"
)

// getToken returns the bearer token from STATUS_GATEWAY_TOKEN.
func getToken() string {
	return strings.TrimSpace(os.Getenv("STATUS_GATEWAY_TOKEN"))
}

// defaults reads the subscriber section of the gateway config when present.
func defaults() config.SubscriberConfig {
	sc := config.SubscriberConfig{
		URL:                  "ws://localhost:8080/ws",
		ReconnectInterval:    config.DefaultReconnectInterval,
		MaxReconnectAttempts: config.DefaultMaxReconnectAttempts,
	}
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return sc
	}
	if cfg.Subscriber.URL != "" {
		sc.URL = cfg.Subscriber.URL
	}
	sc.ReconnectInterval = cfg.Subscriber.ReconnectInterval
	sc.MaxReconnectAttempts = cfg.Subscriber.MaxReconnectAttempts
	sc.SubscribeUpdates = cfg.Subscriber.SubscribeUpdates
	return sc
}

func main() {
	d := defaults()

	url := flag.String("url", d.URL, "Gateway push channel URL")
	subscribe := flag.Bool("subscribe", d.SubscribeUpdates, "Also receive system_update frames")
	interval := flag.Duration("interval", d.ReconnectInterval, "Fixed delay between reconnect attempts")
	maxAttempts := flag.Int("max-attempts", d.MaxReconnectAttempts, "Reconnect attempts before giving up")
	raw := flag.Bool("raw", false, "Print frames as raw JSON")
	verbose := flag.Bool("v", false, "Log subscriber internals to stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := &printer{out: os.Stdout, raw: *raw}
	client := subscriber.New(subscriber.Options{
		URL:                  *url,
		Token:                getToken(),
		ReconnectInterval:    *interval,
		MaxReconnectAttempts: *maxAttempts,
		SubscribeUpdates:     *subscribe,
		OnFrame:              p.frame,
		OnStateChange:        p.state,
		Logger:               logger,
	})

	fmt.Printf("status-watch connecting to %s\n", *url)
	fmt.Println("Commands: status, init, metrics, start|pause|stop <agent>, estop, restart, agents, agent <id>, quit")
	fmt.Println()

	go readCommands(ctx, client, cancel)

	err := client.Run(ctx)
	if errors.Is(err, subscriber.ErrReconnectsExhausted) {
		color.Red("gave up after %d reconnect attempts", *maxAttempts)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readCommands turns stdin lines into push-channel commands.
func readCommands(ctx context.Context, client *subscriber.Client, quit context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			client.Disconnect()
			quit()
			return
		}
		if showBoard(os.Stdout, client, line) {
			continue
		}

		cmd, err := parseCommand(line)
		if err != nil {
			color.Yellow("%v", err)
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Send(sendCtx, cmd)
		cancel()
		if err != nil {
			color.Yellow("send failed: %v", err)
		}
	}
}

// board is the subscriber's local agent cache.
type board interface {
	Agents() []status.AgentStatus
	Agent(id string) (status.AgentStatus, bool)
}

// showBoard answers "agents" and "agent <id>" from the local board without
// a round trip. It reports whether line was one of those.
func showBoard(out io.Writer, b board, line string) bool {
	fields := strings.Fields(line)
	switch {
	case len(fields) == 1 && fields[0] == "agents":
		for _, a := range b.Agents() {
			fmt.Fprintf(out, "  %-22s %s\n", a.ID, a.Status)
		}
		return true
	case len(fields) == 2 && fields[0] == "agent":
		a, ok := b.Agent(fields[1])
		if !ok {
			fmt.Fprintf(out, "  %s not on the board (try init)\n", fields[1])
			return true
		}
		fmt.Fprintf(out, "  %s (%s)\n  status: %s\n", a.Name, a.ID, a.Status)
		if a.Description != "" {
			fmt.Fprintf(out, "  %s\n", a.Description)
		}
		return true
	}
	return false
}

// parseCommand maps a typed line onto a command frame.
func parseCommand(line string) (status.Command, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "status":
		return status.Command{Type: status.CmdRequestStatusUpdate}, nil
	case "init":
		return status.Command{Type: status.CmdGetInitialData}, nil
	case "metrics":
		return status.Command{Type: status.CmdGetSystemMetrics}, nil
	case "subscribe":
		return status.Command{Type: status.CmdSubscribeUpdates}, nil
	case "estop":
		return status.Command{Type: status.CmdEmergencyStop}, nil
	case "restart":
		return status.Command{Type: status.CmdRestartAll}, nil
	case "start", "pause", "stop":
		if len(fields) != 2 {
			return status.Command{}, fmt.Errorf("usage: %s <agent>", fields[0])
		}
		data, err := json.Marshal(status.AgentActionRequest{
			AgentID:   fields[1],
			Action:    fields[0],
			RequestID: uuid.New().String(),
		})
		if err != nil {
			return status.Command{}, err
		}
		return status.Command{Type: status.CmdAgentAction, Data: data}, nil
	default:
		return status.Command{}, fmt.Errorf("unknown command: %s", fields[0])
	}
}

// printer renders frames and state changes.
type printer struct {
	out io.Writer
	raw bool
}

func (p *printer) state(s subscriber.ConnectionState) {
	stamp := color.HiBlackString(time.Now().Format("15:04:05"))
	switch s.Phase {
	case subscriber.PhaseOpen:
		fmt.Fprintf(p.out, "%s %s\n", stamp, color.GreenString("● connected"))
	case subscriber.PhaseConnecting:
		fmt.Fprintf(p.out, "%s %s\n", stamp, color.CyanString("○ connecting"))
	case subscriber.PhaseClosed:
		if s.ReconnectAttempts > 0 {
			fmt.Fprintf(p.out, "%s %s\n", stamp, color.YellowString("○ disconnected (attempt %d)", s.ReconnectAttempts))
		} else {
			fmt.Fprintf(p.out, "%s %s\n", stamp, color.RedString("○ closed"))
		}
	}
}

func (p *printer) frame(f status.Frame) {
	if p.raw {
		data, _ := json.Marshal(f)
		fmt.Fprintln(p.out, string(data))
		return
	}
	stamp := color.HiBlackString(f.Timestamp.Local().Format("15:04:05"))
	fmt.Fprintf(p.out, "%s %s %s\n", stamp, color.CyanString("%-24s", f.Type), summarize(f))
}

// summarize renders the interesting fields of well-known frames.
func summarize(f status.Frame) string {
	switch f.Type {
	case status.EventStatusUpdate, status.EventSystemUpdate:
		var s status.SystemStatus
		if f.Decode(&s) == nil {
			return fmt.Sprintf("%s %d/%d active v%s", s.Status, s.AgentsActive, s.TotalAgents, s.Version)
		}
	case status.EventPerformanceUpdate:
		var u status.PerformanceUpdate
		if f.Decode(&u) == nil {
			return fmt.Sprintf("earnings %.2f trades %d win %.1f%% portfolio %.2f", u.DailyEarnings, u.ActiveTrades, u.WinRate, u.PortfolioValue)
		}
	case status.EventNewSignal:
		var s status.Signal
		if f.Decode(&s) == nil {
			return fmt.Sprintf("%s %s %.0f%%", s.Type, s.Symbol, s.Confidence*100)
		}
	case status.EventAgentActionResult:
		var r status.AgentActionResult
		if f.Decode(&r) == nil {
			if !r.Success {
				return color.RedString("%s", r.Error)
			}
			msg := r.Message
			if r.Duplicate {
				msg += " (duplicate)"
			}
			return msg
		}
	case status.EventAgentStatusUpdate:
		var u status.AgentStatusUpdate
		if f.Decode(&u) == nil {
			return fmt.Sprintf("%s -> %s", u.AgentID, u.Status)
		}
	case status.EventSystemMetrics:
		var m status.DashboardMetrics
		if f.Decode(&m) == nil {
			return fmt.Sprintf("%d/%d agents active", m.ActiveAgents, m.TotalAgents)
		}
	case status.EventInitialData:
		var d status.InitialData
		if f.Decode(&d) == nil {
			return fmt.Sprintf("%d agents, %d active", len(d.Agents), d.Metrics.ActiveAgents)
		}
	}
	var generic struct {
		Message string `json:"message"`
	}
	if f.Decode(&generic) == nil && generic.Message != "" {
		return generic.Message
	}
	return string(f.Data)
}
