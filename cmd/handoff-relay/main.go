// ABOUTME: Entry point for the handoff relay: webhook ingestion, dedup, forwarding, status broadcast.
// ABOUTME: Subcommands: serve, init, history, health.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/sehatops/handoff/internal/backend"
	"github.com/sehatops/handoff/internal/config"
	"github.com/sehatops/handoff/internal/dedupe"
	"github.com/sehatops/handoff/internal/journal"
	"github.com/sehatops/handoff/internal/logging"
	"github.com/sehatops/handoff/internal/relay"
	"github.com/sehatops/handoff/internal/transport"
)

// Version is set by goreleaser at build time.
var version = "dev"

// dedupeMaxEntries bounds the admission cache; a retry storm larger than
// this within one TTL window would start evicting the oldest entries.
const dedupeMaxEntries = 10000

const banner = `
 _                     _       __  __
| |__   __ _ _ __   __| | ___ / _|/ _|
| '_ \ / _' | '_ \ / _' |/ _ \ |_| |_
| | | | (_| | | | | (_| | (_) |  _|  _|
|_| |_|\__,_|_| |_|\__,_|\___/|_| |_|
`

// getConfigPath returns the path to the handoff config file.
// Priority: HANDOFF_CONFIG env var > XDG_CONFIG_HOME/handoff/handoff.yaml > ~/.config/handoff/handoff.yaml
func getConfigPath() string {
	if envPath := os.Getenv("HANDOFF_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "handoff.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "handoff", "handoff.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: handoff-relay <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the relay")
		fmt.Println("  init      Create a default config file")
		fmt.Println("  history   Show recent exchanges from the journal")
		fmt.Println("  health    Check relay health")
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
	case "history":
		err = runHistory(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Setup(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Webhook:  %s\n", cfg.Relay.WebhookAddr)
	green.Print("    ▶ ")
	fmt.Printf("Backend:  %s\n", cfg.Backend.BaseURL)
	green.Print("    ▶ ")
	fmt.Printf("Journal:  %s\n", cfg.Relay.JournalPath)
	fmt.Println()

	logger.Info("starting handoff-relay",
		"config", configPath,
		"webhook_addr", cfg.Relay.WebhookAddr,
		"backend_url", cfg.Backend.BaseURL,
	)

	cache := dedupe.New(cfg.Relay.DedupeTTL, dedupeMaxEntries)
	defer cache.Close()

	jnl, err := journal.Open(cfg.Relay.JournalPath, logger)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer jnl.Close()

	client := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)

	senders := make([]transport.Sender, 0, len(cfg.Relay.SendEndpoints))
	for _, url := range cfg.Relay.SendEndpoints {
		senders = append(senders, transport.NewHTTPSender(url, cfg.Relay.SendTimeout, logger))
	}

	rly := relay.New(cache, client, transport.NewMultiSender(senders...), jnl, relay.Options{
		Addr:            cfg.Relay.WebhookAddr,
		AskTimeout:      cfg.Backend.Timeout,
		FallbackMessage: cfg.Relay.FallbackMessage,
	}, logger)
	if err := rly.Start(); err != nil {
		return fmt.Errorf("starting relay: %w", err)
	}

	state := transport.NewHTTPStateFunc(cfg.Relay.TransportStatusURL, cfg.Relay.SendTimeout, logger)
	broadcaster := relay.NewBroadcaster(client, state, cfg.Relay.StatusInterval, logger)
	broadcaster.Start()

	<-ctx.Done()
	logger.Info("shutting down")

	broadcaster.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return rly.Stop(shutdownCtx)
}

func runInit() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultConfig := fmt.Sprintf(`backend:
  base_url: "%s"
  push_url: "%s"
  timeout: "60s"

relay:
  webhook_addr: "%s"
  journal_path: "%s"
  dedupe_ttl: "60s"
  status_interval: "3s"
  send_endpoints:
    - "%s"
  transport_status_url: "%s"

console:
  poll_interval: "30s"

logging:
  level: "info"
  format: "text"
`, config.DefaultBackendURL, config.DefaultPushURL, config.DefaultWebhookAddr,
		config.DefaultJournalPath, config.DefaultSendEndpoint, config.DefaultTransportStatusURL)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Created config at %s\n", configPath)
	return nil
}

func runHistory(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Setup(cfg.Logging, os.Stderr)
	jnl, err := journal.Open(cfg.Relay.JournalPath, logger)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer jnl.Close()

	stats, err := jnl.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}
	fmt.Printf("%d exchanges, %d senders, %d fallbacks\n\n",
		stats.Exchanges, stats.UniqueSenders, stats.Fallbacks)

	exchanges, err := jnl.Recent(ctx, 20)
	if err != nil {
		return fmt.Errorf("reading journal: %w", err)
	}

	yellow := color.New(color.FgYellow)
	for _, ex := range exchanges {
		name := ex.SenderName
		if name == "" {
			name = ex.Sender
		}
		fmt.Printf("%s  %s\n", ex.CreatedAt.Format("2006-01-02 15:04:05"), name)
		fmt.Printf("  → %s\n", ex.Message)
		if ex.Fallback {
			yellow.Printf("  ← %s [fallback]\n", ex.Reply)
		} else {
			fmt.Printf("  ← %s\n", ex.Reply)
		}
		fmt.Println()
	}

	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", hostport(cfg.Relay.WebhookAddr))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
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

// hostport fills in localhost when the listen address has no host part.
func hostport(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
