// ABOUTME: Entry point for the operator console TUI.
// ABOUTME: Wires the backend client, the push event bus, and the bubbletea program together.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sehatops/handoff/internal/backend"
	"github.com/sehatops/handoff/internal/config"
	"github.com/sehatops/handoff/internal/logging"
	"github.com/sehatops/handoff/internal/push"
	"github.com/sehatops/handoff/internal/tui"
)

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

// openLogFile returns a writer for console logs. The TUI owns the terminal,
// so logs go to a file next to the config; on failure they are discarded.
func openLogFile(configPath string) io.Writer {
	path := filepath.Join(filepath.Dir(configPath), "console.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return io.Discard
	}
	return f
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Setup(cfg.Logging, openLogFile(configPath))
	logger.Info("starting handoff-console",
		"config", configPath,
		"backend_url", cfg.Backend.BaseURL,
		"push_url", cfg.Backend.PushURL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)

	p := tea.NewProgram(tui.New(client, cfg.Console.PollInterval), tea.WithAltScreen())

	// Push events enter the program as messages; the model never sees the
	// bus directly.
	bus := push.New(cfg.Backend.PushURL, logger)
	bus.OnNewMessage(func(chat backend.Chat) {
		p.Send(tui.NewMessageMsg{Chat: chat})
	})
	bus.OnChatsUpdate(func(chats []backend.Chat) {
		p.Send(tui.ChatsUpdateMsg{Chats: chats})
	})
	bus.OnBotStatus(func(change backend.BotStatusChange) {
		p.Send(tui.BotStatusMsg{Change: change})
	})
	bus.OnConnection(func(connected bool) {
		p.Send(tui.ConnectionMsg{Connected: connected})
	})
	bus.Start(ctx)
	defer bus.Close()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running console: %w", err)
	}

	logger.Info("console exited")
	return nil
}
