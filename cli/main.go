// Package main is the terminal client of the chat platform.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/guipratiko/front-conexprob/internal/api"
	"github.com/guipratiko/front-conexprob/internal/catalog"
	"github.com/guipratiko/front-conexprob/internal/chat"
	"github.com/guipratiko/front-conexprob/internal/config"
	"github.com/guipratiko/front-conexprob/internal/credits"
	"github.com/guipratiko/front-conexprob/internal/notify"
	"github.com/guipratiko/front-conexprob/internal/obs"
	"github.com/guipratiko/front-conexprob/internal/policy"
	"github.com/guipratiko/front-conexprob/internal/realtime"
	"github.com/guipratiko/front-conexprob/internal/session"
	"github.com/guipratiko/front-conexprob/internal/storage"
	"github.com/guipratiko/front-conexprob/internal/tui"
)

func main() {
	start := flag.String("open", "/", "Screen to open, e.g. /models or /chat/<id>")
	registrationToken := flag.String("token", "", "One-time token to complete a registration")
	ephemeral := flag.Bool("ephemeral", false, "Keep the session in memory instead of TOKEN_DB")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := obs.OpenLogFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()
	logger := obs.NewLogger(cfg.Env, logFile)
	slog.SetDefault(logger)

	if err := run(cfg, logger, *start, *registrationToken, *ephemeral); err != nil {
		logger.Error("client stopped", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, start, registrationToken string, ephemeral bool) error {
	ctx := context.Background()

	var db storage.Store = storage.NewMemoryStore()
	if !ephemeral {
		sqlite, err := storage.NewSQLiteStore(cfg.TokenDB)
		if err != nil {
			return fmt.Errorf("open token store: %w", err)
		}
		db = sqlite
	}
	defer db.Close()
	tokens := storage.NewTokenStore(db)

	router, err := policy.NewDefaultEngine(ctx)
	if err != nil {
		return fmt.Errorf("init route policy: %w", err)
	}

	bridge := &tui.Bridge{}
	notifier := notify.Tee{bridge.Notifier(), notify.Log{Logger: logger}}

	client := api.NewClient(cfg.APIURL, tokens, api.WithTimeout(cfg.HTTPTimeout))
	channel := realtime.NewManager(realtime.NewWebsocketDialer(cfg.RealtimeURL), realtime.Options{
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay,
		Logger:            logger,
	})
	defer channel.Disconnect()

	sessions := session.NewStore(client, channel, tokens, notifier, logger)
	controller := chat.NewController(channel, client, chat.Options{
		Notifier: notifier,
		Balance:  sessions,
		Logger:   logger,
	})
	controller.OnChange(bridge.ChatChanged)

	if sessions.RestoreSession(ctx) {
		logger.Info("session restored")
	}

	model := tui.New(tui.Deps{
		Session:           sessions,
		Catalog:           catalog.NewService(client),
		Credits:           credits.NewService(client, cfg.Checkout, logger),
		Chat:              controller,
		Router:            router,
		Logger:            logger,
		Start:             start,
		RegistrationToken: registrationToken,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	bridge.Attach(program)

	logger.Info("client started", "api", cfg.APIURL, "realtime", cfg.RealtimeURL)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	controller.Close()
	return nil
}
