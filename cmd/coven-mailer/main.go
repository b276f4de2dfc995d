// ABOUTME: Entry point for coven-mailer
// ABOUTME: Wires config, audit store, SMTP relay, conversation machine and the Matrix bot

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/2389/coven-mailer/internal/bot"
	"github.com/2389/coven-mailer/internal/config"
	"github.com/2389/coven-mailer/internal/conversation"
	"github.com/2389/coven-mailer/internal/metrics"
	"github.com/2389/coven-mailer/internal/relay"
	"github.com/2389/coven-mailer/internal/store"
)

const banner = `
                                                      _ _
  ___ _____   _____ _ __        _ __ ___   __ _(_) | ___ _ __
 / __/ _ \ \ / / _ \ '_ \ _____| '_ ' _ \ / _' | | |/ _ \ '__|
| (_| (_) \ V /  __/ | | |_____| | | | | | (_| | | |  __/ |
 \___\___/ \_/ \___|_| |_|     |_| |_| |_|\__,_|_|_|\___|_|
`

func main() {
	var err error
	switch {
	case len(os.Args) > 1 && os.Args[1] == "init":
		err = runInit(os.Stdin, os.Stdout, config.DefaultPath())
	case len(os.Args) > 1 && os.Args[1] == "log":
		err = runLog(os.Args[2:], os.Stdout)
	default:
		err = run()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	configPath := config.DefaultPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	logger := setupLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	// Print startup info
	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("User:       %s\n", cfg.Matrix.UserID)
	green.Print("    ▶ ")
	fmt.Printf("SMTP:       %s:%d as %s\n", cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)
	green.Print("    ▶ ")
	fmt.Printf("Database:   %s\n", cfg.Database.Path)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:    http://%s/metrics\n", cfg.Metrics.Addr)
	}
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing audit store", "error", err)
		}
	}()

	mailer := relay.NewSMTPMailer(relay.SMTPOptions{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		Timeout:  cfg.SMTP.Timeout,
	}, logger)
	relayer := relay.New(mailer, db, cfg.SMTP.Subject, logger)
	machine := conversation.NewMachine(conversation.NewSessions(), relayer, cfg.SMTP.From, logger)

	b, err := bot.New(cfg, machine, logger)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx)
	})
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Addr, logger)
		})
	}

	logger.Info("coven-mailer running")
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("coven-mailer stopped")
	return nil
}

func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
