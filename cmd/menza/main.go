package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/erazemk/menza/internal/api"
	"github.com/erazemk/menza/internal/auth"
	"github.com/erazemk/menza/internal/broker"
	"github.com/erazemk/menza/internal/config"
	"github.com/erazemk/menza/internal/feed"
	"github.com/erazemk/menza/internal/menu"
	"github.com/erazemk/menza/internal/model"
	"github.com/erazemk/menza/internal/store"
	"github.com/erazemk/menza/internal/telegram"
	"github.com/erazemk/menza/internal/web"
)

func main() {
	fs := flag.NewFlagSet("menza", flag.ContinueOnError)

	var envFile string
	fs.StringVar(&envFile, "env", ".env", "")
	fs.StringVar(&envFile, "e", ".env", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var backend string
	fs.StringVar(&backend, "backend", "", "")
	fs.StringVar(&backend, "b", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var noSeed bool
	fs.BoolVar(&noSeed, "no-seed", false, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: menza [flags]

Flags:
  -e, -env <path>          dotenv file to load (default: .env, optional)
  -a, -addr <host:port>    listen address (default: :3001, env PORT)
  -b, -backend <name>      sqlite, postgres, mongo or local (env MENU_BACKEND)
  -l, -log <path>          log file path (default: no file, stdout/stderr only)
      -no-seed             do not load the default menu into an empty store
  -h, -help                show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		cfg.Addr = addr
	}
	if backend != "" {
		cfg.Backend = strings.ToLower(backend)
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}
	if noSeed {
		cfg.SeedDefaults = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.LogPath, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Backend, err)
	}
	defer st.Close()
	slog.Info("store ready", "backend", cfg.Backend)

	hub := feed.NewHub()
	svc := menu.NewService(st, hub)

	if cfg.AMQPURL != "" {
		b, err := broker.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connecting to broker: %w", err)
		}
		defer b.Close()
		svc.AddBackgroundNotifier(b)

		// Changes made by other instances reach this instance's live clients.
		go func() {
			err := b.Consume(ctx, func(ev model.ChangeEvent) {
				hub.Publish(ev)
			})
			if err != nil {
				slog.Error("change relay stopped", "error", err)
			}
		}()
		slog.Info("change relay enabled", "exchange", cfg.AMQPExchange, "origin", b.Origin())
	}

	if cfg.TelegramToken != "" {
		tg, err := telegram.New(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return fmt.Errorf("connecting to telegram: %w", err)
		}
		svc.AddBackgroundNotifier(tg)
		slog.Info("telegram announcements enabled", "chat", cfg.TelegramChatID)
	}
	// Drains queued events before the broker is closed.
	defer svc.Close()

	if cfg.SeedDefaults {
		n, err := svc.SeedDefaults(ctx)
		if err != nil {
			return fmt.Errorf("seeding default menu: %w", err)
		}
		if n > 0 {
			slog.Info("default menu loaded", "items", n)
		}
	}

	creds, err := auth.NewCredentials(cfg.AdminUser, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("admin credentials: %w", err)
	}
	if cfg.AdminPassword == config.DefaultAdminPassword {
		slog.Warn("using the default admin password; set ADMIN_PASSWORD")
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = auth.GenerateSecret()
		if err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		slog.Info("JWT_SECRET not set, sessions will not survive a restart")
	}

	// Set up routers.
	apiRouter := api.NewRouter(svc, hub, creds, jwtSecret)
	webRouter, err := web.NewRouter(svc, creds, jwtSecret)
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// Combine: API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)

	handler := api.RequestIDMiddleware(api.LoggingMiddleware(mux))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	<-stopped

	slog.Info("server stopped, closing store")
	return nil
}
