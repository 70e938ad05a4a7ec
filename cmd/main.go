package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	authservice "github.com/goserg/eventserver/auth/service"
	authstorage "github.com/goserg/eventserver/auth/storage"
	authmem "github.com/goserg/eventserver/auth/storage/mem"
	authpostgres "github.com/goserg/eventserver/auth/storage/postgres"
	authsqlite "github.com/goserg/eventserver/auth/storage/sqlite"
	"github.com/goserg/eventserver/internal/config"
	"github.com/goserg/eventserver/internal/logger"
	"github.com/goserg/eventserver/internal/metrics"
	"github.com/goserg/eventserver/internal/migrate"
	"github.com/goserg/eventserver/internal/notify"
	"github.com/goserg/eventserver/internal/reminder"
	"github.com/goserg/eventserver/internal/service"
	"github.com/goserg/eventserver/internal/storage"
	"github.com/goserg/eventserver/internal/storage/mem"
	"github.com/goserg/eventserver/internal/storage/postgres"
	"github.com/goserg/eventserver/internal/storage/sqlite"
	"github.com/goserg/eventserver/internal/web"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "eventserver",
		Usage: "Schedule events, notify subscribers and send reminders.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/server.toml",
				Usage:   "path to the TOML config",
				EnvVars: []string{"EVENTSERVER_CONFIG"},
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server and the reminder scanner.",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations and exit.",
				Action: migrateOnly,
			},
			{
				Name:   "scan-once",
				Usage:  "Run one reminder scan and exit.",
				Action: scanOnce,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func load(c *cli.Context) (config.Config, *logrus.Logger, error) {
	cfg, err := config.New(c.String("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger.New(cfg.Server.LogLevel), nil
}

type backend struct {
	events storage.Storage
	auth   authstorage.AuthStorage
	close  func()
}

func openBackend(ctx context.Context, cfg config.Storage, l *logrus.Logger) (backend, error) {
	switch cfg.Driver {
	case storage.DriverMemory:
		return backend{
			events: mem.New(),
			auth:   authmem.New(),
			close:  func() {},
		}, nil
	case storage.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLiteFile)
		if err != nil {
			return backend{}, fmt.Errorf("open sqlite: %w", err)
		}
		return backend{
			events: sqlite.New(db, l),
			auth:   authsqlite.New(db, l),
			close:  func() { _ = db.Close() },
		}, nil
	case storage.DriverPostgres:
		if err := migrate.UpPostgres(cfg.DSN); err != nil {
			return backend{}, fmt.Errorf("migrate postgres: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.DSN, cfg.MaxConns, l)
		if err != nil {
			return backend{}, err
		}
		return backend{
			events: postgres.New(pool, l),
			auth:   authpostgres.New(pool, l),
			close:  pool.Close,
		}, nil
	}
	return backend{}, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

func buildSink(cfg config.Config, events *service.EventService, dispatcher *notify.Dispatcher, l *logrus.Logger) (reminder.Sink, error) {
	var sinks reminder.MultiSink
	for _, name := range cfg.Reminder.Sinks {
		switch name {
		case reminder.SinkLog:
			sinks = append(sinks, reminder.NewLogSink(l))
		case reminder.SinkTelegram:
			bot, err := tgbotapi.NewBotAPI(cfg.Telegram.APIToken)
			if err != nil {
				return nil, fmt.Errorf("telegram: %w", err)
			}
			sinks = append(sinks, reminder.NewTelegramSink(bot, cfg.Telegram.ChatID))
		case reminder.SinkStream:
			sinks = append(sinks, reminder.NewStreamSink(events, dispatcher))
		default:
			return nil, fmt.Errorf("unknown reminder sink %q", name)
		}
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

type components struct {
	backend    backend
	recorder   metrics.Recorder
	dispatcher *notify.Dispatcher
	events     *service.EventService
	scanner    *reminder.Scanner
}

func build(ctx context.Context, cfg config.Config, l *logrus.Logger) (components, error) {
	b, err := openBackend(ctx, cfg.Storage, l)
	if err != nil {
		return components{}, err
	}
	recorder, err := metrics.New()
	if err != nil {
		l.WithError(err).Warn("metrics initialization failed, using no-op recorder")
	}
	dispatcher := notify.New(cfg.Notify.BufferSize, recorder, l)
	events := service.New(b.events, dispatcher, service.Config{
		StorageTimeout: cfg.Server.StorageTimeout,
		NotifyMode:     service.NotifyMode(cfg.Notify.Mode),
		DefaultMessage: cfg.Notify.DefaultMessage,
	}, recorder, l)

	sink, err := buildSink(cfg, events, dispatcher, l)
	if err != nil {
		b.close()
		return components{}, err
	}
	scanner := reminder.New(b.events, sink, reminder.Config{
		Schedule: cfg.Reminder.Schedule,
		Window:   cfg.Reminder.Window,
		Dedupe:   cfg.Reminder.Dedupe,
		Timeout:  cfg.Server.StorageTimeout,
	}, recorder, l)

	return components{
		backend:    b,
		recorder:   recorder,
		dispatcher: dispatcher,
		events:     events,
		scanner:    scanner,
	}, nil
}

func serve(c *cli.Context) error {
	cfg, l, err := load(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer a.backend.close()

	authService, err := authservice.New(ctx, cfg.Auth, a.backend.auth, l)
	if err != nil {
		return err
	}

	if cfg.Reminder.Enabled {
		if err := a.scanner.Start(); err != nil {
			return fmt.Errorf("reminder scanner: %w", err)
		}
		defer a.scanner.Stop()
	}

	server := web.New(a.events, authService, a.dispatcher, cfg.Server, a.recorder, l)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func migrateOnly(c *cli.Context) error {
	cfg, l, err := load(c)
	if err != nil {
		return err
	}
	b, err := openBackend(c.Context, cfg.Storage, l)
	if err != nil {
		return err
	}
	b.close()
	l.WithField("driver", cfg.Storage.Driver).Info("migrations applied")
	return nil
}

func scanOnce(c *cli.Context) error {
	cfg, l, err := load(c)
	if err != nil {
		return err
	}
	a, err := build(c.Context, cfg, l)
	if err != nil {
		return err
	}
	defer a.backend.close()

	ctx, cancel := context.WithTimeout(c.Context, cfg.Server.StorageTimeout)
	defer cancel()
	n, err := a.scanner.Scan(ctx, time.Now())
	if err != nil {
		return err
	}
	l.WithField("count", n).Info("reminder scan finished")
	return nil
}
