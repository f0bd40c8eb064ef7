// Command authd runs the authentication service: the engine wired to
// PostgreSQL and Redis, exposed over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authkit-go/authkit"
	"github.com/authkit-go/authkit/httpapi"
	"github.com/authkit-go/authkit/mail"
	"github.com/authkit-go/authkit/store/memory"
	"github.com/authkit-go/authkit/store/postgres"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := authkit.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Addr(),
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	var users authkit.UserStore
	if cfg.Database.URL != "" {
		store, pool, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		users = store
	} else {
		log.Warn("no database configured, using in-memory user store")
		users = memory.New()
	}

	var mailer authkit.Mailer
	if cfg.Mail.Host != "" {
		mailer, err = mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		if err != nil {
			return err
		}
	} else {
		log.Warn("no SMTP relay configured, logging outbound mail")
		mailer = mail.NewLog(log)
	}

	builder := authkit.New().
		WithConfig(*cfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithMailer(mailer).
		WithLogger(log)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(authkit.NewJSONWriterSink(os.Stdout))
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewServer(engine, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", cfg.HTTP.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("shutdown complete")
	return nil
}
