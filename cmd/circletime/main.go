package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/circle-time/internal/application"
	"github.com/example/circle-time/internal/config"
	httptransport "github.com/example/circle-time/internal/http"
	"github.com/example/circle-time/internal/notify"
	"github.com/example/circle-time/internal/persistence/sqlite"
	"github.com/example/circle-time/internal/sweeper"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A local .env is a convenience for development; its absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now
	policy := cfg.BookingPolicy()

	bookingRepo := newBookingRepositoryAdapter(sqlite.NewBookingRepository(store))
	roomRepo := newRoomRepositoryAdapter(sqlite.NewRoomRepository(store))

	notifier := buildNotifier(cfg, logger)

	bookingService := application.NewBookingServiceWithLogger(bookingRepo, roomRepo, notifier, policy, idGenerator, now, logger)
	roomService := application.NewRoomServiceWithLogger(roomRepo, idGenerator, now, logger)
	maintenanceService := application.NewMaintenanceServiceWithLogger(bookingRepo, notifier, policy, now, logger)

	sweep := sweeper.New(maintenanceService, cfg.SweepInterval, logger)
	go sweep.Run(ctx)

	bookingHandler := httptransport.NewBookingHandler(bookingService, logger)
	roomHandler := httptransport.NewRoomHandler(roomService, logger)
	router := httptransport.NewRouter(bookingHandler, roomHandler, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// buildNotifier assembles the notifier fan-out from configuration. Log output
// is always on; email and event publishing join when configured.
func buildNotifier(cfg config.Config, logger *slog.Logger) application.Notifier {
	notifiers := []application.Notifier{notify.NewLogNotifier(logger)}

	if cfg.MailerSendAPIKey != "" {
		email := notify.NewEmailNotifier(cfg.MailerSendAPIKey, cfg.MailFromName, cfg.MailFromEmail, resolveEmailAddress)
		notifiers = append(notifiers, email)
		logger.Info("email notifications enabled", "from", cfg.MailFromEmail)
	}

	if cfg.AMQPURL != "" {
		publisher, err := notify.NewEventPublisher(cfg.AMQPURL)
		if err != nil {
			logger.Error("failed to connect event publisher, continuing without it", "error", err)
		} else {
			notifiers = append(notifiers, publisher)
			logger.Info("event publishing enabled")
		}
	}

	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return notify.NewMulti(notifiers...)
}

// resolveEmailAddress maps a gateway user id to a deliverable address. The
// gateway passes email addresses as user ids in this deployment; anything
// else has no known mailbox and is skipped.
func resolveEmailAddress(userID string) string {
	if strings.Contains(userID, "@") {
		return strings.TrimSpace(userID)
	}
	return ""
}
