package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	tele "gopkg.in/telebot.v3"
	"vadimgribanov.com/tg-remind/internal/config"
	"vadimgribanov.com/tg-remind/internal/database"
	"vadimgribanov.com/tg-remind/internal/delivery/tgbot"
	"vadimgribanov.com/tg-remind/internal/middleware"
	"vadimgribanov.com/tg-remind/internal/repositories"
	"vadimgribanov.com/tg-remind/internal/services"
	"vadimgribanov.com/tg-remind/pkg/logging"
)

func main() {
	ctx := context.Background()
	if err := logging.SetupLogger(); err != nil {
		slog.ErrorContext(ctx, "Error setting up logger", "error", err)
		return
	}

	if err := godotenv.Load(); err != nil {
		slog.ErrorContext(ctx, "Error loading .env file", "error", err)
	}

	appConfig, err := config.LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "Error loading config", "error", err)
		return
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/tg-remind.db"
	}

	db, err := database.NewDB(dbPath)
	if err != nil {
		slog.ErrorContext(ctx, "Error initializing database", "error", err)
		return
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		slog.ErrorContext(ctx, "Error running database migrations", "error", err)
		return
	}

	reminderStore := repositories.NewReminderStore()
	prefStore := repositories.NewPreferenceStore(appConfig.DefaultTimezone)
	snapshotRepo := repositories.NewSnapshotRepo(db)

	// A malformed snapshot is fatal; a missing one means a fresh start.
	reminders, err := snapshotRepo.LoadReminders()
	if err != nil {
		slog.ErrorContext(ctx, "Error loading reminders snapshot", "error", err)
		return
	}
	reminderStore.Restore(reminders)

	prefs, err := snapshotRepo.LoadPreferences()
	if err != nil {
		slog.ErrorContext(ctx, "Error loading preferences snapshot", "error", err)
		return
	}
	prefStore.Restore(prefs)

	if err := snapshotRepo.ImportLegacyTimezones(appConfig.LegacyTimezonesFile, prefStore); err != nil {
		slog.ErrorContext(ctx, "Error importing legacy timezone file", "error", err)
		return
	}

	persister := services.NewPersister(reminderStore, prefStore, snapshotRepo)
	reminderService := services.NewReminderService(reminderStore, prefStore, persister)

	var allowedUserIDs []int64
	if allowedStr := os.Getenv("ALLOWED_USER_ID"); allowedStr != "" {
		for _, idStr := range strings.Split(allowedStr, ",") {
			id, err := strconv.ParseInt(idStr, 10, 0)
			if err != nil {
				slog.ErrorContext(ctx, "Error parsing allowed user ID", "error", err)
				return
			}
			allowedUserIDs = append(allowedUserIDs, id)
		}
	}
	allowlist := middleware.Allowlist{AllowedUserIds: allowedUserIDs}

	pref := tele.Settings{
		Token:  os.Getenv("TOKEN"),
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		slog.ErrorContext(ctx, "Error creating bot", "error", err)
		return
	}

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			newCtx := context.WithValue(ctx, "tg_user_id", c.Sender().ID)
			requestID := uuid.New().String()
			newCtx = context.WithValue(newCtx, "request_id", requestID)
			c.Set("requestContext", newCtx)
			return next(c)
		}
	})
	b.Use(middleware.Logger())
	b.Use(allowlist.Middleware())

	tgbot.RegisterHandlers(b, reminderService, prefStore)

	persister.Start(ctx)
	defer persister.Stop(ctx)

	scheduler := services.NewScheduler(
		reminderStore,
		tgbot.NewNotifier(b),
		persister,
		time.Duration(appConfig.TickIntervalSeconds)*time.Second,
	)
	if err := scheduler.Start(ctx); err != nil {
		slog.ErrorContext(ctx, "Error starting scheduler", "error", err)
		return
	}
	defer scheduler.Stop(ctx)

	slog.InfoContext(ctx, "Listening...")
	b.Start()
}
