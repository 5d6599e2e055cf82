package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"review-bot/internal/analytics"
	"review-bot/internal/config"
	"review-bot/internal/dialog"
	"review-bot/internal/scheduler"
	"review-bot/internal/storage"
	"review-bot/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{
		Driver:        cfg.StoreDriver,
		SQLitePath:    cfg.SQLitePath,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		FilePath:      cfg.ReviewsFilePath,
	})
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("failed to close store: %v", err)
		}
	}()

	msgs, err := dialog.LoadMessages(cfg.MessagesFilePath)
	if err != nil {
		log.Printf("using default messages: %v", err)
	}

	api, err := telegram.NewAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}
	transport := telegram.NewTransport(api, cfg.MessageParseMode)

	controller := dialog.NewController(store, transport, msgs, dialog.Config{
		Cooldown:       cfg.Cooldown,
		ResetDelay:     cfg.ResetDelay,
		ExcerptLimit:   cfg.ExcerptLimit,
		SupportContact: cfg.SupportContact,
	})
	defer controller.Close()

	report := func(ctx context.Context, asJSON bool) (string, error) {
		return analytics.RenderDailyReport(ctx, store, time.Now().UTC(), asJSON)
	}

	sched := scheduler.New()
	if cfg.AdminUserID != 0 {
		sched.SetReportFunction(func(ctx context.Context) error {
			text, err := report(ctx, false)
			if err != nil {
				return err
			}
			return transport.SendText(cfg.AdminUserID, text)
		})
	}
	if err := sched.Start(cfg.ReportCron); err != nil {
		log.Printf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	bot := telegram.New(api, controller, cfg.AdminUserID, report)
	bot.Start(ctx)
	log.Println("shutting down")
}
