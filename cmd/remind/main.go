package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/classpoint/classpoint-api/internal/config"
	"github.com/classpoint/classpoint-api/internal/database"
	"github.com/classpoint/classpoint-api/internal/repository"
	"github.com/classpoint/classpoint-api/internal/service"
	"github.com/classpoint/classpoint-api/internal/timeutil"
	"github.com/classpoint/classpoint-api/pkg/mailer"
)

// One-shot deadline reminder job, meant to run from cron.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("job", "remind").Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	var mail mailer.Mailer
	if cfg.SMTPHost != "" {
		smtp, err := mailer.NewSMTP(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			Sender:   cfg.SMTPSender,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create mailer: %v", err)
		}
		mail = smtp
	} else {
		mail = mailer.NewLog(logger)
	}

	clock := timeutil.NewClock(cfg.ClockOffsetHours)
	reminders := service.NewReminderService(repository.NewReminderRepository(db), mail, logger, clock.Now)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := reminders.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("reminder run aborted")
		os.Exit(1)
	}

	logger.Info().
		Int("sent", summary.Sent).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("reminder job done")
}
