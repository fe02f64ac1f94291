package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/reportmill/internal/api"
	"github.com/reportmill/internal/auth"
	"github.com/reportmill/internal/config"
	"github.com/reportmill/internal/database"
	"github.com/reportmill/internal/delivery"
	"github.com/reportmill/internal/ledger"
	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/notify"
	"github.com/reportmill/internal/pipeline"
	"github.com/reportmill/internal/report"
	"github.com/reportmill/internal/schedule"
	"github.com/reportmill/internal/service"
	"github.com/reportmill/internal/storage"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg := config.LoadConfig()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close(db)

	if err := bootstrapAdmin(db, log); err != nil {
		log.Warn().Err(err).Msg("failed to bootstrap admin user")
	}

	store, err := storage.NewLocalStore(cfg.Reports.OutputDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize artifact store")
	}

	loc, err := time.LoadLocation(cfg.Reports.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.Reports.Timezone).Msg("invalid timezone, using UTC")
		loc = time.UTC
	}

	mailer := delivery.NewMailer(delivery.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		Password: cfg.SMTP.Password,
	})
	notifier := notify.NewSlackNotifier(cfg.Slack.Token, cfg.Slack.Channel)
	led := ledger.New(db)
	provider := report.NewDBProvider(db)

	pl := pipeline.New(provider, store, mailer, led, notifier, log)
	resolver := schedule.NewResolver(cfg.Reports.RunHour, loc)
	reports := service.NewReportService(db, pl, resolver, log)

	if err := reports.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer reports.Stop()

	tokens := auth.NewTokens(cfg.Server.JWTSecret)
	server := api.NewServer(db, reports, led, store, tokens)
	if err := server.Start(cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// bootstrapAdmin creates a default admin account on an empty users table so
// a fresh install is reachable. The password must be changed after first
// login.
func bootstrapAdmin(db *gorm.DB, log zerolog.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	admin := models.User{
		Username: "admin",
		Email:    "admin@reportmill.local",
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := admin.SetPassword("admin"); err != nil {
		return err
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Info().Msg("created default admin user (username: admin)")
	return nil
}
