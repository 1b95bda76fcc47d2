package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"sattbot/bot"
	"sattbot/config"
	"sattbot/database"
	"sattbot/events"
	"sattbot/feed"
	"sattbot/repository"
	"sattbot/scheduler"
	"sattbot/service"
)

const (
	dailyNewsJob   = "daily-news"
	dailyQOTDJob   = "daily-qotd"
	revealSweepJob = "qotd-reveal-sweep"
	retentionJob   = "retention-sweep"

	retentionEvery = 24 * time.Hour
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting sattbot...")

	// Load configuration
	cfg := config.Get()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Apply pending migrations before serving anything
	log.Println("Running database migrations...")
	if err := database.MigrateUp(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// The Discord session is created up front so the messenger and the bot
	// can share it
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	messenger := bot.NewMessenger(session)

	// Initialize services
	log.Println("Initializing services...")
	feedClient := feed.NewClient(cfg.NewsFeedURL, cfg.QOTDFeedURL)
	permissionService := service.NewPermissionService(uowFactory, service.DefaultCommandAccess)
	guildSettingsService := service.NewGuildSettingsService(uowFactory, service.DefaultCommandAccess)
	feedService := service.NewFeedService(uowFactory, feedClient, messenger)
	qotdService := service.NewQOTDService(uowFactory, feedClient, messenger, eventBus, cfg.QOTDRevealDelay)
	retentionService := service.NewRetentionService(uowFactory)
	antiSpam := service.NewAntiSpamTracker(uowFactory, messenger, eventBus)
	log.Println("Services initialized successfully")

	// Register scheduled jobs
	runner := scheduler.NewRunner(uowFactory)

	dailyTrigger, err := scheduler.DailyAt(cfg.DailyPostHour, 0)
	if err != nil {
		return fmt.Errorf("failed to build daily trigger: %w", err)
	}

	runner.Register(scheduler.Job{
		Name:    dailyNewsJob,
		Trigger: dailyTrigger,
		CatchUp: true,
		Run:     feedService.RunDailyNews,
	})
	runner.Register(scheduler.Job{
		Name:    dailyQOTDJob,
		Trigger: dailyTrigger,
		CatchUp: true,
		Run:     qotdService.RunDailyPoll,
	})
	runner.Register(scheduler.Job{
		Name:    revealSweepJob,
		Trigger: scheduler.Every(cfg.RevealSweepEvery),
		Run:     qotdService.RevealDuePolls,
	})
	runner.Register(scheduler.Job{
		Name:    retentionJob,
		Trigger: scheduler.Every(retentionEvery),
		Run:     retentionService.Sweep,
	})

	// Initialize Discord bot
	log.Println("Initializing Discord bot...")
	botConfig := bot.Config{
		GuildID: cfg.DiscordGuildID,
	}
	discordBot, err := bot.New(botConfig, session, permissionService, guildSettingsService, feedService, qotdService, antiSpam, feedClient, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Println("Discord bot initialized successfully")

	// Start scheduled jobs after the bot is connected so catch-up posts land
	if err := runner.Start(ctx); err != nil {
		discordBot.Close()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Wait for context cancellation
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down bot...")

	runner.Stop()

	// Close Discord bot connection
	if err := discordBot.Close(); err != nil {
		log.Printf("Error closing Discord bot: %v", err)
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}
