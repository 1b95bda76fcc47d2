package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"sattbot/events"
	"sattbot/models"
)

// feedService implements the FeedService interface
type feedService struct {
	uowFactory UnitOfWorkFactory
	fetcher    FeedFetcher
	messenger  Messenger
}

// NewFeedService creates a new feed service
func NewFeedService(uowFactory UnitOfWorkFactory, fetcher FeedFetcher, messenger Messenger) FeedService {
	return &feedService{
		uowFactory: uowFactory,
		fetcher:    fetcher,
		messenger:  messenger,
	}
}

// RunDailyNews fetches the feed once and, for every guild with a configured
// news channel, stores the new items and posts today's brief. One guild's
// failure is logged and skipped; the remaining guilds still run.
func (s *feedService) RunDailyNews(ctx context.Context) error {
	items, err := s.fetcher.FetchNews(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch news feed: %w", err)
	}
	if len(items) == 0 {
		log.Info("Daily news: feed returned no items")
		return nil
	}

	configs, err := s.configuredGuilds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list configured guilds: %w", err)
	}

	for _, cfg := range configs {
		if cfg.ChannelID == nil {
			continue
		}
		if _, err := s.ingestAndPost(ctx, cfg.GuildID, *cfg.ChannelID, items); err != nil {
			log.WithError(err).WithField("guildID", cfg.GuildID).Warn("Daily news: guild failed, skipping")
		}
	}
	return nil
}

// FetchAndPostNews runs the fetch+ingest+post path for a single guild
func (s *feedService) FetchAndPostNews(ctx context.Context, guildID, channelID int64) (int, int, error) {
	items, err := s.fetcher.FetchNews(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch news feed: %w", err)
	}
	if len(items) == 0 {
		return 0, 0, nil
	}

	stored, err := s.ingestAndPost(ctx, guildID, channelID, items)
	if err != nil {
		return len(items), stored, err
	}
	return len(items), stored, nil
}

// NewsChannel returns the configured channel for a guild, nil if unset
func (s *feedService) NewsChannel(ctx context.Context, guildID int64) (*int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.FeedRepository().GetChannel(ctx, guildID)
}

// SetNewsChannel configures the news channel for a guild
func (s *feedService) SetNewsChannel(ctx context.Context, guildID int64, channelID *int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.FeedRepository().SetChannel(ctx, guildID, channelID); err != nil {
		return fmt.Errorf("failed to set news channel: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ingestAndPost stores the new items for a guild in one transaction, then
// posts the latest brief. Posting happens outside the transaction: a failed
// post must not roll back the ingested items.
func (s *feedService) ingestAndPost(ctx context.Context, guildID, channelID int64, items []models.FeedItem) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stored, err := uow.FeedRepository().InsertNewItems(ctx, guildID, items)
	if err != nil {
		return 0, fmt.Errorf("failed to store feed items: %w", err)
	}

	uow.EventBus().Publish(events.NewsPostedEvent{
		GuildID:   guildID,
		ChannelID: channelID,
		NewItems:  stored,
	})

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"guildID": guildID,
		"stored":  stored,
	}).Info("Daily news: stored new feed items")

	// Only the latest item is posted: each feed entry is one day's brief
	latest := items[0]
	if err := s.messenger.PostNews(ctx, channelID, []*models.FeedItem{&latest}); err != nil {
		return stored, fmt.Errorf("failed to post news to channel %d: %w", channelID, err)
	}
	return stored, nil
}

func (s *feedService) configuredGuilds(ctx context.Context) ([]models.FeedChannelConfig, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.FeedRepository().ListConfiguredGuilds(ctx)
}
