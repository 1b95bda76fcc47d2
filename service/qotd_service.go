package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"sattbot/events"
	"sattbot/models"
)

// qotdService implements the QOTDService interface
type qotdService struct {
	uowFactory  UnitOfWorkFactory
	fetcher     FeedFetcher
	messenger   Messenger
	bus         *events.Bus
	revealDelay time.Duration

	// now is replaceable in tests
	now func() time.Time
}

// NewQOTDService creates a new question-of-the-day service. revealDelay is
// how long a poll stays open before the answer is revealed; it is fixed per
// deployment, not per guild.
func NewQOTDService(uowFactory UnitOfWorkFactory, fetcher FeedFetcher, messenger Messenger, bus *events.Bus, revealDelay time.Duration) QOTDService {
	return &qotdService{
		uowFactory:  uowFactory,
		fetcher:     fetcher,
		messenger:   messenger,
		bus:         bus,
		revealDelay: revealDelay,
		now:         time.Now,
	}
}

// RunDailyPoll fetches today's question and posts a poll to every guild
// with a QOTD channel configured. Per-guild failures are logged and
// skipped. A guild with a prior poll still pending gets today's poll too;
// pending reveals are tracked independently per poll.
func (s *qotdService) RunDailyPoll(ctx context.Context) error {
	items, err := s.fetcher.FetchQOTD(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch QOTD feed: %w", err)
	}
	if len(items) == 0 {
		log.Info("QOTD: feed returned no items")
		return nil
	}
	item := items[0]

	configs, err := s.configuredGuilds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list configured guilds: %w", err)
	}

	for _, cfg := range configs {
		if cfg.ChannelID == nil {
			continue
		}
		if _, err := s.PostPollForGuild(ctx, cfg.GuildID, *cfg.ChannelID, item); err != nil {
			log.WithError(err).WithField("guildID", cfg.GuildID).Warn("QOTD: guild failed, skipping")
		}
	}
	return nil
}

// PostPollForGuild posts a poll for the given feed item and registers the
// pending reveal durably, so a restart neither loses nor duplicates it
func (s *qotdService) PostPollForGuild(ctx context.Context, guildID, channelID int64, item models.FeedItem) (*models.ActivePoll, error) {
	question := ExtractQuestion(item.Title)

	messageID, err := s.messenger.PostPoll(ctx, channelID, question, s.revealDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to post poll to channel %d: %w", channelID, err)
	}

	answerData, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize answer data: %w", err)
	}

	poll := &models.ActivePoll{
		GuildID:    guildID,
		ChannelID:  channelID,
		MessageID:  messageID,
		Question:   question,
		AnswerData: answerData,
		RevealAt:   s.now().Add(s.revealDelay),
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PollRepository().CreatePoll(ctx, poll); err != nil {
		return nil, fmt.Errorf("failed to register poll: %w", err)
	}

	uow.EventBus().Publish(events.PollPostedEvent{
		PollID:    poll.ID,
		GuildID:   guildID,
		ChannelID: channelID,
		MessageID: messageID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"guildID":  guildID,
		"pollID":   poll.ID,
		"revealAt": poll.RevealAt,
	}).Info("QOTD: posted poll")

	return poll, nil
}

// RevealDuePolls finds polls past their reveal time and posts each answer
// exactly once. The revealed flag is flipped with a conditional update
// before posting, so overlapping sweeps cannot double-post; a failed answer
// post leaves the poll revealed (at-most-once delivery, by contract).
func (s *qotdService) RevealDuePolls(ctx context.Context) error {
	due, err := s.duePolls(ctx)
	if err != nil {
		return fmt.Errorf("failed to list due polls: %w", err)
	}

	for _, poll := range due {
		if err := s.revealOne(ctx, poll); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"guildID": poll.GuildID,
				"pollID":  poll.ID,
			}).Warn("QOTD reveal: poll failed, skipping")
		}
	}
	return nil
}

func (s *qotdService) revealOne(ctx context.Context, poll *models.ActivePoll) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	won, err := uow.PollRepository().MarkRevealed(ctx, poll.ID)
	if err != nil {
		return fmt.Errorf("failed to mark poll revealed: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	if !won {
		// Another sweep already owns this reveal
		return nil
	}

	var item models.FeedItem
	if err := json.Unmarshal(poll.AnswerData, &item); err != nil {
		log.WithError(err).WithField("pollID", poll.ID).Error("QOTD reveal: stored answer data is unreadable")
		s.emitRevealed(ctx, poll, false)
		return nil
	}

	posted := true
	if err := s.messenger.PostReveal(ctx, poll.ChannelID, poll.MessageID, poll.Question, &item); err != nil {
		// The poll stays revealed: retrying forever against a deleted
		// channel or revoked permission would storm the gateway
		log.WithError(err).WithFields(log.Fields{
			"guildID": poll.GuildID,
			"pollID":  poll.ID,
		}).Warn("QOTD reveal: failed to post answer, poll marked revealed anyway")
		posted = false
	} else {
		log.WithFields(log.Fields{
			"guildID": poll.GuildID,
			"pollID":  poll.ID,
		}).Info("QOTD reveal: posted answer")
	}

	s.emitRevealed(ctx, poll, posted)
	return nil
}

func (s *qotdService) emitRevealed(ctx context.Context, poll *models.ActivePoll, posted bool) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(ctx, events.PollRevealedEvent{
		PollID:  poll.ID,
		GuildID: poll.GuildID,
		Posted:  posted,
	})
}

// QOTDChannel returns the configured channel for a guild, nil if unset
func (s *qotdService) QOTDChannel(ctx context.Context, guildID int64) (*int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.PollRepository().GetChannel(ctx, guildID)
}

// SetQOTDChannel configures the QOTD channel for a guild
func (s *qotdService) SetQOTDChannel(ctx context.Context, guildID int64, channelID *int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PollRepository().SetChannel(ctx, guildID, channelID); err != nil {
		return fmt.Errorf("failed to set QOTD channel: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *qotdService) duePolls(ctx context.Context) ([]*models.ActivePoll, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.PollRepository().GetDuePolls(ctx, s.now())
}

func (s *qotdService) configuredGuilds(ctx context.Context) ([]models.QOTDChannelConfig, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.PollRepository().ListConfiguredGuilds(ctx)
}

// ExtractQuestion strips the date prefix the feed puts on QOTD titles,
// e.g. "2026-02-27: Is the sky blue?" -> "Is the sky blue?"
func ExtractQuestion(title string) string {
	if _, rest, ok := strings.Cut(title, ": "); ok {
		return rest
	}
	return title
}
