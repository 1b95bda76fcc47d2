package bot

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"sattbot/events"
	"sattbot/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	GuildID string
}

type Bot struct {
	config        Config
	session       *discordgo.Session
	permissions   service.PermissionService
	guildSettings service.GuildSettingsService
	feedService   service.FeedService
	qotdService   service.QOTDService
	antiSpam      *service.AntiSpamTracker
	fetcher       service.FeedFetcher
	eventBus      *events.Bus
}

// New wires handlers onto an existing session, opens the gateway
// connection and registers slash commands. The session is created by the
// caller so the messenger can share it.
func New(
	config Config,
	dg *discordgo.Session,
	permissions service.PermissionService,
	guildSettings service.GuildSettingsService,
	feedService service.FeedService,
	qotdService service.QOTDService,
	antiSpam *service.AntiSpamTracker,
	fetcher service.FeedFetcher,
	eventBus *events.Bus,
) (*Bot, error) {
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers

	bot := &Bot{
		config:        config,
		session:       dg,
		permissions:   permissions,
		guildSettings: guildSettings,
		feedService:   feedService,
		qotdService:   qotdService,
		antiSpam:      antiSpam,
		fetcher:       fetcher,
		eventBus:      eventBus,
	}

	dg.AddHandler(bot.handleCommands)
	dg.AddHandler(bot.handleMessageCreate)
	dg.AddHandler(bot.handleGuildCreate)
	dg.AddHandler(bot.handleGuildDelete)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	// Announce anti-spam mutes in the channel the spam happened in
	eventBus.Subscribe(events.EventTypeMemberMuted, func(ctx context.Context, event events.Event) {
		muted, ok := event.(events.MemberMutedEvent)
		if !ok {
			return
		}
		notice := fmt.Sprintf("<@%d> has been timed out for %d seconds (%d messages in under %d seconds).",
			muted.MemberID, muted.DurationSecs, muted.MessageCount, muted.DurationSecs)
		if _, err := dg.ChannelMessageSend(strconv.FormatInt(muted.ChannelID, 10), notice); err != nil {
			log.WithError(err).WithField("guildID", muted.GuildID).Warn("Failed to post mute notice")
		}
	})

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// handleMessageCreate feeds guild messages into the anti-spam tracker
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" || m.Member == nil {
		return
	}

	guildID, err := strconv.ParseInt(m.GuildID, 10, 64)
	if err != nil {
		return
	}
	memberID, err := strconv.ParseInt(m.Author.ID, 10, 64)
	if err != nil {
		return
	}
	channelID, err := strconv.ParseInt(m.ChannelID, 10, 64)
	if err != nil {
		return
	}

	isAdmin := m.Member.Permissions&discordgo.PermissionAdministrator != 0

	// Fire and forget: message handling must never block on the gateway
	go b.antiSpam.HandleMessage(context.Background(), guildID, memberID, channelID, isAdmin)
}

// handleGuildCreate registers a guild on join (and on session resume, where
// it is a no-op)
func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	guildID, err := strconv.ParseInt(g.ID, 10, 64)
	if err != nil {
		return
	}

	if err := b.guildSettings.EnsureGuild(context.Background(), guildID); err != nil {
		log.WithError(err).WithField("guildID", guildID).Error("Failed to register guild")
		return
	}
	log.WithFields(log.Fields{
		"guildID": guildID,
		"name":    g.Name,
	}).Info("Guild registered")
}

// handleGuildDelete removes a guild's data when the bot is kicked. Outages
// deliver unavailable guilds, which must not wipe anything.
func (b *Bot) handleGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		return
	}

	guildID, err := strconv.ParseInt(g.ID, 10, 64)
	if err != nil {
		return
	}

	if err := b.guildSettings.RemoveGuild(context.Background(), guildID); err != nil {
		log.WithError(err).WithField("guildID", guildID).Error("Failed to remove guild")
		return
	}
	b.antiSpam.ForgetGuild(guildID)
	log.WithField("guildID", guildID).Info("Guild removed")
}
