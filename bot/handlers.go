package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"sattbot/models"
	"sattbot/service"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	// Guild-only bot: reject DMs outright
	if i.Member == nil || i.GuildID == "" {
		b.respondEphemeral(s, i, "This bot only works inside a server.")
		return
	}

	name := i.ApplicationCommandData().Name

	actor, guildID, err := b.actorFromInteraction(i)
	if err != nil {
		log.WithError(err).Warn("Failed to parse interaction actor")
		b.respondEphemeral(s, i, "Unable to process request. Please try again.")
		return
	}

	ctx := context.Background()

	// Permission management is gated on native admin, never on configurable
	// policy: a guild must not be able to lock itself out of it
	switch name {
	case "permissions", "settings":
		if !actor.IsAdmin {
			b.respondEphemeral(s, i, "You need the Administrator permission to use this command.")
			return
		}
	default:
		if err := b.permissions.Resolve(ctx, guildID, actor, name); err != nil {
			switch {
			case errors.Is(err, service.ErrUnknownCommand):
				b.respondEphemeral(s, i, "Unknown command.")
			case errors.Is(err, service.ErrPermissionDenied):
				b.respondEphemeral(s, i, "You don't have permission to use this command here.")
			default:
				log.WithError(err).WithField("command", name).Error("Permission resolution failed")
				b.respondEphemeral(s, i, "Unable to process request. Please try again.")
			}
			return
		}
	}

	switch name {
	case "help":
		b.handleHelp(s, i, guildID)
	case "ping":
		b.handlePing(s, i)
	case "meme":
		b.respond(s, i, "The meme machine is napping right now. Try again later.")
	case "roastme":
		b.respond(s, i, "You got lucky: the roast generator is offline. Consider yourself spared.")
	case "topchatter":
		b.handleTopChatter(s, i, guildID)
	case "inactive":
		b.handleInactive(s, i, guildID)
	case "nuke":
		b.handleNuke(s, i, guildID)
	case "dailynews":
		b.handleDailyNews(s, i, guildID)
	case "qotd":
		b.handleQOTD(s, i, guildID)
	case "qotd-channel":
		b.handleSetChannel(s, i, guildID, "QOTD polls", b.qotdService.SetQOTDChannel)
	case "rss-channel":
		b.handleSetChannel(s, i, guildID, "daily news", b.feedService.SetNewsChannel)
	case "rss-fetch":
		b.handleRSSFetch(s, i, guildID)
	case "permissions":
		b.handlePermissions(s, i, guildID)
	case "settings":
		b.handleSettings(s, i, guildID)
	}
}

// actorFromInteraction builds the permission actor from the invoking member
func (b *Bot) actorFromInteraction(i *discordgo.InteractionCreate) (service.Actor, int64, error) {
	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		return service.Actor{}, 0, fmt.Errorf("bad guild ID %q: %w", i.GuildID, err)
	}

	userID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		return service.Actor{}, 0, fmt.Errorf("bad user ID %q: %w", i.Member.User.ID, err)
	}

	roleIDs := make([]int64, 0, len(i.Member.Roles))
	for _, role := range i.Member.Roles {
		roleID, err := strconv.ParseInt(role, 10, 64)
		if err != nil {
			continue
		}
		roleIDs = append(roleIDs, roleID)
	}

	return service.Actor{
		UserID:  userID,
		IsAdmin: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
		RoleIDs: roleIDs,
	}, guildID, nil
}

func (b *Bot) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	access, grants, err := b.permissions.Overview(context.Background(), guildID)
	if err != nil {
		log.WithError(err).Error("Failed to build command overview")
		b.respondEphemeral(s, i, "Unable to retrieve the command list. Please try again.")
		return
	}

	names := make([]string, 0, len(access))
	for name := range access {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("**Commands**\n")
	for _, name := range names {
		switch access[name] {
		case models.AccessPublic:
			fmt.Fprintf(&sb, "• `/%s` — everyone\n", name)
		case models.AccessAdminOnly:
			fmt.Fprintf(&sb, "• `/%s` — admins\n", name)
		case models.AccessRestricted:
			mentions := make([]string, 0, len(grants[name]))
			for _, roleID := range grants[name] {
				mentions = append(mentions, fmt.Sprintf("<@&%d>", roleID))
			}
			if len(mentions) == 0 {
				fmt.Fprintf(&sb, "• `/%s` — admins\n", name)
			} else {
				fmt.Fprintf(&sb, "• `/%s` — %s\n", name, strings.Join(mentions, ", "))
			}
		}
	}

	b.respondEphemeral(s, i, sb.String())
}

func (b *Bot) handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.respond(s, i, fmt.Sprintf("Pong! Gateway latency: %dms", s.HeartbeatLatency().Milliseconds()))
}

func (b *Bot) handleTopChatter(s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	if !b.deferResponse(s, i) {
		return
	}

	settings, err := b.guildSettings.GetOrCreateSettings(context.Background(), guildID)
	if err != nil {
		b.followUpError(s, i, "Unable to load settings. Please try again.")
		return
	}

	messages, err := b.channelHistory(i.ChannelID, settings.ScanLimit)
	if err != nil {
		log.WithError(err).Error("Failed to scan channel history")
		b.followUpError(s, i, "Unable to read this channel's history.")
		return
	}

	counts := make(map[string]int)
	for _, msg := range messages {
		if msg.Author == nil || msg.Author.Bot {
			continue
		}
		counts[msg.Author.ID]++
	}
	if len(counts) == 0 {
		b.followUp(s, i, "Nobody has said anything here yet.")
		return
	}

	type entry struct {
		userID string
		count  int
	}
	ranked := make([]entry, 0, len(counts))
	for userID, count := range counts {
		ranked = append(ranked, entry{userID, count})
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].count != ranked[b].count {
			return ranked[a].count > ranked[b].count
		}
		return ranked[a].userID < ranked[b].userID
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Top chatters** (last %d messages)\n", len(messages))
	medals := []string{"🥇", "🥈", "🥉", "4.", "5."}
	for idx, e := range ranked {
		fmt.Fprintf(&sb, "%s <@%s> — %d messages\n", medals[idx], e.userID, e.count)
	}
	b.followUp(s, i, sb.String())
}

func (b *Bot) handleInactive(s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	if !b.deferResponse(s, i) {
		return
	}

	settings, err := b.guildSettings.GetOrCreateSettings(context.Background(), guildID)
	if err != nil {
		b.followUpError(s, i, "Unable to load settings. Please try again.")
		return
	}

	messages, err := b.channelHistory(i.ChannelID, settings.ScanLimit)
	if err != nil {
		log.WithError(err).Error("Failed to scan channel history")
		b.followUpError(s, i, "Unable to read this channel's history.")
		return
	}

	active := make(map[string]bool)
	for _, msg := range messages {
		if msg.Author != nil {
			active[msg.Author.ID] = true
		}
	}

	members, err := s.GuildMembers(i.GuildID, "", 1000)
	if err != nil {
		log.WithError(err).Error("Failed to list guild members")
		b.followUpError(s, i, "Unable to list server members.")
		return
	}

	var inactive []string
	for _, member := range members {
		if member.User == nil || member.User.Bot {
			continue
		}
		if !active[member.User.ID] {
			inactive = append(inactive, fmt.Sprintf("<@%s>", member.User.ID))
		}
	}

	if len(inactive) == 0 {
		b.followUp(s, i, "Everyone has been active here recently. 🎉")
		return
	}

	const maxListed = 25
	suffix := ""
	if len(inactive) > maxListed {
		suffix = fmt.Sprintf("\n…and %d more", len(inactive)-maxListed)
		inactive = inactive[:maxListed]
	}
	b.followUp(s, i, fmt.Sprintf("**%d members with no messages in the last %d scanned:**\n%s%s",
		len(inactive), len(messages), strings.Join(inactive, " "), suffix))
}

func (b *Bot) handleNuke(s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 || !options[0].BoolValue() {
		b.respondEphemeral(s, i, "Nothing deleted. Re-run with `confirm: True` to delete old messages.")
		return
	}

	if !b.deferResponse(s, i) {
		return
	}

	settings, err := b.guildSettings.GetOrCreateSettings(context.Background(), guildID)
	if err != nil {
		b.followUpError(s, i, "Unable to load settings. Please try again.")
		return
	}

	messages, err := b.channelHistory(i.ChannelID, settings.ScanLimit)
	if err != nil {
		log.WithError(err).Error("Failed to scan channel history")
		b.followUpError(s, i, "Unable to read this channel's history.")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -settings.NukeDays)
	deleted := 0
	for _, msg := range messages {
		if !msg.Timestamp.Before(cutoff) {
			continue
		}
		// Messages past the bulk-delete age limit go one at a time
		if err := s.ChannelMessageDelete(i.ChannelID, msg.ID); err != nil {
			log.WithError(err).WithField("messageID", msg.ID).Warn("Failed to delete message")
			continue
		}
		deleted++
	}

	b.followUp(s, i, fmt.Sprintf("Deleted %d messages older than %d days.", deleted, settings.NukeDays))
}

func (b *Bot) handleDailyNews(s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	if !b.deferResponse(s, i) {
		return
	}

	channelID, err := b.targetChannel(i, b.feedService.NewsChannel, guildID)
	if err != nil {
		b.followUpError(s, i, "Unable to work out where to post. Please try again.")
		return
	}

	fetched, stored, err := b.feedService.FetchAndPostNews(context.Background(), guildID, channelID)
	if err != nil {
		log.WithError(err).Error("Manual news fetch failed")
		b.followUpError(s, i, "Unable to fetch the news feed right now.")
		return
	}

	b.followUp(s, i, fmt.Sprintf("Posted today's brief (%d items fetched, %d new).", fetched, stored))
}

func (b *Bot) handleQOTD(s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	if !b.deferResponse(s, i) {
		return
	}

	ctx := context.Background()

	items, err := b.fetcher.FetchQOTD(ctx)
	if err != nil {
		log.WithError(err).Error("Manual QOTD fetch failed")
		b.followUpError(s, i, "Unable to fetch the question feed right now.")
		return
	}
	if len(items) == 0 {
		b.followUp(s, i, "The question feed is empty today.")
		return
	}

	channelID, err := b.targetChannel(i, b.qotdService.QOTDChannel, guildID)
	if err != nil {
		b.followUpError(s, i, "Unable to work out where to post. Please try again.")
		return
	}

	poll, err := b.qotdService.PostPollForGuild(ctx, guildID, channelID, items[0])
	if err != nil {
		log.WithError(err).Error("Manual QOTD post failed")
		b.followUpError(s, i, "Unable to post the poll right now.")
		return
	}

	b.followUp(s, i, fmt.Sprintf("Poll posted. The answer reveals <t:%d:R>.", poll.RevealAt.Unix()))
}

// handleSetChannel services both channel-config commands; set is the
// service mutator for the respective feature
func (b *Bot) handleSetChannel(s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64, what string, set func(context.Context, int64, *int64) error) {
	target := i.ChannelID
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "channel" {
			target = opt.ChannelValue(s).ID
		}
	}

	channelID, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		b.respondEphemeral(s, i, "Invalid channel.")
		return
	}

	if err := set(context.Background(), guildID, &channelID); err != nil {
		log.WithError(err).Error("Failed to set channel")
		b.respondEphemeral(s, i, "Unable to save the channel. Please try again.")
		return
	}

	b.respond(s, i, fmt.Sprintf("<#%d> will now receive %s.", channelID, what))
}

func (b *Bot) handleRSSFetch(s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	b.handleDailyNews(s, i, guildID)
}

func (b *Bot) handlePermissions(s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		b.respondEphemeral(s, i, "Please specify a subcommand.")
		return
	}

	ctx := context.Background()
	sub := options[0]

	switch sub.Name {
	case "grant":
		command, roleID, ok := b.commandRoleArgs(s, i, sub.Options)
		if !ok {
			return
		}
		if err := b.permissions.Grant(ctx, guildID, command, roleID); err != nil {
			b.respondPermissionError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("`/%s` is now restricted; <@&%d> may use it.", command, roleID))

	case "revoke":
		command, roleID, ok := b.commandRoleArgs(s, i, sub.Options)
		if !ok {
			return
		}
		remaining, reverted, err := b.permissions.Revoke(ctx, guildID, command, roleID)
		if err != nil {
			b.respondPermissionError(s, i, err)
			return
		}
		if remaining == 0 {
			b.respond(s, i, fmt.Sprintf("Removed the last grant for `/%s`; it reverted to its default (%s).", command, reverted))
		} else {
			b.respond(s, i, fmt.Sprintf("Revoked <@&%d> from `/%s`; %d role(s) still have access.", roleID, command, remaining))
		}

	case "set":
		var command, access string
		for _, opt := range sub.Options {
			switch opt.Name {
			case "command":
				command = opt.StringValue()
			case "access":
				access = opt.StringValue()
			}
		}
		if err := b.permissions.SetAccess(ctx, guildID, command, models.AccessLevel(access)); err != nil {
			b.respondPermissionError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("`/%s` is now %s.", command, access))

	case "list":
		b.handleHelp(s, i, guildID)

	default:
		b.respondEphemeral(s, i, "Unknown subcommand.")
	}
}

func (b *Bot) commandRoleArgs(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, int64, bool) {
	var command string
	var roleID int64
	for _, opt := range opts {
		switch opt.Name {
		case "command":
			command = opt.StringValue()
		case "role":
			parsed, err := strconv.ParseInt(opt.RoleValue(s, i.GuildID).ID, 10, 64)
			if err != nil {
				b.respondEphemeral(s, i, "Invalid role.")
				return "", 0, false
			}
			roleID = parsed
		}
	}
	return command, roleID, true
}

func (b *Bot) respondPermissionError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if errors.Is(err, service.ErrUnknownCommand) {
		b.respondEphemeral(s, i, "No such command.")
		return
	}
	log.WithError(err).Error("Permission update failed")
	b.respondEphemeral(s, i, "Unable to update permissions. Please try again.")
}

func (b *Bot) handleSettings(s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		b.respondEphemeral(s, i, "Please specify a subcommand.")
		return
	}

	ctx := context.Background()

	switch options[0].Name {
	case "show":
		settings, err := b.guildSettings.GetOrCreateSettings(ctx, guildID)
		if err != nil {
			log.WithError(err).Error("Failed to load settings")
			b.respondEphemeral(s, i, "Unable to load settings. Please try again.")
			return
		}
		b.respondEphemeral(s, i, fmt.Sprintf(
			"**Settings**\n"+
				"• spam_max_msgs: %d\n"+
				"• spam_mute_secs: %d\n"+
				"• scan_limit: %d\n"+
				"• nuke_days: %d\n"+
				"• ai_model: %s\n"+
				"• setup_complete: %t",
			settings.SpamMaxMsgs, settings.SpamMuteSecs, settings.ScanLimit,
			settings.NukeDays, settings.AIModel, settings.SetupComplete))

	case "set":
		var key, value string
		for _, opt := range options[0].Options {
			switch opt.Name {
			case "key":
				key = opt.StringValue()
			case "value":
				value = opt.StringValue()
			}
		}
		if err := b.guildSettings.UpdateSetting(ctx, guildID, key, value); err != nil {
			b.respondEphemeral(s, i, fmt.Sprintf("Couldn't update: %v", err))
			return
		}
		b.respond(s, i, fmt.Sprintf("`%s` is now `%s`.", key, value))

	default:
		b.respondEphemeral(s, i, "Unknown subcommand.")
	}
}

// targetChannel resolves where a feature should post: the configured
// channel if set, the invoking channel otherwise
func (b *Bot) targetChannel(i *discordgo.InteractionCreate, configured func(context.Context, int64) (*int64, error), guildID int64) (int64, error) {
	ch, err := configured(context.Background(), guildID)
	if err != nil {
		return 0, err
	}
	if ch != nil {
		return *ch, nil
	}
	return strconv.ParseInt(i.ChannelID, 10, 64)
}
