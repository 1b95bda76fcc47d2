package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// registerCommands registers all slash commands with Discord. When GuildID
// is set the commands are guild-scoped, which makes them visible instantly
// during development; global commands take up to an hour to propagate.
func (b *Bot) registerCommands() error {
	channelOption := func(desc string) []*discordgo.ApplicationCommandOption {
		return []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: desc,
				Required:    false,
			},
		}
	}

	accessChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "public", Value: "public"},
		{Name: "admin_only", Value: "admin_only"},
		{Name: "restricted", Value: "restricted"},
	}

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "help",
			Description: "List commands and who can use them here",
		},
		{
			Name:        "ping",
			Description: "Check whether the bot is alive",
		},
		{
			Name:        "meme",
			Description: "Post a random meme",
		},
		{
			Name:        "roastme",
			Description: "Get roasted",
		},
		{
			Name:        "topchatter",
			Description: "Show the most active members in this channel",
		},
		{
			Name:        "inactive",
			Description: "List members with no recent messages in this channel",
		},
		{
			Name:        "nuke",
			Description: "Delete old messages from this channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "confirm",
					Description: "Set to True to confirm the deletion",
					Required:    true,
				},
			},
		},
		{
			Name:        "dailynews",
			Description: "Fetch and post today's news brief",
		},
		{
			Name:        "qotd",
			Description: "Post today's question of the day as a poll",
		},
		{
			Name:        "qotd-channel",
			Description: "Set the channel for daily question-of-the-day polls",
			Options:     channelOption("Channel for QOTD polls (omit to use the current channel)"),
		},
		{
			Name:        "rss-channel",
			Description: "Set the channel for daily news posts",
			Options:     channelOption("Channel for news posts (omit to use the current channel)"),
		},
		{
			Name:        "rss-fetch",
			Description: "Fetch the news feed now and report what's new",
		},
		{
			Name:        "permissions",
			Description: "Manage who can use commands in this server",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "grant",
					Description: "Restrict a command and allow a role to use it",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "command",
							Description: "Command name",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Role allowed to use the command",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "revoke",
					Description: "Remove a role's access to a restricted command",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "command",
							Description: "Command name",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Role to revoke",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Set a command's access level directly",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "command",
							Description: "Command name",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "access",
							Description: "Access level",
							Required:    true,
							Choices:     accessChoices,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "Show the effective access for every command",
				},
			},
		},
		{
			Name:        "settings",
			Description: "View or change this server's bot settings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Show the current settings",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Change one setting",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "key",
							Description: "Setting name",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "spam_max_msgs", Value: "spam_max_msgs"},
								{Name: "spam_mute_secs", Value: "spam_mute_secs"},
								{Name: "scan_limit", Value: "scan_limit"},
								{Name: "nuke_days", Value: "nuke_days"},
								{Name: "ai_model", Value: "ai_model"},
								{Name: "setup_complete", Value: "setup_complete"},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "value",
							Description: "New value",
							Required:    true,
						},
					},
				},
			},
		},
	}

	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}
